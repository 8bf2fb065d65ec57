package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/doeshing/aicmd-go/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseAnswer(t *testing.T) {
	for _, answer := range []string{"", "y", "YES", " ok ", "sure", "是", "好", "确认", "1", "true", "whatever"} {
		assert.Equal(t, domain.OutcomeConfirmed, ParseAnswer(answer), answer)
	}
	for _, answer := range []string{"n", "No", "nope", "cancel", "否", "不", "取消", "0", "false"} {
		assert.Equal(t, domain.OutcomeRejected, ParseAnswer(answer+"\n"), answer)
	}
}

func TestAskReadsOneLine(t *testing.T) {
	r, w := io.Pipe()
	var out bytes.Buffer
	p := NewPrompter(r, &out)
	require.True(t, p.Interactive())

	go func() { _, _ = io.WriteString(w, "n\n") }()
	outcome, err := p.Ask(context.Background(), domain.ConfirmationPrompt, time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, outcome)
	assert.Equal(t, domain.ConfirmationPrompt, out.String())

	require.NoError(t, p.Close())
	require.NoError(t, w.Close())
}

func TestAskTimeoutKeepsLateAnswer(t *testing.T) {
	r, w := io.Pipe()
	p := NewPrompter(r, io.Discard)

	outcome, err := p.Ask(context.Background(), "? ", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTimeout, outcome)

	go func() { _, _ = io.WriteString(w, "yes\n") }()
	outcome, err = p.Ask(context.Background(), "? ", time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeConfirmed, outcome)

	require.NoError(t, p.Close())
	require.NoError(t, w.Close())
}

func TestAskEndOfInput(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), io.Discard)
	outcome, err := p.Ask(context.Background(), "? ", time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCancelled, outcome)

	outcome, err = p.Ask(context.Background(), "? ", time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCancelled, outcome)

	p = NewPrompter(strings.NewReader("no"), io.Discard)
	outcome, err = p.Ask(context.Background(), "? ", time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, outcome)
}

func TestAskContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	p := NewPrompter(r, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := p.Ask(ctx, "? ", time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCancelled, outcome)

	require.NoError(t, w.Close())
	require.NoError(t, p.Close())
}

func TestAskWithoutTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	var out bytes.Buffer
	p := NewPrompter(f, &out)
	assert.False(t, p.Interactive())

	outcome, err := p.Ask(context.Background(), "? ", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTimeout, outcome)
	assert.Empty(t, out.String())
}
