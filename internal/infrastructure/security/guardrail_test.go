package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aicmd-go/internal/domain"
)

func missingRules(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "guardrail.yaml")
}

func newDefaultGuardrail(t *testing.T, opts ...Option) *Guardrail {
	t.Helper()
	g, err := NewGuardrail(missingRules(t), opts...)
	require.NoError(t, err)
	require.Positive(t, g.RuleCount())
	return g
}

func TestGuardrailBlocksCriticalCommands(t *testing.T) {
	g := newDefaultGuardrail(t)

	for _, command := range []string{"rm -rf /", "dd if=/dev/zero of=/dev/sda", "mkfs.ext4 /dev/sdb1", "kill -9 1"} {
		signal, err := g.Evaluate(command)
		require.NoError(t, err)
		assert.Equal(t, domain.RiskCritical, signal.Level, command)
		assert.Equal(t, domain.ActionBlock, signal.Action, command)
		assert.True(t, signal.Blocked, command)
		assert.True(t, signal.ForceConfirmation, command)
		assert.True(t, signal.DisableAutoCopy, command)
	}
}

func TestGuardrailAllowsSafeCommand(t *testing.T) {
	g := newDefaultGuardrail(t)

	for _, command := range []string{"ls -la", "rm notes-final.txt", "git status", "find . -name '*.go'"} {
		signal, err := g.Evaluate(command)
		require.NoError(t, err)
		assert.Equal(t, domain.RiskSafe, signal.Level, command)
		assert.Equal(t, domain.ActionAllow, signal.Action, command)
		assert.False(t, signal.ForceConfirmation, command)
		assert.Empty(t, signal.Warnings, command)
	}
}

func TestGuardrailProtectedPath(t *testing.T) {
	g := newDefaultGuardrail(t)

	signal, err := g.Evaluate("rm -rf /etc")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskCritical, signal.Level)
	assert.Equal(t, domain.ActionConfirm, signal.Action)
	assert.False(t, signal.Blocked)
	assert.Contains(t, signal.Warnings, "Recursive or forced delete")
	assert.Contains(t, signal.Warnings, "Recursive delete of protected path /etc")
	assert.Contains(t, signal.MatchedRules, "protected-path:/etc")
}

func TestGuardrailMostSevereRuleWins(t *testing.T) {
	g := newDefaultGuardrail(t)

	signal, err := g.Evaluate("chmod 777 script.sh && shutdown -h now")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskCritical, signal.Level)
	assert.Equal(t, domain.ActionConfirm, signal.Action)
	assert.Equal(t, []string{"Overly permissive chmod", "Shutting down the system"}, signal.Warnings)
	assert.True(t, signal.Dangerous())
}

func TestGuardrailElevatedPrivilegesOnlyWarns(t *testing.T) {
	g := newDefaultGuardrail(t)

	signal, err := g.Evaluate("sudo apt update")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskSafe, signal.Level)
	assert.False(t, signal.ForceConfirmation)
	assert.Equal(t, []string{"Runs with elevated privileges"}, signal.Warnings)
}

func TestGuardrailPolicyFlags(t *testing.T) {
	lenient := newDefaultGuardrail(t, WithPolicy(domain.SecuritySettings{Enabled: true}))

	signal, err := lenient.Evaluate("chown deploy:deploy /opt/app")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskWarning, signal.Level)
	assert.Equal(t, domain.ActionWarn, signal.Action)
	assert.False(t, signal.ForceConfirmation)
	assert.False(t, signal.DisableAutoCopy)

	signal, err = lenient.Evaluate("rm -rf /")
	require.NoError(t, err)
	assert.True(t, signal.ForceConfirmation, "blocked commands always require confirmation")
	assert.True(t, signal.DisableAutoCopy)

	strict := newDefaultGuardrail(t, WithPolicy(domain.SecuritySettings{
		Enabled:                   true,
		ForceConfirmationOnDanger: true,
		DisableAutoCopyOnDanger:   true,
	}))
	signal, err = strict.Evaluate("chown deploy:deploy /opt/app")
	require.NoError(t, err)
	assert.True(t, signal.ForceConfirmation)
	assert.True(t, signal.DisableAutoCopy)
}

func TestGuardrailDisabled(t *testing.T) {
	g := newDefaultGuardrail(t, WithPolicy(domain.SecuritySettings{Enabled: false}))

	signal, err := g.Evaluate("rm -rf /")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskSafe, signal.Level)
	assert.False(t, signal.Blocked)
}

func TestGuardrailCustomRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	rules := `rules:
  danger_patterns:
    - pattern: 'git\s+push\s+--force'
      level: high
      message: "Force push rewrites remote history"
      action: explicit_confirm
`
	require.NoError(t, os.WriteFile(path, []byte(rules), 0o600))

	g, err := NewGuardrail(path)
	require.NoError(t, err)
	assert.Equal(t, 1, g.RuleCount())

	signal, err := g.Evaluate("GIT PUSH --force origin main")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskDangerous, signal.Level)
	assert.Equal(t, domain.ActionConfirm, signal.Action)
	assert.Equal(t, []string{"Force push rewrites remote history"}, signal.Warnings)
}

func TestGuardrailRulesFileErrors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("rules: {}\n"), 0o600))
	g, err := NewGuardrail(empty)
	require.NoError(t, err)
	assert.Equal(t, newDefaultGuardrail(t).RuleCount(), g.RuleCount())

	malformed := filepath.Join(dir, "malformed.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("rules: [\n"), 0o600))
	_, err = NewGuardrail(malformed)
	assert.Error(t, err)

	badPattern := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPattern, []byte("rules:\n  danger_patterns:\n    - pattern: '(unclosed'\n"), 0o600))
	_, err = NewGuardrail(badPattern)
	assert.Error(t, err)

	embedded, err := NewDefaultGuardrail()
	require.NoError(t, err)
	assert.Equal(t, g.RuleCount(), embedded.RuleCount())
}

func TestInspectTokens(t *testing.T) {
	tests := []struct {
		command  string
		elevated bool
		deletes  []string
	}{
		{command: "sudo rm -r /usr/", elevated: true, deletes: []string{"/usr"}},
		{command: `rm -rf "/"`, deletes: []string{"/"}},
		{command: "rm --recursive ~", deletes: []string{"~"}},
		{command: "rm -r ./build", deletes: nil},
		{command: "rm /etc", deletes: nil},
		{command: "cd /tmp; rm -R /var", deletes: []string{"/var"}},
		{command: "echo sudo && ls /", deletes: nil},
	}
	for _, tt := range tests {
		got := inspectTokens(tt.command)
		assert.Equal(t, tt.elevated, got.elevated, tt.command)
		assert.Equal(t, tt.deletes, got.protectedDeletes, tt.command)
	}
}

func TestParseVocabulary(t *testing.T) {
	assert.Equal(t, domain.RiskWarning, parseRiskLevel("medium"))
	assert.Equal(t, domain.RiskDangerous, parseRiskLevel("HIGH"))
	assert.Equal(t, domain.RiskCritical, parseRiskLevel("critical"))
	assert.Equal(t, domain.ActionWarn, parseAction("preview_only", domain.RiskCritical))
	assert.Equal(t, domain.ActionConfirm, parseAction("", domain.RiskDangerous))
	assert.Equal(t, domain.ActionWarn, parseAction("", domain.RiskWarning))
}
