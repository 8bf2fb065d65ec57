package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/ports"
)

var noAnswers = map[string]bool{
	"n": true, "no": true, "nope": true, "cancel": true,
	"否": true, "不": true, "取消": true, "0": true, "false": true,
}

// ParseAnswer maps a typed reply to an outcome. An empty reply, y, yes, ok,
// sure, 是, 好, 确认, 1, true and anything unrecognised confirm.
func ParseAnswer(line string) domain.ConfirmationOutcome {
	if noAnswers[strings.ToLower(strings.TrimSpace(line))] {
		return domain.OutcomeRejected
	}
	return domain.OutcomeConfirmed
}

type lineResult struct {
	text string
	err  error
}

// Prompter implements ConfirmationPrompter on a line-oriented terminal. A
// single reader goroutine serves every Ask so a timed-out read is not lost;
// Close stops it once it is idle.
type Prompter struct {
	in          io.Reader
	out         io.Writer
	interactive bool

	once     sync.Once
	requests chan struct{}
	lines    chan lineResult
	pending  bool
	eof      bool
	closed   bool
}

// NewPrompter constructs a prompter. When in is an *os.File it must be a
// terminal for the prompter to wait for an answer; any other reader is
// treated as interactive.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{in: in, out: out, interactive: isTerminal(in)}
}

// Interactive reports whether Ask waits for input.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Ask prints prompt and waits up to timeout for one line of input.
func (p *Prompter) Ask(ctx context.Context, prompt string, timeout time.Duration) (domain.ConfirmationOutcome, error) {
	if !p.interactive {
		return domain.OutcomeTimeout, nil
	}
	if p.eof || p.closed {
		return domain.OutcomeCancelled, nil
	}
	fmt.Fprint(p.out, prompt)

	lines := p.readLine()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-lines:
		p.pending = false
		if res.err != nil {
			p.eof = true
			fmt.Fprintln(p.out)
			if errors.Is(res.err, io.EOF) {
				if strings.TrimSpace(res.text) != "" {
					return ParseAnswer(res.text), nil
				}
				return domain.OutcomeCancelled, nil
			}
			return domain.OutcomeCancelled, res.err
		}
		return ParseAnswer(res.text), nil
	case <-timer.C:
		fmt.Fprintln(p.out)
		return domain.OutcomeTimeout, nil
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return domain.OutcomeCancelled, nil
	}
}

// Close stops the reader goroutine. A read still blocked on input finishes
// when the input is closed.
func (p *Prompter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.requests != nil {
		close(p.requests)
	}
	return nil
}

func (p *Prompter) readLine() <-chan lineResult {
	p.once.Do(func() {
		p.requests = make(chan struct{})
		p.lines = make(chan lineResult, 1)
		go p.readLoop(bufio.NewReader(p.in))
	})
	if !p.pending {
		p.requests <- struct{}{}
		p.pending = true
	}
	return p.lines
}

func (p *Prompter) readLoop(r *bufio.Reader) {
	for range p.requests {
		text, err := r.ReadString('\n')
		p.lines <- lineResult{text: text, err: err}
		if err != nil {
			return
		}
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var _ ports.ConfirmationPrompter = (*Prompter)(nil)
