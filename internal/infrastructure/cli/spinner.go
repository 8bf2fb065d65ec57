package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/doeshing/aicmd-go/internal/ports"
)

// Spinner displays an animated spinner during long operations
type Spinner struct {
	frames   []string
	interval time.Duration
	writer   io.Writer
	label    string

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		writer:   w,
		label:    label,
	}
}

// Start begins the spinner animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopChan != nil {
		return
	}
	stop := make(chan struct{})
	s.stopChan = stop

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for idx := 0; ; idx++ {
			fmt.Fprintf(s.writer, "\r%s %s", s.frames[idx%len(s.frames)], s.label)
			select {
			case <-stop:
				// Clear the spinner line
				fmt.Fprint(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner animation and waits for the line to be cleared.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop := s.stopChan
	s.stopChan = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	s.wg.Wait()
}

// spinnerGenerator shows a spinner while the wrapped generator runs.
type spinnerGenerator struct {
	next    ports.Generator
	spinner *Spinner
}

// WithSpinner wraps next so a spinner is drawn on w during each call.
// Nothing is drawn when w is not a terminal.
func WithSpinner(w io.Writer) func(ports.Generator) ports.Generator {
	return func(next ports.Generator) ports.Generator {
		if !isTerminalWriter(w) {
			return next
		}
		return &spinnerGenerator{next: next, spinner: NewSpinner(w, "Generating command...")}
	}
}

func (g *spinnerGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.spinner.Start()
	defer g.spinner.Stop()
	return g.next.Generate(ctx, prompt)
}
