package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/pkg/logger"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// Generator implements ports.Generator by trying each configured model in
// order until one returns a usable command.
type Generator struct {
	factory      ports.ProviderFactory
	models       []domain.ModelDefinition
	systemPrompt string
	timeout      time.Duration
	collector    ports.ContextCollector
	logger       ports.Logger
}

// GeneratorOption customises a Generator.
type GeneratorOption func(*Generator)

// WithContextCollector adds OS and shell details to every prompt.
func WithContextCollector(c ports.ContextCollector) GeneratorOption {
	return func(g *Generator) { g.collector = c }
}

// WithLogger sets the logger used to report failed models.
func WithLogger(l ports.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator builds a generator over the model chain of cfg.
func NewGenerator(factory ports.ProviderFactory, cfg domain.Config, opts ...GeneratorOption) *Generator {
	g := &Generator{
		factory:      factory,
		models:       cfg.ModelChain(),
		systemPrompt: cfg.GetSystemPrompt(),
		timeout:      cfg.GetAPITimeout(),
		logger:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Models returns the model chain in the order it is tried.
func (g *Generator) Models() []domain.ModelDefinition {
	return g.models
}

// Generate returns the first valid command produced by the model chain.
// When every model fails the error wraps domain.ErrGenerationFailed and the
// individual failures, unless a model answered with an error message: the
// last such message is returned as a *domain.SentinelError.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if len(g.models) == 0 {
		return "", fmt.Errorf("%w: no models configured", domain.ErrGenerationFailed)
	}

	snapshot := g.snapshot(ctx)
	var (
		errs     []error
		sentinel *domain.SentinelError
	)
	for _, model := range g.models {
		command, err := g.generateWith(ctx, model, prompt, snapshot)
		if err == nil {
			return command, nil
		}
		g.logger.Warn("model failed", map[string]interface{}{"model": model.Name, "error": err.Error()})
		errs = append(errs, fmt.Errorf("%s: %w", model.Name, err))
		errors.As(err, &sentinel)
		if ctx.Err() != nil {
			break
		}
	}
	if sentinel != nil {
		return "", sentinel
	}
	return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, errors.Join(errs...))
}

func (g *Generator) generateWith(ctx context.Context, model domain.ModelDefinition, prompt string, snapshot domain.ContextSnapshot) (string, error) {
	provider, err := g.factory.ForModel(model)
	if err != nil {
		return "", fmt.Errorf("provider init: %w", err)
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.logger.Debug("calling provider", map[string]interface{}{"provider": provider.Name(), "model": model.ModelID})
	resp, err := provider.Generate(callCtx, ports.ProviderRequest{
		Prompt:       prompt,
		SystemPrompt: g.systemPrompt,
		Context:      snapshot,
	})
	if err != nil {
		return "", err
	}

	command := strings.TrimSpace(resp.Command)
	switch {
	case command == "":
		return "", errors.New("empty response")
	case domain.IsErrorSentinel(command):
		return "", &domain.SentinelError{Text: command}
	}
	return command, nil
}

func (g *Generator) snapshot(ctx context.Context) domain.ContextSnapshot {
	if g.collector == nil {
		return domain.ContextSnapshot{}
	}
	snap, err := g.collector.Collect(ctx)
	if err != nil {
		g.logger.Debug("context collection failed", map[string]interface{}{"error": err.Error()})
	}
	return snap
}

var _ ports.Generator = (*Generator)(nil)
