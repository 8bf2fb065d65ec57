// Package ports defines the interfaces (ports) between the application layer
// and the infrastructure adapters.
//
// The resolution engine depends only on these interfaces. Concrete adapters
// (HTTP generators, the SQLite store, the YAML guardrail, the terminal
// prompter) live under internal/infrastructure and are wired in internal/app.
package ports

import (
	"context"
	"time"

	"github.com/doeshing/aicmd-go/internal/domain"
)

// ConfigProvider loads the user configuration.
type ConfigProvider interface {
	Load(ctx context.Context) (domain.Config, error)
}

// ProviderFactory builds a provider for a configured model.
type ProviderFactory interface {
	ForModel(model domain.ModelDefinition) (Provider, error)
}

// Provider talks to one remote text-generation endpoint.
type Provider interface {
	Name() string
	Model() domain.ModelDefinition
	Generate(ctx context.Context, req ProviderRequest) (ProviderResponse, error)
}

// ProviderRequest is the payload sent to a provider.
type ProviderRequest struct {
	Prompt       string
	SystemPrompt string
	Context      domain.ContextSnapshot
}

// ProviderResponse is what a provider returns.
type ProviderResponse struct {
	Command string
	Reply   string
}

// Generator turns a natural-language prompt into a command string.
// Implementations may return a string starting with domain.ErrorSentinelPrefix
// instead of an error; callers must treat both as failures.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CacheRepository is the persistent store of cache records and feedback.
type CacheRepository interface {
	Available() bool
	Get(ctx context.Context, hash string) (domain.CacheRecord, bool, error)
	Upsert(ctx context.Context, record domain.CacheRecord) (domain.CacheRecord, error)
	Touch(ctx context.Context, hash string) error
	Delete(ctx context.Context, hash string) error
	ScanAll(ctx context.Context) ([]domain.QueryCommand, error)
	AppendFeedback(ctx context.Context, event domain.FeedbackEvent) error
	// ApplyFeedback re-reads the latest counts for hash, increments the one
	// matching action, stores the score returned by rescore and appends the
	// feedback event, all in one transaction.
	ApplyFeedback(ctx context.Context, hash string, action domain.FeedbackAction, rescore func(domain.CacheRecord) float64) (domain.CacheRecord, error)
}

// CacheMaintainer exposes the administrative operations of the store.
type CacheMaintainer interface {
	CacheRepository
	All(ctx context.Context, limit int) ([]domain.CacheRecord, error)
	Feedback(ctx context.Context, hash string, limit int) ([]domain.FeedbackEvent, error)
	Stats(ctx context.Context) (domain.CacheStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	EvictLRU(ctx context.Context, limit, headroom int) (int, error)
	DeleteLowConfidence(ctx context.Context, threshold float64, max int) (int, error)
	UpdateConfidence(ctx context.Context, hash string, score float64) error
	PruneFeedback(ctx context.Context, cutoff time.Time) (int, error)
	Clear(ctx context.Context) error
	Backup(ctx context.Context, dest string) error
	Path() string
}

// SecurityService evaluates commands for risk.
type SecurityService interface {
	Evaluate(command string) (domain.SafetySignal, error)
}

// ConfirmationPrompter asks the user whether a command is correct.
type ConfirmationPrompter interface {
	Ask(ctx context.Context, prompt string, timeout time.Duration) (domain.ConfirmationOutcome, error)
}

// ResolutionPresenter shows a candidate before the user is asked about it.
type ResolutionPresenter interface {
	Present(res domain.Resolution)
}

// Clipboard copies text to the system clipboard.
type Clipboard interface {
	Copy(text string) error
	Enabled() bool
}

// ContextCollector gathers OS and shell information.
type ContextCollector interface {
	Collect(ctx context.Context) (domain.ContextSnapshot, error)
}

// Logger is the minimal structured logging interface used by services.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
