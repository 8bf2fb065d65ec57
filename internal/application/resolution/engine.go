// Package resolution decides, for each query, whether to serve a learned
// command from the cache, ask the generator, or both, and feeds the user's
// answer back into the confidence of the record that served it.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/aicmd-go/internal/application/confidence"
	"github.com/doeshing/aicmd-go/internal/application/matching"
	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/pkg/logger"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// Settings holds the policy thresholds and interaction switches.
type Settings struct {
	AutoCopyThreshold    float64
	ConfidenceThreshold  float64
	SimilarityThreshold  float64
	PromptTimeout        time.Duration
	AutoConfirmOnTimeout bool
	Interactive          bool
	CacheEnabled         bool
}

// SettingsFromConfig reads the resolution, interaction and cache sections.
func SettingsFromConfig(cfg domain.Config) Settings {
	return Settings{
		AutoCopyThreshold:    cfg.Resolution.AutoCopyThreshold,
		ConfidenceThreshold:  cfg.Resolution.ConfidenceThreshold,
		SimilarityThreshold:  cfg.Resolution.SimilarityThreshold,
		PromptTimeout:        cfg.GetInteractionTimeout(),
		AutoConfirmOnTimeout: cfg.Interaction.AutoConfirmOnTimeout,
		Interactive:          cfg.Interaction.Interactive,
		CacheEnabled:         cfg.IsCacheEnabled(),
	}
}

// Dependencies are the collaborators of an Engine. Generator and Model are
// required; the rest fall back to inert defaults when nil.
type Dependencies struct {
	Store     ports.CacheRepository
	Hasher    *matching.Hasher
	Matcher   *matching.Matcher
	Model     *confidence.Model
	Generator ports.Generator
	Security  ports.SecurityService
	Prompter  ports.ConfirmationPrompter
	Presenter ports.ResolutionPresenter
	Collector ports.ContextCollector
	Logger    ports.Logger
	NewID     func() string
}

// Options adjust a single resolution.
type Options struct {
	// ForceAPI skips the cache entirely for this query.
	ForceAPI bool
}

// Engine runs the resolution state machine. It is safe to reuse across
// queries; each call is sequential and request scoped.
type Engine struct {
	deps     Dependencies
	settings Settings
}

// NewEngine validates deps and builds an engine.
func NewEngine(deps Dependencies, settings Settings) (*Engine, error) {
	if deps.Generator == nil {
		return nil, errors.New("resolution: generator is required")
	}
	if deps.Model == nil {
		return nil, errors.New("resolution: confidence model is required")
	}
	if deps.Hasher == nil {
		deps.Hasher = matching.NewHasher(matching.HashSimple, nil)
	}
	if deps.Matcher == nil {
		deps.Matcher = matching.NewMatcher(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if settings.PromptTimeout <= 0 {
		settings.PromptTimeout = domain.DefaultInteractionTimeout
	}
	return &Engine{deps: deps, settings: settings}, nil
}

// Settings returns the active policy settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// stageError marks an internal failure that sends the engine into degraded mode.
type stageError struct {
	kind domain.ErrorKind
	err  error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.kind, e.err) }
func (e *stageError) Unwrap() error { return e.err }

// candidate is the command chosen before the confirmation gate.
type candidate struct {
	hash       string
	command    string
	source     domain.Source
	confidence float64
	similarity float64
	auto       bool
	signal     domain.SafetySignal
	warnings   []string
}

// Resolve resolves query with default options.
func (e *Engine) Resolve(ctx context.Context, query string) (domain.Resolution, error) {
	return e.ResolveWith(ctx, query, Options{})
}

// ResolveWith resolves query. The only error returned is a generation failure
// with no cached command to fall back on; every other internal failure is
// reported through Resolution.Degraded and Resolution.ErrKind.
func (e *Engine) ResolveWith(ctx context.Context, query string, opts Options) (domain.Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Resolution{}, domain.ErrEmptyQuery
	}

	res := domain.Resolution{ID: e.deps.NewID(), Query: query}
	e.deps.Logger.Debug("resolving query", map[string]interface{}{"resolution_id": res.ID, "query": query})

	if opts.ForceAPI || !e.settings.CacheEnabled || !e.settings.Interactive {
		return e.direct(ctx, res)
	}
	if e.deps.Store == nil || !e.deps.Store.Available() {
		return e.degrade(ctx, res, &stageError{kind: domain.ErrorKindLookupFailure, err: domain.ErrStoreUnavailable})
	}

	hash := e.deps.Hasher.Hash(query)
	cand, err := e.selectCandidate(ctx, query, hash)
	if err != nil {
		var se *stageError
		if errors.As(err, &se) {
			return e.degrade(ctx, res, se)
		}
		res.ErrKind = domain.ErrorKindGenerationFailure
		return res, err
	}

	res.Command = cand.command
	res.Source = cand.source
	res.Confidence = cand.confidence
	res.Similarity = cand.similarity
	res.Warnings = append(res.Warnings, cand.warnings...)

	if cand.auto {
		return e.autoServe(ctx, res, cand), nil
	}

	res.Safety = e.evaluate(res.Command)
	res.Warnings = append(res.Warnings, res.Safety.Warnings...)
	if res.Safety.Blocked {
		res.Warnings = append(res.Warnings, "command blocked by guardrail")
		e.present(res)
		return res, nil
	}

	e.present(res)
	res.Outcome = e.ask(ctx, res.ID)
	confirmed, answered := e.interpret(res.Outcome)
	res.Confirmed = confirmed

	if res.Source == domain.SourceAPI {
		if err := e.save(ctx, query, hash, res.Command); err != nil {
			e.persistenceFailure(&res, "save generated command", err)
			return res, nil
		}
	}
	if answered {
		e.recordFeedback(ctx, &res, cand.hash, confirmed)
	}
	return res, nil
}

func (e *Engine) selectCandidate(ctx context.Context, query, hash string) (candidate, error) {
	record, found, err := e.deps.Store.Get(ctx, hash)
	if err != nil {
		return candidate{}, &stageError{kind: domain.ErrorKindLookupFailure, err: err}
	}
	if found {
		return e.fromExact(ctx, query, hash, record)
	}
	return e.fromSimilar(ctx, query, hash)
}

func (e *Engine) fromExact(ctx context.Context, query, hash string, record domain.CacheRecord) (candidate, error) {
	conf := e.deps.Model.ScoreRecord(record)
	cached := candidate{
		hash:       record.QueryHash,
		command:    record.Command,
		confidence: conf,
		similarity: 1.0,
	}
	e.deps.Logger.Debug("exact cache hit", map[string]interface{}{"hash": record.QueryHash, "confidence": conf})

	if conf >= e.settings.AutoCopyThreshold {
		signal := e.evaluate(record.Command)
		if !signal.ForceConfirmation && !signal.Blocked {
			cached.source = domain.SourceCacheHighConfidence
			cached.auto = true
			cached.signal = signal
			return cached, nil
		}
	}
	if conf >= e.settings.ConfidenceThreshold {
		cached.source = domain.SourceCache
		return cached, nil
	}

	command, err := e.generate(ctx, query)
	if err != nil {
		e.deps.Logger.Warn("generator failed, serving cached command", map[string]interface{}{"error": err.Error()})
		cached.source = domain.SourceCacheAPIFailed
		cached.warnings = append(cached.warnings, "generator unavailable, serving cached command")
		return cached, nil
	}
	return candidate{hash: hash, command: command, source: domain.SourceAPI}, nil
}

func (e *Engine) fromSimilar(ctx context.Context, query, hash string) (candidate, error) {
	pairs, err := e.deps.Store.ScanAll(ctx)
	if err != nil {
		return candidate{}, &stageError{kind: domain.ErrorKindMatchFailure, err: err}
	}

	var fallback *candidate
	if match, ok := e.deps.Matcher.Best(query, pairs, e.settings.SimilarityThreshold); ok {
		record, found, err := e.deps.Store.Get(ctx, e.deps.Hasher.Hash(match.Query))
		if err != nil {
			return candidate{}, &stageError{kind: domain.ErrorKindLookupFailure, err: err}
		}
		if found {
			conf := e.deps.Model.ScoreRecord(record)
			similar := candidate{
				hash:       record.QueryHash,
				command:    record.Command,
				source:     domain.SourceSimilarCache,
				confidence: conf,
				similarity: match.Score,
			}
			combined := conf * match.Score
			e.deps.Logger.Debug("similar cache hit", map[string]interface{}{
				"matched_query": match.Query,
				"similarity":    match.Score,
				"confidence":    conf,
				"combined":      combined,
			})
			if combined >= e.settings.ConfidenceThreshold {
				return similar, nil
			}
			fallback = &similar
		}
	}

	command, err := e.generate(ctx, query)
	if err == nil {
		return candidate{hash: hash, command: command, source: domain.SourceAPI}, nil
	}
	if fallback != nil {
		e.deps.Logger.Warn("generator failed, serving similar command", map[string]interface{}{"error": err.Error()})
		fallback.warnings = append(fallback.warnings, "generator unavailable, serving a similar cached command")
		return *fallback, nil
	}
	return candidate{}, err
}

func (e *Engine) autoServe(ctx context.Context, res domain.Resolution, cand candidate) domain.Resolution {
	res.Safety = cand.signal
	res.Warnings = append(res.Warnings, cand.signal.Warnings...)
	res.Confirmed = true
	res.Outcome = domain.OutcomeConfirmed
	e.present(res)

	if err := e.deps.Store.Touch(ctx, cand.hash); err != nil {
		e.persistenceFailure(&res, "advance last_used", err)
	}
	e.recordFeedback(ctx, &res, cand.hash, true)
	return res
}

// direct asks the generator without touching the cache.
func (e *Engine) direct(ctx context.Context, res domain.Resolution) (domain.Resolution, error) {
	command, err := e.generate(ctx, res.Query)
	if err != nil {
		res.ErrKind = domain.ErrorKindGenerationFailure
		return res, err
	}
	res.Command = command
	res.Source = domain.SourceAPI
	res.Safety = e.evaluate(command)
	res.Warnings = append(res.Warnings, res.Safety.Warnings...)
	if res.Safety.Blocked {
		res.Warnings = append(res.Warnings, "command blocked by guardrail")
		e.present(res)
		return res, nil
	}

	e.present(res)
	if !e.settings.Interactive {
		res.Confirmed = !res.Safety.ForceConfirmation
		return res, nil
	}
	res.Outcome = e.ask(ctx, res.ID)
	res.Confirmed, _ = e.interpret(res.Outcome)
	return res, nil
}

func (e *Engine) degrade(ctx context.Context, res domain.Resolution, cause *stageError) (domain.Resolution, error) {
	e.deps.Logger.Error("cache bypassed", cause.err, map[string]interface{}{
		"resolution_id": res.ID,
		"kind":          string(cause.kind),
	})
	res.Degraded = true
	res.ErrKind = cause.kind
	res.Warnings = append(res.Warnings, fmt.Sprintf("cache unavailable (%v), asking the generator directly", cause.err))
	return e.direct(ctx, res)
}

func (e *Engine) generate(ctx context.Context, query string) (string, error) {
	out, err := e.deps.Generator.Generate(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrGenerationFailed)
	}
	if domain.IsErrorSentinel(out) {
		return "", &domain.SentinelError{Text: out}
	}
	return out, nil
}

func (e *Engine) evaluate(command string) domain.SafetySignal {
	safe := domain.SafetySignal{Level: domain.RiskSafe, Action: domain.ActionAllow}
	if e.deps.Security == nil {
		return safe
	}
	signal, err := e.deps.Security.Evaluate(command)
	if err != nil {
		e.deps.Logger.Warn("safety evaluation failed", map[string]interface{}{"error": err.Error()})
		return safe
	}
	return signal
}

func (e *Engine) present(res domain.Resolution) {
	if e.deps.Presenter != nil {
		e.deps.Presenter.Present(res)
	}
}

func (e *Engine) ask(ctx context.Context, id string) domain.ConfirmationOutcome {
	if e.deps.Prompter == nil {
		return domain.OutcomeTimeout
	}
	outcome, err := e.deps.Prompter.Ask(ctx, domain.ConfirmationPrompt, e.settings.PromptTimeout)
	if err != nil {
		e.deps.Logger.Warn("confirmation prompt failed", map[string]interface{}{"resolution_id": id, "error": err.Error()})
		return domain.OutcomeCancelled
	}
	return outcome
}

// interpret maps a prompt outcome to (confirmed, feedback should be recorded).
func (e *Engine) interpret(outcome domain.ConfirmationOutcome) (bool, bool) {
	switch outcome {
	case domain.OutcomeConfirmed:
		return true, true
	case domain.OutcomeRejected:
		return false, true
	case domain.OutcomeTimeout:
		return e.settings.AutoConfirmOnTimeout, e.settings.AutoConfirmOnTimeout
	default:
		return false, false
	}
}

func (e *Engine) save(ctx context.Context, query, hash, command string) error {
	record := domain.CacheRecord{
		Query:           query,
		QueryHash:       hash,
		Command:         command,
		ConfidenceScore: e.deps.Model.Latent(0, 0),
	}
	if e.deps.Collector != nil {
		if snap, err := e.deps.Collector.Collect(ctx); err == nil {
			record.OSType = snap.OS
			record.ShellType = snap.Shell
		}
	}
	_, err := e.deps.Store.Upsert(ctx, record)
	return err
}

func (e *Engine) recordFeedback(ctx context.Context, res *domain.Resolution, hash string, confirmed bool) {
	action := domain.FeedbackRejected
	if confirmed {
		action = domain.FeedbackConfirmed
	}
	updated, err := e.deps.Store.ApplyFeedback(ctx, hash, action, e.deps.Model.ScoreRecord)
	if err != nil {
		e.persistenceFailure(res, "record feedback", err)
		return
	}
	e.deps.Logger.Debug("feedback recorded", map[string]interface{}{
		"resolution_id": res.ID,
		"hash":          hash,
		"action":        string(action),
		"confidence":    updated.ConfidenceScore,
	})
}

func (e *Engine) persistenceFailure(res *domain.Resolution, op string, err error) {
	e.deps.Logger.Error(op, err, map[string]interface{}{"resolution_id": res.ID})
	if res.ErrKind == domain.ErrorKindNone {
		res.ErrKind = domain.ErrorKindPersistenceFailure
	}
	res.Warnings = append(res.Warnings, fmt.Sprintf("cache not updated: %v", err))
}
