// Package maintenance implements the administrative cache operations:
// statistics, cleanup, confidence recalculation, backup and manual feedback.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/aicmd-go/internal/application/confidence"
	"github.com/doeshing/aicmd-go/internal/application/matching"
	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/pkg/logger"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// ErrUnknownQuery is returned when manual feedback names a query that was never cached.
var ErrUnknownQuery = errors.New("no cached command for query")

// Settings mirrors the cache section of the config file.
type Settings struct {
	SizeLimit              int
	MaxAgeDays             int
	FeedbackRetentionDays  int
	LowConfidenceThreshold float64
	LowConfidenceBatch     int
}

// SettingsFromConfig applies the documented defaults to unset fields.
func SettingsFromConfig(cfg domain.Config) Settings {
	return Settings{
		SizeLimit:              cfg.GetCacheSizeLimit(),
		MaxAgeDays:             cfg.GetMaxCacheAgeDays(),
		FeedbackRetentionDays:  cfg.GetFeedbackRetentionDays(),
		LowConfidenceThreshold: cfg.GetLowConfidenceThreshold(),
		LowConfidenceBatch:     domain.DefaultLowConfidenceCleanupBatch,
	}
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for cutoffs and backup names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service runs maintenance against a cache store.
type Service struct {
	store    ports.CacheMaintainer
	model    *confidence.Model
	hasher   *matching.Hasher
	settings Settings
	now      func() time.Time
	logger   ports.Logger
}

// NewService builds a maintenance service. A nil hasher uses the simple strategy.
func NewService(store ports.CacheMaintainer, model *confidence.Model, hasher *matching.Hasher, settings Settings, opts ...Option) *Service {
	if hasher == nil {
		hasher = matching.NewHasher(matching.HashSimple, nil)
	}
	if settings.LowConfidenceBatch <= 0 {
		settings.LowConfidenceBatch = domain.DefaultLowConfidenceCleanupBatch
	}
	s := &Service{
		store:    store,
		model:    model,
		hasher:   hasher,
		settings: settings,
		now:      time.Now,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the cache summary.
func (s *Service) Stats(ctx context.Context) (domain.CacheStats, error) {
	return s.store.Stats(ctx)
}

// List returns the most recently used records.
func (s *Service) List(ctx context.Context, limit int) ([]domain.CacheRecord, error) {
	if limit <= 0 {
		limit = domain.DefaultCacheListLimit
	}
	return s.store.All(ctx, limit)
}

// History returns feedback events for query, or for every record when query is empty.
func (s *Service) History(ctx context.Context, query string, limit int) ([]domain.FeedbackEvent, error) {
	hash := ""
	if query != "" {
		hash = s.hasher.Hash(query)
	}
	return s.store.Feedback(ctx, hash, limit)
}

// Cleanup removes stale records, evicts the least recently used ones above
// the size limit, drops a batch of low-confidence records and prunes old
// feedback. It stops at the first failing step and returns what was done.
func (s *Service) Cleanup(ctx context.Context) (domain.MaintenanceReport, error) {
	var report domain.MaintenanceReport
	now := s.now()

	if s.settings.MaxAgeDays > 0 {
		n, err := s.store.DeleteOlderThan(ctx, now.AddDate(0, 0, -s.settings.MaxAgeDays))
		if err != nil {
			return report, fmt.Errorf("remove stale records: %w", err)
		}
		report.StaleRemoved = n
	}

	if s.settings.SizeLimit > 0 {
		n, err := s.store.EvictLRU(ctx, s.settings.SizeLimit, domain.EvictionHeadroom)
		if err != nil {
			return report, fmt.Errorf("evict records: %w", err)
		}
		report.EvictedLRU = n
	}

	if s.settings.LowConfidenceThreshold > 0 {
		n, err := s.store.DeleteLowConfidence(ctx, s.settings.LowConfidenceThreshold, s.settings.LowConfidenceBatch)
		if err != nil {
			return report, fmt.Errorf("remove low confidence records: %w", err)
		}
		report.LowConfidenceRemoved = n
	}

	if s.settings.FeedbackRetentionDays > 0 {
		n, err := s.store.PruneFeedback(ctx, now.AddDate(0, 0, -s.settings.FeedbackRetentionDays))
		if err != nil {
			return report, fmt.Errorf("prune feedback: %w", err)
		}
		report.FeedbackPruned = n
	}

	s.logger.Info("cache cleanup finished", map[string]interface{}{
		"stale":           report.StaleRemoved,
		"evicted":         report.EvictedLRU,
		"low_confidence":  report.LowConfidenceRemoved,
		"feedback_pruned": report.FeedbackPruned,
	})
	return report, nil
}

// Recalculate rescores every record with the current model parameters and
// returns the number of records written.
func (s *Service) Recalculate(ctx context.Context) (int, error) {
	records, err := s.store.All(ctx, 0)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, record := range records {
		if err := s.store.UpdateConfidence(ctx, record.QueryHash, s.model.ScoreRecord(record)); err != nil {
			return updated, fmt.Errorf("rescore %s: %w", record.QueryHash, err)
		}
		updated++
	}
	return updated, nil
}

// Backup copies the database. An empty dest is placed next to the database
// with a timestamp suffix. The path written is returned.
func (s *Service) Backup(ctx context.Context, dest string) (string, error) {
	if dest == "" {
		if s.store.Path() == ":memory:" {
			return "", errors.New("backup destination required for in-memory cache")
		}
		dest = fmt.Sprintf("%s.backup.%s", s.store.Path(), s.now().Format("20060102_150405"))
	}
	if err := s.store.Backup(ctx, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Clear removes every record and feedback event.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Feedback records a confirmation or rejection for the command cached under query.
func (s *Service) Feedback(ctx context.Context, query string, action domain.FeedbackAction) (domain.CacheRecord, error) {
	if !action.Valid() {
		return domain.CacheRecord{}, fmt.Errorf("invalid feedback action %q", action)
	}
	hash := s.hasher.Hash(query)
	if _, found, err := s.store.Get(ctx, hash); err != nil {
		return domain.CacheRecord{}, err
	} else if !found {
		return domain.CacheRecord{}, fmt.Errorf("%w: %q", ErrUnknownQuery, query)
	}
	return s.store.ApplyFeedback(ctx, hash, action, s.model.ScoreRecord)
}
