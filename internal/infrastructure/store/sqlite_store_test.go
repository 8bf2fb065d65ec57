package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/infrastructure/store"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func openStore(t *testing.T) (*store.SQLiteStore, *stepClock) {
	t.Helper()
	clock := &stepClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "cache", "aicmd.db"), store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func record(query, hash, command string) domain.CacheRecord {
	return domain.CacheRecord{Query: query, QueryHash: hash, Command: command, ConfidenceScore: 0.5}
}

func TestUpsertSameCommandOnlyTouches(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	first, err := s.Upsert(ctx, record("list files", "h1", "ls"))
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := s.Upsert(ctx, record("list files", "h1", "ls"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Greater(t, second.LastUsed, first.LastUsed)

	all, err := s.All(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertDifferentCommandReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	_, err := s.Upsert(ctx, record("list files", "h1", "ls"))
	require.NoError(t, err)
	_, err = s.ApplyFeedback(ctx, "h1", domain.FeedbackConfirmed, nil)
	require.NoError(t, err)

	_, err = s.Upsert(ctx, record("list files", "h1", "ls -la"))
	require.NoError(t, err)

	got, found, err := s.Get(ctx, "h1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ls -la", got.Command)
	assert.Zero(t, got.ConfirmationCount)
}

func TestUpsertRequiresHashAndCommand(t *testing.T) {
	s, _ := openStore(t)
	_, err := s.Upsert(context.Background(), record("q", "", "ls"))
	assert.Error(t, err)
	_, err = s.Upsert(context.Background(), record("q", "h", ""))
	assert.Error(t, err)
}

func TestApplyFeedbackCountsAndLogs(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	_, err := s.Upsert(ctx, record("list files", "h1", "ls"))
	require.NoError(t, err)

	rescore := func(r domain.CacheRecord) float64 {
		return float64(r.ConfirmationCount) / 10
	}
	for _, action := range []domain.FeedbackAction{domain.FeedbackConfirmed, domain.FeedbackConfirmed, domain.FeedbackRejected} {
		_, err := s.ApplyFeedback(ctx, "h1", action, rescore)
		require.NoError(t, err)
	}

	got, _, err := s.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ConfirmationCount)
	assert.Equal(t, 1, got.RejectionCount)
	assert.InDelta(t, 0.2, got.ConfidenceScore, 1e-9)

	events, err := s.Feedback(ctx, "h1", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.FeedbackRejected, events[0].Action)
	assert.Equal(t, "ls", events[0].Command)
}

func TestApplyFeedbackMissingRecord(t *testing.T) {
	s, _ := openStore(t)
	_, err := s.ApplyFeedback(context.Background(), "nope", domain.FeedbackConfirmed, nil)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.ApplyFeedback(context.Background(), "nope", domain.FeedbackAction("maybe"), nil)
	assert.Error(t, err)
}

func TestTouchMissingRecord(t *testing.T) {
	s, _ := openStore(t)
	assert.True(t, errors.Is(s.Touch(context.Background(), "nope"), store.ErrNotFound))
}

func TestScanAllMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	for _, q := range []string{"a", "b", "c"} {
		_, err := s.Upsert(ctx, record(q, "h-"+q, "echo "+q))
		require.NoError(t, err)
	}
	require.NoError(t, s.Touch(ctx, "h-a"))

	pairs, err := s.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{pairs[0].Query, pairs[1].Query, pairs[2].Query})
}

func TestUnavailableStore(t *testing.T) {
	ctx := context.Background()
	s := store.Unavailable("/nowhere/aicmd.db")
	assert.False(t, s.Available())

	_, _, err := s.Get(ctx, "h")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	_, err = s.ScanAll(ctx)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	_, err = s.Stats(ctx)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.NoError(t, s.Close())
}

func TestEvictLRU(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	for _, q := range []string{"a", "b", "c", "d", "e"} {
		_, err := s.Upsert(ctx, record(q, "h-"+q, "echo "+q))
		require.NoError(t, err)
	}

	removed, err := s.EvictLRU(ctx, 5, 1)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = s.EvictLRU(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	all, err := s.All(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "e", all[0].Query)
	assert.Equal(t, "d", all[1].Query)
}

func TestDeleteLowConfidenceAndStats(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	scores := map[string]float64{"a": 1.0, "b": 0.85, "c": 0.6, "d": 0.05, "e": 0.08}
	for _, q := range []string{"a", "b", "c", "d", "e"} {
		_, err := s.Upsert(ctx, record(q, "h-"+q, "echo "+q))
		require.NoError(t, err)
		require.NoError(t, s.UpdateConfidence(ctx, "h-"+q, scores[q]))
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalEntries)
	assert.Equal(t, 1, stats.VeryHighConfidence)
	assert.Equal(t, 1, stats.HighConfidence)
	assert.Equal(t, 1, stats.MediumConfidence)
	assert.Equal(t, 2, stats.LowConfidence)
	assert.InDelta(t, 0.516, stats.AverageConfidence, 1e-9)
	assert.Equal(t, s.Path(), stats.DatabasePath)

	removed, err := s.DeleteLowConfidence(ctx, 0.1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, found, err := s.Get(ctx, "h-d")
	require.NoError(t, err)
	assert.False(t, found)

	assert.True(t, errors.Is(s.UpdateConfidence(ctx, "h-missing", 0.5), store.ErrNotFound))
}

func TestDeleteOlderThanAndPruneFeedback(t *testing.T) {
	ctx := context.Background()
	s, clock := openStore(t)
	_, err := s.Upsert(ctx, record("old", "h-old", "echo old"))
	require.NoError(t, err)
	_, err = s.ApplyFeedback(ctx, "h-old", domain.FeedbackConfirmed, nil)
	require.NoError(t, err)

	clock.now = clock.now.Add(40 * 24 * time.Hour)
	_, err = s.Upsert(ctx, record("new", "h-new", "echo new"))
	require.NoError(t, err)

	cutoff := clock.now.Add(-30 * 24 * time.Hour)
	removed, err := s.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	pruned, err := s.PruneFeedback(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Zero(t, stats.FeedbackEvents)
}

func TestBackupAndClear(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	_, err := s.Upsert(ctx, record("list files", "h1", "ls"))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, s.Backup(ctx, dest))
	assert.Error(t, s.Backup(ctx, dest), "existing destination is not overwritten")

	require.NoError(t, s.Clear(ctx))
	all, err := s.All(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	restored, err := store.Open(ctx, dest)
	require.NoError(t, err)
	defer restored.Close()
	got, found, err := restored.Get(ctx, "h1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ls", got.Command)
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Upsert(ctx, record("q", "h", "ls"))
	require.NoError(t, err)
	_, found, err := s.Get(ctx, "h")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Error(t, s.Backup(ctx, ""))
}
