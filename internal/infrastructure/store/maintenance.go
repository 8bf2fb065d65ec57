package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/doeshing/aicmd-go/internal/domain"
)

// All returns stored records, most recently used first. limit <= 0 returns every row.
func (s *SQLiteStore) All(ctx context.Context, limit int) ([]domain.CacheRecord, error) {
	if !s.Available() {
		return nil, domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT ` + recordColumns + ` FROM enhanced_cache ORDER BY datetime(last_used) DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []domain.CacheRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Feedback returns feedback events, newest first. An empty hash returns events for every record.
func (s *SQLiteStore) Feedback(ctx context.Context, hash string, limit int) ([]domain.FeedbackEvent, error) {
	if !s.Available() {
		return nil, domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	builder := strings.Builder{}
	builder.WriteString(`SELECT id, query_hash, command, action, timestamp FROM feedback_history`)
	var args []interface{}
	if hash != "" {
		builder.WriteString(` WHERE query_hash = ?`)
		args = append(args, hash)
	}
	builder.WriteString(` ORDER BY id DESC`)
	if limit > 0 {
		builder.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var events []domain.FeedbackEvent
	for rows.Next() {
		var (
			ev     domain.FeedbackEvent
			action string
			ts     sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.QueryHash, &ev.Command, &action, &ts); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		ev.Action = domain.FeedbackAction(action)
		ev.Timestamp = ts.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Stats summarises record counts, confidence buckets, feedback totals and file size.
func (s *SQLiteStore) Stats(ctx context.Context) (domain.CacheStats, error) {
	if !s.Available() {
		return domain.CacheStats{}, domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.CacheStats{DatabasePath: s.path}
	var confirmations, rejections sql.NullInt64
	var average sql.NullFloat64
	row := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN confidence_score >= 0.9 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN confidence_score >= 0.8 AND confidence_score < 0.9 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN confidence_score >= 0.5 AND confidence_score < 0.8 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN confidence_score < 0.5 THEN 1 ELSE 0 END), 0),
		SUM(confirmation_count),
		SUM(rejection_count),
		AVG(confidence_score)
		FROM enhanced_cache`)
	if err := row.Scan(&stats.TotalEntries, &stats.VeryHighConfidence, &stats.HighConfidence,
		&stats.MediumConfidence, &stats.LowConfidence, &confirmations, &rejections, &average); err != nil {
		return domain.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	stats.TotalConfirmations = int(confirmations.Int64)
	stats.TotalRejections = int(rejections.Int64)
	stats.AverageConfidence = average.Float64

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback_history`).Scan(&stats.FeedbackEvents); err != nil {
		return domain.CacheStats{}, fmt.Errorf("feedback stats: %w", err)
	}

	if s.path != memoryPath {
		if info, err := os.Stat(s.path); err == nil {
			stats.DatabaseBytes = info.Size()
		}
	}
	return stats, nil
}

// DeleteOlderThan removes records whose last use is before cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if !s.Available() {
		return 0, domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM enhanced_cache
		WHERE datetime(COALESCE(last_used, created_at)) < datetime(?)`,
		cutoff.UTC().Format(domain.StoreTimestampFormat))
	if err != nil {
		return 0, fmt.Errorf("delete stale records: %w", err)
	}
	return rowsAffected(res), nil
}

// EvictLRU trims the table once it holds more than limit rows, removing the
// least recently used count-limit+headroom records so eviction does not run
// on every save.
func (s *SQLiteStore) EvictLRU(ctx context.Context, limit, headroom int) (int, error) {
	if !s.Available() {
		return 0, domain.ErrStoreUnavailable
	}
	if limit <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enhanced_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	if count <= limit {
		return 0, nil
	}

	n := count - limit + headroom
	res, err := s.db.ExecContext(ctx, `DELETE FROM enhanced_cache WHERE id IN (
		SELECT id FROM enhanced_cache ORDER BY datetime(last_used) ASC, id ASC LIMIT ?)`, n)
	if err != nil {
		return 0, fmt.Errorf("evict records: %w", err)
	}
	return rowsAffected(res), nil
}

// DeleteLowConfidence removes up to max records scored below threshold,
// lowest score and oldest use first.
func (s *SQLiteStore) DeleteLowConfidence(ctx context.Context, threshold float64, max int) (int, error) {
	if !s.Available() {
		return 0, domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM enhanced_cache WHERE id IN (
		SELECT id FROM enhanced_cache WHERE confidence_score < ?
		ORDER BY confidence_score ASC, datetime(last_used) ASC LIMIT ?)`, threshold, max)
	if err != nil {
		return 0, fmt.Errorf("delete low confidence records: %w", err)
	}
	return rowsAffected(res), nil
}

// UpdateConfidence overwrites the cached score of one record without touching last_used.
func (s *SQLiteStore) UpdateConfidence(ctx context.Context, hash string, score float64) error {
	if !s.Available() {
		return domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `UPDATE enhanced_cache SET confidence_score = ? WHERE query_hash = ?`, score, hash)
	if err != nil {
		return fmt.Errorf("update confidence: %w", err)
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneFeedback removes feedback events recorded before cutoff.
func (s *SQLiteStore) PruneFeedback(ctx context.Context, cutoff time.Time) (int, error) {
	if !s.Available() {
		return 0, domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM feedback_history WHERE datetime(timestamp) < datetime(?)`,
		cutoff.UTC().Format(domain.StoreTimestampFormat))
	if err != nil {
		return 0, fmt.Errorf("prune feedback: %w", err)
	}
	return rowsAffected(res), nil
}

// Clear deletes every record and feedback event.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if !s.Available() {
		return domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range []string{`DELETE FROM enhanced_cache`, `DELETE FROM feedback_history`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return tx.Commit()
}

// Backup writes a consistent copy of the database to dest. An empty dest
// writes next to the database with a timestamp suffix.
func (s *SQLiteStore) Backup(ctx context.Context, dest string) error {
	if !s.Available() {
		return domain.ErrStoreUnavailable
	}
	if dest == "" {
		if s.path == memoryPath {
			return fmt.Errorf("backup: destination required for in-memory database")
		}
		dest = fmt.Sprintf("%s.backup.%s", s.path, s.now().Format("20060102_150405"))
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup: %s already exists", dest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("backup database: %w", err)
	}
	return nil
}

func rowsAffected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}
