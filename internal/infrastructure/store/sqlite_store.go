// Package store persists cache records and the feedback log in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/pkg/filesystem"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// ErrNotFound is returned when no record exists for a hash.
var ErrNotFound = errors.New("cache record not found")

const memoryPath = ":memory:"

const recordColumns = `id, query, query_hash, command, confidence_score,
	confirmation_count, rejection_count, last_used, created_at, os_type, shell_type`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS enhanced_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		query_hash TEXT NOT NULL UNIQUE,
		command TEXT NOT NULL,
		confidence_score REAL NOT NULL DEFAULT 0,
		confirmation_count INTEGER NOT NULL DEFAULT 0,
		rejection_count INTEGER NOT NULL DEFAULT 0,
		last_used TEXT,
		created_at TEXT,
		os_type TEXT,
		shell_type TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_hash TEXT NOT NULL,
		command TEXT NOT NULL,
		action TEXT NOT NULL CHECK (action IN ('confirmed', 'rejected')),
		timestamp TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_query_hash ON enhanced_cache(query_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_last_used ON enhanced_cache(last_used)`,
	`CREATE INDEX IF NOT EXISTS idx_confidence_score ON enhanced_cache(confidence_score)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_query_hash ON feedback_history(query_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_timestamp ON feedback_history(timestamp)`,
}

// SQLiteStore implements ports.CacheMaintainer. A store whose database could
// not be opened reports Available() == false and fails every call with
// domain.ErrStoreUnavailable.
type SQLiteStore struct {
	db   *sql.DB
	path string
	// mu serialises read-modify-write sequences across the whole process.
	mu  sync.Mutex
	now func() time.Time
}

// Option customises a store.
type Option func(*SQLiteStore)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// DefaultPath returns ~/.aicmd/cache/aicmd.db.
func DefaultPath() string {
	return filepath.Join(filesystem.UserHomeDir(), domain.AppDirName, domain.CacheDirName, domain.DatabaseFileName)
}

// Open creates (or opens) the database at path and ensures the schema.
// An empty path uses DefaultPath; ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath()
	}

	dsn := memoryPath
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise schema: %w", err)
	}
	return s, nil
}

// Unavailable returns a store that reports Available() == false.
func Unavailable(path string) *SQLiteStore {
	return &SQLiteStore{path: path, now: time.Now}
}

func (s *SQLiteStore) init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Available reports whether the database is usable.
func (s *SQLiteStore) Available() bool {
	return s != nil && s.db != nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Get returns the record stored under hash.
func (s *SQLiteStore) Get(ctx context.Context, hash string) (domain.CacheRecord, bool, error) {
	if !s.Available() {
		return domain.CacheRecord{}, false, domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return getRecord(ctx, s.db, hash)
}

// Upsert saves record under its hash. An existing row with the same command
// only has last_used advanced; a row with a different command is replaced.
func (s *SQLiteStore) Upsert(ctx context.Context, record domain.CacheRecord) (domain.CacheRecord, error) {
	if !s.Available() {
		return domain.CacheRecord{}, domain.ErrStoreUnavailable
	}
	if record.QueryHash == "" || record.Command == "" {
		return domain.CacheRecord{}, fmt.Errorf("upsert: query hash and command are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CacheRecord{}, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	existing, found, err := getRecord(ctx, tx, record.QueryHash)
	if err != nil {
		return domain.CacheRecord{}, err
	}

	if found && existing.Command == record.Command {
		if _, err := tx.ExecContext(ctx, `UPDATE enhanced_cache SET last_used = ? WHERE query_hash = ?`, now, record.QueryHash); err != nil {
			return domain.CacheRecord{}, fmt.Errorf("touch existing record: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return domain.CacheRecord{}, fmt.Errorf("commit upsert: %w", err)
		}
		existing.LastUsed = now
		return existing, nil
	}

	if found {
		if _, err := tx.ExecContext(ctx, `DELETE FROM enhanced_cache WHERE query_hash = ?`, record.QueryHash); err != nil {
			return domain.CacheRecord{}, fmt.Errorf("replace record: %w", err)
		}
	}

	record.CreatedAt, record.LastUsed = now, now
	res, err := tx.ExecContext(ctx, `INSERT INTO enhanced_cache
		(query, query_hash, command, confidence_score, confirmation_count, rejection_count,
		 last_used, created_at, os_type, shell_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Query, record.QueryHash, record.Command, record.ConfidenceScore,
		record.ConfirmationCount, record.RejectionCount,
		record.LastUsed, record.CreatedAt, record.OSType, record.ShellType,
	)
	if err != nil {
		return domain.CacheRecord{}, fmt.Errorf("insert record: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	if err := tx.Commit(); err != nil {
		return domain.CacheRecord{}, fmt.Errorf("commit upsert: %w", err)
	}
	return record, nil
}

// Touch advances last_used for hash.
func (s *SQLiteStore) Touch(ctx context.Context, hash string) error {
	if !s.Available() {
		return domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `UPDATE enhanced_cache SET last_used = ? WHERE query_hash = ?`, s.timestamp(), hash)
	if err != nil {
		return fmt.Errorf("touch record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record stored under hash. Feedback history is kept.
func (s *SQLiteStore) Delete(ctx context.Context, hash string) error {
	if !s.Available() {
		return domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM enhanced_cache WHERE query_hash = ?`, hash); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// ScanAll returns every (query, command) pair, most recently used first.
func (s *SQLiteStore) ScanAll(ctx context.Context) ([]domain.QueryCommand, error) {
	if !s.Available() {
		return nil, domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT query, command FROM enhanced_cache ORDER BY last_used DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	defer rows.Close()

	var pairs []domain.QueryCommand
	for rows.Next() {
		var qc domain.QueryCommand
		if err := rows.Scan(&qc.Query, &qc.Command); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		pairs = append(pairs, qc)
	}
	return pairs, rows.Err()
}

// AppendFeedback writes one event to the feedback log.
func (s *SQLiteStore) AppendFeedback(ctx context.Context, event domain.FeedbackEvent) error {
	if !s.Available() {
		return domain.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Timestamp == "" {
		event.Timestamp = s.timestamp()
	}
	return insertFeedback(ctx, s.db, event)
}

// ApplyFeedback increments the counter matching action on the latest copy of
// the record, stores the score returned by rescore and appends the event in
// a single transaction.
func (s *SQLiteStore) ApplyFeedback(ctx context.Context, hash string, action domain.FeedbackAction, rescore func(domain.CacheRecord) float64) (domain.CacheRecord, error) {
	if !s.Available() {
		return domain.CacheRecord{}, domain.ErrStoreUnavailable
	}
	if !action.Valid() {
		return domain.CacheRecord{}, fmt.Errorf("invalid feedback action %q", action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CacheRecord{}, fmt.Errorf("begin feedback: %w", err)
	}
	defer tx.Rollback()

	record, found, err := getRecord(ctx, tx, hash)
	if err != nil {
		return domain.CacheRecord{}, err
	}
	if !found {
		return domain.CacheRecord{}, ErrNotFound
	}

	now := s.timestamp()
	if action == domain.FeedbackConfirmed {
		record.ConfirmationCount++
	} else {
		record.RejectionCount++
	}
	record.LastUsed = now
	if rescore != nil {
		record.ConfidenceScore = rescore(record)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE enhanced_cache
		SET confidence_score = ?, confirmation_count = ?, rejection_count = ?, last_used = ?
		WHERE query_hash = ?`,
		record.ConfidenceScore, record.ConfirmationCount, record.RejectionCount, record.LastUsed, hash,
	); err != nil {
		return domain.CacheRecord{}, fmt.Errorf("update feedback counts: %w", err)
	}

	event := domain.FeedbackEvent{QueryHash: hash, Command: record.Command, Action: action, Timestamp: now}
	if err := insertFeedback(ctx, tx, event); err != nil {
		return domain.CacheRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CacheRecord{}, fmt.Errorf("commit feedback: %w", err)
	}
	return record, nil
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(domain.StoreTimestampFormat)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func getRecord(ctx context.Context, q queryer, hash string) (domain.CacheRecord, bool, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM enhanced_cache WHERE query_hash = ?`, hash)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheRecord{}, false, nil
	}
	if err != nil {
		return domain.CacheRecord{}, false, fmt.Errorf("get record: %w", err)
	}
	return record, true, nil
}

func scanRecord(row rowScanner) (domain.CacheRecord, error) {
	var (
		rec                 domain.CacheRecord
		lastUsed, createdAt sql.NullString
		osType, shellType   sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Query, &rec.QueryHash, &rec.Command, &rec.ConfidenceScore,
		&rec.ConfirmationCount, &rec.RejectionCount, &lastUsed, &createdAt, &osType, &shellType); err != nil {
		return domain.CacheRecord{}, err
	}
	rec.LastUsed = lastUsed.String
	rec.CreatedAt = createdAt.String
	rec.OSType = osType.String
	rec.ShellType = shellType.String
	return rec, nil
}

func insertFeedback(ctx context.Context, q queryer, event domain.FeedbackEvent) error {
	if event.QueryHash == "" {
		return fmt.Errorf("feedback: query hash is required")
	}
	if !event.Action.Valid() {
		return fmt.Errorf("feedback: invalid action %q", event.Action)
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO feedback_history (query_hash, command, action, timestamp) VALUES (?, ?, ?, ?)`,
		event.QueryHash, event.Command, string(event.Action), event.Timestamp,
	); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

var _ ports.CacheMaintainer = (*SQLiteStore)(nil)
