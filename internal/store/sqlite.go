// ABOUTME: SQLite-backed store handle shared by every record store
// ABOUTME: Opens the database file, applies connection pragmas, and gates access on EnsureReady

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Listing defaults used when no option overrides them
const (
	DefaultPageSize    = 20
	DefaultMaxPageSize = 100
	defaultListLimit   = 100
	maxListLimit       = 5000
)

// timeLayout is the persisted timestamp format. It sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLiteStore implements Store on top of a single SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	driver      string
	busyTimeout time.Duration
	now         func() time.Time
	newID       func() string
	pageSize    int
	maxPageSize int

	readyMu sync.Mutex
	ready   atomic.Bool
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the base logger. The store adds component=store.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l.With("component", "store")
		}
	}
}

// WithClock sets the timestamp source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the id source for new records that arrive without one.
func WithIDGenerator(newID func() string) Option {
	return func(s *SQLiteStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithDriver selects the database/sql driver: DriverModernc or DriverMattn.
func WithDriver(name string) Option {
	return func(s *SQLiteStore) {
		if name != "" {
			s.driver = name
		}
	}
}

// WithBusyTimeout sets how long a writer waits for the database lock.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithPageSizes sets the default and maximum page size for paginated listings.
func WithPageSizes(def, max int) Option {
	return func(s *SQLiteStore) {
		if def > 0 {
			s.pageSize = def
		}
		if max > 0 {
			s.maxPageSize = max
		}
		if s.pageSize > s.maxPageSize {
			s.pageSize = s.maxPageSize
		}
	}
}

// NewSQLiteStore opens the SQLite store at the given path and brings its
// schema up to date. Parent directories are created if needed.
// The returned handle is meant to be created once and shared.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		logger:      slog.Default().With("component", "store"),
		driver:      DriverModernc,
		busyTimeout: 5 * time.Second,
		now:         time.Now,
		newID:       uuid.NewString,
		pageSize:    DefaultPageSize,
		maxPageSize: DefaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	memory := path == ":memory:"
	if !memory {
		// Ensure parent directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn, err := buildDSN(s.driver, path, s.busyTimeout)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(s.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	s.db = db

	if err := s.EnsureReady(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("SQLite store initialized", "path", path, "driver", s.driver)
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// conn returns the shared handle once the schema is known to be current.
func (s *SQLiteStore) conn(ctx context.Context) (*sql.DB, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}
	return s.db, nil
}

// withTx runs fn in one transaction. The DSN makes every transaction
// BEGIN IMMEDIATE, so fn holds the write lock for its whole duration.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// timestamp returns the clock's current time at persisted precision.
func (s *SQLiteStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// likePattern builds a substring LIKE pattern for use with ESCAPE '\'.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// clampLimit applies the bulk-listing default and ceiling.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// isNumeric reports whether s is a non-empty run of ASCII digits.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
