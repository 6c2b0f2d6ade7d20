package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	domerrors "github.com/garyellow/travel-linebot-go/internal/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

const (
	busyTimeoutMillis = 30000
	connMaxLifetime   = time.Hour
	slowQuery         = 500 * time.Millisecond
)

// ErrorRecorder receives failed storage operations for metrics.
type ErrorRecorder interface {
	RecordStorageError(operation string)
}

// DB wraps the SQLite database. Writes go through a single-connection pool
// so SQLite never sees competing writers; reads use a separate pool.
type DB struct {
	writer  *sql.DB
	reader  *sql.DB
	path    string
	metrics ErrorRecorder
}

// New opens (creating if needed) the database at dbPath and initializes the
// schema. ":memory:" gives a private shared-cache in-memory database.
func New(ctx context.Context, dbPath string) (*DB, error) {
	memory := dbPath == ":memory:"
	dsn := dbPath
	if memory {
		dsn = fmt.Sprintf("file:mem_%s?mode=memory&cache=shared", strings.ReplaceAll(uuid.NewString(), "-", ""))
	} else if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// An in-memory database lives only while a connection is open.
	lifetime := connMaxLifetime
	if memory {
		lifetime = 0
	}
	dsn = buildDSN(dsn, memory)

	writer, err := openPool(ctx, dsn, 1, lifetime)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	reader, err := openPool(ctx, dsn, 4, lifetime)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	db := &DB{writer: writer, reader: reader, path: dbPath}
	if err := InitSchema(ctx, writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func openPool(ctx context.Context, dsn string, maxOpen int, lifetime time.Duration) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen)
	conn.SetConnMaxLifetime(lifetime)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// buildDSN appends the connection PRAGMAs as modernc _pragma parameters so
// every pooled connection gets them, not only the first one.
func buildDSN(base string, memory bool) string {
	pragmas := []string{
		"journal_mode(WAL)",
		fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis),
		"foreign_keys(ON)",
		"synchronous(NORMAL)",
	}
	if memory {
		// WAL is ignored in memory; shared-cache readers skip table locks instead.
		pragmas = append(pragmas, "read_uncommitted(1)")
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(base)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// Close closes both pools.
func (db *DB) Close() error {
	var firstErr error
	for _, conn := range []*sql.DB{db.reader, db.writer} {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Ping checks both pools.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.writer.PingContext(ctx); err != nil {
		return fmt.Errorf("ping writer: %w", err)
	}
	if err := db.reader.PingContext(ctx); err != nil {
		return fmt.Errorf("ping reader: %w", err)
	}
	return nil
}

// SetMetrics sets the recorder for failed operations.
func (db *DB) SetMetrics(recorder ErrorRecorder) {
	db.metrics = recorder
}

// fail logs and counts a failed operation, returning the wrapped error.
func (db *DB) fail(ctx context.Context, op string, err error, args ...any) error {
	slog.ErrorContext(ctx, "storage operation failed", append([]any{"operation", op, "error", err}, args...)...)
	if db.metrics != nil {
		db.metrics.RecordStorageError(op)
	}
	return fmt.Errorf("%s: %w: %w", op, domerrors.ErrStorage, err)
}

func warnIfSlow(ctx context.Context, op string, start time.Time) {
	if d := time.Since(start); d > slowQuery {
		slog.WarnContext(ctx, "slow database operation",
			"operation", op,
			"duration_ms", d.Milliseconds())
	}
}

// NewTestDB creates an in-memory database for testing.
func NewTestDB() (*DB, error) {
	return New(context.Background(), ":memory:")
}
