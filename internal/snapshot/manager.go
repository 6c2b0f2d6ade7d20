// Package snapshot backs the SQLite database up to R2 and restores it on a
// fresh start.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/garyellow/travel-linebot-go/internal/r2client"
	"github.com/google/uuid"
)

const (
	latestName  = "latest.db.zst"
	contentType = "application/zstd"
)

// ObjectStore is the part of *r2client.Client the manager uses.
// Download must return r2client.ErrNotFound for missing keys.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Snapshotter writes a consistent database copy. *storage.DB satisfies it.
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, destPath string) error
}

// Config holds snapshot manager configuration.
type Config struct {
	Prefix  string // object key prefix, e.g. "backups"
	TempDir string // scratch space for the uncompressed copy
}

// Result describes one completed backup.
type Result struct {
	LatestKey string
	DatedKey  string
	ETag      string
	Size      int64
}

// Manager uploads and restores database backups.
type Manager struct {
	store  ObjectStore
	config Config

	now   func() time.Time
	newID func() string

	mu       sync.Mutex // one backup at a time
	lastETag string
}

// New creates a new snapshot manager.
func New(store ObjectStore, cfg Config) *Manager {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Manager{
		store:  store,
		config: cfg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// LatestKey is the object key of the most recent backup.
func (m *Manager) LatestKey() string {
	return path.Join(m.config.Prefix, latestName)
}

func (m *Manager) datedKey() string {
	stamp := m.now().UTC().Format("20060102T150405Z")
	return path.Join(m.config.Prefix, "history", stamp+"-"+m.newID()+".db.zst")
}

// Restore downloads the latest backup into dbPath when no database exists
// there yet. It reports whether a backup was restored; a missing backup is
// not an error.
func (m *Manager) Restore(ctx context.Context, dbPath string) (bool, error) {
	if _, err := os.Stat(dbPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat database: %w", err)
	}

	body, etag, err := m.store.Download(ctx, m.LatestKey())
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			slog.InfoContext(ctx, "No backup found, starting with an empty database", "key", m.LatestKey())
			return false, nil
		}
		return false, fmt.Errorf("download backup: %w", err)
	}
	defer body.Close()

	if err := r2client.DecompressStream(body, dbPath); err != nil {
		return false, fmt.Errorf("restore backup: %w", err)
	}

	m.mu.Lock()
	m.lastETag = etag
	m.mu.Unlock()

	slog.InfoContext(ctx, "Database restored from backup", "key", m.LatestKey(), "etag", etag)
	return true, nil
}

// Backup snapshots db, compresses the copy and uploads it twice: as the
// latest backup and as a uniquely named dated copy.
func (m *Manager) Backup(ctx context.Context, db Snapshotter) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapPath := filepath.Join(m.config.TempDir, fmt.Sprintf("backup_%d.db", m.now().UnixNano()))
	if err := db.CreateSnapshot(ctx, snapPath); err != nil {
		return Result{}, fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(snapPath)

	zPath := snapPath + ".zst"
	if err := r2client.CompressFile(snapPath, zPath); err != nil {
		return Result{}, fmt.Errorf("compress snapshot: %w", err)
	}
	defer os.Remove(zPath)

	f, err := os.Open(zPath)
	if err != nil {
		return Result{}, fmt.Errorf("open compressed snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat compressed snapshot: %w", err)
	}

	res := Result{LatestKey: m.LatestKey(), DatedKey: m.datedKey(), Size: info.Size()}

	if _, err := m.store.Upload(ctx, res.DatedKey, f, contentType); err != nil {
		return Result{}, fmt.Errorf("upload dated backup: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("rewind compressed snapshot: %w", err)
	}
	if res.ETag, err = m.store.Upload(ctx, res.LatestKey, f, contentType); err != nil {
		return Result{}, fmt.Errorf("upload latest backup: %w", err)
	}

	m.lastETag = res.ETag
	return res, nil
}

// LastETag returns the ETag of the last backup restored or uploaded.
func (m *Manager) LastETag() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastETag
}
