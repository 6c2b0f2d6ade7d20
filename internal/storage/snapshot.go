package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CreateSnapshot writes a consistent copy of the database to destPath using
// VACUUM INTO. An existing file at destPath is replaced.
func (db *DB) CreateSnapshot(ctx context.Context, destPath string) error {
	if dir := filepath.Dir(destPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old snapshot: %w", err)
	}

	start := time.Now()
	if _, err := db.writer.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return db.fail(ctx, "snapshot", err, "path", destPath)
	}
	warnIfSlow(ctx, "CreateSnapshot", start)
	return nil
}
