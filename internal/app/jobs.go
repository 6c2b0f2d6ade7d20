package app

import (
	"context"
	"time"

	"github.com/garyellow/travel-linebot-go/internal/config"
)

// startBackgroundJobs starts all background goroutines tracked by the WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.cfg.HistoryRetention > 0 {
		a.wg.Go(func() { a.historyCleanup(ctx) })
	}
	if a.backups != nil {
		a.wg.Go(func() { a.backupLoop(ctx) })
	}
	a.wg.Go(func() { a.updateStoredRowMetrics(ctx) })
}

// every runs fn after initialDelay and then on each interval until ctx ends.
func (a *Application) every(ctx context.Context, name string, initialDelay, interval time.Duration, fn func(context.Context)) {
	a.logger.WithField("job", name).Debug("Background job started")
	defer a.logger.WithField("job", name).Debug("Background job stopped")

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			start := time.Now()
			fn(ctx)
			if a.metrics != nil {
				a.metrics.RecordJob(name, time.Since(start).Seconds())
			}
			timer.Reset(interval)
		}
	}
}

func (a *Application) historyCleanup(ctx context.Context) {
	a.every(ctx, "history_cleanup", config.HistoryCleanupInitialDelay, config.HistoryCleanupInterval, a.runHistoryCleanup)
}

// runHistoryCleanup deletes history rows older than the retention window.
func (a *Application) runHistoryCleanup(ctx context.Context) {
	cutoff := time.Now().Add(-a.cfg.HistoryRetention)
	deleted, err := a.db.DeleteHistoryBefore(ctx, cutoff)
	if err != nil {
		a.logger.WithError(err).Error("History cleanup failed")
		return
	}
	a.logger.WithField("deleted", deleted).
		WithField("cutoff", cutoff.Format(time.RFC3339)).
		Info("History cleanup completed")
}

func (a *Application) backupLoop(ctx context.Context) {
	a.every(ctx, "backup", a.cfg.R2BackupInterval, a.cfg.R2BackupInterval, a.runBackup)
}

// runBackup uploads one database backup. Failures are logged only.
func (a *Application) runBackup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, config.BackupUpload)
	defer cancel()

	res, err := a.backups.Backup(ctx, a.db)
	if err != nil {
		a.logger.WithError(err).Error("Database backup failed")
		return
	}
	a.logger.WithField("key", res.DatedKey).
		WithField("size_bytes", res.Size).
		Info("Database backup uploaded")
}

func (a *Application) updateStoredRowMetrics(ctx context.Context) {
	a.recordStoredRows(ctx)
	a.every(ctx, "stored_rows", config.MetricsUpdateInterval, config.MetricsUpdateInterval, a.recordStoredRows)
}

func (a *Application) recordStoredRows(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	counts, err := a.db.Counts(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to count stored rows")
		return
	}
	for table, n := range counts {
		a.metrics.SetStoredRows(table, n)
	}
}
