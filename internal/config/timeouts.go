// Package config provides centralized timeout constants for the application.
//
// LINE webhook timing:
//   - Reply token: valid for a short window, reply as soon as possible
//   - Webhook response: LINE expects a quick 200 OK, processing continues async
//   - Loading animation: shown while a provider call is in flight
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing bounds the async processing of one webhook batch,
	// including storage, one gateway call and the reply.
	WebhookProcessing = 60 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Should be short since LINE sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second

	// LoadingAnimationSeconds is how long the LINE loading indicator is shown.
	// LINE accepts multiples of 5 between 5 and 60.
	LoadingAnimationSeconds = 20

	// ProfileLookup bounds the GetProfile call made on first contact.
	ProfileLookup = 3 * time.Second
)

// Gateway timeouts
const (
	// PlacesRequest is the timeout for a single place search request.
	PlacesRequest = 10 * time.Second

	// AnswerRequest is the timeout for one answer provider attempt.
	AnswerRequest = 15 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour

	// SlowQuery is the threshold above which repository calls log a warning.
	SlowQuery = 500 * time.Millisecond
)

// Background job intervals
const (
	// HistoryCleanupInterval is how often old history rows are deleted.
	HistoryCleanupInterval = 24 * time.Hour

	// HistoryCleanupInitialDelay is the delay before the first cleanup.
	HistoryCleanupInitialDelay = 5 * time.Minute

	// BackupUpload bounds one snapshot + upload cycle.
	BackupUpload = 2 * time.Minute

	// BackupRestore bounds the restore performed at startup.
	BackupRestore = time.Minute

	// MetricsUpdateInterval is how often row count gauges are refreshed.
	MetricsUpdateInterval = 5 * time.Minute
)

// Health
const (
	// ReadinessCheck bounds the dependency pings done by /readyz.
	ReadinessCheck = 3 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
