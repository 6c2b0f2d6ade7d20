package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvLineChannelAccessToken = "TRAVEL_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "TRAVEL_LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "TRAVEL_PORT"
	EnvLogLevel        = "TRAVEL_LOG_LEVEL"
	EnvShutdownTimeout = "TRAVEL_SHUTDOWN_TIMEOUT"
	EnvServerName      = "TRAVEL_SERVER_NAME"

	// Data
	EnvDataDir          = "TRAVEL_DATA_DIR"
	EnvHistoryRetention = "TRAVEL_HISTORY_RETENTION"
	EnvStateBackend     = "TRAVEL_STATE_BACKEND"
	EnvRedisURL         = "TRAVEL_REDIS_URL"
	EnvStateTTL         = "TRAVEL_STATE_TTL"

	// Webhook
	EnvWebhookTimeout = "TRAVEL_WEBHOOK_TIMEOUT"

	// Places
	EnvPlacesAPIKey   = "TRAVEL_PLACES_API_KEY"
	EnvPlacesBaseURL  = "TRAVEL_PLACES_BASE_URL"
	EnvPlacesLanguage = "TRAVEL_PLACES_LANGUAGE"
	EnvPlacesTimeout  = "TRAVEL_PLACES_TIMEOUT"

	// Answer providers
	EnvAnswerProviders = "TRAVEL_ANSWER_PROVIDERS"
	EnvAnswerTimeout   = "TRAVEL_ANSWER_TIMEOUT"
	EnvAnswerMaxLength = "TRAVEL_ANSWER_MAX_LENGTH"
	EnvAnswerMaxTokens = "TRAVEL_ANSWER_MAX_TOKENS"
	EnvGeminiAPIKey    = "TRAVEL_GEMINI_API_KEY"
	EnvGeminiModel     = "TRAVEL_GEMINI_MODEL"
	EnvGroqAPIKey      = "TRAVEL_GROQ_API_KEY"
	EnvGroqModel       = "TRAVEL_GROQ_MODEL"
	EnvCerebrasAPIKey  = "TRAVEL_CEREBRAS_API_KEY"
	EnvCerebrasModel   = "TRAVEL_CEREBRAS_MODEL"
	EnvAnswerHTTPURL   = "TRAVEL_ANSWER_HTTP_URL"
	EnvAnswerHTTPKey   = "TRAVEL_ANSWER_HTTP_KEY"
	EnvAnswerHTTPAuth  = "TRAVEL_ANSWER_HTTP_AUTH"

	// R2 Backup Feature
	EnvR2Enabled         = "TRAVEL_R2_ENABLED"
	EnvR2AccountID       = "TRAVEL_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "TRAVEL_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "TRAVEL_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "TRAVEL_R2_BUCKET_NAME"
	EnvR2Endpoint        = "TRAVEL_R2_ENDPOINT"
	EnvR2BackupPrefix    = "TRAVEL_R2_BACKUP_PREFIX"
	EnvR2BackupInterval  = "TRAVEL_R2_BACKUP_INTERVAL"

	// Sentry Feature
	EnvSentryEnabled          = "TRAVEL_SENTRY_ENABLED"
	EnvSentryDSN              = "TRAVEL_SENTRY_DSN"
	EnvSentryEnvironment      = "TRAVEL_SENTRY_ENVIRONMENT"
	EnvSentryRelease          = "TRAVEL_SENTRY_RELEASE"
	EnvSentrySampleRate       = "TRAVEL_SENTRY_SAMPLE_RATE"
	EnvSentryTracesSampleRate = "TRAVEL_SENTRY_TRACES_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled  = "TRAVEL_BETTERSTACK_ENABLED"
	EnvBetterStackToken    = "TRAVEL_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "TRAVEL_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "TRAVEL_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "TRAVEL_METRICS_USERNAME"
	EnvMetricsPassword    = "TRAVEL_METRICS_PASSWORD"
)
