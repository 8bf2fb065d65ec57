package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Application directory layout
const (
	AppDirName        = ".aicmd"
	ConfigFileName    = "config.yaml"
	GuardrailFileName = "guardrail.yaml"
	CacheDirName      = "cache"
	DatabaseFileName  = "aicmd.db"
)

// Resolution policy defaults
const (
	DefaultAutoCopyThreshold   = 0.9
	DefaultConfidenceThreshold = 0.8
	DefaultSimilarityThreshold = 0.7
)

// Confidence model defaults
const (
	DefaultPositiveWeight = 0.2
	DefaultNegativeWeight = 0.6
	DefaultInitialBias    = 0.3
	DefaultSensitivity    = 0.8
	DefaultHalfLifeDays   = 30.0
	DefaultMinDecay       = 0.1
)

// Cache maintenance defaults
const (
	DefaultCacheSizeLimit            = 1000
	DefaultMaxCacheAgeDays           = 30
	DefaultFeedbackRetentionDays     = 90
	DefaultLowConfidenceThreshold    = 0.1
	DefaultLowConfidenceCleanupBatch = 50
	EvictionHeadroom                 = 100
	DefaultHashStrategy              = "simple"
	DefaultCacheListLimit            = 20
)

// Timeout and duration constants
const (
	// DefaultInteractionTimeout bounds the confirmation prompt.
	DefaultInteractionTimeout = 30 * time.Second
	// DefaultAPITimeoutSeconds bounds a single generator call.
	DefaultAPITimeoutSeconds = 30
	// DefaultHTTPClientTimeout is the timeout for HTTP client requests
	DefaultHTTPClientTimeout = 60 * time.Second
)

// Model configuration constants
const (
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 1024
)

// Time formats
const (
	// StoreTimestampFormat is how timestamps are persisted in the cache database.
	StoreTimestampFormat = "2006-01-02 15:04:05"
	// TimestampFormat is used for display.
	TimestampFormat = time.RFC3339
)

// ConfirmationPrompt is shown before every confirmation read.
const ConfirmationPrompt = "Copy to clipboard? [Y/n]: "

// ErrorSentinelPrefix marks generator output that is an error message rather than a command.
const ErrorSentinelPrefix = "Error:"

// DefaultSystemPrompt is sent when a model declares no prompt template.
const DefaultSystemPrompt = "You are a helpful assistant that provides shell commands based on a user's natural language prompt. " +
	"Only provide the shell command itself, with no additional explanation, formatting, or markdown code blocks. " +
	"Do not wrap the command in backticks, code fences, or any other formatting. Return only the raw command text. " +
	"For any parameters that require user input, enclose them in angle brackets, like so: <parameter_name>."
