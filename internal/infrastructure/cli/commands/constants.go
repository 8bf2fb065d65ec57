package commands

// Error messages
const (
	ErrQueryRequired    = "a query is required"
	ErrFeedbackRequired = "one of --confirm or --reject is required"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgCacheCleared             = "Cache cleared."
)

// Flag names shared by the root and resolve commands.
const (
	FlagForceAPI = "force-api"
	FlagNoCopy   = "no-copy"
)
