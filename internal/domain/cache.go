package domain

// CacheRecord is the learned mapping from one normalized query to a command.
type CacheRecord struct {
	ID                int64   `json:"id"`
	Query             string  `json:"query"`
	QueryHash         string  `json:"query_hash"`
	Command           string  `json:"command"`
	ConfidenceScore   float64 `json:"confidence_score"`
	ConfirmationCount int     `json:"confirmation_count"`
	RejectionCount    int     `json:"rejection_count"`
	LastUsed          string  `json:"last_used"`
	CreatedAt         string  `json:"created_at"`
	OSType            string  `json:"os_type,omitempty"`
	ShellType         string  `json:"shell_type,omitempty"`
}

// TotalFeedback returns confirmations plus rejections.
func (r CacheRecord) TotalFeedback() int {
	return r.ConfirmationCount + r.RejectionCount
}

// QueryCommand is the projection returned by a full scan of the cache.
type QueryCommand struct {
	Query   string
	Command string
}

// FeedbackAction enumerates user decisions on a served command.
type FeedbackAction string

const (
	FeedbackConfirmed FeedbackAction = "confirmed"
	FeedbackRejected  FeedbackAction = "rejected"
)

// Valid reports whether the action is one the feedback log accepts.
func (a FeedbackAction) Valid() bool {
	return a == FeedbackConfirmed || a == FeedbackRejected
}

// FeedbackEvent is one append-only entry of the feedback log.
type FeedbackEvent struct {
	ID        int64          `json:"id"`
	QueryHash string         `json:"query_hash"`
	Command   string         `json:"command"`
	Action    FeedbackAction `json:"action"`
	Timestamp string         `json:"timestamp"`
}

// CacheStats summarises the contents of the cache database.
type CacheStats struct {
	TotalEntries       int
	VeryHighConfidence int
	HighConfidence     int
	MediumConfidence   int
	LowConfidence      int
	TotalConfirmations int
	TotalRejections    int
	AverageConfidence  float64
	FeedbackEvents     int
	DatabaseBytes      int64
	DatabasePath       string
}

// MaintenanceReport counts rows removed or rewritten by a cleanup pass.
type MaintenanceReport struct {
	StaleRemoved         int
	EvictedLRU           int
	LowConfidenceRemoved int
	FeedbackPruned       int
	Recalculated         int
}

// Total returns the number of cache records removed.
func (r MaintenanceReport) Total() int {
	return r.StaleRemoved + r.EvictedLRU + r.LowConfidenceRemoved
}
