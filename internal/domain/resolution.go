package domain

import (
	"errors"
	"strings"
)

// Source labels where a resolved command came from.
type Source string

const (
	SourceAPI                 Source = "API"
	SourceCache               Source = "Cache"
	SourceCacheHighConfidence Source = "Cache (High Confidence)"
	SourceSimilarCache        Source = "Similar Cache"
	SourceCacheAPIFailed      Source = "Cache (API Failed)"
)

// FromCache reports whether the command was served from a stored record.
func (s Source) FromCache() bool {
	return s != SourceAPI && s != ""
}

// ErrorKind classifies failures observed while resolving a query.
type ErrorKind string

const (
	ErrorKindNone                  ErrorKind = ""
	ErrorKindLookupFailure         ErrorKind = "lookup_failure"
	ErrorKindMatchFailure          ErrorKind = "match_failure"
	ErrorKindConfidenceConfigError ErrorKind = "confidence_config_error"
	ErrorKindGenerationFailure     ErrorKind = "generation_failure"
	ErrorKindPersistenceFailure    ErrorKind = "persistence_failure"
)

var (
	// ErrStoreUnavailable is returned by cache adapters that could not be opened.
	ErrStoreUnavailable = errors.New("cache store unavailable")
	// ErrGenerationFailed wraps every generator failure surfaced to callers.
	ErrGenerationFailed = errors.New("command generation failed")
	// ErrEmptyQuery rejects blank input before any lookup happens.
	ErrEmptyQuery = errors.New("query is empty")
)

// ConfirmationOutcome is the result of a timed confirmation prompt.
type ConfirmationOutcome string

const (
	OutcomeConfirmed ConfirmationOutcome = "confirmed"
	OutcomeRejected  ConfirmationOutcome = "rejected"
	OutcomeTimeout   ConfirmationOutcome = "timeout"
	OutcomeCancelled ConfirmationOutcome = "cancelled"
)

// Resolution is the value produced for every resolved query.
type Resolution struct {
	ID         string
	Query      string
	Command    string
	Source     Source
	Confidence float64
	Similarity float64
	Confirmed  bool
	Outcome    ConfirmationOutcome
	// Degraded is set when the cache was bypassed because of an internal failure.
	Degraded bool
	ErrKind  ErrorKind
	Safety   SafetySignal
	Warnings []string
}

// SentinelError carries an error message returned by the generator in place
// of a command. Its text is surfaced verbatim and it matches ErrGenerationFailed.
type SentinelError struct {
	Text string
}

func (e *SentinelError) Error() string { return e.Text }

func (e *SentinelError) Is(target error) bool { return target == ErrGenerationFailed }

// IsErrorSentinel reports whether generator output is an error message.
func IsErrorSentinel(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), ErrorSentinelPrefix)
}

// ValidCommand reports whether text can be served as a command.
func ValidCommand(text string) bool {
	return strings.TrimSpace(text) != "" && !IsErrorSentinel(text)
}
