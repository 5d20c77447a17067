package sim

import (
	"errors"
	"fmt"
)

// ErrorKind classifies run failures.
type ErrorKind string

const (
	// KindConfiguration is raised before any collective begins.
	KindConfiguration ErrorKind = "CONFIGURATION"
	// KindCollective is a barrier/reduction failure. Fatal for every rank.
	KindCollective ErrorKind = "COLLECTIVE"
	// KindResource is a request beyond the supported counter width.
	KindResource ErrorKind = "RESOURCE"
)

// Error codes.
const (
	CodeInvalidSamples = "INVALID_SAMPLES"
	CodeInvalidRanks   = "INVALID_RANKS"
	CodeInvalidRank    = "INVALID_RANK"
	CodeInvalidThreads = "INVALID_THREADS"
	CodeInvalidFile    = "INVALID_CONFIG_FILE"

	CodeBarrierFailed   = "BARRIER_FAILED"
	CodeReduceFailed    = "REDUCE_FAILED"
	CodeAllReduceFailed = "ALLREDUCE_FAILED"
	CodeAborted         = "ABORTED"
	CodeOpMismatch      = "OP_MISMATCH"
	CodeTransport       = "TRANSPORT"

	CodeSampleOverflow = "SAMPLE_OVERFLOW"
)

// RunError is the structured error returned by the engine and the transports.
type RunError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Cause   error
}

// Sentinels for errors.Is. They match any RunError of the same kind.
var (
	ErrConfiguration = &RunError{Kind: KindConfiguration}
	ErrCollective    = &RunError{Kind: KindCollective}
	ErrResource      = &RunError{Kind: KindResource}
)

func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *RunError) Unwrap() error {
	return e.Cause
}

// Is matches on kind, and on code when the target carries one.
func (e *RunError) Is(target error) bool {
	var t *RunError
	if !errors.As(target, &t) {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// ConfigError builds a KindConfiguration error.
func ConfigError(code, format string, args ...any) *RunError {
	return &RunError{Kind: KindConfiguration, Code: code, Message: fmt.Sprintf(format, args...)}
}

// CollectiveError wraps a transport or synchronization failure.
// An error that is already a collective failure is returned unchanged.
func CollectiveError(code, message string, cause error) error {
	if errors.Is(cause, ErrCollective) {
		return cause
	}
	return &RunError{Kind: KindCollective, Code: code, Message: message, Cause: cause}
}

// IsCollective reports whether err (or its chain) is a collective failure.
func IsCollective(err error) bool {
	return errors.Is(err, ErrCollective)
}
