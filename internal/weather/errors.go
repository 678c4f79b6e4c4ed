package weather

import (
	"errors"
	"fmt"
)

// Kind classifies a failed fetch.
type Kind int

const (
	KindUpstream Kind = iota
	KindNotFound
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "upstream"
	}
}

// GenericFailureMessage is used when the upstream gives no message of its own.
const GenericFailureMessage = "failed to fetch weather data"

var (
	ErrNotFound = errors.New("city not found")
	ErrNetwork  = errors.New("network failure")
	ErrUpstream = errors.New("upstream error")

	// ErrPersistenceCorrupt marks a favorites file that could not be read back.
	// It is logged, never surfaced to the user.
	ErrPersistenceCorrupt = errors.New("persisted favorites unreadable")
)

// FetchError is returned by the gateway for every failed lookup.
type FetchError struct {
	Kind    Kind
	Status  int    // HTTP status when one was received
	Message string // user-facing text
	Err     error  // underlying cause, may be nil
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericFailureMessage
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUpstream:
		return e.Kind == KindUpstream
	}
	return false
}

// NewFetchError builds a FetchError, falling back to the generic message.
func NewFetchError(kind Kind, status int, message string, cause error) *FetchError {
	if message == "" {
		message = GenericFailureMessage
	}
	return &FetchError{Kind: kind, Status: status, Message: message, Err: cause}
}

// Message extracts the text to show for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return fmt.Sprintf("%s: %v", GenericFailureMessage, err)
}
