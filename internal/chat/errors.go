package chat

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced to callers. Storage errors never leave this package
// unwrapped: they are reported as one of these, with the cause still
// reachable through errors.Is / errors.As.
var (
	ErrResolutionFailed = errors.New("conversation resolution failed")
	ErrRetrievalFailed  = errors.New("message retrieval failed")
	ErrAppendFailed     = errors.New("message append failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// Errors returned by repositories and collaborators.
var (
	// ErrPairExists is returned by ConversationRepository.InsertIfAbsent when
	// the canonical pair already has a row.
	ErrPairExists = errors.New("conversation already exists for pair")
	// ErrConversationNotFound is returned by ConversationRepository.GetConversation.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrUnauthenticated means the AuthProvider has no current user.
	ErrUnauthenticated = errors.New("no authenticated user")
	// ErrDirectoryUnavailable wraps UserDirectory failures.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrBusy is returned by the session when an operation is already in flight.
	ErrBusy = errors.New("session busy")
)

// DuplicatePairError reports more than one stored conversation for the same
// participant pair. Resolution still succeeds with Chosen.
type DuplicatePairError struct {
	Pair   Pair
	Chosen string
	Count  int
}

func (e *DuplicatePairError) Error() string {
	return fmt.Sprintf("%d conversations stored for pair (%s, %s); using %s", e.Count, e.Pair.A, e.Pair.B, e.Chosen)
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// fail wraps cause with kind unless cause already carries a taxonomy kind.
func fail(kind, cause error) error {
	if errors.Is(cause, ErrInvalidInput) {
		return cause
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
