package rpc

import (
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotParticipant is returned when the caller reads a conversation that is
// not theirs.
var ErrNotParticipant = errors.New("caller is not a participant")

// ErrPeerNotFound is returned by ResolveConversation for an unknown peer.
var ErrPeerNotFound = errors.New("peer not found")

// Status converts a server-side error into a gRPC status. Errors that are
// already statuses pass through.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, ErrNotParticipant):
		code = codes.PermissionDenied
	case errors.Is(err, ErrPeerNotFound), errors.Is(err, chat.ErrConversationNotFound), errors.Is(err, account.ErrUserNotFound):
		code = codes.NotFound
	case errors.Is(err, account.ErrUserExists), errors.Is(err, account.ErrUsernameTaken):
		code = codes.AlreadyExists
	case errors.Is(err, chat.ErrUnauthenticated):
		code = codes.Unauthenticated
	case errors.Is(err, chat.ErrResolutionFailed),
		errors.Is(err, chat.ErrRetrievalFailed),
		errors.Is(err, chat.ErrAppendFailed),
		errors.Is(err, chat.ErrDirectoryUnavailable):
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}

// FromStatus turns a status returned by the server back into the chat error
// taxonomy. kind is the failure kind of the calling operation; it is used for
// every code that is not caller error.
func FromStatus(err error, kind error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", kind, err)
	}
	switch st.Code() {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.AlreadyExists:
		return fmt.Errorf("%w: %s", chat.ErrInvalidInput, st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", chat.ErrUnauthenticated, st.Message())
	default:
		return fmt.Errorf("%w: %w", kind, err)
	}
}
