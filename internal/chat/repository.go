//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks
package chat

import "context"

// ConversationRepository persists conversations. Implementations must enforce
// at most one row per canonical pair.
type ConversationRepository interface {
	// FindByPair returns every stored conversation for the pair; normally zero or one.
	FindByPair(ctx context.Context, pair Pair) ([]Conversation, error)
	// InsertIfAbsent stores conv, or fails with an error wrapping ErrPairExists
	// if its pair is already stored. It never writes a second row for a pair.
	InsertIfAbsent(ctx context.Context, conv Conversation) error
	// GetConversation returns ErrConversationNotFound for unknown ids.
	GetConversation(ctx context.Context, id string) (Conversation, error)
}

// MessageRepository persists messages. InsertMessage writes exactly one row
// or nothing.
type MessageRepository interface {
	InsertMessage(ctx context.Context, msg Message) error
	// ListMessages returns the conversation's messages oldest first.
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}

// AuthProvider yields the identity of the current user.
type AuthProvider interface {
	// CurrentUserID returns ErrUnauthenticated when nobody is signed in.
	CurrentUserID(ctx context.Context) (string, error)
}

// UserDirectory yields the users a viewer may talk to, never the viewer.
type UserDirectory interface {
	ListCandidates(ctx context.Context, viewerID string) ([]User, error)
}

// ConversationResolver maps a participant pair to its conversation.
type ConversationResolver interface {
	ResolveOrCreate(ctx context.Context, userA, userB string) (Conversation, error)
}

// MessageLog appends to and lists a conversation's messages.
type MessageLog interface {
	List(ctx context.Context, conversationID string) ([]Message, error)
	Append(ctx context.Context, conversationID, senderID, body string) (Message, error)
}
