package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxBodyLength is the longest accepted message body, in runes.
const DefaultMaxBodyLength = 4000

// MessageStore implements MessageLog. It validates appends against the
// conversation they target and stamps them with the server clock.
type MessageStore struct {
	convs   ConversationRepository
	msgs    MessageRepository
	clock   Clock
	timeout time.Duration
	maxBody int
	log     *slog.Logger
}

// StoreOption configures a MessageStore.
type StoreOption func(*MessageStore)

// WithStoreClock sets the clock stamping new messages.
func WithStoreClock(c Clock) StoreOption {
	return func(s *MessageStore) { s.clock = c }
}

// WithStoreTimeout sets the per-call timeout; zero disables it.
func WithStoreTimeout(d time.Duration) StoreOption {
	return func(s *MessageStore) { s.timeout = d }
}

// WithMaxBodyLength caps message bodies; zero or less disables the cap.
func WithMaxBodyLength(n int) StoreOption {
	return func(s *MessageStore) { s.maxBody = n }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *MessageStore) { s.log = l }
}

// NewMessageStore returns a MessageStore over the given repositories.
func NewMessageStore(convs ConversationRepository, msgs MessageRepository, opts ...StoreOption) *MessageStore {
	s := &MessageStore{
		convs:   convs,
		msgs:    msgs,
		clock:   NewMonotonicClock(),
		timeout: DefaultTimeout,
		maxBody: DefaultMaxBodyLength,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MessageStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// List returns the conversation's messages ordered by creation time, then id.
// A conversation without messages yields an empty, non-nil slice.
func (s *MessageStore) List(ctx context.Context, conversationID string) ([]Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, invalidInput("conversation id is empty")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	msgs, err := s.msgs.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fail(ErrRetrievalFailed, err)
	}
	if msgs == nil {
		return []Message{}, nil
	}
	slices.SortStableFunc(msgs, CompareMessages)
	return msgs, nil
}

// Append stores a new message from senderID. The body must not be blank and
// the sender must be a participant of the conversation.
func (s *MessageStore) Append(ctx context.Context, conversationID, senderID, body string) (Message, error) {
	if strings.TrimSpace(body) == "" {
		return Message{}, invalidInput("message body is empty")
	}
	if s.maxBody > 0 && utf8.RuneCountInString(body) > s.maxBody {
		return Message{}, invalidInput(fmt.Sprintf("message body exceeds %d characters", s.maxBody))
	}
	if strings.TrimSpace(conversationID) == "" {
		return Message{}, invalidInput("conversation id is empty")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	conv, err := s.convs.GetConversation(ctx, conversationID)
	if errors.Is(err, ErrConversationNotFound) {
		return Message{}, invalidInput(fmt.Sprintf("conversation %s does not exist", conversationID))
	}
	if err != nil {
		return Message{}, fail(ErrAppendFailed, err)
	}
	if !conv.Has(senderID) {
		return Message{}, invalidInput(fmt.Sprintf("%q is not a participant of conversation %s", senderID, conversationID))
	}

	id, err := newID()
	if err != nil {
		return Message{}, fail(ErrAppendFailed, err)
	}
	msg := Message{
		ID:             id,
		ConversationID: conv.ID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.msgs.InsertMessage(ctx, msg); err != nil {
		return Message{}, fail(ErrAppendFailed, err)
	}
	s.log.DebugContext(ctx, "message appended", "conversation_id", msg.ConversationID, "message_id", msg.ID)
	return msg, nil
}
