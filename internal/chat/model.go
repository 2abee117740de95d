// Package chat resolves two-party conversations and exchanges messages in them.
package chat

import (
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/normalize"
)

// User is a directory entry as seen by the conversation core.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Bio      string `json:"bio,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Pair is a participant pair in canonical order (A < B).
type Pair struct {
	A string
	B string
}

// NewPair canonicalizes two participant ids. It rejects empty ids and
// self-conversations.
func NewPair(userA, userB string) (Pair, error) {
	a, b := normalize.Pair(userA, userB)
	if a == "" || b == "" {
		return Pair{}, invalidInput("participant id is empty")
	}
	if a == b {
		return Pair{}, invalidInput("cannot open a conversation with yourself")
	}
	return Pair{A: a, B: b}, nil
}

// Reverse returns p with its participants swapped. Storage uses it to find
// rows written before pairs were kept canonical.
func (p Pair) Reverse() Pair {
	return Pair{A: p.B, B: p.A}
}

// Peer returns the participant of p that is not userID. It reports false
// when userID is not in p.
func (p Pair) Peer(userID string) (string, bool) {
	switch userID {
	case "":
		return "", false
	case p.A:
		return p.B, true
	case p.B:
		return p.A, true
	}
	return "", false
}

// Conversation is the single record shared by both participants.
type Conversation struct {
	ID           string    `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// Pair returns the participants of c.
func (c Conversation) Pair() Pair {
	return Pair{A: c.ParticipantA, B: c.ParticipantB}
}

// Has reports whether userID is one of the two participants.
func (c Conversation) Has(userID string) bool {
	return userID != "" && (c.ParticipantA == userID || c.ParticipantB == userID)
}

// Message is one immutable entry of a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// before is the total order of messages inside a conversation: creation
// time, then id.
func (m Message) before(o Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}

// CompareMessages orders messages by creation time, then id.
func CompareMessages(a, b Message) int {
	switch {
	case a.before(b):
		return -1
	case b.before(a):
		return 1
	default:
		return 0
	}
}

// compareConversations orders conversations by creation time, then id.
func compareConversations(a, b Conversation) int {
	switch {
	case a.CreatedAt.Before(b.CreatedAt):
		return -1
	case b.CreatedAt.Before(a.CreatedAt):
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}
