package rpc

import (
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username,omitempty" validate:"omitempty,max=33"`
	Bio      string `json:"bio,omitempty" validate:"max=500"`
	PhotoURL string `json:"photo_url,omitempty" validate:"omitempty,url"`
}

func (r *RegisterRequest) GetEmail() string { return r.Email }

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) GetEmail() string { return r.Email }

// AuthResponse answers Register and Login.
type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ListUsersRequest struct {
	Query string `json:"query,omitempty" validate:"max=100"`
}

type ListUsersResponse struct {
	Users []chat.User `json:"users"`
}

type ResolveConversationRequest struct {
	PeerID string `json:"peer_id" validate:"required"`
}

type ResolveConversationResponse struct {
	Conversation chat.Conversation `json:"conversation"`
}

type ListMessagesRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

type ListMessagesResponse struct {
	Messages []chat.Message `json:"messages"`
}

// SendMessageRequest carries no sender: the server uses the caller.
// Body length is checked by the message store, which owns the limit.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Body           string `json:"body"`
}

type SendMessageResponse struct {
	Message chat.Message `json:"message"`
}
