package data

import (
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// User maps to users collection (id, email, password hash, profile, timestamps)
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	Name      string        `bson:"name"`
	Username  string        `bson:"username,omitempty"`
	Bio       string        `bson:"bio"`
	PhotoURL  string        `bson:"photo_url,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

// Conversation maps to conversations collection; participant_a < participant_b
type Conversation struct {
	ID           string    `bson:"_id"`
	ParticipantA string    `bson:"participant_a"`
	ParticipantB string    `bson:"participant_b"`
	CreatedAt    time.Time `bson:"created_at"`
}

// Message maps to messages collection (conversation, sender, body, created_at)
type Message struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversation_id"`
	SenderID       string    `bson:"sender_id"`
	Body           string    `bson:"body"`
	CreatedAt      time.Time `bson:"created_at"`
}

func (u User) account() account.Account {
	return account.Account{
		User: chat.User{
			ID:       u.ID.Hex(),
			Name:     u.Name,
			Username: u.Username,
			Bio:      u.Bio,
			PhotoURL: u.PhotoURL,
		},
		Email:        u.Email,
		PasswordHash: u.Password,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c Conversation) conversation() chat.Conversation {
	return chat.Conversation{
		ID:           c.ID,
		ParticipantA: c.ParticipantA,
		ParticipantB: c.ParticipantB,
		CreatedAt:    c.CreatedAt.UTC(),
	}
}

func fromConversation(c chat.Conversation) Conversation {
	return Conversation{
		ID:           c.ID,
		ParticipantA: c.ParticipantA,
		ParticipantB: c.ParticipantB,
		CreatedAt:    c.CreatedAt,
	}
}

func (m Message) message() chat.Message {
	return chat.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

func fromMessage(m chat.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}
