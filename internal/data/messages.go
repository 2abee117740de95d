package data

import (
	"context"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore implements chat.MessageRepository on MongoDB.
type MessagesStore struct {
	// coll is reference to "messages" collection in MongoDB
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// InsertMessage stores one message document. A single-document insert is
// atomic, so a failed call leaves nothing behind.
func (m *MessagesStore) InsertMessage(ctx context.Context, msg chat.Message) error {
	_, err := m.coll.InsertOne(ctx, fromMessage(msg))
	return err
}

// ListMessages returns the conversation's messages oldest first. BSON dates
// keep milliseconds only, so equal timestamps fall back to the id order.
func (m *MessagesStore) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := m.coll.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Message
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d Message, _ int) chat.Message { return d.message() }), nil
}
