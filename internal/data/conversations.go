package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConversationsStore implements chat.ConversationRepository on MongoDB.
// Uniqueness of the pair comes from the index created by db.CreateIndexes.
type ConversationsStore struct {
	coll *mongo.Collection
}

// NewConversationsStore returns a ConversationsStore using given collection.
func NewConversationsStore(coll *mongo.Collection) *ConversationsStore {
	return &ConversationsStore{coll: coll}
}

// FindByPair returns the conversations stored for pair in either participant
// order, oldest first.
func (s *ConversationsStore) FindByPair(ctx context.Context, pair chat.Pair) ([]chat.Conversation, error) {
	rev := pair.Reverse()
	filter := bson.M{"$or": bson.A{
		bson.M{"participant_a": pair.A, "participant_b": pair.B},
		bson.M{"participant_a": rev.A, "participant_b": rev.B},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Conversation
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(d Conversation, _ int) chat.Conversation { return d.conversation() }), nil
}

// InsertIfAbsent inserts conv; a duplicate key on the pair index maps to
// chat.ErrPairExists.
func (s *ConversationsStore) InsertIfAbsent(ctx context.Context, conv chat.Conversation) error {
	_, err := s.coll.InsertOne(ctx, fromConversation(conv))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("pair (%s, %s): %w", conv.ParticipantA, conv.ParticipantB, chat.ErrPairExists)
	}
	return err
}

// GetConversation finds a conversation by id.
func (s *ConversationsStore) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	var doc Conversation
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	if err != nil {
		return chat.Conversation{}, err
	}
	return doc.conversation(), nil
}
