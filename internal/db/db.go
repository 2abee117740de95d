// Package db manages MongoDB connections and collections.
package db

import (
	"context" // For connection timeout/cancellation
	"fmt"     // Error formatting
	"time"    // Duration for timeouts

	"go.mongodb.org/mongo-driver/v2/bson"           // Index key documents
	"go.mongodb.org/mongo-driver/v2/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"  // MongoDB options
	"go.mongodb.org/mongo-driver/v2/mongo/readpref" // MongoDB read preference
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "chat_db"

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is the underlying MongoDB connection (thread-safe, can be reused)
	client *mongo.Client

	// db holds the "users", "conversations" and "messages" collections
	db *mongo.Database
}

// New connects to MongoDB and returns a Client for the named database.
func New(ctx context.Context, mongoURI, database string) (*Client, error) {
	// SetConnectTimeout: fail fast if MongoDB is unreachable
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	// Creates the client; the first real round-trip is the ping below
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if database == "" {
		database = DefaultDatabase
	}

	return &Client{
		client: client,
		db:     client.Database(database), // created lazily on first write
	}, nil
}

// UsersCollection returns the users collection.
func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection("users")
}

// ConversationsCollection returns the conversations collection.
func (c *Client) ConversationsCollection() *mongo.Collection {
	return c.db.Collection("conversations")
}

// MessagesCollection returns the messages collection.
func (c *Client) MessagesCollection() *mongo.Collection {
	return c.db.Collection("messages")
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates the indexes the stores rely on. The unique pair
// index is what keeps a conversation to one row per participant pair.
func (c *Client) CreateIndexes(ctx context.Context) error {
	// ===== USERS COLLECTION INDEXES =====
	usersIndexes := []mongo.IndexModel{
		{
			// no two accounts share an email
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// usernames are optional but unique when set
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"username": bson.M{"$exists": true}}),
		},
		{
			// directory listing order
			Keys: bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}},
		},
	}
	if _, err := c.UsersCollection().Indexes().CreateMany(ctx, usersIndexes); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	// ===== CONVERSATIONS COLLECTION INDEX =====
	// participant_a < participant_b is guaranteed by the resolver, so a
	// unique index on the ordered columns is unique on the unordered pair.
	pairIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "participant_a", Value: 1}, {Key: "participant_b", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := c.ConversationsCollection().Indexes().CreateOne(ctx, pairIndex); err != nil {
		return fmt.Errorf("failed to create conversations index: %w", err)
	}

	// ===== MESSAGES COLLECTION INDEX =====
	// Serves ListMessages: equality on conversation, then the total order.
	messageIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		},
	}
	if _, err := c.MessagesCollection().Indexes().CreateOne(ctx, messageIndex); err != nil {
		return fmt.Errorf("failed to create message index: %w", err)
	}

	return nil
}
