// Package data provides the MongoDB models and stores.
package data

import (
	"context" // Used for cancellation and timeouts
	"errors"  // Error handling
	"fmt"
	"strings"
	"time" // Timestamps

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"  // MongoDB document queries
	"go.mongodb.org/mongo-driver/v2/mongo" // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersStore performs user DB operations and serves the user directory.
type UsersStore struct {
	// coll is reference to "users" collection in MongoDB
	coll *mongo.Collection
	// limit caps ListCandidates; zero means account.DefaultDirectoryLimit
	limit int64
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection, directoryLimit int) *UsersStore {
	if directoryLimit <= 0 {
		directoryLimit = account.DefaultDirectoryLimit
	}
	return &UsersStore{coll: coll, limit: int64(directoryLimit)}
}

// CreateAccount inserts a new user document; the password is already hashed.
func (u *UsersStore) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	acc = account.Normalize(acc)
	now := time.Now().UTC()
	user := &User{
		Email:     acc.Email,
		Password:  acc.PasswordHash,
		Name:      acc.Name,
		Username:  acc.Username,
		Bio:       acc.Bio,
		PhotoURL:  acc.PhotoURL,
		CreatedAt: now,
		UpdatedAt: now, // Initially same as CreatedAt
	}
	if acc.ID != "" {
		id, err := bson.ObjectIDFromHex(acc.ID)
		if err != nil {
			return account.Account{}, fmt.Errorf("invalid user id %q: %w", acc.ID, err)
		}
		user.ID = id
	}

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		// unique index violation on email or username
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "username") {
				return account.Account{}, account.ErrUsernameTaken
			}
			return account.Account{}, account.ErrUserExists
		}
		return account.Account{}, err
	}

	// MongoDB generates the _id when none was given
	user.ID = result.InsertedID.(bson.ObjectID)
	return user.account(), nil
}

// GetByEmail finds a user by normalized email.
func (u *UsersStore) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	email = account.Normalize(account.Account{Email: email}).Email
	return u.findOne(ctx, bson.M{"email": email})
}

// GetByID finds a user by ObjectID hex string.
func (u *UsersStore) GetByID(ctx context.Context, id string) (account.Account, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return account.Account{}, account.ErrUserNotFound
	}
	return u.findOne(ctx, bson.M{"_id": oid})
}

func (u *UsersStore) findOne(ctx context.Context, filter bson.M) (account.Account, error) {
	var user User
	err := u.coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account.Account{}, account.ErrUserNotFound
		}
		return account.Account{}, err
	}
	return user.account(), nil
}

// ListCandidates returns users with a completed profile (name and bio set),
// excluding the viewer, ordered by name.
func (u *UsersStore) ListCandidates(ctx context.Context, viewerID string) ([]chat.User, error) {
	viewer, err := bson.ObjectIDFromHex(viewerID)
	if err != nil {
		return nil, fmt.Errorf("invalid viewer id %q: %w", viewerID, err)
	}

	filter := bson.M{
		"_id":  bson.M{"$ne": viewer},
		"name": bson.M{"$nin": bson.A{"", nil}},
		"bio":  bson.M{"$nin": bson.A{"", nil}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(u.limit).
		SetProjection(bson.M{"password": 0})

	cursor, err := u.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return lo.Map(users, func(doc User, _ int) chat.User { return doc.account().User }), nil
}
