// Package account holds registered users and exposes them as a chat directory.
package account

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/normalize"
	"github.com/samber/lo"
)

// DefaultDirectoryLimit caps the candidate list.
const DefaultDirectoryLimit = 50

var (
	ErrUserExists    = errors.New("user already exists")
	ErrUsernameTaken = errors.New("username already taken")
	ErrUserNotFound  = errors.New("user not found")
)

// Account is a registered user with credentials.
type Account struct {
	chat.User
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists accounts. Implementations assign the id when it is empty and
// return ErrUserExists / ErrUsernameTaken on duplicates.
type Store interface {
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	chat.UserDirectory
}

// Normalize puts the email and username of acc in stored form.
func Normalize(acc Account) Account {
	acc.Email = normalize.Email(acc.Email)
	acc.Username = normalize.Handle(acc.Username)
	acc.Name = strings.TrimSpace(acc.Name)
	acc.Bio = strings.TrimSpace(acc.Bio)
	return acc
}

// Complete reports whether the profile may be listed in the directory.
func Complete(acc Account) bool {
	return acc.Name != "" && acc.Bio != ""
}

// Candidates lists the complete profiles other than viewerID, ordered by name
// then id, at most limit of them (no cap when limit <= 0).
func Candidates(accounts []Account, viewerID string, limit int) []chat.User {
	users := lo.FilterMap(accounts, func(a Account, _ int) (chat.User, bool) {
		return a.User, a.ID != viewerID && Complete(a)
	})
	slices.SortFunc(users, func(a, b chat.User) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users
}
