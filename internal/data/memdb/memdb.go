// Package memdb is an in-process backend for conversations, messages and
// accounts. It backs tests and STORE_DRIVER=memory.
package memdb

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	convs    map[string]chat.Conversation
	pairs    map[chat.Pair][]string
	msgs     map[string][]chat.Message
	accounts map[string]account.Account
	emails   map[string]string
	handles  map[string]string
	limit    int
}

// New returns an empty Store listing at most directoryLimit candidates.
func New(directoryLimit int) *Store {
	return &Store{
		convs:    map[string]chat.Conversation{},
		pairs:    map[chat.Pair][]string{},
		msgs:     map[string][]chat.Message{},
		accounts: map[string]account.Account{},
		emails:   map[string]string{},
		handles:  map[string]string{},
		limit:    directoryLimit,
	}
}

// FindByPair returns the conversations stored for pair in either participant
// order, canonical rows first.
func (s *Store) FindByPair(_ context.Context, pair chat.Pair) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := append(slices.Clone(s.pairs[pair]), s.pairs[pair.Reverse()]...)
	return lo.Map(ids, func(id string, _ int) chat.Conversation { return s.convs[id] }), nil
}

// InsertIfAbsent stores conv unless its pair already has a row in either order.
func (s *Store) InsertIfAbsent(_ context.Context, conv chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair := conv.Pair()
	if len(s.pairs[pair])+len(s.pairs[pair.Reverse()]) > 0 {
		return fmt.Errorf("pair (%s, %s): %w", pair.A, pair.B, chat.ErrPairExists)
	}
	s.convs[conv.ID] = conv
	s.pairs[pair] = append(s.pairs[pair], conv.ID)
	return nil
}

// Seed stores conv without the uniqueness check, reproducing rows written
// before the pair was canonical.
func (s *Store) Seed(conv chat.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = conv
	s.pairs[conv.Pair()] = append(s.pairs[conv.Pair()], conv.ID)
}

func (s *Store) GetConversation(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	return conv, nil
}

// CountConversations returns the number of stored conversations.
func (s *Store) CountConversations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

func (s *Store) InsertMessage(_ context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[msg.ConversationID]; !ok {
		return fmt.Errorf("insert message %s: %w", msg.ID, chat.ErrConversationNotFound)
	}
	s.msgs[msg.ConversationID] = append(s.msgs[msg.ConversationID], msg)
	return nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := slices.Clone(s.msgs[conversationID])
	slices.SortStableFunc(msgs, chat.CompareMessages)
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}

func (s *Store) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	acc = account.Normalize(acc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[acc.Email]; ok {
		return account.Account{}, account.ErrUserExists
	}
	if acc.Username != "" {
		if _, ok := s.handles[acc.Username]; ok {
			return account.Account{}, account.ErrUsernameTaken
		}
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acc.CreatedAt, acc.UpdatedAt = now, now

	s.accounts[acc.ID] = acc
	s.emails[acc.Email] = acc.ID
	if acc.Username != "" {
		s.handles[acc.Username] = acc.ID
	}
	return acc, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	s.mu.RLock()
	id, ok := s.emails[account.Normalize(account.Account{Email: email}).Email]
	s.mu.RUnlock()
	if !ok {
		return account.Account{}, account.ErrUserNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Store) GetByID(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrUserNotFound
	}
	return acc, nil
}

// ListCandidates implements chat.UserDirectory.
func (s *Store) ListCandidates(_ context.Context, viewerID string) ([]chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return account.Candidates(lo.Values(s.accounts), viewerID, s.limit), nil
}
