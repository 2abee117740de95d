package sqlitedb

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat.db"), slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertIfAbsent_UniqueConstraint(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newStore(t)

	now := time.Now().UTC()
	req.NoError(s.InsertIfAbsent(ctx, chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2", CreatedAt: now}))
	err := s.InsertIfAbsent(ctx, chat.Conversation{ID: "c2", ParticipantA: "u1", ParticipantB: "u2", CreatedAt: now})
	req.ErrorIs(err, chat.ErrPairExists)

	convs, err := s.FindByPair(ctx, chat.Pair{A: "u1", B: "u2"})
	req.NoError(err)
	req.Len(convs, 1)
	req.Equal("c1", convs[0].ID)
	req.True(now.Equal(convs[0].CreatedAt))

	none, err := s.FindByPair(ctx, chat.Pair{A: "u1", B: "u3"})
	req.NoError(err)
	req.Empty(none)

	_, err = s.GetConversation(ctx, "missing")
	req.ErrorIs(err, chat.ErrConversationNotFound)
}

func TestInsertIfAbsent_OtherConstraintsAreNotPairConflicts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newStore(t)

	req.NoError(s.InsertIfAbsent(ctx, chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2", CreatedAt: time.Now()}))

	// same id, different pair: a primary key failure
	err := s.InsertIfAbsent(ctx, chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u3", CreatedAt: time.Now()})
	req.Error(err)
	req.NotErrorIs(err, chat.ErrPairExists)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_a, participant_b, created_at) VALUES ('c2', NULL, 'u4', 1)`)
	req.Error(err)
	req.False(isUnique(err))

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_a, participant_b, created_at) VALUES ('c3', 'u1', 'u2', 1)`)
	req.True(isUnique(err))
}

func TestResolver_ReversedLegacyRow(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newStore(t)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_a, participant_b, created_at) VALUES ('legacy', 'u2', 'u1', 1)`)
	req.NoError(err)

	var reported *chat.DuplicatePairError
	r := chat.NewResolver(s, chat.WithAnomalyHandler(func(_ context.Context, e *chat.DuplicatePairError) {
		reported = e
	}))

	conv, err := r.ResolveOrCreate(ctx, "u1", "u2")
	req.NoError(err)
	req.Equal("legacy", conv.ID)
	req.Nil(reported)

	var n int
	req.NoError(s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n))
	req.Equal(1, n)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_a, participant_b, created_at) VALUES ('canonical', 'u1', 'u2', 2)`)
	req.NoError(err)

	conv, err = r.ResolveOrCreate(ctx, "u2", "u1")
	req.NoError(err)
	req.Equal("legacy", conv.ID)
	req.NotNil(reported)
	req.Equal(2, reported.Count)
	req.Equal("legacy", reported.Chosen)
}

func TestResolver_ConcurrentCallersShareOneConversation(t *testing.T) {
	req := require.New(t)
	s := newStore(t)
	resolver := chat.NewResolver(s)

	const callers = 16
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := resolver.ResolveOrCreate(context.Background(), a, b)
			if err == nil {
				ids[i] = conv.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		req.NotEmpty(id)
		req.Equal(ids[0], id)
	}
}

func TestListMessages_OrderedByTimeThenID(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newStore(t)
	req.NoError(s.InsertIfAbsent(ctx, chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2"}))
	req.NoError(s.InsertIfAbsent(ctx, chat.Conversation{ID: "c10", ParticipantA: "u1", ParticipantB: "u3"}))

	at := time.Unix(1700000000, 5).UTC()
	req.NoError(s.InsertMessage(ctx, chat.Message{ID: "b", ConversationID: "c1", SenderID: "u1", Body: "second", CreatedAt: at}))
	req.NoError(s.InsertMessage(ctx, chat.Message{ID: "a", ConversationID: "c1", SenderID: "u2", Body: "first", CreatedAt: at}))
	req.NoError(s.InsertMessage(ctx, chat.Message{ID: "z", ConversationID: "c1", SenderID: "u1", Body: "zero", CreatedAt: at.Add(-time.Nanosecond)}))
	req.NoError(s.InsertMessage(ctx, chat.Message{ID: "other", ConversationID: "c10", SenderID: "u1", Body: "elsewhere", CreatedAt: at}))

	msgs, err := s.ListMessages(ctx, "c1")
	req.NoError(err)
	req.Len(msgs, 3)
	req.Equal([]string{"z", "a", "b"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	req.True(at.Equal(msgs[1].CreatedAt))
	req.Equal("first", msgs[1].Body)

	err = s.InsertMessage(ctx, chat.Message{ID: "x", ConversationID: "missing", CreatedAt: at})
	req.ErrorIs(err, chat.ErrConversationNotFound)

	empty, err := s.ListMessages(ctx, "missing")
	req.NoError(err)
	req.NotNil(empty)
	req.Empty(empty)
}

func TestOpen_ReopensExistingSchema(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "nested", "chat.db")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(path, log, 0)
	req.NoError(err)
	req.NoError(s.InsertIfAbsent(context.Background(), chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2"}))
	req.NoError(s.Close())

	s, err = Open(path, log, 0)
	req.NoError(err)
	defer s.Close()
	conv, err := s.GetConversation(context.Background(), "c1")
	req.NoError(err)
	req.Equal("u2", conv.ParticipantB)
}

func TestAccounts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newStore(t)

	alice, err := s.CreateAccount(ctx, account.Account{User: chat.User{Name: "Alice", Username: "@Alice", Bio: "hi"}, Email: "Alice@Example.com", PasswordHash: "h"})
	req.NoError(err)
	req.NotEmpty(alice.ID)

	_, err = s.CreateAccount(ctx, account.Account{User: chat.User{Name: "Dup"}, Email: "alice@example.com"})
	req.ErrorIs(err, account.ErrUserExists)
	_, err = s.CreateAccount(ctx, account.Account{User: chat.User{Name: "Dup", Username: "alice"}, Email: "dup@example.com"})
	req.ErrorIs(err, account.ErrUsernameTaken)

	got, err := s.GetByEmail(ctx, "ALICE@example.com ")
	req.NoError(err)
	req.Equal(alice.ID, got.ID)
	req.Equal("alice", got.Username)
	req.Equal("h", got.PasswordHash)

	_, err = s.GetByID(ctx, "nope")
	req.ErrorIs(err, account.ErrUserNotFound)
	_, err = s.GetByEmail(ctx, "nope@example.com")
	req.ErrorIs(err, account.ErrUserNotFound)

	_, err = s.CreateAccount(ctx, account.Account{User: chat.User{Name: "Carol"}, Email: "carol@example.com"})
	req.NoError(err)
	bob, err := s.CreateAccount(ctx, account.Account{User: chat.User{Name: "Bob", Bio: "yo"}, Email: "bob@example.com"})
	req.NoError(err)

	users, err := s.ListCandidates(ctx, alice.ID)
	req.NoError(err)
	req.Len(users, 1)
	req.Equal(bob.ID, users[0].ID)
}
