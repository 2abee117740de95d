package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat/mocks"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/data/memdb"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type viewer string

func (v viewer) CurrentUserID(context.Context) (string, error) {
	if v == "" {
		return "", chat.ErrUnauthenticated
	}
	return string(v), nil
}

type fixture struct {
	db    *memdb.Store
	users map[string]chat.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: memdb.New(0), users: map[string]chat.User{}}
	for _, a := range []account.Account{
		{User: chat.User{Name: "Alice", Username: "alice", Bio: "a"}, Email: "alice@example.com"},
		{User: chat.User{Name: "Bob", Username: "bob", Bio: "b"}, Email: "bob@example.com"},
		{User: chat.User{Name: "Carol", Username: "carol", Bio: "c"}, Email: "carol@example.com"},
	} {
		acc, err := f.db.CreateAccount(context.Background(), a)
		require.NoError(t, err)
		f.users[acc.Username] = acc.User
	}
	return f
}

func (f *fixture) session(t *testing.T, who string) *chat.Session {
	t.Helper()
	s := chat.NewSession(viewer(f.users[who].ID), f.db, chat.NewResolver(f.db), chat.NewMessageStore(f.db, f.db))
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestSession_SelectSendBack(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, "alice")

	req.Equal(chat.StateIdle, s.Snapshot().State)
	req.Len(s.Users(), 2)
	s.SetQuery("@bo")
	req.Equal([]chat.User{f.users["bob"]}, s.Users())

	req.NoError(s.Select(ctx, f.users["bob"]))
	v := s.Snapshot()
	req.Equal(chat.StateActive, v.State)
	req.NotEmpty(v.ConversationID)
	req.Equal(f.users["bob"].ID, v.Selected.ID)
	req.Empty(v.Messages)

	_, err := s.Send(ctx, "hi")
	req.NoError(err)
	_, err = s.Send(ctx, "there")
	req.NoError(err)
	v = s.Snapshot()
	req.Equal(chat.StateActive, v.State)
	req.Equal([]string{"hi", "there"}, []string{v.Messages[0].Body, v.Messages[1].Body})

	_, err = s.Send(ctx, "   ")
	req.ErrorIs(err, chat.ErrInvalidInput)
	req.Len(s.Snapshot().Messages, 2)

	s.Back()
	v = s.Snapshot()
	req.Equal(chat.StateIdle, v.State)
	req.Nil(v.Selected)
	req.Empty(v.ConversationID)
	req.Empty(v.Messages)

	// history survives leaving the conversation
	req.NoError(s.Select(ctx, f.users["bob"]))
	req.Len(s.Snapshot().Messages, 2)
}

func TestSession_BothParticipantsResolveSameConversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, bob := f.session(t, "alice"), f.session(t, "bob")

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() { defer wg.Done(); errA = alice.Select(ctx, f.users["bob"]) }()
	go func() { defer wg.Done(); errB = bob.Select(ctx, f.users["alice"]) }()
	wg.Wait()

	req.NoError(errA)
	req.NoError(errB)
	req.Equal(alice.Snapshot().ConversationID, bob.Snapshot().ConversationID)
	req.Equal(1, f.db.CountConversations())
}

func TestSession_RefreshMergesPeerMessages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice, bob := f.session(t, "alice"), f.session(t, "bob")

	req.NoError(alice.Select(ctx, f.users["bob"]))
	req.NoError(bob.Select(ctx, f.users["alice"]))

	_, err := alice.Send(ctx, "hi bob")
	req.NoError(err)
	_, err = bob.Send(ctx, "hello alice")
	req.NoError(err)

	// no push: alice sees bob's reply only after a refresh
	req.Len(alice.Snapshot().Messages, 1)
	req.NoError(alice.Refresh(ctx))
	req.NoError(alice.Refresh(ctx))
	msgs := alice.Snapshot().Messages
	req.Len(msgs, 2)
	req.Equal("hi bob", msgs[0].Body)
	req.Equal("hello alice", msgs[1].Body)
}

func TestSession_PreselectedUserOutsideDirectory(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, "alice")
	s.SetQuery("nobody matches this")
	require.Empty(t, s.Users())
	require.NoError(t, s.Select(context.Background(), f.users["carol"]))
	require.Equal(t, chat.StateActive, s.Snapshot().State)
}

func TestSession_LoadUnauthenticated(t *testing.T) {
	f := newFixture(t)
	s := chat.NewSession(viewer(""), f.db, chat.NewResolver(f.db), chat.NewMessageStore(f.db, f.db))
	require.ErrorIs(t, s.Load(context.Background()), chat.ErrUnauthenticated)
	require.ErrorIs(t, s.Select(context.Background(), f.users["bob"]), chat.ErrUnauthenticated)
}

func TestSession_ResolutionFailureReturnsToIdle(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockConversationResolver(ctrl)
	messages := mocks.NewMockMessageLog(ctrl)
	dir := mocks.NewMockUserDirectory(ctrl)
	dir.EXPECT().ListCandidates(gomock.Any(), "u1").Return([]chat.User{{ID: "u2", Name: "Bob"}}, nil)

	s := chat.NewSession(viewer("u1"), dir, resolver, messages)
	req.NoError(s.Load(context.Background()))

	resolver.EXPECT().ResolveOrCreate(gomock.Any(), "u1", "u2").Return(chat.Conversation{}, errors.New("unreachable"))
	err := s.Select(context.Background(), chat.User{ID: "u2"})
	req.ErrorIs(err, chat.ErrResolutionFailed)

	v := s.Snapshot()
	req.Equal(chat.StateIdle, v.State)
	req.Nil(v.Selected)
	req.ErrorIs(v.Err, chat.ErrResolutionFailed)
}

func TestSession_RetrievalFailureReturnsToIdle(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockConversationResolver(ctrl)
	messages := mocks.NewMockMessageLog(ctrl)
	dir := mocks.NewMockUserDirectory(ctrl)
	dir.EXPECT().ListCandidates(gomock.Any(), "u1").Return(nil, nil)

	s := chat.NewSession(viewer("u1"), dir, resolver, messages)
	req.NoError(s.Load(context.Background()))

	resolver.EXPECT().ResolveOrCreate(gomock.Any(), "u1", "u2").Return(chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2"}, nil)
	messages.EXPECT().List(gomock.Any(), "c1").Return(nil, chat.ErrRetrievalFailed)

	err := s.Select(context.Background(), chat.User{ID: "u2"})
	req.ErrorIs(err, chat.ErrRetrievalFailed)
	req.Equal(chat.StateIdle, s.Snapshot().State)
	req.Empty(s.Snapshot().ConversationID)
}

func TestSession_SendFailureKeepsView(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockConversationResolver(ctrl)
	messages := mocks.NewMockMessageLog(ctrl)
	dir := mocks.NewMockUserDirectory(ctrl)
	dir.EXPECT().ListCandidates(gomock.Any(), "u1").Return(nil, nil)

	s := chat.NewSession(viewer("u1"), dir, resolver, messages)
	req.NoError(s.Load(context.Background()))

	existing := []chat.Message{{ID: "m1", ConversationID: "c1", SenderID: "u2", Body: "yo"}}
	resolver.EXPECT().ResolveOrCreate(gomock.Any(), "u1", "u2").Return(chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2"}, nil)
	messages.EXPECT().List(gomock.Any(), "c1").Return(existing, nil)
	req.NoError(s.Select(context.Background(), chat.User{ID: "u2"}))

	messages.EXPECT().Append(gomock.Any(), "c1", "u1", "hello").Return(chat.Message{}, errors.New("write failed"))
	_, err := s.Send(context.Background(), "hello")
	req.ErrorIs(err, chat.ErrAppendFailed)

	v := s.Snapshot()
	req.Equal(chat.StateActive, v.State)
	req.Equal(existing, v.Messages)
	req.ErrorIs(v.Err, chat.ErrAppendFailed)
}

func TestSession_BusyAndAbandonedSelection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockConversationResolver(ctrl)
	messages := mocks.NewMockMessageLog(ctrl)
	dir := mocks.NewMockUserDirectory(ctrl)
	dir.EXPECT().ListCandidates(gomock.Any(), "u1").Return(nil, nil)

	s := chat.NewSession(viewer("u1"), dir, resolver, messages)
	req.NoError(s.Load(context.Background()))

	entered := make(chan struct{})
	release := make(chan struct{})
	resolver.EXPECT().ResolveOrCreate(gomock.Any(), "u1", "u2").DoAndReturn(
		func(context.Context, string, string) (chat.Conversation, error) {
			close(entered)
			<-release
			return chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2"}, nil
		})
	messages.EXPECT().List(gomock.Any(), "c1").Return([]chat.Message{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Select(context.Background(), chat.User{ID: "u2"}) }()
	<-entered

	req.Equal(chat.StateResolving, s.Snapshot().State)
	// typing keeps working while the resolve is in flight
	s.SetQuery("carol")
	req.Equal("carol", s.Snapshot().Query)
	req.ErrorIs(s.Select(context.Background(), chat.User{ID: "u3"}), chat.ErrBusy)

	s.Back()
	close(release)
	req.ErrorIs(<-done, chat.ErrAbandoned)

	v := s.Snapshot()
	req.Equal(chat.StateIdle, v.State)
	req.Empty(v.ConversationID)
}

func TestSession_SelectTimeoutReturnsToIdle(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockConversationResolver(ctrl)
	messages := mocks.NewMockMessageLog(ctrl)
	dir := mocks.NewMockUserDirectory(ctrl)
	dir.EXPECT().ListCandidates(gomock.Any(), "u1").Return(nil, nil)

	s := chat.NewSession(viewer("u1"), dir, resolver, messages, chat.WithSessionTimeout(20*time.Millisecond))
	req.NoError(s.Load(context.Background()))

	resolver.EXPECT().ResolveOrCreate(gomock.Any(), "u1", "u2").Return(chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2"}, nil)
	messages.EXPECT().List(gomock.Any(), "c1").DoAndReturn(
		func(ctx context.Context, _ string) ([]chat.Message, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	err := s.Select(context.Background(), chat.User{ID: "u2"})
	req.ErrorIs(err, chat.ErrRetrievalFailed)
	req.ErrorIs(err, context.DeadlineExceeded)

	v := s.Snapshot()
	req.Equal(chat.StateIdle, v.State)
	req.Nil(v.Selected)
	req.Empty(v.ConversationID)
}

func TestSession_SendTimeoutKeepsView(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockConversationResolver(ctrl)
	messages := mocks.NewMockMessageLog(ctrl)
	dir := mocks.NewMockUserDirectory(ctrl)
	dir.EXPECT().ListCandidates(gomock.Any(), "u1").Return(nil, nil)

	s := chat.NewSession(viewer("u1"), dir, resolver, messages, chat.WithSessionTimeout(20*time.Millisecond))
	req.NoError(s.Load(context.Background()))

	existing := []chat.Message{{ID: "m1", ConversationID: "c1", SenderID: "u2", Body: "yo"}}
	resolver.EXPECT().ResolveOrCreate(gomock.Any(), "u1", "u2").Return(chat.Conversation{ID: "c1", ParticipantA: "u1", ParticipantB: "u2"}, nil)
	messages.EXPECT().List(gomock.Any(), "c1").Return(existing, nil)
	req.NoError(s.Select(context.Background(), chat.User{ID: "u2"}))

	messages.EXPECT().Append(gomock.Any(), "c1", "u1", "hello").DoAndReturn(
		func(ctx context.Context, _, _, _ string) (chat.Message, error) {
			<-ctx.Done()
			return chat.Message{}, ctx.Err()
		})
	_, err := s.Send(context.Background(), "hello")
	req.ErrorIs(err, chat.ErrAppendFailed)
	req.ErrorIs(err, context.DeadlineExceeded)

	v := s.Snapshot()
	req.Equal(chat.StateActive, v.State)
	req.Equal(existing, v.Messages)
	req.ErrorIs(v.Err, chat.ErrAppendFailed)
}
