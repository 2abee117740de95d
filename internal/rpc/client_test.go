package rpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

// stubServer answers every call from its fields and records what it saw.
type stubServer struct {
	err       error
	users     []chat.User
	messages  []chat.Message
	lastAuth  string
	lastPeer  string
	lastQuery string
	lastBody  string
}

func (s *stubServer) record(ctx context.Context) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("authorization"); len(v) > 0 {
			s.lastAuth = v[0]
		}
	}
}

func (s *stubServer) Register(_ context.Context, req *RegisterRequest) (*AuthResponse, error) {
	return &AuthResponse{Token: "t-" + req.Email, UserID: "u1", ExpiresAt: time.Unix(1700000000, 0).UTC()}, s.err
}

func (s *stubServer) Login(_ context.Context, req *LoginRequest) (*AuthResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &AuthResponse{Token: "t-" + req.Email, UserID: "u1"}, nil
}

func (s *stubServer) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {
	s.record(ctx)
	s.lastQuery = req.Query
	if s.err != nil {
		return nil, s.err
	}
	return &ListUsersResponse{Users: s.users}, nil
}

func (s *stubServer) ResolveConversation(ctx context.Context, req *ResolveConversationRequest) (*ResolveConversationResponse, error) {
	s.record(ctx)
	s.lastPeer = req.PeerID
	if s.err != nil {
		return nil, s.err
	}
	return &ResolveConversationResponse{Conversation: chat.Conversation{ID: "c1", ParticipantA: "alice", ParticipantB: "bob"}}, nil
}

func (s *stubServer) ListMessages(ctx context.Context, _ *ListMessagesRequest) (*ListMessagesResponse, error) {
	s.record(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return &ListMessagesResponse{Messages: s.messages}, nil
}

func (s *stubServer) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	s.record(ctx)
	s.lastBody = req.Body
	if s.err != nil {
		return nil, s.err
	}
	return &SendMessageResponse{Message: chat.Message{ID: "m1", ConversationID: req.ConversationID, SenderID: "alice", Body: req.Body}}, nil
}

func startStub(t *testing.T, srv ChatServiceServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer()
	RegisterChatServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := auth.NewJWTManager("k", time.Hour).GenerateToken(userID, userID+"@example.com")
	require.NoError(t, err)
	return token
}

func TestClient_RoundTrip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	stub := &stubServer{
		users:    []chat.User{{ID: "bob", Name: "Bob", Username: "bob"}},
		messages: []chat.Message{{ID: "m0", ConversationID: "c1", SenderID: "bob", Body: "hi", CreatedAt: time.Unix(1, 5).UTC()}},
	}
	conn := startStub(t, stub)
	token := tokenFor(t, "alice")
	c := NewClient(conn, token)

	resp, err := c.Register(ctx, &RegisterRequest{Email: "a@example.com", Password: "password1", Name: "A"})
	req.NoError(err)
	req.Equal("t-a@example.com", resp.Token)
	req.True(time.Unix(1700000000, 0).Equal(resp.ExpiresAt))

	me, err := c.CurrentUserID(ctx)
	req.NoError(err)
	req.Equal("alice", me)

	users, err := c.ListCandidates(ctx, "alice")
	req.NoError(err)
	req.Equal(stub.users, users)
	req.Equal("Bearer "+token, stub.lastAuth)

	conv, err := c.ResolveOrCreate(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal("c1", conv.ID)
	req.Equal("bob", stub.lastPeer)

	msgs, err := c.List(ctx, "c1")
	req.NoError(err)
	req.Equal(stub.messages, msgs)

	msg, err := c.Append(ctx, "c1", "alice", "  hello ")
	req.NoError(err)
	req.Equal("m1", msg.ID)
	req.Equal("  hello ", stub.lastBody)
}

func TestClient_RejectsOtherCallers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := NewClient(startStub(t, &stubServer{}), tokenFor(t, "alice"))

	_, err := c.ResolveOrCreate(ctx, "bob", "carol")
	req.ErrorIs(err, chat.ErrInvalidInput)
	_, err = c.ResolveOrCreate(ctx, "alice", "alice")
	req.ErrorIs(err, chat.ErrInvalidInput)
	_, err = c.Append(ctx, "c1", "bob", "hi")
	req.ErrorIs(err, chat.ErrInvalidInput)
	_, err = c.ListCandidates(ctx, "bob")
	req.ErrorIs(err, chat.ErrInvalidInput)

	anon := c.WithToken("")
	_, err = anon.CurrentUserID(ctx)
	req.ErrorIs(err, chat.ErrUnauthenticated)
	_, err = c.WithToken("junk").CurrentUserID(ctx)
	req.ErrorIs(err, chat.ErrUnauthenticated)
}

func TestClient_MapsStatusToTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		call func(*Client) error
		want error
	}{
		{"resolve unavailable", status.Error(codes.Unavailable, "db down"), func(c *Client) error {
			_, err := c.ResolveOrCreate(context.Background(), "alice", "bob")
			return err
		}, chat.ErrResolutionFailed},
		{"resolve unknown peer", status.Error(codes.NotFound, "peer not found"), func(c *Client) error {
			_, err := c.ResolveOrCreate(context.Background(), "alice", "bob")
			return err
		}, chat.ErrInvalidInput},
		{"list unavailable", status.Error(codes.Unavailable, "db down"), func(c *Client) error {
			_, err := c.List(context.Background(), "c1")
			return err
		}, chat.ErrRetrievalFailed},
		{"list not participant", status.Error(codes.PermissionDenied, "no"), func(c *Client) error {
			_, err := c.List(context.Background(), "c1")
			return err
		}, chat.ErrInvalidInput},
		{"send invalid", status.Error(codes.InvalidArgument, "empty body"), func(c *Client) error {
			_, err := c.Append(context.Background(), "c1", "alice", " ")
			return err
		}, chat.ErrInvalidInput},
		{"send unavailable", status.Error(codes.Unavailable, "db down"), func(c *Client) error {
			_, err := c.Append(context.Background(), "c1", "alice", "hi")
			return err
		}, chat.ErrAppendFailed},
		{"directory unauthenticated", status.Error(codes.Unauthenticated, "expired"), func(c *Client) error {
			_, err := c.ListCandidates(context.Background(), "alice")
			return err
		}, chat.ErrUnauthenticated},
		{"directory unavailable", status.Error(codes.Unavailable, "db down"), func(c *Client) error {
			_, err := c.ListCandidates(context.Background(), "alice")
			return err
		}, chat.ErrDirectoryUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(startStub(t, &stubServer{err: tt.err}), tokenFor(t, "alice"))
			require.ErrorIs(t, tt.call(c), tt.want)
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{chat.ErrInvalidInput, codes.InvalidArgument},
		{ErrNotParticipant, codes.PermissionDenied},
		{ErrPeerNotFound, codes.NotFound},
		{chat.ErrUnauthenticated, codes.Unauthenticated},
		{errors.Join(chat.ErrResolutionFailed, errors.New("x")), codes.Unavailable},
		{chat.ErrRetrievalFailed, codes.Unavailable},
		{chat.ErrAppendFailed, codes.Unavailable},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.ResourceExhausted, "slow down"), codes.ResourceExhausted},
	}
	for _, tt := range tests {
		require.Equal(t, tt.code, status.Code(Status(tt.err)), tt.err.Error())
	}
	require.NoError(t, Status(nil))
}
