package rpc

import (
	"context"
	"fmt"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client talks to a ChatService and satisfies the chat ports, so a
// chat.Session can run against a remote server.
type Client struct {
	stub  *ChatServiceClient
	token string
}

var (
	_ chat.AuthProvider         = (*Client)(nil)
	_ chat.UserDirectory        = (*Client)(nil)
	_ chat.ConversationResolver = (*Client)(nil)
	_ chat.MessageLog           = (*Client)(nil)
)

// NewClient returns a client that authenticates with token, which may be
// empty for Register and Login.
func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{stub: NewChatServiceClient(cc), token: token}
}

// WithToken returns a copy of c that sends token.
func (c *Client) WithToken(token string) *Client {
	return &Client{stub: c.stub, token: token}
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	return c.stub.Register(ctx, req)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.stub.Login(ctx, &LoginRequest{Email: email, Password: password})
}

// CurrentUserID reads the subject of the client's token.
func (c *Client) CurrentUserID(context.Context) (string, error) {
	if c.token == "" {
		return "", chat.ErrUnauthenticated
	}
	id, err := auth.SubjectFromToken(c.token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", chat.ErrUnauthenticated, err)
	}
	return id, nil
}

// ListCandidates returns the caller's directory. The server always lists for
// the token's user, so viewerID only has to agree with it.
func (c *Client) ListCandidates(ctx context.Context, viewerID string) ([]chat.User, error) {
	return c.SearchUsers(ctx, viewerID, "")
}

// SearchUsers lists the directory narrowed by query on the server.
func (c *Client) SearchUsers(ctx context.Context, viewerID, query string) ([]chat.User, error) {
	if err := c.checkCaller(ctx, viewerID); err != nil {
		return nil, err
	}
	resp, err := c.stub.ListUsers(c.outgoing(ctx), &ListUsersRequest{Query: query})
	if err != nil {
		return nil, FromStatus(err, chat.ErrDirectoryUnavailable)
	}
	return resp.Users, nil
}

// ResolveOrCreate resolves the conversation between the caller and the other
// id. Resolving on behalf of two other users is invalid input.
func (c *Client) ResolveOrCreate(ctx context.Context, userA, userB string) (chat.Conversation, error) {
	pair, err := chat.NewPair(userA, userB)
	if err != nil {
		return chat.Conversation{}, err
	}
	me, err := c.CurrentUserID(ctx)
	if err != nil {
		return chat.Conversation{}, err
	}
	peer, ok := pair.Peer(me)
	if !ok {
		return chat.Conversation{}, fmt.Errorf("%w: caller is not one of the participants", chat.ErrInvalidInput)
	}

	resp, err := c.stub.ResolveConversation(c.outgoing(ctx), &ResolveConversationRequest{PeerID: peer})
	if err != nil {
		return chat.Conversation{}, FromStatus(err, chat.ErrResolutionFailed)
	}
	return resp.Conversation, nil
}

func (c *Client) List(ctx context.Context, conversationID string) ([]chat.Message, error) {
	resp, err := c.stub.ListMessages(c.outgoing(ctx), &ListMessagesRequest{ConversationID: conversationID})
	if err != nil {
		return nil, FromStatus(err, chat.ErrRetrievalFailed)
	}
	if resp.Messages == nil {
		return []chat.Message{}, nil
	}
	return resp.Messages, nil
}

// Append sends body as the caller; senderID must be the caller.
func (c *Client) Append(ctx context.Context, conversationID, senderID, body string) (chat.Message, error) {
	if err := c.checkCaller(ctx, senderID); err != nil {
		return chat.Message{}, err
	}
	resp, err := c.stub.SendMessage(c.outgoing(ctx), &SendMessageRequest{ConversationID: conversationID, Body: body})
	if err != nil {
		return chat.Message{}, FromStatus(err, chat.ErrAppendFailed)
	}
	return resp.Message, nil
}

func (c *Client) checkCaller(ctx context.Context, id string) error {
	me, err := c.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	if id != me {
		return fmt.Errorf("%w: %s is not the authenticated user", chat.ErrInvalidInput, id)
	}
	return nil
}
