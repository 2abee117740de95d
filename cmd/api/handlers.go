package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Register hashes the password, stores the account and returns a token.
func (s *Server) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.AuthResponse, error) {
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to hash password: %v", err)
	}

	acc, err := s.accounts.CreateAccount(ctx, account.Account{
		User: chat.User{
			Name:     req.Name,
			Username: req.Username,
			Bio:      req.Bio,
			PhotoURL: req.PhotoURL,
		},
		Email:        req.Email,
		PasswordHash: hashed,
	})
	switch {
	case errors.Is(err, account.ErrUserExists):
		return nil, status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, account.ErrUsernameTaken):
		return nil, status.Error(codes.AlreadyExists, "username already taken")
	case err != nil:
		s.log.ErrorContext(ctx, "create account failed", "error", err)
		return nil, status.Error(codes.Internal, "failed to create user")
	}
	return s.issue(acc)
}

// Login checks the password and returns a token.
func (s *Server) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.AuthResponse, error) {
	acc, err := s.accounts.GetByEmail(ctx, req.Email)
	if errors.Is(err, account.ErrUserNotFound) {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	if err != nil {
		s.log.ErrorContext(ctx, "account lookup failed", "error", err)
		return nil, status.Error(codes.Unavailable, "account lookup failed")
	}
	if err := auth.CheckPassword(acc.PasswordHash, req.Password); err != nil {
		return nil, status.Error(codes.PermissionDenied, "invalid credentials")
	}
	return s.issue(acc)
}

func (s *Server) issue(acc account.Account) (*rpc.AuthResponse, error) {
	token, expiresAt, err := s.auth.GenerateToken(acc.ID, acc.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to generate token: %v", err)
	}
	return &rpc.AuthResponse{Token: token, UserID: acc.ID, ExpiresAt: expiresAt}, nil
}

// ListUsers returns the caller's directory narrowed by the query.
func (s *Server) ListUsers(ctx context.Context, req *rpc.ListUsersRequest) (*rpc.ListUsersResponse, error) {
	me, err := s.caller.CurrentUserID(ctx)
	if err != nil {
		return nil, s.fail(ctx, rpc.MethodListUsers, err)
	}
	users, err := s.accounts.ListCandidates(ctx, me)
	if err != nil {
		return nil, s.fail(ctx, rpc.MethodListUsers, fmt.Errorf("%w: %w", chat.ErrDirectoryUnavailable, err))
	}
	users = chat.Filter(users, req.Query)
	if users == nil {
		users = []chat.User{}
	}
	return &rpc.ListUsersResponse{Users: users}, nil
}

// ResolveConversation returns the caller's conversation with the peer,
// creating it on first contact.
func (s *Server) ResolveConversation(ctx context.Context, req *rpc.ResolveConversationRequest) (*rpc.ResolveConversationResponse, error) {
	me, err := s.caller.CurrentUserID(ctx)
	if err != nil {
		return nil, s.fail(ctx, rpc.MethodResolveConversation, err)
	}
	if _, err := s.accounts.GetByID(ctx, req.PeerID); err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			err = fmt.Errorf("%w: %s", rpc.ErrPeerNotFound, req.PeerID)
		} else {
			err = fmt.Errorf("%w: %w", chat.ErrResolutionFailed, err)
		}
		return nil, s.fail(ctx, rpc.MethodResolveConversation, err)
	}

	conv, err := s.resolver.ResolveOrCreate(ctx, me, req.PeerID)
	if err != nil {
		return nil, s.fail(ctx, rpc.MethodResolveConversation, err)
	}
	return &rpc.ResolveConversationResponse{Conversation: conv}, nil
}

// ListMessages returns the conversation's history to one of its participants.
func (s *Server) ListMessages(ctx context.Context, req *rpc.ListMessagesRequest) (*rpc.ListMessagesResponse, error) {
	me, err := s.caller.CurrentUserID(ctx)
	if err != nil {
		return nil, s.fail(ctx, rpc.MethodListMessages, err)
	}
	conv, err := s.convs.GetConversation(ctx, req.ConversationID)
	if err != nil {
		if !errors.Is(err, chat.ErrConversationNotFound) {
			err = fmt.Errorf("%w: %w", chat.ErrRetrievalFailed, err)
		}
		return nil, s.fail(ctx, rpc.MethodListMessages, err)
	}
	if !conv.Has(me) {
		return nil, s.fail(ctx, rpc.MethodListMessages, rpc.ErrNotParticipant)
	}

	msgs, err := s.messages.List(ctx, conv.ID)
	if err != nil {
		return nil, s.fail(ctx, rpc.MethodListMessages, err)
	}
	return &rpc.ListMessagesResponse{Messages: msgs}, nil
}

// SendMessage appends a message from the caller.
func (s *Server) SendMessage(ctx context.Context, req *rpc.SendMessageRequest) (*rpc.SendMessageResponse, error) {
	me, err := s.caller.CurrentUserID(ctx)
	if err != nil {
		return nil, s.fail(ctx, rpc.MethodSendMessage, err)
	}
	msg, err := s.messages.Append(ctx, req.ConversationID, me, req.Body)
	if err != nil {
		return nil, s.fail(ctx, rpc.MethodSendMessage, err)
	}
	return &rpc.SendMessageResponse{Message: msg}, nil
}

// fail logs storage failures and converts err to a status.
func (s *Server) fail(ctx context.Context, method string, err error) error {
	if !errors.Is(err, chat.ErrInvalidInput) && !errors.Is(err, rpc.ErrNotParticipant) &&
		!errors.Is(err, rpc.ErrPeerNotFound) && !errors.Is(err, chat.ErrConversationNotFound) {
		s.log.ErrorContext(ctx, "request failed", "method", method, "error", err)
	}
	return rpc.Status(err)
}
