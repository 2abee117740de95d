package main

import (
	"log/slog"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/config"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/rpc"
)

// Server implements rpc.ChatServiceServer on top of the conversation core.
type Server struct {
	accounts account.Store
	convs    chat.ConversationRepository
	resolver chat.ConversationResolver
	messages chat.MessageLog
	caller   chat.AuthProvider
	auth     *auth.JWTManager
	log      *slog.Logger
}

var _ rpc.ChatServiceServer = (*Server)(nil)

// newServer wires the resolver and message store over b.
func newServer(b *backend, jwtMgr *auth.JWTManager, cfg config.Config, log *slog.Logger) *Server {
	resolver := chat.NewResolver(b.convs,
		chat.WithResolverClock(b.clock),
		chat.WithResolverTimeout(cfg.OpTimeout),
		chat.WithResolverLogger(log),
	)
	messages := chat.NewMessageStore(b.convs, b.msgs,
		chat.WithStoreClock(b.clock),
		chat.WithStoreTimeout(cfg.OpTimeout),
		chat.WithMaxBodyLength(cfg.MaxBodyLength),
		chat.WithStoreLogger(log),
	)
	return &Server{
		accounts: b.accounts,
		convs:    b.convs,
		resolver: resolver,
		messages: messages,
		caller:   auth.ContextUser{},
		auth:     jwtMgr,
		log:      log,
	}
}
