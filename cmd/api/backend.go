package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/account"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/config"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/data/badgerdb"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/data/memdb"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/data/sqlitedb"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/db"
)

// backend is one storage driver seen through the ports the server needs.
type backend struct {
	accounts account.Store
	convs    chat.ConversationRepository
	msgs     chat.MessageRepository
	// clock matches the timestamp precision the driver keeps.
	clock chat.Clock
	close func(context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := db.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		if err := client.CreateIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		return &backend{
			accounts: data.NewUsersStore(client.UsersCollection(), cfg.DirectoryLimit),
			convs:    data.NewConversationsStore(client.ConversationsCollection()),
			msgs:     data.NewMessagesStore(client.MessagesCollection()),
			// BSON dates keep milliseconds.
			clock: chat.NewMonotonicClockWithResolution(time.Millisecond),
			close: client.Close,
		}, nil

	case config.DriverBadger:
		kv, err := badgerdb.Open(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		s := badgerdb.New(kv, log, cfg.DirectoryLimit)
		return &backend{
			accounts: s, convs: s, msgs: s,
			clock: chat.NewMonotonicClock(),
			close: func(context.Context) error { return kv.Close() },
		}, nil

	case config.DriverSQLite:
		s, err := sqlitedb.Open(cfg.SQLitePath, log, cfg.DirectoryLimit)
		if err != nil {
			return nil, err
		}
		return &backend{
			accounts: s, convs: s, msgs: s,
			clock: chat.NewMonotonicClock(),
			close: func(context.Context) error { return s.Close() },
		}, nil

	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return newMemoryBackend(cfg.DirectoryLimit), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newMemoryBackend(directoryLimit int) *backend {
	s := memdb.New(directoryLimit)
	return &backend{
		accounts: s, convs: s, msgs: s,
		clock: chat.NewMonotonicClock(),
		close: func(context.Context) error { return nil },
	}
}
