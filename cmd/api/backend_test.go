package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/config"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/rpc"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_EmbeddedDrivers(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		driver string
		set    func(*config.Config)
	}{
		{config.DriverBadger, func(c *config.Config) { c.BadgerPath = filepath.Join(dir, "badger") }},
		{config.DriverSQLite, func(c *config.Config) { c.SQLitePath = filepath.Join(dir, "sqlite", "chat.db") }},
		{config.DriverMemory, func(*config.Config) {}},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			cfg := testConfig()
			cfg.StoreDriver = tt.driver
			tt.set(&cfg)

			b, err := openBackend(ctx, cfg, discard())
			req.NoError(err)
			t.Cleanup(func() { req.NoError(b.close(context.Background())) })

			anon := rpc.NewClient(startBufServer(t, b, 100), "")
			alice := signUp(t, anon, "alice@example.com", "Alice")
			bob := signUp(t, anon, "bob@example.com", "Bob")
			aliceID, err := alice.CurrentUserID(ctx)
			req.NoError(err)
			bobID, err := bob.CurrentUserID(ctx)
			req.NoError(err)

			conv, err := alice.ResolveOrCreate(ctx, aliceID, bobID)
			req.NoError(err)
			_, err = bob.Append(ctx, conv.ID, bobID, "persisted")
			req.NoError(err)
			msgs, err := alice.List(ctx, conv.ID)
			req.NoError(err)
			req.Len(msgs, 1)
			req.Equal(bobID, msgs[0].SenderID)
		})
	}

	_, err := openBackend(context.Background(), config.Config{StoreDriver: "tape"}, discard())
	require.Error(t, err)
}
