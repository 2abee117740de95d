package middleware

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type dummy struct{ email string }

func (d dummy) GetEmail() string { return d.email }

func TestLimiterStore_AllowAndSweep(t *testing.T) {
	req := require.New(t)
	s := NewLimiterStore(5, 5, time.Hour)
	defer s.Stop()

	key := "test@example.com"
	for i := 0; i < 5; i++ {
		req.True(s.Allow(key), "iteration %d", i)
	}
	req.False(s.Allow(key))

	s.sweep(time.Now().Add(time.Minute))
	s.mu.Lock()
	_, ok := s.clients[key]
	s.mu.Unlock()
	req.False(ok)
	req.True(s.Allow(key))

	s.Stop()
	s.Stop()
}

func TestRateLimitUnaryInterceptor(t *testing.T) {
	req := require.New(t)
	s := NewLimiterStore(1, 1, time.Hour)
	defer s.Stop()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	icpt := RateLimitUnaryInterceptor(s, map[string]bool{"/svc/Login": true}, log)
	ok := func(context.Context, any) (any, error) { return "ok", nil }
	login := &grpc.UnaryServerInfo{FullMethod: "/svc/Login"}

	_, err := icpt(context.Background(), dummy{email: "A@example.com"}, login, ok)
	req.NoError(err)
	// Same account, different case: same bucket.
	_, err = icpt(context.Background(), dummy{email: " a@EXAMPLE.com"}, login, ok)
	req.Equal(codes.ResourceExhausted, status.Code(err))

	_, err = icpt(context.Background(), dummy{email: "b@example.com"}, login, ok)
	req.NoError(err)

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 9}})
	_, err = icpt(ctx, struct{}{}, login, ok)
	req.NoError(err)
	_, err = icpt(ctx, struct{}{}, login, ok)
	req.Equal(codes.ResourceExhausted, status.Code(err))

	// Unlisted methods pass through.
	for range 3 {
		out, err := icpt(ctx, struct{}{}, &grpc.UnaryServerInfo{FullMethod: "/svc/Other"}, ok)
		req.NoError(err)
		req.Equal("ok", out)
	}
}
