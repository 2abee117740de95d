// Package middleware holds gRPC interceptors shared by the API server.
package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/normalize"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// idleTTL is how long an unused key keeps its limiter.
const idleTTL = 10 * time.Minute

// LimiterStore keeps one token bucket per key and evicts idle keys.
type LimiterStore struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientEntry
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore allows limitPerMinute events per key with the given burst.
// Idle keys are swept every cleanupInterval.
func NewLimiterStore(limitPerMinute int, burst int, cleanupInterval time.Duration) *LimiterStore {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	s := &LimiterStore{
		limit:   rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:   burst,
		clients: map[string]*clientEntry{},
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go s.cleanupLoop(cleanupInterval)
	return s
}

func (s *LimiterStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(s.now().Add(-idleTTL))
		case <-s.stopCh:
			return
		}
	}
}

func (s *LimiterStore) sweep(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.clients {
		if v.lastSeen.Before(cutoff) {
			delete(s.clients, k)
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (s *LimiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *LimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.clients[key]; ok {
		e.lastSeen = s.now()
		return e.limiter
	}
	limiter := rate.NewLimiter(s.limit, s.burst)
	s.clients[key] = &clientEntry{limiter: limiter, lastSeen: s.now()}
	return limiter
}

// Allow reports whether an event for key is permitted now.
func (s *LimiterStore) Allow(key string) bool {
	return s.getLimiter(key).Allow()
}

// RateLimitUnaryInterceptor limits the listed methods. Requests carrying an
// email (GetEmail) are keyed by the normalized address so one account cannot
// be hammered from many peers; others are keyed by peer address.
func RateLimitUnaryInterceptor(store *LimiterStore, limitedMethods map[string]bool, log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !limitedMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		key := limiterKey(ctx, req)
		if !store.Allow(key) {
			log.Warn("rate limit exceeded", "method", info.FullMethod, "key", key)
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func limiterKey(ctx context.Context, req any) string {
	type emailGetter interface{ GetEmail() string }
	if eg, ok := req.(emailGetter); ok {
		if e := normalize.Email(eg.GetEmail()); e != "" {
			return "email:" + e
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "unknown"
}
