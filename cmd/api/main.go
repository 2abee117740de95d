package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/config"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/middleware"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/rpc"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.close(cctx); err != nil {
			log.Error("closing store failed", "driver", cfg.StoreDriver, "error", err)
		}
	}()

	jwtMgr, err := newJWTManager(cfg)
	if err != nil {
		return err
	}

	// Small burst so a mistyped password can be retried at once.
	limiterStore := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, time.Minute)
	defer limiterStore.Stop()

	serverOpts, err := transportOptions(cfg)
	if err != nil {
		return err
	}
	srv := newServer(b, jwtMgr, cfg, log)
	grpcServer := newGRPCServer(srv, jwtMgr, limiterStore, log, serverOpts...)

	lis, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Address(), err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("gRPC server listening", "address", cfg.Address(), "driver", cfg.StoreDriver, "tls", cfg.TLSCert != "")
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gRPC server")
	case err := <-errCh:
		return err
	}
	grpcServer.GracefulStop()
	return nil
}

// newGRPCServer chains the interceptors (log, rate limit, auth, validate)
// and registers srv.
func newGRPCServer(srv *Server, jwtMgr *auth.JWTManager, limiter *middleware.LimiterStore, log *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		loggingUnaryInterceptor(log),
		middleware.RateLimitUnaryInterceptor(limiter, publicMethods, log),
		authUnaryInterceptor(jwtMgr),
		middleware.ValidateUnaryInterceptor(validator.New()),
	))
	s := grpc.NewServer(opts...)
	rpc.RegisterChatServiceServer(s, srv)
	return s
}

// newJWTManager prefers JWT_KEYS so keys can rotate, falling back to the
// single JWT_SECRET.
func newJWTManager(cfg config.Config) (*auth.JWTManager, error) {
	if cfg.JWTKeys == "" {
		return auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL), nil
	}
	keys, err := cfg.SigningKeys()
	if err != nil {
		return nil, err
	}
	return auth.NewJWTManagerFromKeys(keys, cfg.JWTActiveKid, cfg.TokenTTL), nil
}

func transportOptions(cfg config.Config) ([]grpc.ServerOption, error) {
	if cfg.TLSCert == "" {
		return nil, nil
	}
	creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certs: %w", err)
	}
	return []grpc.ServerOption{grpc.Creds(creds)}, nil
}
