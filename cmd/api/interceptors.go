package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/directChat-gRPC/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// publicMethods need no token and are rate limited instead.
var publicMethods = map[string]bool{
	rpc.FullMethod(rpc.MethodRegister): true,
	rpc.FullMethod(rpc.MethodLogin):    true,
}

// authUnaryInterceptor enforces a bearer JWT on every non-public method and
// puts its claims in the context.
func authUnaryInterceptor(j *auth.JWTManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeaders[0], "Bearer"))
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		claims, err := j.VerifyToken(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "unauthenticated: %v", err)
		}
		return handler(auth.WithClaims(ctx, claims), req)
	}
}

// loggingUnaryInterceptor logs one line per call.
func loggingUnaryInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		level := slog.LevelDebug
		if code != codes.OK {
			level = slog.LevelInfo
		}
		log.Log(ctx, level, "rpc", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
		return resp, err
	}
}
