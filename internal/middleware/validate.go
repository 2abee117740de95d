package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ValidateUnaryInterceptor checks `validate` struct tags on every request and
// answers InvalidArgument listing the failing fields.
func ValidateUnaryInterceptor(v *validator.Validate) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		err := v.StructCtx(ctx, req)
		var invalid *validator.InvalidValidationError
		if err == nil || errors.As(err, &invalid) {
			// Non-struct requests carry no tags.
			return handler(ctx, req)
		}

		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
		}
		msgs := make([]string, 0, len(fields))
		for _, fe := range fields {
			msgs = append(msgs, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %s", strings.Join(msgs, ", "))
	}
}
