package grpcsrv

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/aegisline/corectl/internal/xerr"
)

const bearerPrefix = "Bearer "

// bearerFromContext reads the authorization metadata entry off an incoming
// RPC context, formatted "Bearer <token>". Every method that carries a
// token also accepts it as an explicit request field; this is the fallback
// a caller can use instead, and resolveToken prefers the field when both
// are present.
func bearerFromContext(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", false
	}
	if !strings.HasPrefix(values[0], bearerPrefix) {
		return "", false
	}
	return strings.TrimPrefix(values[0], bearerPrefix), true
}

// resolveToken prefers an explicit request-field token, falling back to the
// authorization metadata entry.
func resolveToken(ctx context.Context, fieldToken string) string {
	if fieldToken != "" {
		return fieldToken
	}
	if token, ok := bearerFromContext(ctx); ok {
		return token
	}
	return ""
}

// statusOf reduces any error to a gRPC status: not-found, permission-denied,
// unauthenticated, invalid-argument, or internal. xerr's Kind enum was
// named to match grpc/codes exactly for this reduction.
func statusOf(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch xerr.KindOf(err) {
	case xerr.InvalidArgument:
		code = codes.InvalidArgument
	case xerr.Unauthenticated:
		code = codes.Unauthenticated
	case xerr.PermissionDenied:
		code = codes.PermissionDenied
	case xerr.NotFound:
		code = codes.NotFound
	case xerr.FailedPrecondition:
		code = codes.FailedPrecondition
	case xerr.ResourceExhausted:
		code = codes.ResourceExhausted
	case xerr.DeadlineExceeded:
		code = codes.DeadlineExceeded
	case xerr.Unavailable:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, xerr.Sanitize(err.Error()))
}
