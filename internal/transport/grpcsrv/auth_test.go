package grpcsrv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/aegisline/corectl/internal/xerr"
)

func TestBearerFromContextParsesBearerPrefix(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	token, ok := bearerFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "abc.def.ghi", token)
}

func TestBearerFromContextRejectsMissingPrefix(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "abc.def.ghi"))
	_, ok := bearerFromContext(ctx)
	require.False(t, ok)
}

func TestResolveTokenPrefersExplicitField(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer from-metadata"))
	require.Equal(t, "from-field", resolveToken(ctx, "from-field"))
	require.Equal(t, "from-metadata", resolveToken(ctx, ""))
}

func TestStatusOfMapsEveryKind(t *testing.T) {
	cases := map[xerr.Kind]codes.Code{
		xerr.InvalidArgument:    codes.InvalidArgument,
		xerr.Unauthenticated:    codes.Unauthenticated,
		xerr.PermissionDenied:   codes.PermissionDenied,
		xerr.NotFound:           codes.NotFound,
		xerr.FailedPrecondition: codes.FailedPrecondition,
		xerr.ResourceExhausted:  codes.ResourceExhausted,
		xerr.DeadlineExceeded:   codes.DeadlineExceeded,
		xerr.Unavailable:        codes.Unavailable,
		xerr.Internal:           codes.Internal,
	}
	for kind, want := range cases {
		err := statusOf(xerr.New(kind, "boom"))
		st, ok := status.FromError(err)
		require.True(t, ok)
		require.Equalf(t, want, st.Code(), "kind %v", kind)
	}
}

func TestStatusOfSanitizesMessage(t *testing.T) {
	err := statusOf(xerr.New(xerr.Internal, "failed reading /home/alice/.secret"))
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Contains(t, st.Message(), "[USER_PATH]")
	require.NotContains(t, st.Message(), "alice")
}
