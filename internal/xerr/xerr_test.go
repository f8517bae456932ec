package xerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfAndDetailOf(t *testing.T) {
	err := New(PermissionDenied, "nope").WithDetail("memory")
	require.Equal(t, PermissionDenied, KindOf(err))
	require.Equal(t, "memory", DetailOf(err))

	require.Equal(t, Internal, KindOf(errors.New("plain")))
	require.Empty(t, DetailOf(errors.New("plain")))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(Unavailable, cause, "upstream call failed")
	require.ErrorIs(t, err, cause)
	require.Equal(t, Unavailable, KindOf(err))
}

func TestRetryableOnlyUnavailableAndDeadlineExceeded(t *testing.T) {
	require.True(t, Retryable(New(Unavailable, "x")))
	require.True(t, Retryable(New(DeadlineExceeded, "x")))
	require.False(t, Retryable(New(Internal, "x")))
	require.False(t, Retryable(New(PermissionDenied, "x")))
}

func TestSeverityMapping(t *testing.T) {
	require.Equal(t, SeverityCritical, PermissionDenied.Severity())
	require.Equal(t, SeverityEmergency, ResourceExhausted.Severity())
	require.Equal(t, SeverityWarn, NotFound.Severity())
	require.Equal(t, SeverityWarn, Unauthenticated.Severity())
	require.Equal(t, SeverityInfo, Internal.Severity())
}
