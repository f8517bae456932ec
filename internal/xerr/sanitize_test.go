package xerr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeRedactsUserPaths(t *testing.T) {
	got := Sanitize("failed to open /home/alice/.config/secrets.toml")
	require.Contains(t, got, "[USER_PATH]")
	require.NotContains(t, got, "alice")
}

func TestSanitizeRedactsIPAddresses(t *testing.T) {
	got := Sanitize("connection refused from 10.0.0.42")
	require.Equal(t, "connection refused from [IP_ADDRESS]", got)
}

func TestSanitizeRedactsTempPaths(t *testing.T) {
	got := Sanitize("could not clean up /tmp/agent-run-8213/out.log")
	require.Contains(t, got, "[TEMP_PATH]")
}

func TestSanitizeCollapsesPermissionDenied(t *testing.T) {
	got := Sanitize("open /etc/shadow: Permission denied")
	require.Equal(t, "operation not permitted due to security restrictions", got)
}
