package healthrest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegisline/corectl/internal/transport"
)

func TestHandlerReportsServingWithNoDependencies(t *testing.T) {
	reg := transport.NewRegistry("vaultd")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	Handler(reg)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report transport.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.True(t, report.Healthy)
	require.Equal(t, transport.StatusServing, report.Status)
	require.Equal(t, "vaultd", report.ServiceName)
}

func TestHandlerReportsUnavailableWhenDependencyCritical(t *testing.T) {
	reg := transport.NewRegistry("vaultd")
	reg.Register("postgres", func(ctx context.Context) (transport.Status, string) {
		return transport.StatusCritical, "connection refused"
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	Handler(reg)(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report transport.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.False(t, report.Healthy)
	require.Equal(t, transport.StatusCritical, report.Status)
	require.Equal(t, "connection refused", report.Dependencies["postgres"])
}
