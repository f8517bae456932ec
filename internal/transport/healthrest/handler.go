// Package healthrest exposes a Registry's Health report over plain HTTP,
// in the same rest.Server/httpx.OkJsonCtx shape the generated
// handlers use (services/gateway/growth/internal/handler/goals/toggleGoalHandler.go),
// generalized from one scaffolded route to a hand-written one since this
// route has no goctl .api source to scaffold it from.
package healthrest

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/aegisline/corectl/internal/transport"
)

// Route is a single rest.Route answering GET /health from registry.
func Route(registry *transport.Registry) rest.Route {
	return rest.Route{
		Method:  http.MethodGet,
		Path:    "/health",
		Handler: Handler(registry),
	}
}

// Handler builds the bare http.HandlerFunc, for services that assemble
// their own route table instead of taking a rest.Route.
func Handler(registry *transport.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := registry.Report(r.Context())
		status := http.StatusOK
		if !report.Healthy {
			status = http.StatusServiceUnavailable
		}
		httpx.WriteJson(w, status, report)
	}
}

// AddTo registers Route on server, mirroring the
// handler.RegisterHandlers(server, ctx) call in growthapi.go.
func AddTo(server *rest.Server, registry *transport.Registry) {
	server.AddRoute(Route(registry))
}
