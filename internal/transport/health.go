// Package transport carries the RPC surface shared by every service in
// this repository: a common Health check plus the gRPC framing
// (internal/transport/grpcsrv) and HTTP framing (internal/transport/healthrest)
// it rides on. Grounded in the services/gateway/growth goctl-scaffolded
// layout (a rest.Server plus a svc.ServiceContext holding dependency handles),
// generalized from one gateway's REST surface to a dependency-probe health
// contract any service here can expose over either transport.
package transport

import (
	"context"
	"sync"
	"time"
)

// Status is the coarse health state a service reports. When aggregating,
// worseOf ranks them SERVING < DEGRADED < CRITICAL < NOT_SERVING.
type Status string

const (
	StatusServing    Status = "SERVING"
	StatusDegraded   Status = "DEGRADED"
	StatusCritical   Status = "CRITICAL"
	StatusNotServing Status = "NOT_SERVING"
)

// Checker probes one dependency (a database, the secret store, the signing
// key table) and reports its current status as a short human string, e.g.
// "ok" or "connection refused".
type Checker func(ctx context.Context) (Status, string)

// Report is the wire shape of a Health response: healthy, service_name,
// uptime_seconds, status, dependencies.
type Report struct {
	Healthy       bool              `json:"healthy"`
	ServiceName   string            `json:"service_name"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Status        Status            `json:"status"`
	Dependencies  map[string]string `json:"dependencies"`
}

// Registry aggregates named Checkers for one service instance and reduces
// them to a single Report. A service registers one Checker per dependency
// at construction (the secret store, the signing key table, an upstream
// Vault connection) and the registry is then handed to both grpcsrv and
// healthrest so the two transports answer identically.
type Registry struct {
	mu        sync.RWMutex
	name      string
	startedAt time.Time
	checks    map[string]Checker
}

func NewRegistry(serviceName string) *Registry {
	return &Registry{
		name:      serviceName,
		startedAt: time.Now(),
		checks:    make(map[string]Checker),
	}
}

// Register adds a named dependency check. Re-registering a name replaces it.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// Report runs every registered check and folds them into an overall status:
// any CRITICAL dependency makes the service CRITICAL, any DEGRADED makes it
// DEGRADED (unless already CRITICAL), and SERVING only if every dependency
// is SERVING. A service with no registered dependencies reports SERVING.
func (r *Registry) Report(ctx context.Context) Report {
	r.mu.RLock()
	checks := make(map[string]Checker, len(r.checks))
	for name, c := range r.checks {
		checks[name] = c
	}
	r.mu.RUnlock()

	deps := make(map[string]string, len(checks))
	overall := StatusServing
	for name, check := range checks {
		status, detail := check(ctx)
		deps[name] = detail
		overall = worseOf(overall, status)
	}

	return Report{
		Healthy:       overall == StatusServing || overall == StatusDegraded,
		ServiceName:   r.name,
		UptimeSeconds: int64(time.Since(r.startedAt).Seconds()),
		Status:        overall,
		Dependencies:  deps,
	}
}

func worseOf(a, b Status) Status {
	rank := map[Status]int{StatusServing: 0, StatusDegraded: 1, StatusCritical: 2, StatusNotServing: 3}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
