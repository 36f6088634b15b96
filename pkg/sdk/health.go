package herdask

import (
	"context"

	healthuc "github.com/kailas-cloud/herdask/internal/usecase/health"
	"github.com/kailas-cloud/herdask/internal/version"
)

// HealthStatus is the aggregated state of the database and the embedding provider.
type HealthStatus struct {
	Status  string            // "ok", "degraded", "error"
	Version string            // herdask build the client was compiled with
	Checks  map[string]string // component -> "ok"/"error"
}

// Healthy reports whether every component passed.
func (h HealthStatus) Healthy() bool {
	return h.Status == string(healthuc.Healthy)
}

// Health probes the database and, when the embedder supports it, the embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for component, result := range report.Checks {
		checks[component] = string(result)
	}
	return HealthStatus{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
