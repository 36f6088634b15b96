package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every component failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// checkTimeout bounds each component probe.
const checkTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	database   Pinger
	listings   Pinger
	embedding  ProviderChecker
	generation ProviderChecker
}

// New creates a Service. embedding and generation may be nil.
func New(database Pinger, embedding, generation ProviderChecker) *Service {
	return &Service{database: database, embedding: embedding, generation: generation}
}

// WithListings adds a separate listing store probe (Postgres backend).
func (s *Service) WithListings(p Pinger) *Service {
	s.listings = p
	return s
}

// Check probes every configured component.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 4)

	checks["database"] = probe(ctx, s.database.Ping)
	if s.listings != nil {
		checks["listings"] = probe(ctx, s.listings.Ping)
	}
	if s.embedding != nil {
		checks["embedding"] = probe(ctx, s.embedding.HealthCheck)
	}
	if s.generation != nil {
		checks["generation"] = probe(ctx, s.generation.HealthCheck)
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func probe(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
