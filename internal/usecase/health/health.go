// Package health aggregates component liveness for the health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Healthy reports whether all checks passed.
func (r Report) Healthy() bool { return r.Status == Healthy }

// Service coordinates health checks.
type Service struct {
	store   StorePinger
	gateway GatewayChecker
}

// New creates a Service. gateway can be nil.
func New(store StorePinger, gateway GatewayChecker) *Service {
	return &Service{store: store, gateway: gateway}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.store.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.gateway != nil {
		if err := s.gateway.HealthCheck(ctx); err != nil {
			checks["gateway"] = CheckError
		} else {
			checks["gateway"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
