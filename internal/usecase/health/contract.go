package health

import "context"

// StorePinger checks document store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// GatewayChecker checks embedding/generation provider availability.
type GatewayChecker interface {
	HealthCheck(ctx context.Context) error
}
