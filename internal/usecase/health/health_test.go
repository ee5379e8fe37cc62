package health

import (
	"context"
	"errors"
	"testing"
)

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockGatewayChecker struct {
	err error
}

func (m *mockGatewayChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockGatewayChecker{})

	report := svc.Check(context.Background())
	if !report.Healthy() {
		t.Error("expected healthy report")
	}
	if report.Checks["database"] != CheckOK {
		t.Errorf("expected database ok, got %q", report.Checks["database"])
	}
	if report.Checks["gateway"] != CheckOK {
		t.Errorf("expected gateway ok, got %q", report.Checks["gateway"])
	}
}

func TestCheck_StoreDown(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("connection refused")}, &mockGatewayChecker{})

	report := svc.Check(context.Background())
	if report.Healthy() {
		t.Error("expected degraded report")
	}
	if report.Status != Degraded {
		t.Errorf("expected status %q, got %q", Degraded, report.Status)
	}
	if report.Checks["database"] != CheckError {
		t.Errorf("expected database error, got %q", report.Checks["database"])
	}
	if report.Checks["gateway"] != CheckOK {
		t.Errorf("expected gateway ok, got %q", report.Checks["gateway"])
	}
}

func TestCheck_GatewayDown(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockGatewayChecker{err: errors.New("unauthorized")})

	report := svc.Check(context.Background())
	if report.Healthy() {
		t.Error("expected degraded report")
	}
	if report.Checks["gateway"] != CheckError {
		t.Errorf("expected gateway error, got %q", report.Checks["gateway"])
	}
}

func TestCheck_NilGatewaySkipped(t *testing.T) {
	svc := New(&mockStorePinger{}, nil)

	report := svc.Check(context.Background())
	if !report.Healthy() {
		t.Error("expected healthy report without gateway check")
	}
	if _, ok := report.Checks["gateway"]; ok {
		t.Error("expected no gateway check when none is configured")
	}
}
