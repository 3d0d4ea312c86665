package db

import (
	"errors"
	"net/http"
	"testing"
)

func TestBuildReport(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		pending    int
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, 0, http.StatusOK, "healthy"},
		{"pending migrations", nil, 2, http.StatusOK, "degraded"},
		{"ping failed", errors.New("connection refused"), 0, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &PoolStats{TotalConns: 1, Healthy: true}
			code, report := BuildReport(tt.pingErr, stats, tt.pending)
			if code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, code)
			}
			if report.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, report.Status)
			}
			if report.PendingMigrations != tt.pending {
				t.Errorf("expected %d pending, got %d", tt.pending, report.PendingMigrations)
			}
		})
	}
}

func TestBuildReport_PingFailureMarksPoolUnhealthy(t *testing.T) {
	stats := &PoolStats{TotalConns: 3, Healthy: true}
	_, report := BuildReport(errors.New("timeout"), stats, 0)
	if report.Pool.Healthy {
		t.Error("expected pool to be marked unhealthy")
	}
	if report.Error != "timeout" {
		t.Errorf("expected error message, got %q", report.Error)
	}
}

func TestBuildReport_NilStats(t *testing.T) {
	code, _ := BuildReport(errors.New("down"), nil, 0)
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
}
