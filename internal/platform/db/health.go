package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// HealthReport is the body of the database health endpoint.
type HealthReport struct {
	Status            string     `json:"status"`
	Error             string     `json:"error,omitempty"`
	Pool              *PoolStats `json:"pool"`
	PendingMigrations int        `json:"pending_migrations"`
}

// BuildReport derives the report and its HTTP status. A failed ping makes
// the database unhealthy; pending migrations only degrade it.
func BuildReport(pingErr error, stats *PoolStats, pending int) (int, HealthReport) {
	report := HealthReport{Status: "healthy", Pool: stats, PendingMigrations: pending}
	if pingErr != nil {
		if stats != nil {
			stats.Healthy = false
		}
		report.Status = "unhealthy"
		report.Error = pingErr.Error()
		return http.StatusServiceUnavailable, report
	}
	if pending > 0 {
		report.Status = "degraded"
	}
	return http.StatusOK, report
}

// HealthHandler returns a handler for the database health check endpoint.
// The migrator may be nil, in which case migrations are not inspected.
func HealthHandler(pool *pgxpool.Pool, migrator *Migrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := pool.Ping(ctx)
		pending := 0
		if err == nil && migrator != nil {
			statuses, serr := migrator.Status(ctx)
			if serr != nil {
				err = serr
			}
			for _, s := range statuses {
				if !s.Applied {
					pending++
				}
			}
		}

		code, report := BuildReport(err, GetPoolStats(pool), pending)
		return c.JSON(code, report)
	}
}
