package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// DatabaseHealth reports the state of the claims database: a live ping plus
// connection pool statistics.
type DatabaseHealth struct {
	Healthy       bool   `json:"healthy"`
	PingMillis    int64  `json:"ping_ms"`
	TotalConns    int32  `json:"total_conns"`
	IdleConns     int32  `json:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	MaxConns      int32  `json:"max_conns"`
	Error         string `json:"error,omitempty"`
}

// CheckHealth pings the database and collects pool statistics.
func CheckHealth(ctx context.Context, pool *pgxpool.Pool) DatabaseHealth {
	start := time.Now()
	err := pool.Ping(ctx)

	stat := pool.Stat()
	health := DatabaseHealth{
		Healthy:       err == nil,
		PingMillis:    time.Since(start).Milliseconds(),
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
		MaxConns:      stat.MaxConns(),
	}
	if err != nil {
		health.Error = err.Error()
	}
	return health
}

// HealthHandler serves the database health endpoint. A failed ping answers
// 503 so load balancers stop routing claim traffic here.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		health := CheckHealth(ctx, pool)
		status := http.StatusOK
		overall := "healthy"
		if !health.Healthy {
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
		}

		return c.JSON(status, map[string]interface{}{
			"status":   overall,
			"service":  "claimsbridge",
			"database": health,
		})
	}
}
