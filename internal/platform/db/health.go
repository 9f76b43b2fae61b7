package db

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStatus is a point-in-time snapshot of the order-log pool for
// operators.
type PoolStatus struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
	Max      int32 `json:"max"`
}

type dbHealth struct {
	Status string     `json:"status"`
	Error  string     `json:"error,omitempty"`
	Pool   PoolStatus `json:"pool"`
}

func PoolStatusOf(pool *pgxpool.Pool) PoolStatus {
	stat := pool.Stat()
	return PoolStatus{
		Total:    stat.TotalConns(),
		Idle:     stat.IdleConns(),
		Acquired: stat.AcquiredConns(),
		Max:      stat.MaxConns(),
	}
}

// HealthHandler reports whether the order-log database is reachable. Order
// composition and submission keep working without it, so an unhealthy
// response here means history is degraded, not ordering.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, dbHealth{
				Status: "unhealthy",
				Error:  err.Error(),
				Pool:   PoolStatusOf(pool),
			})
		}
		return c.JSON(http.StatusOK, dbHealth{
			Status: "healthy",
			Pool:   PoolStatusOf(pool),
		})
	}
}
