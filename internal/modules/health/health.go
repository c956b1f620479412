package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps describes what /health reports on. Redis and Summarizer are optional.
type Deps struct {
	Store      Pinger
	StoreKind  string
	Degraded   bool
	Redis      Pinger
	Summarizer string
	StartedAt  time.Time
}

func RegisterRoutes(rg *gin.RouterGroup, deps Deps) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		storeOK := deps.Store != nil && deps.Store.Ping(ctx) == nil

		status := "ok"
		code := http.StatusOK
		switch {
		case !storeOK:
			status = "down"
			code = http.StatusServiceUnavailable
		case deps.Degraded:
			status = "degraded"
		}

		body := gin.H{
			"status":   status,
			"store":    deps.StoreKind,
			"degraded": deps.Degraded,
			"database": storeOK,
		}
		if deps.Redis != nil {
			body["redis"] = deps.Redis.Ping(ctx) == nil
		}
		if deps.Summarizer != "" {
			body["summarizer"] = deps.Summarizer
		}
		if !deps.StartedAt.IsZero() {
			body["uptime"] = int64(time.Since(deps.StartedAt).Seconds())
		}
		c.JSON(code, body)
	})
}
