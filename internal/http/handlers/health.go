package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadyCheck is one named readiness probe (upstream reachability, redis
// ping). Checks run sequentially under a shared deadline.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks       []ReadyCheck
	checkTimeout time.Duration
}

func NewHealthHandler(checks ...ReadyCheck) *HealthHandler {
	return &HealthHandler{
		checks:       checks,
		checkTimeout: 2 * time.Second,
	}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), h.checkTimeout)
	defer cancel()

	failed := map[string]string{}

	for _, c := range h.checks {
		if err := c.Check(checkCtx); err != nil {
			failed[c.Name] = err.Error()
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"failed": failed,
		})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
