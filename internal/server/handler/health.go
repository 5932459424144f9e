package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing service is reachable. The Redis client
// satisfies this; a nil Pinger means no such dependency is wired.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	openCount func() int
	redis     Pinger
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. openCount reports the live open
// position count; redis may be nil when Redis is not configured.
func NewHealthHandler(openCount func() int, redis Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		openCount: openCount,
		redis:     redis,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// HealthCheck responds with liveness details. Always 200; a degraded Redis
// connection is reported in the body rather than failing the probe.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"open_positions": h.openCount(),
	}

	if h.redis != nil {
		if err := h.redis.Ping(r.Context()); err != nil {
			body["redis"] = "unreachable"
		} else {
			body["redis"] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, body)
}
