package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// DependencyCheck reports a dependency's state and whether it counts as up.
type DependencyCheck func(ctx context.Context) (state string, ok bool)

type HealthHandler struct {
	Version   string
	StartTime time.Time
	checks    map[string]DependencyCheck
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewHealthHandler starts with in-memory storage and no broker; the With*
// methods swap in real checks.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		Version:   version,
		StartTime: time.Now(),
		checks: map[string]DependencyCheck{
			"database": static("in-memory"),
			"rabbitmq": static("not configured"),
			"mail":     static("not configured"),
		},
	}
}

func static(state string) DependencyCheck {
	return func(context.Context) (string, bool) { return state, true }
}

func (h *HealthHandler) WithDatabase(db *sql.DB) *HealthHandler {
	if db == nil {
		return h
	}
	h.checks["database"] = func(ctx context.Context) (string, bool) {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Sprintf("unhealthy: %v", err), false
		}
		return "healthy", true
	}
	return h
}

func (h *HealthHandler) WithRabbitMQ(conn *amqp091.Connection) *HealthHandler {
	if conn == nil {
		return h
	}
	h.checks["rabbitmq"] = func(context.Context) (string, bool) {
		if conn.IsClosed() {
			return "unhealthy: connection closed", false
		}
		return "healthy", true
	}
	return h
}

// WithMailRelay only records the relay; notifications are best effort.
func (h *HealthHandler) WithMailRelay(host string) *HealthHandler {
	if host != "" {
		h.checks["mail"] = static("relay " + host)
	}
	return h
}

func (h *HealthHandler) WithCheck(name string, check DependencyCheck) *HealthHandler {
	h.checks[name] = check
	return h
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		state, ok := check(ctx)
		deps[name] = state
		if !ok {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	})
}
