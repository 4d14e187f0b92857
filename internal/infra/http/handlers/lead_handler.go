package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/xavierca1/ligue-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

type LeadHandler struct {
	Service     *usecase.LeadService
	Log         *logrus.Entry
	rateLimiter *RateLimiter
}

func NewLeadHandler(svc *usecase.LeadService, log *logrus.Entry) *LeadHandler {
	return &LeadHandler{
		Service:     svc,
		Log:         log,
		rateLimiter: NewRateLimiter(10, time.Minute), // 10 creates/min per client
	}
}

func (h *LeadHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{lead}", h.Update)
	r.Delete("/{lead}", h.Delete)
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := h.Service.List(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		writeUsecaseError(w, h.Log, "list_leads", err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeErrorResponse(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.")
		return
	}

	var input usecase.CreateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	lead, err := h.Service.Create(r.Context(), middleware.OwnerID(r.Context()), input)
	if err != nil {
		writeUsecaseError(w, h.Log, "create_lead", err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	lead, err := h.Service.Update(r.Context(), middleware.OwnerID(r.Context()), chi.URLParam(r, "lead"), input)
	if err != nil {
		writeUsecaseError(w, h.Log, "update_lead", err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Delete(r.Context(), middleware.OwnerID(r.Context()), chi.URLParam(r, "lead"))
	if err != nil {
		writeUsecaseError(w, h.Log, "delete_lead", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
		window:   window,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	rl.evictLocked(now)
	return v.limiter.AllowN(now, 1)
}

// evictLocked drops visitors idle for two windows; their buckets are full again.
func (rl *RateLimiter) evictLocked(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window*2 {
			delete(rl.visitors, key)
		}
	}
}
