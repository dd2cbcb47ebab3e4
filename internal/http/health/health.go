package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 3 * time.Second

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	ready atomic.Bool
	check Check
}

// New returns a health handler instance. A nil check skips the
// dependency check on readiness.
func New(check Check) *Handler {
	return &Handler{check: check}
}

// SetReady marks the handler as ready.
func (h *Handler) SetReady() {
	h.ready.Store(true)
}

// SetNotReady marks the handler as not ready.
func (h *Handler) SetNotReady() {
	h.ready.Store(false)
}

// Healthz handles liveness checks.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz handles readiness checks. The server is ready once marked ready
// and the dependency check, if any, passes.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		notReady(w, "not ready")
		return
	}
	if h.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		if err := h.check(ctx); err != nil {
			notReady(w, "backend unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func notReady(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(msg))
}
