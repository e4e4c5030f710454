package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// StatusFunc reports the current scheduler state for readiness payloads.
// It returns the state name ("stopped", "idle", "scanning") and the number
// of armed accounts.
type StatusFunc func() (state string, armedAccounts int)

// HealthChecker provides health and readiness checks.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
	status    StatusFunc
}

// New creates a new HealthChecker. status may be nil; readiness payloads
// then omit scheduler details.
func New(status StatusFunc) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		status:    status,
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Response is the body of health and readiness probes.
type Response struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	Scheduler     string `json:"scheduler,omitempty"`
	ArmedAccounts int    `json:"armed_accounts,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, Response{
				Status:  "not_ready",
				Message: "application is starting",
			})
			return
		}

		resp := Response{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
		}
		if h.status != nil {
			resp.Scheduler, resp.ArmedAccounts = h.status()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
