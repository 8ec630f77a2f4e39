package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthCheck is the plain liveness probe.
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type healthStreamRequest struct {
	Interval  float64 `json:"interval"`
	MaxChecks int     `json:"max_checks"`
}

type healthStatus struct {
	Timestamp float64        `json:"timestamp"`
	Level     string         `json:"level"`
	Data      map[string]any `json:"data"`
}

// StreamHealth emits periodic health-check records over SSE. Mostly useful
// for verifying that a deployment's ingress passes streaming responses
// through unbuffered.
func StreamHealth(w http.ResponseWriter, r *http.Request) {
	req := healthStreamRequest{Interval: 1.0, MaxChecks: 10}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.Interval < 0.1 || req.Interval > 10 {
		writeError(w, http.StatusBadRequest, "Interval must be between 0.1 and 10 seconds")
		return
	}
	if req.MaxChecks < 1 || req.MaxChecks > 100 {
		writeError(w, http.StatusBadRequest, "Max checks must be between 1 and 100")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		return
	}

	interval := time.Duration(req.Interval * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()
	for i := 0; i < req.MaxChecks; i++ {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}

		status := healthStatus{
			Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
			Level:     "INFO",
			Data: map[string]any{
				"check_number": i + 1,
				"total_checks": req.MaxChecks,
				"status":       "healthy",
				"interval":     req.Interval,
			},
		}
		if err := sse.send(status); err != nil {
			return
		}
	}
}
