// Package health exposes liveness and readiness probes for a running
// pipeline.
//
// Liveness (/healthz) only proves the process serves HTTP. Readiness
// (/readyz) additionally runs the registered [Checker] functions, which for
// this pipeline typically probe whether the capture session is in its
// running state and whether the configured providers are reachable. Both
// endpoints answer JSON with a top-level "status" of "ok" or "fail"; /readyz
// adds a "checks" map with one entry per checker.
//
// The handlers mount on the same mux as the Prometheus /metrics endpoint,
// so a deployment gets all three from one listener.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// readyCheckTimeout caps each readiness check. A checker that probes a
// remote provider must give up within this bound so /readyz itself does not
// hang.
const readyCheckTimeout = 5 * time.Second

// Checker is one named readiness probe.
type Checker struct {
	// Name keys the check's entry in the /readyz response, e.g. "capture"
	// for the session-state probe.
	Name string

	// Check returns nil when the probed subsystem can do useful work right
	// now. It must respect ctx, which carries the per-check deadline.
	Check func(ctx context.Context) error
}

// report is the response body of both probe endpoints.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the probe endpoints. The checker set is fixed at
// construction; Handler itself is stateless and safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a Handler that runs the given checkers, in order, on every
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always answers 200. A process that reached this handler is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, http.StatusOK, report{Status: "ok"})
}

// Readyz answers 200 only when every checker passes, 503 otherwise. Failed
// checks carry their error text in the "checks" map so an operator can tell
// a not-yet-started session from an unreachable provider.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{
		Status: "ok",
		Checks: make(map[string]string, len(h.checkers)),
	}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			status = http.StatusServiceUnavailable
		} else {
			rep.Checks[c.Name] = "ok"
		}
	}

	writeReport(w, status, rep)
}

// Register mounts both probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeReport(w http.ResponseWriter, status int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
