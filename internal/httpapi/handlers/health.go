package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mermaidrender/internal/httpkit"
)

const readyTimeout = 5 * time.Second

// Check is one readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Health reports liveness. It touches nothing and never fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every readiness check in parallel.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]map[string]any, len(h.checks))
	healthy := true

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := c.Probe(gctx)

			result := map[string]any{
				"status":     "ok",
				"latency_ms": time.Since(start).Milliseconds(),
			}
			if err != nil {
				result["status"] = "error"
				result["error"] = err.Error()
			}

			mu.Lock()
			results[c.Name] = result
			if err != nil {
				healthy = false
			}
			mu.Unlock()
			// Failures are reported per check; never cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	status, code := "ready", http.StatusOK
	if !healthy {
		status, code = "unavailable", http.StatusServiceUnavailable
		h.log.FromContext(r.Context()).Warn("readiness check failed", "checks", results)
	}
	httpkit.WriteJSON(w, code, map[string]any{"status": status, "checks": results})
}

// ExecutableCheck passes when name resolves to a runnable program.
func ExecutableCheck(name string) Check {
	return Check{Name: "renderer", Probe: func(context.Context) error {
		if name == "" {
			return fmt.Errorf("no renderer command configured")
		}
		_, err := exec.LookPath(name)
		return err
	}}
}

// DirWritableCheck passes when a file can be created in dir.
func DirWritableCheck(name, dir string) Check {
	return Check{Name: name, Probe: func(context.Context) error {
		f, err := os.CreateTemp(dir, ".ready-*")
		if err != nil {
			return err
		}
		path := f.Name()
		f.Close()
		return os.Remove(path)
	}}
}

// PingCheck wraps a store's ping function.
func PingCheck(name string, ping func(ctx context.Context) error) Check {
	return Check{Name: name, Probe: ping}
}
