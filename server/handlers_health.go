package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/onnwee/feedbot/commandsync"
	"github.com/onnwee/feedbot/db"
)

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed system checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"food_catalog", func() error {
			if h.deps.Service == nil || h.deps.Service.Foods() == 0 {
				return fmt.Errorf("food catalog empty")
			}
			return nil
		}},
		{"commands", func() error {
			// Only meaningful when the Discord front-end is wired up. The
			// record appears after the first clean reconcile, so a failed
			// startup push keeps the pod not-ready until a retry lands.
			if h.deps.Discord == nil {
				return nil
			}
			_, ok, err := db.NewKV(h.db, db.NSMisc).Get(r.Context(), commandsync.RecordKey)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("commands never synced")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
