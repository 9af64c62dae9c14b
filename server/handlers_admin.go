package server

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/feedbot/bot"
)

// HandleAdminResync forces a command reconcile against every current guild.
// Useful after editing command definitions or when the startup push failed
// and you don't want to wait for a restart.
func (h *Handlers) HandleAdminResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Discord == nil || h.deps.Store == nil {
		http.Error(w, "discord not configured", http.StatusBadRequest)
		return
	}

	outcome, err := bot.SyncCommands(r.Context(), h.deps.Discord, h.deps.Store)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"hash":   outcome.Hash,
		"guilds": len(outcome.Targets),
		"dirty":  len(outcome.Dirty),
		"pushed": outcome.Pushed,
	})
}
