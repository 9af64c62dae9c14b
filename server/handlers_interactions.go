package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/feedbot/discordapi"
	"github.com/onnwee/feedbot/telemetry"
)

// HandleInteractions receives Discord interaction callbacks. Every request
// must carry a valid Ed25519 signature over timestamp+body; unsigned or
// tampered requests get 401, which is also what Discord's endpoint
// verification probes for.
func (h *Handlers) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(h.deps.PublicKey) == 0 || h.deps.Service == nil {
		http.Error(w, "interactions not configured", http.StatusNotImplemented)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if !discordapi.VerifyInteraction(r, h.deps.PublicKey) {
		telemetry.LoggerWithCorr(r.Context()).Warn("interaction signature rejected", slog.String("remote_addr", r.RemoteAddr))
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return
	}

	var in discordapi.Interaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	resp := h.deps.Service.HandleInteraction(r.Context(), &in)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
