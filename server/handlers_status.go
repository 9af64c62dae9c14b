package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/feedbot/commandsync"
	"github.com/onnwee/feedbot/db"
)

// HandleStatus returns a lightweight status summary: catalog and ledger
// sizes plus the state of the persisted command sync record.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := map[string]any{}

	if h.deps.Version != "" {
		resp["version"] = h.deps.Version
	}
	if h.deps.Service != nil {
		resp["foods"] = h.deps.Service.Foods()
	}

	if users, err := db.NewKV(h.db, db.NSUsers).Count(ctx); err == nil {
		resp["users"] = users
	}

	var record string
	var syncedAt time.Time
	err := h.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM kv WHERE ns=$1 AND key=$2`, db.NSMisc, commandsync.RecordKey).Scan(&record, &syncedAt)
	if err == nil {
		resp["last_sync"] = syncedAt.UTC().Format(time.RFC3339)
		var perGuild map[string]string
		if json.Unmarshal([]byte(record), &perGuild) == nil {
			resp["synced_guilds"] = len(perGuild)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
