// Package server exposes the HTTP API: the Discord interactions webhook,
// health and status probes, metrics, the Twitch OAuth flow, and admin
// operations. It includes permissive CORS for development and injects
// correlation IDs into request contexts for consistent logging.
package server

import (
	"crypto/ed25519"
	"database/sql"
	"sync"
	"time"

	"github.com/onnwee/feedbot/bot"
	"github.com/onnwee/feedbot/commandsync"
	"github.com/onnwee/feedbot/discordapi"
	"github.com/onnwee/feedbot/twitchauth"
)

// Maximum number of pending OAuth states to keep in memory.
const maxOAuthStates = 10000

// Deps carries the collaborators the handlers dispatch to. Nil entries
// disable the matching endpoints: without PublicKey the webhook rejects
// everything, without Discord the resync endpoint reports not configured,
// and without Auth the OAuth flow does.
type Deps struct {
	Service   *bot.Service
	Discord   *discordapi.Client
	Store     commandsync.Store
	Auth      *twitchauth.Authenticator
	PublicKey ed25519.PublicKey
	Version   string
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db   *sql.DB
	deps Deps

	stateMu    sync.Mutex
	stateStore map[string]time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(db *sql.DB, deps Deps) *Handlers {
	return &Handlers{
		db:         db,
		deps:       deps,
		stateStore: make(map[string]time.Time),
	}
}

// addOAuthState records a pending OAuth state, expiring stale entries as it
// goes. When the store is full the state is dropped, failing that flow
// rather than growing without bound.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	if len(h.stateStore)%100 == 0 {
		now := time.Now()
		for st, exp := range h.stateStore {
			if now.After(exp) {
				delete(h.stateStore, st)
			}
		}
	}
	if len(h.stateStore) >= maxOAuthStates {
		return
	}
	h.stateStore[state] = expiry
}

// takeOAuthState consumes a pending state, reporting whether it was known
// and unexpired. States are single use.
func (h *Handlers) takeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return time.Now().Before(exp)
}
