package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockDiscordServer creates a test server that mocks Discord REST API responses
type MockDiscordServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu         sync.Mutex
	pushBodies map[string][]string
}

// NewMockDiscordServer creates a new mock Discord API server
func NewMockDiscordServer(t *testing.T) *MockDiscordServer {
	t.Helper()
	m := &MockDiscordServer{
		Handlers:   make(map[string]http.HandlerFunc),
		pushBodies: make(map[string][]string),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockGuildsResponse adds a handler for the /users/@me/guilds endpoint
// returning a single page of guilds.
func (m *MockDiscordServer) MockGuildsResponse(guilds []map[string]string) {
	m.Handlers["/users/@me/guilds"] = func(w http.ResponseWriter, r *http.Request) {
		// Second page is empty so paginated listing terminates
		if r.URL.Query().Get("after") != "" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("[]"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(guilds) //nolint:errcheck // test mock response
	}
}

// MockBulkOverwrite adds a handler for the per-guild command overwrite
// endpoint, recording each request body for later assertions.
func (m *MockDiscordServer) MockBulkOverwrite(appID, guildID string, status int) {
	path := "/applications/" + appID + "/guilds/" + guildID + "/commands"
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test mock capture
		m.mu.Lock()
		m.pushBodies[guildID] = append(m.pushBodies[guildID], string(body))
		m.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}
}

// PushCount returns how many overwrite calls a guild received.
func (m *MockDiscordServer) PushCount(guildID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pushBodies[guildID])
}

// LastPush returns the most recent overwrite body a guild received.
func (m *MockDiscordServer) LastPush(guildID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	bodies := m.pushBodies[guildID]
	if len(bodies) == 0 {
		return ""
	}
	return bodies[len(bodies)-1]
}
