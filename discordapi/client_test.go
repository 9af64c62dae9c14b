package discordapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_ListGuilds(t *testing.T) {
	tests := []struct {
		name        string
		guilds      []Guild
		statusCode  int
		wantErr     bool
		errContains string
	}{
		{
			name: "single page",
			guilds: []Guild{
				{ID: "100", Name: "guild-a"},
				{ID: "200", Name: "guild-b"},
			},
			statusCode: http.StatusOK,
		},
		{
			name:       "no guilds",
			guilds:     []Guild{},
			statusCode: http.StatusOK,
		},
		{
			name:        "unauthorized",
			statusCode:  http.StatusUnauthorized,
			wantErr:     true,
			errContains: "status 401",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/users/@me/guilds" {
					t.Errorf("path = %s, want /users/@me/guilds", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bot test-token" {
					t.Errorf("Authorization = %q, want bot token", got)
				}
				if got := r.URL.Query().Get("limit"); got != "200" {
					t.Errorf("limit = %q, want 200", got)
				}
				w.WriteHeader(tt.statusCode)
				if tt.statusCode == http.StatusOK {
					_ = json.NewEncoder(w).Encode(tt.guilds)
				}
			}))
			defer server.Close()

			client := &Client{AppID: "app-1", Token: "test-token", BaseURL: server.URL}

			guilds, err := client.ListGuilds(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ListGuilds() error = nil, want error containing %q", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ListGuilds() error = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListGuilds() unexpected error = %v", err)
			}
			if len(guilds) != len(tt.guilds) {
				t.Errorf("ListGuilds() returned %d guilds, want %d", len(guilds), len(tt.guilds))
			}
			for i := range tt.guilds {
				if guilds[i] != tt.guilds[i] {
					t.Errorf("guild %d = %+v, want %+v", i, guilds[i], tt.guilds[i])
				}
			}
		})
	}
}

func TestClient_ListGuildsPagination(t *testing.T) {
	afterValues := []string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		after := r.URL.Query().Get("after")
		afterValues = append(afterValues, after)

		w.WriteHeader(http.StatusOK)
		if after == "" {
			// Full first page forces a second request
			page := make([]Guild, guildPageSize)
			for i := range page {
				page[i] = Guild{ID: fmt.Sprintf("%d", i+1), Name: fmt.Sprintf("guild-%d", i+1)}
			}
			_ = json.NewEncoder(w).Encode(page)
			return
		}
		_ = json.NewEncoder(w).Encode([]Guild{{ID: "9999", Name: "last-guild"}})
	}))
	defer server.Close()

	client := &Client{AppID: "app-1", Token: "test-token", BaseURL: server.URL}

	guilds, err := client.ListGuilds(context.Background())
	if err != nil {
		t.Fatalf("ListGuilds() error = %v", err)
	}
	if len(guilds) != guildPageSize+1 {
		t.Errorf("ListGuilds() returned %d guilds, want %d", len(guilds), guildPageSize+1)
	}
	if len(afterValues) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(afterValues))
	}
	if afterValues[0] != "" {
		t.Errorf("first request after = %q, want empty", afterValues[0])
	}
	if afterValues[1] != fmt.Sprintf("%d", guildPageSize) {
		t.Errorf("second request after = %q, want last id of first page", afterValues[1])
	}
	if guilds[len(guilds)-1].Name != "last-guild" {
		t.Errorf("final guild = %+v", guilds[len(guilds)-1])
	}
}

func TestClient_BulkOverwriteGuildCommands(t *testing.T) {
	cmds := []Command{
		{Name: "eat", Description: "Eat food", Options: []CommandOption{
			{Type: OptionTypeString, Name: "food", Description: "The food to eat", Required: true},
		}},
	}

	t.Run("success", func(t *testing.T) {
		var gotBody []Command
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("method = %s, want PUT", r.Method)
			}
			wantPath := "/applications/app-1/guilds/g-42/commands"
			if r.URL.Path != wantPath {
				t.Errorf("path = %s, want %s", r.URL.Path, wantPath)
			}
			if got := r.Header.Get("Authorization"); got != "Bot test-token" {
				t.Errorf("Authorization = %q, want bot token", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decode body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("[]"))
		}))
		defer server.Close()

		client := &Client{AppID: "app-1", Token: "test-token", BaseURL: server.URL}
		if err := client.BulkOverwriteGuildCommands(context.Background(), "g-42", cmds); err != nil {
			t.Fatalf("BulkOverwriteGuildCommands() error = %v", err)
		}
		if len(gotBody) != 1 || gotBody[0].Name != "eat" {
			t.Errorf("pushed body = %+v", gotBody)
		}
		if len(gotBody[0].Options) != 1 || gotBody[0].Options[0].Name != "food" {
			t.Errorf("pushed options = %+v", gotBody[0].Options)
		}
	})

	t.Run("api error carries status and guild", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Missing Access","code":50001}`))
		}))
		defer server.Close()

		client := &Client{AppID: "app-1", Token: "test-token", BaseURL: server.URL}
		err := client.BulkOverwriteGuildCommands(context.Background(), "g-42", cmds)
		if err == nil {
			t.Fatal("expected error for 403 response")
		}
		if !strings.Contains(err.Error(), "status 403") {
			t.Errorf("error = %v, want status 403", err)
		}
		if !strings.Contains(err.Error(), "g-42") {
			t.Errorf("error = %v, want guild id", err)
		}
	})
}
