// Package discordapi contains minimal helpers to interact with the Discord
// REST API and the interactions webhook contract: guild listing, per-guild
// command registration, and signed slash-command callbacks.
package discordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DefaultBaseURL is the production REST endpoint.
const DefaultBaseURL = "https://discord.com/api/v10"

// guildPageSize is the maximum page size the guild listing endpoint serves.
const guildPageSize = 200

// Client provides the minimal REST surface the bot needs. Token is a bot
// token; BaseURL and HTTPClient are overridable for tests.
type Client struct {
	AppID      string
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client for the given application and bot token.
func NewClient(appID, token string) *Client {
	return &Client{AppID: appID, Token: token}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bot "+c.Token)
	return c.http().Do(req)
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

// statusError turns a non-2xx response into an error carrying the status and
// a truncated body excerpt.
func statusError(op string, resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: discord api status %d: %s", op, resp.StatusCode, bytes.TrimSpace(excerpt))
}

// Guild is a guild the bot is a member of.
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListGuilds returns every guild the bot has been added to, following
// pagination until a short page.
func (c *Client) ListGuilds(ctx context.Context) ([]Guild, error) {
	var out []Guild
	after := ""
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/users/@me/guilds", nil)
		if err != nil {
			return nil, fmt.Errorf("list guilds: %w", err)
		}
		q := req.URL.Query()
		q.Set("limit", fmt.Sprintf("%d", guildPageSize))
		if after != "" {
			q.Set("after", after)
		}
		req.URL.RawQuery = q.Encode()

		resp, err := c.do(req)
		if err != nil {
			return nil, fmt.Errorf("list guilds: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			err := statusError("list guilds", resp)
			closeBody(resp)
			return nil, err
		}
		var page []Guild
		err = json.NewDecoder(resp.Body).Decode(&page)
		closeBody(resp)
		if err != nil {
			return nil, fmt.Errorf("list guilds: decode: %w", err)
		}
		out = append(out, page...)
		if len(page) < guildPageSize {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}

// BulkOverwriteGuildCommands replaces a guild's entire slash-command set in a
// single call. This is the expensive, rate-limited operation the sync
// coordinator guards with its fingerprint record.
func (c *Client) BulkOverwriteGuildCommands(ctx context.Context, guildID string, cmds []Command) error {
	body, err := json.Marshal(cmds)
	if err != nil {
		return fmt.Errorf("overwrite commands: encode: %w", err)
	}
	url := fmt.Sprintf("%s/applications/%s/guilds/%s/commands", c.base(), c.AppID, guildID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("overwrite commands: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("overwrite commands guild %s: %w", guildID, err)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(fmt.Sprintf("overwrite commands guild %s", guildID), resp)
	}
	return nil
}
