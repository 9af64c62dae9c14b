package bot

import (
	"context"
	"fmt"

	"github.com/onnwee/feedbot/commandsync"
	"github.com/onnwee/feedbot/discordapi"
)

// Pusher registers command definitions guild by guild through the Discord
// REST client.
type Pusher struct {
	client *discordapi.Client
}

// NewPusher returns a Pusher over the given client.
func NewPusher(client *discordapi.Client) *Pusher {
	return &Pusher{client: client}
}

// Push implements commandsync.PushFunc. A failure on any guild aborts the
// remaining pushes; the reconcile record is only written after a clean run,
// so the next reconcile retries everything still stale.
func (p *Pusher) Push(ctx context.Context, guildIDs []string, cmds []discordapi.Command) error {
	for _, g := range guildIDs {
		if err := p.client.BulkOverwriteGuildCommands(ctx, g, cmds); err != nil {
			return err
		}
	}
	return nil
}

// SyncCommands discovers the guilds the bot is in and reconciles the command
// set against them. Used at startup and by the admin resync endpoint.
func SyncCommands(ctx context.Context, client *discordapi.Client, store commandsync.Store) (*commandsync.Outcome, error) {
	guilds, err := client.ListGuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list guilds: %w", err)
	}
	ids := make([]string, len(guilds))
	for i, g := range guilds {
		ids[i] = g.ID
	}

	coord := commandsync.New(store, NewPusher(client).Push)
	return coord.Reconcile(ctx, Commands(), ids)
}
