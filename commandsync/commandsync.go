// Package commandsync keeps the registered Discord application commands
// aligned with the definitions the bot ships. Each reconcile fingerprints the
// current command set, compares it against the per-guild record persisted in
// the kv store, and pushes only to guilds whose record is missing or stale.
package commandsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/onnwee/feedbot/discordapi"
	"github.com/onnwee/feedbot/telemetry"
)

// RecordKey is the kv key the per-guild sync record lives under.
const RecordKey = "synced_commands"

// Store is the kv surface the coordinator reads and writes its record on.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// PushFunc registers the command set with every listed guild in one call.
type PushFunc func(ctx context.Context, guildIDs []string, cmds []discordapi.Command) error

// Coordinator reconciles the bot's command definitions against guilds.
type Coordinator struct {
	store Store
	push  PushFunc
}

// New returns a coordinator persisting to store and pushing through push.
func New(store Store, push PushFunc) *Coordinator {
	return &Coordinator{store: store, push: push}
}

// Fingerprint returns a stable hex digest of the command set. Commands are
// sorted by name before hashing so declaration order never changes the
// digest; any change to names, descriptions, or options does.
func Fingerprint(cmds []discordapi.Command) (string, error) {
	sorted := make([]discordapi.Command, len(cmds))
	copy(sorted, cmds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	b, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("fingerprint commands: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Outcome reports what a reconcile run found and did.
type Outcome struct {
	Hash    string
	Targets []string
	Dirty   []string
	Pushed  bool
}

// Reconcile compares the persisted per-guild fingerprints against the current
// command set. Guilds with a missing or differing fingerprint get the
// commands pushed, after which the record is rewritten to cover every current
// guild at the current hash. A run with nothing dirty pushes nothing and
// leaves the record untouched. A failed push leaves the record untouched so
// the next run retries.
func (c *Coordinator) Reconcile(ctx context.Context, cmds []discordapi.Command, guildIDs []string) (*Outcome, error) {
	hash, err := Fingerprint(cmds)
	if err != nil {
		return nil, err
	}

	record := map[string]string{}
	raw, ok, err := c.store.Get(ctx, RecordKey)
	if err != nil {
		return nil, fmt.Errorf("load sync record: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			slog.Warn("sync record unreadable, treating all guilds as stale", slog.Any("err", err))
			record = map[string]string{}
		}
	}

	var dirty []string
	for _, g := range guildIDs {
		if record[g] != hash {
			dirty = append(dirty, g)
		}
	}

	if len(dirty) == 0 {
		slog.Info("commands in sync", slog.Int("guilds", len(guildIDs)))
		telemetry.IncCommandSync("clean")
		return &Outcome{Hash: hash, Targets: guildIDs}, nil
	}

	if err := c.push(ctx, dirty, cmds); err != nil {
		telemetry.IncCommandSync("error")
		return nil, fmt.Errorf("push commands: %w", err)
	}

	fresh := make(map[string]string, len(guildIDs))
	for _, g := range guildIDs {
		fresh[g] = hash
	}
	b, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("encode sync record: %w", err)
	}
	if err := c.store.Set(ctx, RecordKey, string(b)); err != nil {
		return nil, fmt.Errorf("save sync record: %w", err)
	}

	slog.Info("commands pushed",
		slog.Int("dirty", len(dirty)),
		slog.Int("guilds", len(guildIDs)),
		slog.String("hash", hash))
	telemetry.IncCommandSync("pushed")
	return &Outcome{Hash: hash, Targets: guildIDs, Dirty: dirty, Pushed: true}, nil
}
