package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/feedbot/bot"
	"github.com/onnwee/feedbot/config"
	"github.com/onnwee/feedbot/db"
	"github.com/onnwee/feedbot/food"
	"github.com/onnwee/feedbot/ledger"
	"github.com/onnwee/feedbot/telemetry"
)

// Command is one parsed chat command.
type Command struct {
	Name   string
	Target string
	Food   string
}

// ParseCommand extracts a bot command from a raw chat line. Commands start
// with "!". Lines without the prefix or with an unknown command word return
// false.
func ParseCommand(message string) (Command, bool) {
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, "!") {
		return Command{}, false
	}
	fields := strings.Fields(message[1:])
	if len(fields) == 0 {
		return Command{}, false
	}

	cmd := Command{Name: strings.ToLower(fields[0])}
	args := fields[1:]
	switch cmd.Name {
	case "eat":
		cmd.Food = strings.Join(args, " ")
	case "feed":
		if len(args) == 0 {
			return cmd, true
		}
		cmd.Target = strings.TrimPrefix(args[0], "@")
		cmd.Food = strings.Join(args[1:], " ")
	case "stats":
		if len(args) > 0 {
			cmd.Target = strings.TrimPrefix(args[0], "@")
		}
	default:
		return Command{}, false
	}
	return cmd, true
}

// HandleMessage executes a chat command against the service and renders a
// single-line reply. ok is false for messages that are no command at all, so
// callers know not to answer.
//
// Chat users are keyed by their lowercase login name: the feed target is only
// known by name, and login names keep self-feeds and gifts in the same
// record.
func HandleMessage(ctx context.Context, svc *bot.Service, msg twitch.PrivateMessage) (string, bool) {
	cmd, ok := ParseCommand(msg.Message)
	if !ok {
		return "", false
	}
	telemetry.IncChatCommand(cmd.Name)

	sender := strings.ToLower(msg.User.Name)
	display := msg.User.DisplayName
	if display == "" {
		display = msg.User.Name
	}

	switch cmd.Name {
	case "eat":
		if cmd.Food == "" {
			return "Usage: !eat <food>", true
		}
		f, err := svc.Feed(ctx, bot.TwitchUserID(sender), cmd.Food)
		if errors.Is(err, food.ErrNotFound) {
			return bot.FoodNotFoundReply(cmd.Food), true
		}
		if err != nil {
			slog.Error("chat eat failed", slog.String("user", sender), slog.Any("err", err))
			return "Something went wrong, try again later", true
		}
		return fmt.Sprintf("%s just had a %s! + %d calories!", display, f.Food.Name, f.Food.Calories), true

	case "feed":
		if cmd.Target == "" || cmd.Food == "" {
			return "Usage: !feed <user> <food>", true
		}
		target := strings.ToLower(cmd.Target)
		f, err := svc.Feed(ctx, bot.TwitchUserID(target), cmd.Food)
		if errors.Is(err, food.ErrNotFound) {
			return bot.FoodNotFoundReply(cmd.Food), true
		}
		if err != nil {
			slog.Error("chat feed failed", slog.String("user", target), slog.Any("err", err))
			return "Something went wrong, try again later", true
		}
		if target == sender {
			return fmt.Sprintf("%s just had a %s! + %d calories!", display, f.Food.Name, f.Food.Calories), true
		}
		return fmt.Sprintf("%s was given a %s by %s! + %d calories!", cmd.Target, f.Food.Name, display, f.Food.Calories), true

	case "stats":
		target := sender
		label := display
		if cmd.Target != "" {
			target = strings.ToLower(cmd.Target)
			label = cmd.Target
		}
		rec, err := svc.Stats(ctx, bot.TwitchUserID(target))
		if errors.Is(err, ledger.ErrNotFound) {
			return bot.UserNotFoundReply(label), true
		}
		if err != nil {
			slog.Error("chat stats failed", slog.String("user", target), slog.Any("err", err))
			return "Something went wrong, try again later", true
		}
		days := int(time.Now().UTC().Sub(rec.Created) / (24 * time.Hour))
		return fmt.Sprintf("%s: %d total calories, %d days since joining", label, rec.Calories, days), true
	}
	return "", false
}

// Start connects the chat mirror and blocks until ctx is cancelled or the
// connection fails. Returns nil on clean shutdown (or when the mirror is not
// configured) and the connect error otherwise, so a supervisor can retry.
func Start(ctx context.Context, cfg *config.Config, svc *bot.Service, database *sql.DB) error {
	if len(cfg.TwitchChannels) == 0 || cfg.TwitchBotUsername == "" {
		slog.Info("twitch chat disabled: channels or bot username not set")
		return nil
	}
	token, err := resolveToken(ctx, cfg, database)
	if err != nil {
		slog.Error("twitch chat disabled: no usable oauth token", slog.Any("err", err))
		return nil
	}

	client := twitch.NewClient(cfg.TwitchBotUsername, token)
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		reply, ok := HandleMessage(ctx, svc, msg)
		if !ok {
			return
		}
		client.Say(msg.Channel, reply)
	})

	client.Join(cfg.TwitchChannels...)
	slog.Info("twitch chat connecting",
		slog.String("username", cfg.TwitchBotUsername),
		slog.Any("channels", cfg.TwitchChannels))

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-ctx.Done():
		client.Disconnect()
		<-errCh
		return nil
	case err := <-errCh:
		return fmt.Errorf("twitch chat connect: %w", err)
	}
}

// resolveToken prefers the env token, falling back to the stored token for
// provider "twitch".
func resolveToken(ctx context.Context, cfg *config.Config, database *sql.DB) (string, error) {
	if cfg.TwitchOAuthToken != "" {
		return normalizeToken(cfg.TwitchOAuthToken), nil
	}
	if database == nil {
		return "", fmt.Errorf("TWITCH_OAUTH_TOKEN not set and no token store available")
	}
	access, _, _, _, err := db.GetOAuthToken(ctx, database, "twitch")
	if err != nil {
		return "", fmt.Errorf("load stored twitch token: %w", err)
	}
	if access == "" {
		return "", fmt.Errorf("no stored twitch token; set TWITCH_OAUTH_TOKEN or complete the authorization flow")
	}
	return normalizeToken(access), nil
}

// normalizeToken adds the oauth: prefix IRC expects; the authorization flow
// stores bare access tokens.
func normalizeToken(token string) string {
	if strings.HasPrefix(token, "oauth:") {
		return token
	}
	return "oauth:" + token
}
