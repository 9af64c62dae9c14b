package chat

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/onnwee/feedbot/bot"
	"github.com/onnwee/feedbot/config"
)

// StartSupervised keeps the chat mirror connected, retrying with exponential
// backoff when the connection drops. Intended to run in its own goroutine for
// the life of the process.
//
// Env knobs:
//
//	CHAT_RECONNECT_MIN (default 5s)
//	CHAT_RECONNECT_MAX (default 5m)
func StartSupervised(ctx context.Context, cfg *config.Config, svc *bot.Service, database *sql.DB) {
	minDelay := config.EnvDuration("CHAT_RECONNECT_MIN", 5*time.Second)
	maxDelay := config.EnvDuration("CHAT_RECONNECT_MAX", 5*time.Minute)

	delay := minDelay
	for {
		if ctx.Err() != nil {
			return
		}
		started := time.Now()
		err := Start(ctx, cfg, svc, database)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Start returns nil when the mirror is not configured
			return
		}

		healthy := time.Since(started) > time.Minute
		delay = nextBackoff(delay, minDelay, maxDelay, healthy)
		slog.Warn("twitch chat disconnected; reconnecting",
			slog.Duration("in", delay), slog.Any("err", err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// nextBackoff doubles cur up to max. A healthy run (the previous connection
// held for a while) resets to min.
func nextBackoff(cur, min, max time.Duration, healthy bool) time.Duration {
	if healthy {
		return min
	}
	cur *= 2
	if cur > max {
		return max
	}
	return cur
}
