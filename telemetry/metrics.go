// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	Feedings    prometheus.Counter
	MatchMisses prometheus.Counter

	// Labeled counters
	CommandSyncs *prometheus.CounterVec // result: pushed|clean|error
	Interactions *prometheus.CounterVec // command name
	ChatCommands *prometheus.CounterVec // command name

	// Histograms (seconds)
	RequestDuration prometheus.Observer

	// Gauges
	BuildInfo *prometheus.GaugeVec
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		Feedings = promauto.NewCounter(prometheus.CounterOpts{Name: "feedbot_feedings_total", Help: "Number of feedings recorded in the ledger"})
		MatchMisses = promauto.NewCounter(prometheus.CounterOpts{Name: "feedbot_match_misses_total", Help: "Number of food lookups that matched nothing"})
		CommandSyncs = promauto.NewCounterVec(prometheus.CounterOpts{Name: "feedbot_command_syncs_total", Help: "Command reconcile runs by outcome"}, []string{"result"})
		Interactions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "feedbot_interactions_total", Help: "Discord interactions handled by command"}, []string{"command"})
		ChatCommands = promauto.NewCounterVec(prometheus.CounterOpts{Name: "feedbot_chat_commands_total", Help: "Twitch chat commands handled by command"}, []string{"command"})
		RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "feedbot_http_request_duration_seconds", Help: "HTTP request duration seconds", Buckets: prometheus.DefBuckets})
		BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "feedbot_build_info", Help: "Build metadata, value is always 1"}, []string{"version"})
	})
}

// IncFeeding counts one recorded feeding.
func IncFeeding() {
	if Feedings != nil {
		Feedings.Inc()
	}
}

// IncMatchMiss counts one food query that found nothing.
func IncMatchMiss() {
	if MatchMisses != nil {
		MatchMisses.Inc()
	}
}

// IncCommandSync counts one reconcile run with its outcome label.
func IncCommandSync(result string) {
	if CommandSyncs != nil {
		CommandSyncs.WithLabelValues(result).Inc()
	}
}

// IncInteraction counts one handled Discord interaction.
func IncInteraction(command string) {
	if Interactions != nil {
		Interactions.WithLabelValues(command).Inc()
	}
}

// IncChatCommand counts one handled chat command.
func IncChatCommand(command string) {
	if ChatCommands != nil {
		ChatCommands.WithLabelValues(command).Inc()
	}
}

// SetBuildInfo publishes the running version.
func SetBuildInfo(version string) {
	if BuildInfo != nil {
		BuildInfo.WithLabelValues(version).Set(1)
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger carrying the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
