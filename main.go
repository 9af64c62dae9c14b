// Command feedbot is the main entrypoint for the feeding bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Loads the food catalog and reconciles slash commands with every guild.
//   - Serves the Discord interactions webhook plus health/status/metrics.
//   - Optionally mirrors commands into Twitch chat and keeps the stored
//     Twitch token fresh.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/feedbot/bot"
	"github.com/onnwee/feedbot/chat"
	"github.com/onnwee/feedbot/config"
	"github.com/onnwee/feedbot/db"
	"github.com/onnwee/feedbot/discordapi"
	"github.com/onnwee/feedbot/food"
	"github.com/onnwee/feedbot/ledger"
	"github.com/onnwee/feedbot/oauth"
	"github.com/onnwee/feedbot/server"
	"github.com/onnwee/feedbot/telemetry"
	"github.com/onnwee/feedbot/twitchauth"
)

var version = "1.0.0"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()
	telemetry.SetBuildInfo(version)

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("feedbot", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Run database migrations: versioned migrations (golang-migrate) from
	// db/migrations/ first, embedded SQL (db.Migrate) as a fallback for
	// deployments without a schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to legacy embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		migrationCtx := context.Background()
		if err := db.Migrate(migrationCtx, database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("legacy embedded SQL migration completed",
			slog.String("component", "db_migrate"))
	} else {
		slog.Info("versioned migrations completed successfully",
			slog.String("component", "db_migrate"))
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Food catalog and core service
	catalog, err := food.LoadCatalog(cfg.FoodsPath)
	if err != nil {
		slog.Error("failed to load food catalog", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("food catalog loaded", slog.String("path", cfg.FoodsPath), slog.Int("foods", catalog.Len()))
	svc := bot.NewService(food.NewMatcher(catalog), ledger.New(db.NewKV(database, db.NSUsers)))

	deps := server.Deps{Service: svc, Version: version}

	// Discord front-end: parse the webhook key and reconcile slash commands
	// with every guild before serving. A failed push is logged and retried by
	// the admin resync endpoint; until it lands readiness stays false.
	if err := cfg.ValidateDiscordReady(); err == nil {
		pubKey, err := discordapi.ParsePublicKey(cfg.DiscordPublicKey)
		if err != nil {
			slog.Error("invalid DISCORD_PUBLIC_KEY", slog.Any("err", err))
			os.Exit(1)
		}
		client := discordapi.NewClient(cfg.DiscordAppID, cfg.DiscordBotToken)
		client.BaseURL = cfg.DiscordAPIBase
		store := db.NewKV(database, db.NSMisc)
		deps.Discord = client
		deps.Store = store
		deps.PublicKey = pubKey

		syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if out, err := bot.SyncCommands(syncCtx, client, store); err != nil {
			slog.Error("startup command sync failed", slog.Any("err", err))
		} else {
			slog.Info("commands synced",
				slog.Int("guilds", len(out.Targets)),
				slog.Int("dirty", len(out.Dirty)),
				slog.Bool("pushed", out.Pushed))
		}
		cancel()
	} else {
		slog.Info("discord front-end disabled", slog.Any("reason", err))
	}

	// Twitch OAuth: web flow for operators plus a background refresher that
	// keeps the stored chat token alive.
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" && cfg.TwitchRedirectURI != "" {
		auth, err := twitchauth.New(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRedirectURI, cfg.TwitchScopes)
		if err != nil {
			slog.Error("twitch oauth setup failed", slog.Any("err", err))
			os.Exit(1)
		}
		deps.Auth = auth
		oauth.StartRefresher(ctx, database, twitchauth.Provider,
			config.EnvDuration("OAUTH_REFRESH_INTERVAL", 5*time.Minute),
			config.EnvDuration("OAUTH_REFRESH_WINDOW", 15*time.Minute),
			auth.Refresh)
	}

	// Twitch chat mirror
	if err := cfg.ValidateChatReady(); err == nil {
		go chat.StartSupervised(ctx, cfg, svc, database)
	} else {
		slog.Info("twitch chat mirror disabled", slog.Any("reason", err))
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (interactions/health/status/metrics/oauth/admin)
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		if err := server.Start(ctx, database, addr, deps); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
