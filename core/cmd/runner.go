package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lix74/menubot/core/analytics"
	coreconfig "github.com/lix74/menubot/core/config"
	"github.com/lix74/menubot/core/engine"
	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/logger"
	"github.com/lix74/menubot/core/session"
	"github.com/lix74/menubot/core/storage"
	coretelegram "github.com/lix74/menubot/core/telegram"
	"github.com/lix74/menubot/core/users"
)

// Options describe where to find configuration.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string
}

// Run loads configuration, assembles the application and runs the bot until
// a termination signal arrives.
func Run(opts Options) error {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return fmt.Errorf("cmd: logger init failed: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("cmd: storage init failed: %w", err)
	}
	defer store.Close()

	graphSnap, err := store.LoadGraph()
	if err != nil {
		return fmt.Errorf("cmd: load graph: %w", err)
	}
	usersDoc, err := store.LoadUsers()
	if err != nil {
		return fmt.Errorf("cmd: load users: %w", err)
	}
	statsDoc, err := store.LoadAnalytics()
	if err != nil {
		return fmt.Errorf("cmd: load analytics: %w", err)
	}

	g := graph.New(graphSnap)
	dir := users.NewDirectory(usersDoc)
	tracker := analytics.NewTracker(statsDoc)
	sessions := session.NewManager()

	// a configured admin id is pinned to the admin role on every start,
	// so a lost admin account can always be recovered via config
	if id := cfg.Telegram.AdminID; id != 0 {
		dir.Register(id, "", "", "")
		if dir.Role(id) != users.RoleAdmin {
			dir.SetRole(id, users.RoleAdmin)
			logger.L.With("component", "app").Info("admin pinned from config",
				slog.String("event", "admin.pinned"),
				slog.Int64("user_id", id),
			)
		}
	}

	coalescer := storage.NewCoalescer(store, storage.Sources{
		Graph:     g.Snapshot,
		Users:     dir.Snapshot,
		Analytics: tracker.Snapshot,
	}, time.Duration(cfg.Storage.DebounceSeconds)*time.Second)
	defer coalescer.Close()

	eng := engine.New(g, sessions, dir, tracker, coalescer,
		time.Duration(cfg.Session.TimeoutMinutes)*time.Minute)

	stats := g.Stats()
	logger.L.With("component", "app").Info("state loaded",
		slog.String("event", "state.loaded"),
		slog.String("backend", cfg.Storage.Backend),
		slog.Int("pages", stats.Pages),
		slog.Int("count", dir.Count()),
	)

	startedAt := time.Now()
	runOpts := coretelegram.RunOptions{
		Config:      cfg,
		Middlewares: coretelegram.DefaultMiddlewares(cfg),
		Routes:      coretelegram.BuildRoutes(eng),
		OnStart: func(ctx context.Context) error {
			logger.L.With("component", "app").Info("app ready",
				slog.String("event", "ready"),
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.L.With("component", "app").Info("shutting down...",
				slog.String("event", "shutdown"),
			)
			coalescer.Close()
			return nil
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return coretelegram.RunTelegram(ctx, runOpts)
}

// openStore builds the persistence backend selected by configuration.
func openStore(cfg *coreconfig.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case coreconfig.StorageBackendPostgres:
		return storage.NewPGStore(cfg.Storage.Postgres)
	default:
		return storage.NewJSONStore(cfg.Storage.DataDir)
	}
}
