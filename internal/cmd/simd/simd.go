// Package simd wires the simulation daemon: storage, engines, scheduler,
// and the HTTP control surface.
package simd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/louisbranch/chronicle-engine/internal/api"
	conflictdomain "github.com/louisbranch/chronicle-engine/internal/conflict/domain"
	conflictservice "github.com/louisbranch/chronicle-engine/internal/conflict/service"
	encounterservice "github.com/louisbranch/chronicle-engine/internal/encounter/service"
	platformcmd "github.com/louisbranch/chronicle-engine/internal/platform/cmd"
	"github.com/louisbranch/chronicle-engine/internal/random"
	"github.com/louisbranch/chronicle-engine/internal/scheduler"
	"github.com/louisbranch/chronicle-engine/internal/script"
	"github.com/louisbranch/chronicle-engine/internal/state/event"
	"github.com/louisbranch/chronicle-engine/internal/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Config holds the daemon's runtime configuration.
type Config struct {
	// Addr is the HTTP listen address for the control surface.
	Addr string `env:"CHRONICLE_SIM_ADDR" envDefault:":8080"`
	// DBPath is the SQLite database file for snapshots and the journal.
	DBPath string `env:"CHRONICLE_SIM_DB" envDefault:"chronicle.db"`
	// WorldPath is the authored world configuration file.
	WorldPath string `env:"CHRONICLE_SIM_WORLD" envDefault:"world.json"`
	// Mode selects manual or automatic turn advancement at startup.
	Mode string `env:"CHRONICLE_SIM_MODE" envDefault:"automatic"`
	// Seed fixes the RNG for reproducible runs; zero derives one from
	// crypto/rand.
	Seed int64 `env:"CHRONICLE_SIM_SEED" envDefault:"0"`
}

// ParseConfig loads environment defaults and then applies command-line
// flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.WorldPath, "world", cfg.WorldPath, "world configuration file")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "turn mode: manual or automatic")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "RNG seed (0 = derive from clock)")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the simulation daemon and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceSim, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	seed := cfg.Seed
	if seed == 0 {
		seed, err = random.NewSeed()
		if err != nil {
			return fmt.Errorf("derive seed: %w", err)
		}
	}
	rng := rand.New(rand.NewSource(seed))

	emitter := event.NewEmitter(store)
	scripts := script.NewEvaluator()
	conflicts := conflictservice.NewEngine(conflictdomain.DefaultConfig(), rng, emitter)
	encounters := encounterservice.NewLifecycle(rng, emitter, scripts)

	sched := scheduler.New(scheduler.DefaultConfig(), scheduler.Deps{
		Rng:        rng,
		Snapshots:  store,
		Summaries:  store,
		Emitter:    emitter,
		Scripts:    scripts,
		Conflicts:  conflicts,
		Encounters: encounters,
		OnTurnError: func(err error) {
			logger.Error("turn failed", zap.Error(err))
		},
		OnPersistError: func(err error) {
			logger.Warn("persistence degraded", zap.Error(err))
		},
	})

	world, interactions, err := LoadWorldFile(cfg.WorldPath)
	if err != nil {
		return err
	}
	if err := sched.Initialize(world, interactions); err != nil {
		return fmt.Errorf("initialize world: %w", err)
	}

	// A persisted snapshot supersedes the authored world; interactions
	// always come from the world file.
	restored, err := sched.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if restored {
		logger.Info("resumed from snapshot", zap.Uint64("turn", sched.World().Time))
	}

	if err := sched.Start(mode); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	logger.Info("simulation started",
		zap.Int64("seed", seed),
		zap.String("mode", mode.String()),
		zap.Int("entities", len(world.Entities)),
		zap.Int("nodes", len(world.Nodes)),
	)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(sched, store, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		logger.Warn("scheduler stop", zap.Error(err))
	}
	return nil
}

func parseMode(mode string) (scheduler.Mode, error) {
	switch mode {
	case "manual":
		return scheduler.ModeManual, nil
	case "automatic":
		return scheduler.ModeAutomatic, nil
	default:
		return scheduler.ModeUnspecified, fmt.Errorf("mode must be manual or automatic, got %q", mode)
	}
}

func newLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return config.Build()
}
