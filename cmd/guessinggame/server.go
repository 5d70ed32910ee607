package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/lox/guessinggame/cmd/guessinggame/shared"
	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/randutil"
	"github.com/lox/guessinggame/internal/server"
)

// ServerCmd runs the game server. Flags override the config file and the
// environment.
type ServerCmd struct {
	Config  string `kong:"default='guessinggame.hcl',help='HCL config file, defaults are used when missing'"`
	EnvFile string `kong:"default='.env',help='Dotenv file loaded before reading GUESSINGGAME_* variables'"`
	Addr    string `kong:"help='Server address (overrides config)'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
	Seed    *int64 `kong:"help='Deterministic RNG seed for game targets (optional)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel)

	rng, seed := randutil.FromOptionalSeed(cfg.Server.Seed)
	if cfg.Server.Seed != nil {
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		logger.Info("Using random seed", "seed", seed)
	}

	engine := game.NewEngine(logger, rng)
	s := server.NewServer(logger, engine, server.WithConfig(cfg))

	addr := cfg.Address()
	if c.Addr != "" {
		addr = c.Addr
	}

	logger.Info("Starting guessing game server",
		"address", addr,
		"readLimit", cfg.Server.ReadLimit,
		"logLevel", cfg.Server.LogLevel)

	ctx := shared.SetupSignalHandler(logger)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// loadConfig layers the HCL file, then .env and the environment, then flags
func (c *ServerCmd) loadConfig() (*server.Config, error) {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg.Server.LogLevel = shared.LevelFor(cfg.Server.LogLevel, c.Debug)
	if c.Seed != nil {
		cfg.Server.Seed = c.Seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
