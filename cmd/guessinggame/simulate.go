package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/guessinggame/cmd/guessinggame/shared"
	"github.com/lox/guessinggame/internal/client"
	"github.com/lox/guessinggame/internal/fileutil"
	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/randutil"
	"github.com/lox/guessinggame/internal/server"
	"github.com/lox/guessinggame/internal/simulator"
)

// SimulateCmd plays many games and reports how a strategy fares
type SimulateCmd struct {
	Games       int    `kong:"default='1000',help='Number of games to play'"`
	Concurrency int    `kong:"default='8',help='Games played in parallel'"`
	Strategy    string `kong:"default='sequential',help='Guessing strategy (sequential|random|repeat)'"`
	Seed        *int64 `kong:"help='Seed for targets and strategies (optional)'"`
	Verify      bool   `kong:"default='true',negatable,help='Check every response against the game rules'"`

	// Where the games run
	Server  string `kong:"help='Play against a running server instead of an in-process engine'"`
	Spawn   bool   `kong:"help='Start an in-process server on a random port and play over WebSocket'"`
	Msgpack bool   `kong:"help='Use binary msgpack frames when playing over the network'"`

	Out   string `kong:"help='Write the report as JSON to this file'"`
	Debug bool   `kong:"help='Enable debug logging'"`
}

func (c *SimulateCmd) Run() error {
	logger := shared.SetupLogger(shared.LevelFor("info", c.Debug))

	if c.Server != "" && c.Spawn {
		return errors.New("--server and --spawn are mutually exclusive")
	}

	strategy, err := simulator.LookupStrategy(c.Strategy)
	if err != nil {
		return err
	}

	rng, seed := randutil.FromOptionalSeed(c.Seed)
	logger.Info("Starting simulation", "games", c.Games, "strategy", strategy.Name(), "seed", seed)

	ctx := shared.SetupSignalHandler(logger)

	process, cleanup, err := c.backend(ctx, logger, game.NewEngine(logger, rng))
	if err != nil {
		return err
	}
	defer cleanup()

	sim := simulator.New(simulator.Config{
		Games:       c.Games,
		Concurrency: c.Concurrency,
		Strategy:    strategy,
		Seed:        seed,
		Verify:      c.Verify,
		Logger:      logger,
	}, process)

	report, err := sim.Run(ctx)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)

	if c.Out != "" {
		if err := fileutil.WriteJSON(c.Out, report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("Report written", "file", c.Out)
	}
	return nil
}

// backend picks where games are played: the local engine, an in-process
// server reached over WebSocket, or a remote server
func (c *SimulateCmd) backend(ctx context.Context, logger *log.Logger, engine *game.Engine) (simulator.ProcessFunc, func(), error) {
	url := strings.TrimSpace(c.Server)
	cleanup := func() {}

	if c.Spawn {
		ln, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to listen: %w", err)
		}
		s := server.NewServer(logger, engine)
		go func() {
			if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server stopped", "error", err)
			}
		}()
		cleanup = func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Shutdown(shutdownCtx)
		}

		url = "http://" + ln.Addr().String()
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := server.WaitForHealthy(healthCtx, url); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	if url == "" {
		return simulator.Local(engine), cleanup, nil
	}

	var opts []client.Option
	if c.Msgpack {
		opts = append(opts, client.WithMsgpack())
	}
	cl := client.New(url, logger, opts...)
	if err := cl.Connect(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	serverCleanup := cleanup
	return cl.Do, func() {
		_ = cl.Close()
		serverCleanup()
	}, nil
}

func printReport(w io.Writer, report *simulator.Report) {
	fmt.Fprintf(w, "Strategy:  %s (seed %d)\n", report.Strategy, report.Seed)
	fmt.Fprintf(w, "Games:     %d in %s\n", report.Games, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Won:       %d (%.1f%%)\n", report.Won, report.WinRate*100)
	fmt.Fprintf(w, "Lost:      %d\n", report.Lost)
	for n := 1; n <= game.NumberOfGuesses; n++ {
		fmt.Fprintf(w, "  won on guess %d: %d\n", n, report.WonOnGuess[n])
	}
}
