package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/lox/guessinggame/cmd/guessinggame/shared"
	"github.com/lox/guessinggame/internal/client"
	"github.com/lox/guessinggame/internal/randutil"
	"github.com/lox/guessinggame/internal/simulator"
	"github.com/lox/guessinggame/internal/tui"
)

// PlayCmd connects to a server and plays, either in the terminal UI or
// automatically with a strategy
type PlayCmd struct {
	Server   string `kong:"default='http://localhost:8080',help='Server URL'"`
	Msgpack  bool   `kong:"help='Use binary msgpack frames instead of JSON'"`
	Auto     bool   `kong:"help='Play automatically with --strategy instead of the terminal UI'"`
	Strategy string `kong:"default='sequential',help='Strategy for --auto (sequential|random|repeat)'"`
	Games    int    `kong:"default='1',help='Games to play with --auto'"`
	Seed     *int64 `kong:"help='Seed for the strategy RNG (optional)'"`
	NoColor  bool   `kong:"help='Disable colors in the terminal UI'"`
	LogFile  string `kong:"help='Write logs to this file while the terminal UI runs'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
}

func (c *PlayCmd) Run() error {
	logger, closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	var opts []client.Option
	if c.Msgpack {
		opts = append(opts, client.WithMsgpack())
	}
	cl := client.New(strings.TrimSpace(c.Server), logger, opts...)

	connectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cl.Connect(connectCtx); err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	if c.Auto {
		return c.runAuto(cl, logger)
	}

	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	program := tea.NewProgram(tui.NewModel(cl.Do, logger), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func (c *PlayCmd) runAuto(cl *client.Client, logger *log.Logger) error {
	strategy, err := simulator.LookupStrategy(c.Strategy)
	if err != nil {
		return err
	}

	_, seed := randutil.FromOptionalSeed(c.Seed)
	sim := simulator.New(simulator.Config{
		Games:       c.Games,
		Concurrency: 1,
		Strategy:    strategy,
		Seed:        seed,
		Logger:      logger,
	}, cl.Do)

	report, err := sim.Run(shared.SetupSignalHandler(logger))
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	return nil
}

// setupLogger keeps the terminal UI clean: logs go to --log-file or nowhere
func (c *PlayCmd) setupLogger() (*log.Logger, func(), error) {
	level := shared.LevelFor("info", c.Debug)
	if c.Auto {
		return shared.SetupLogger(level), func() {}, nil
	}
	if c.LogFile == "" {
		return shared.NewLogger(io.Discard, level), func() {}, nil
	}

	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return shared.NewLogger(f, level), func() { _ = f.Close() }, nil
}
