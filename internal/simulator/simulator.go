// Package simulator plays many games against an engine and reports outcomes.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/randutil"
)

// ProcessFunc applies one request. (*client.Client).Do matches it, and Local
// adapts an in-process engine.
type ProcessFunc func(ctx context.Context, ev game.ActorEvent) (game.GameEvent, error)

// Local adapts an engine to a ProcessFunc
func Local(engine *game.Engine) ProcessFunc {
	return func(_ context.Context, ev game.ActorEvent) (game.GameEvent, error) {
		return engine.Process(ev)
	}
}

// Config holds configuration for running simulations
type Config struct {
	Games       int
	Concurrency int
	Strategy    Strategy
	Seed        int64
	// Verify submits one extra guess after each game ends and requires it
	// to be rejected as finished.
	Verify bool
	Logger *log.Logger
}

// Report summarises a simulation run
type Report struct {
	Strategy string `json:"strategy"`
	Seed     int64  `json:"seed"`
	Games    int    `json:"games"`
	Won      int    `json:"won"`
	Lost     int    `json:"lost"`
	// WonOnGuess counts wins by the guess number (1-based) that won.
	WonOnGuess map[int]int   `json:"wonOnGuess"`
	WinRate    float64       `json:"winRate"`
	Duration   time.Duration `json:"duration"`
}

// ErrInvariant reports an engine response that breaks the game rules
var ErrInvariant = errors.New("invariant violated")

// Simulator runs guessing game simulations
type Simulator struct {
	config  Config
	process ProcessFunc
	logger  *log.Logger
}

// New creates a new simulator with the given configuration
func New(config Config, process ProcessFunc) *Simulator {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Strategy == nil {
		config.Strategy = Sequential{}
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Simulator{
		config:  config,
		process: process,
		logger:  logger.WithPrefix("simulator"),
	}
}

// Run plays the configured number of games and returns the aggregate report
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		Strategy:   s.config.Strategy.Name(),
		Seed:       s.config.Seed,
		WonOnGuess: make(map[int]int),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for i := 0; i < s.config.Games; i++ {
		seed := s.config.Seed + int64(i)
		g.Go(func() error {
			final, err := s.playGame(ctx, seed)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			report.Games++
			switch final.Status {
			case game.Won:
				report.Won++
				report.WonOnGuess[final.Guesses.Count()]++
			case game.Lost:
				report.Lost++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if report.Games > 0 {
		report.WinRate = float64(report.Won) / float64(report.Games)
	}
	report.Duration = time.Since(start)

	s.logger.Info("Simulation complete",
		"strategy", report.Strategy,
		"games", report.Games,
		"won", report.Won,
		"lost", report.Lost,
		"winRate", fmt.Sprintf("%.3f", report.WinRate),
		"duration", report.Duration)

	return report, nil
}

// playGame plays one game to completion and checks every response
func (s *Simulator) playGame(ctx context.Context, seed int64) (game.Projection, error) {
	rng := randutil.New(seed)

	created, err := s.process(ctx, game.GameRequested{})
	if err != nil {
		return game.Projection{}, fmt.Errorf("create game: %w", err)
	}
	current := created.Game
	if current.Status != game.Ongoing || current.Guesses.Count() != 0 {
		return game.Projection{}, fmt.Errorf("%w: new game %s is %s with %s", ErrInvariant, current.ID, current.Status, current.Guesses)
	}

	for current.Status == game.Ongoing {
		if err := ctx.Err(); err != nil {
			return game.Projection{}, err
		}

		guess := s.config.Strategy.NextGuess(current.Guesses, rng)
		ev, err := s.process(ctx, game.GuessSubmitted{ID: current.ID, Guess: guess})
		if err != nil {
			return game.Projection{}, fmt.Errorf("guess on %s: %w", current.ID, err)
		}
		if err := checkTransition(current, guess, ev); err != nil {
			return game.Projection{}, err
		}
		current = ev.Game
	}

	if s.config.Verify {
		_, err := s.process(ctx, game.GuessSubmitted{ID: current.ID, Guess: game.MinTarget})
		if !errors.Is(err, game.ErrGameFinished) {
			return game.Projection{}, fmt.Errorf("%w: guess after %s returned %v", ErrInvariant, current.Status, err)
		}
	}

	s.logger.Debug("Game finished", "gameId", current.ID, "status", current.Status, "guesses", current.Guesses)
	return current, nil
}

// checkTransition validates the response to a guess against the previous state
func checkTransition(before game.Projection, guess uint8, ev game.GameEvent) error {
	after := ev.Game
	n := before.Guesses.Count()

	if after.Guesses.Count() != n+1 {
		return fmt.Errorf("%w: %s went from %s to %s", ErrInvariant, before.ID, before.Guesses, after.Guesses)
	}
	if v, _ := after.Guesses[n].Value(); v != guess {
		return fmt.Errorf("%w: %s recorded %d for guess %d", ErrInvariant, before.ID, v, guess)
	}

	var want game.EventKind
	switch after.Status {
	case game.Won:
		want = game.EventGameWon
	case game.Lost:
		want = game.EventGameLost
		if !after.Guesses.Full() {
			return fmt.Errorf("%w: %s lost with %s", ErrInvariant, before.ID, after.Guesses)
		}
	default:
		want = game.EventGuessEvaluated
		if after.Guesses.Full() {
			return fmt.Errorf("%w: %s still ongoing with %s", ErrInvariant, before.ID, after.Guesses)
		}
	}
	if ev.Kind != want {
		return fmt.Errorf("%w: %s status %s answered with %s", ErrInvariant, before.ID, after.Status, ev.Kind)
	}
	return nil
}
