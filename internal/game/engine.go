package game

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lox/guessinggame/internal/gameid"
	"github.com/lox/guessinggame/internal/randutil"
)

// RandSource draws the hidden target. *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

// IDGenerator allocates game ids.
type IDGenerator interface {
	Generate() uuid.UUID
}

// Engine owns every game and applies requests to them.
type Engine struct {
	mu     sync.Mutex
	games  map[uuid.UUID]*Game
	rng    RandSource
	ids    IDGenerator
	logger *log.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithIDGenerator replaces the default crypto/rand backed id generator
func WithIDGenerator(ids IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = ids
	}
}

// NewEngine creates an engine drawing targets from rng.
func NewEngine(logger *log.Logger, rng RandSource, opts ...EngineOption) *Engine {
	e := &Engine{
		games:  make(map[uuid.UUID]*Game),
		rng:    rng,
		ids:    gameid.NewGenerator(nil),
		logger: logger.WithPrefix("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process applies one request and returns the resulting event. Errors are
// always one of the sentinels in this package.
func (e *Engine) Process(event ActorEvent) (GameEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev := event.(type) {
	case GameRequested:
		return e.createGame(), nil
	case GameInfoRequested:
		return e.getInfo(ev.ID)
	case GuessSubmitted:
		return e.submitGuess(ev.ID, ev.Guess)
	default:
		return GameEvent{}, ErrUnknownRequest
	}
}

func (e *Engine) createGame() GameEvent {
	target := uint8(randutil.Between(e.rng, MinTarget, MaxTarget))
	g := NewGame(e.ids.Generate(), target, Guesses{})

	// An id collision silently replaces the earlier game.
	e.games[g.ID] = g
	e.logger.Debug("Game created", "gameId", g.ID)

	return GameEvent{Kind: EventGameCreated, Game: g.Projection()}
}

func (e *Engine) getInfo(id uuid.UUID) (GameEvent, error) {
	g, ok := e.games[id]
	if !ok {
		return GameEvent{}, ErrGameNotFound
	}
	return GameEvent{Kind: EventGameInfoProvided, Game: g.Projection()}, nil
}

func (e *Engine) submitGuess(id uuid.UUID, guess uint8) (GameEvent, error) {
	g, ok := e.games[id]
	if !ok {
		return GameEvent{}, ErrGameNotFound
	}

	// A won game can still have empty slots; it must not take more guesses.
	if g.Status.IsTerminal() {
		return GameEvent{}, ErrGameFinished
	}

	guesses, err := NextGuesses(g.Guesses, guess)
	if err != nil {
		return GameEvent{}, err
	}
	status := DeriveStatus(guesses, g.Target)

	g.Guesses = guesses
	g.Status = status

	e.logger.Debug("Guess evaluated",
		"gameId", g.ID,
		"guess", guess,
		"guesses", g.Guesses.Count(),
		"status", status)

	return GameEvent{Kind: eventForStatus(status), Game: g.Projection()}, nil
}

// EngineStats summarises the games held by an engine.
type EngineStats struct {
	Games   int `json:"games"`
	Ongoing int `json:"ongoing"`
	Won     int `json:"won"`
	Lost    int `json:"lost"`
}

// Stats counts the stored games by status.
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := EngineStats{Games: len(e.games)}
	for _, g := range e.games {
		switch g.Status {
		case Won:
			stats.Won++
		case Lost:
			stats.Lost++
		default:
			stats.Ongoing++
		}
	}
	return stats
}
