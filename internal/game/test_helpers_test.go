package game

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// scriptedTargets makes the engine draw the given targets in order.
type scriptedTargets struct {
	targets []uint8
	index   int
}

func targets(ts ...uint8) *scriptedTargets {
	return &scriptedTargets{targets: ts}
}

func (s *scriptedTargets) IntN(n int) int {
	if s.index >= len(s.targets) {
		return 0
	}
	v := int(s.targets[s.index]) - MinTarget
	s.index++
	return v % n
}

// sequentialIDs hands out predictable ids.
type sequentialIDs struct {
	next byte
}

func (s *sequentialIDs) Generate() uuid.UUID {
	s.next++
	var id uuid.UUID
	id[15] = s.next
	id[6] = 0x40
	id[8] = 0x80
	return id
}

func newTestEngine(ts ...uint8) *Engine {
	return NewEngine(testLogger(), targets(ts...), WithIDGenerator(&sequentialIDs{}))
}

// restore stores g as-is, for shapes the public API cannot produce.
func (e *Engine) restore(g *Game) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.games[g.ID] = g
}

func mustCreate(t *testing.T, e *Engine) Projection {
	t.Helper()
	ev, err := e.Process(GameRequested{})
	require.NoError(t, err)
	require.Equal(t, EventGameCreated, ev.Kind)
	return ev.Game
}

func mustGuess(t *testing.T, e *Engine, id uuid.UUID, guess uint8) GameEvent {
	t.Helper()
	ev, err := e.Process(GuessSubmitted{ID: id, Guess: guess})
	require.NoError(t, err)
	return ev
}
