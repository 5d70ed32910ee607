package game

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/guessinggame/internal/gameid"
	"github.com/lox/guessinggame/internal/randutil"
)

func TestCreateGame(t *testing.T) {
	engine := newTestEngine(7)

	ev, err := engine.Process(GameRequested{})
	require.NoError(t, err)

	assert.Equal(t, EventGameCreated, ev.Kind)
	assert.NotEqual(t, uuid.Nil, ev.Game.ID)
	assert.Equal(t, Guesses{}, ev.Game.Guesses)
	assert.Equal(t, 0, ev.Game.Guesses.Count())
	assert.Equal(t, Ongoing, ev.Game.Status)
}

func TestCreateGameDistinctIDs(t *testing.T) {
	engine := NewEngine(testLogger(), randutil.New(1))

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 50; i++ {
		p := mustCreate(t, engine)
		require.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	assert.Equal(t, 50, engine.Stats().Games)
}

func TestTargetWithinRange(t *testing.T) {
	// Find every target by boundary guessing: for each game the target is
	// the one value in 1..10 that wins. Guessing is limited to three slots,
	// so check with fresh engines sharing the same seed.
	for seed := int64(0); seed < 40; seed++ {
		found := false
		for candidate := uint8(MinTarget); candidate <= MaxTarget && !found; candidate++ {
			engine := NewEngine(testLogger(), randutil.New(seed))
			p := mustCreate(t, engine)
			ev := mustGuess(t, engine, p.ID, candidate)
			if ev.Kind == EventGameWon {
				found = true
			}
		}
		assert.True(t, found, "seed %d: target outside [%d,%d]", seed, MinTarget, MaxTarget)

		engine := NewEngine(testLogger(), randutil.New(seed))
		p := mustCreate(t, engine)
		for _, outside := range []uint8{0, 11} {
			ev, err := engine.Process(GuessSubmitted{ID: p.ID, Guess: outside})
			require.NoError(t, err)
			assert.NotEqual(t, EventGameWon, ev.Kind, "seed %d: %d should never win", seed, outside)
		}
	}
}

func TestGetInfo(t *testing.T) {
	engine := newTestEngine(7)
	p := mustCreate(t, engine)
	mustGuess(t, engine, p.ID, 2)

	ev, err := engine.Process(GameInfoRequested{ID: p.ID})
	require.NoError(t, err)

	assert.Equal(t, EventGameInfoProvided, ev.Kind)
	assert.Equal(t, p.ID, ev.Game.ID)
	assert.Equal(t, NewGuesses(2), ev.Game.Guesses)
	assert.Equal(t, Ongoing, ev.Game.Status)

	again, err := engine.Process(GameInfoRequested{ID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, ev, again, "info must not mutate")
}

func TestGetInfoUnknownGame(t *testing.T) {
	engine := newTestEngine(7)

	_, err := engine.Process(GameInfoRequested{ID: gameid.Generate()})
	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestGuessUnknownGame(t *testing.T) {
	engine := newTestEngine(7)
	mustCreate(t, engine)

	_, err := engine.Process(GuessSubmitted{ID: gameid.Generate(), Guess: 7})
	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestWinOnThirdGuess(t *testing.T) {
	engine := newTestEngine(7)
	p := mustCreate(t, engine)

	ev := mustGuess(t, engine, p.ID, 3)
	assert.Equal(t, EventGuessEvaluated, ev.Kind)
	assert.Equal(t, NewGuesses(3), ev.Game.Guesses)
	assert.Equal(t, Ongoing, ev.Game.Status)

	ev = mustGuess(t, engine, p.ID, 3)
	assert.Equal(t, EventGuessEvaluated, ev.Kind)
	assert.Equal(t, NewGuesses(3, 3), ev.Game.Guesses)

	ev = mustGuess(t, engine, p.ID, 7)
	assert.Equal(t, EventGameWon, ev.Kind)
	assert.Equal(t, NewGuesses(3, 3, 7), ev.Game.Guesses)
	assert.Equal(t, Won, ev.Game.Status)
}

func TestWinBeforeThirdSlot(t *testing.T) {
	for slot := 0; slot < NumberOfGuesses; slot++ {
		engine := newTestEngine(4)
		p := mustCreate(t, engine)

		for i := 0; i < slot; i++ {
			ev := mustGuess(t, engine, p.ID, 9)
			require.Equal(t, EventGuessEvaluated, ev.Kind)
		}

		ev := mustGuess(t, engine, p.ID, 4)
		assert.Equal(t, EventGameWon, ev.Kind, "slot %d", slot)
		assert.True(t, ev.Game.Guesses.Contains(4))
		assert.Equal(t, slot+1, ev.Game.Guesses.Count())
	}
}

func TestLoseAfterThreeMisses(t *testing.T) {
	engine := newTestEngine(7)
	p := mustCreate(t, engine)

	mustGuess(t, engine, p.ID, 3)
	mustGuess(t, engine, p.ID, 3)
	ev := mustGuess(t, engine, p.ID, 3)

	assert.Equal(t, EventGameLost, ev.Kind)
	assert.Equal(t, NewGuesses(3, 3, 3), ev.Game.Guesses)
	assert.Equal(t, Lost, ev.Game.Status)
	assert.False(t, ev.Game.Guesses.Contains(7))

	_, err := engine.Process(GuessSubmitted{ID: p.ID, Guess: 7})
	require.ErrorIs(t, err, ErrGameFinished)

	info, err := engine.Process(GameInfoRequested{ID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, NewGuesses(3, 3, 3), info.Game.Guesses)
	assert.Equal(t, Lost, info.Game.Status)
}

func TestGuessAfterWinIsRejected(t *testing.T) {
	engine := newTestEngine(5)
	p := mustCreate(t, engine)

	ev := mustGuess(t, engine, p.ID, 5)
	require.Equal(t, EventGameWon, ev.Kind)

	_, err := engine.Process(GuessSubmitted{ID: p.ID, Guess: 1})
	require.ErrorIs(t, err, ErrGameFinished)

	info, err := engine.Process(GameInfoRequested{ID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, NewGuesses(5), info.Game.Guesses)
	assert.Equal(t, Won, info.Game.Status)
}

func TestCorruptedGuessesAreInvalid(t *testing.T) {
	engine := newTestEngine()
	id := gameid.Generate()
	corrupt := NewGame(id, 7, Guesses{{}, Filled(2), {}})
	engine.restore(corrupt)

	_, err := engine.Process(GuessSubmitted{ID: id, Guess: 7})
	require.ErrorIs(t, err, ErrGameInvalid)

	info, err := engine.Process(GameInfoRequested{ID: id})
	require.NoError(t, err)
	assert.Equal(t, Guesses{{}, Filled(2), {}}, info.Game.Guesses, "no mutation on failure")
}

func TestUnknownRequest(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.Process(nil)
	require.ErrorIs(t, err, ErrUnknownRequest)
}

func TestProjectionIsACopy(t *testing.T) {
	engine := newTestEngine(7)
	p := mustCreate(t, engine)

	ev := mustGuess(t, engine, p.ID, 1)
	ev.Game.Guesses[1] = Filled(7)

	info, err := engine.Process(GameInfoRequested{ID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, NewGuesses(1), info.Game.Guesses)
}

func TestGamesAreIndependent(t *testing.T) {
	engine := newTestEngine(2, 9)
	a := mustCreate(t, engine)
	b := mustCreate(t, engine)

	assert.Equal(t, EventGameWon, mustGuess(t, engine, a.ID, 2).Kind)
	assert.Equal(t, EventGuessEvaluated, mustGuess(t, engine, b.ID, 2).Kind)
	assert.Equal(t, EventGameWon, mustGuess(t, engine, b.ID, 9).Kind)

	assert.Equal(t, EngineStats{Games: 2, Won: 2}, engine.Stats())
}

func TestStats(t *testing.T) {
	engine := newTestEngine(1, 2, 3)
	won := mustCreate(t, engine)
	lost := mustCreate(t, engine)
	mustCreate(t, engine)

	mustGuess(t, engine, won.ID, 1)
	for i := 0; i < NumberOfGuesses; i++ {
		mustGuess(t, engine, lost.ID, 10)
	}

	assert.Equal(t, EngineStats{Games: 3, Ongoing: 1, Won: 1, Lost: 1}, engine.Stats())
}

func TestConcurrentGuessesSerialize(t *testing.T) {
	engine := NewEngine(testLogger(), targets(10))
	p := mustCreate(t, engine)

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		finished int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Process(GuessSubmitted{ID: p.ID, Guess: 1})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if assert.ErrorIs(t, err, ErrGameFinished) {
				finished++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, NumberOfGuesses, accepted)
	assert.Equal(t, workers-NumberOfGuesses, finished)

	info, err := engine.Process(GameInfoRequested{ID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, NewGuesses(1, 1, 1), info.Game.Guesses)
	assert.Equal(t, Lost, info.Game.Status)
}
