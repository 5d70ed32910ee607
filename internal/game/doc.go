// Package game implements the number guessing game engine.
//
// A Game hides a target number between MinTarget and MaxTarget and accepts up
// to NumberOfGuesses guesses. The Engine owns every game in the process and is
// driven through a single entry point, Process, which takes a request
// (ActorEvent) and returns a response (GameEvent) or one of the sentinel
// errors ErrGameNotFound, ErrGameFinished or ErrGameInvalid.
//
// # Basic Usage
//
//	engine := game.NewEngine(logger, rng)
//	created, _ := engine.Process(game.GameRequested{})
//	ev, err := engine.Process(game.GuessSubmitted{ID: created.Game.ID, Guess: 7})
//	if errors.Is(err, game.ErrGameFinished) {
//	    // three guesses already made
//	}
//	if ev.Kind == game.EventGameWon {
//	    // ...
//	}
//
// # Deterministic Testing
//
// The target is drawn from the RandSource passed to NewEngine. Tests supply a
// scripted source to pin the target and assert exact outcomes:
//
//	engine := game.NewEngine(logger, randutil.New(42))
//
// # Concurrency
//
// Every request is applied under one engine-wide lock, so a lookup followed
// by a mutation of the same game is atomic and concurrent guesses against one
// id serialize.
package game
