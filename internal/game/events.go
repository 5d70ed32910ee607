package game

import "github.com/google/uuid"

// ActorEvent is a request to the engine. The set of implementations is closed:
// GameRequested, GameInfoRequested and GuessSubmitted.
type ActorEvent interface {
	Kind() RequestKind
	actorEvent()
}

// GameRequested asks for a new game.
type GameRequested struct{}

// GameInfoRequested asks for the current state of a game.
type GameInfoRequested struct {
	ID uuid.UUID
}

// GuessSubmitted records a guess against a game.
type GuessSubmitted struct {
	ID    uuid.UUID
	Guess uint8
}

func (GameRequested) Kind() RequestKind     { return RequestGame }
func (GameInfoRequested) Kind() RequestKind { return RequestGameInfo }
func (GuessSubmitted) Kind() RequestKind    { return RequestGuess }

func (GameRequested) actorEvent()     {}
func (GameInfoRequested) actorEvent() {}
func (GuessSubmitted) actorEvent()    {}

// GameEvent is the engine's response to an ActorEvent.
type GameEvent struct {
	Kind EventKind
	Game Projection
}

// eventForStatus selects the response to a guess from the status it produced.
func eventForStatus(s Status) EventKind {
	switch s {
	case Won:
		return EventGameWon
	case Lost:
		return EventGameLost
	default:
		return EventGuessEvaluated
	}
}
