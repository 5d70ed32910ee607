package game

// RequestKind is the wire tag of an ActorEvent
type RequestKind string

const (
	RequestGame     RequestKind = "gameRequested"
	RequestGameInfo RequestKind = "gameInfoRequested"
	RequestGuess    RequestKind = "guessSubmitted"
)

// String returns the string representation of the request kind
func (k RequestKind) String() string {
	return string(k)
}

// Known reports whether k is one of the request kinds above
func (k RequestKind) Known() bool {
	switch k {
	case RequestGame, RequestGameInfo, RequestGuess:
		return true
	}
	return false
}

// EventKind is the wire tag of a GameEvent
type EventKind string

const (
	EventGameCreated      EventKind = "GameCreated"
	EventGameInfoProvided EventKind = "GameInfoProvided"
	EventGuessEvaluated   EventKind = "GuessEvaluated"
	EventGameWon          EventKind = "GameWon"
	EventGameLost         EventKind = "GameLost"
)

// String returns the string representation of the event kind
func (k EventKind) String() string {
	return string(k)
}
