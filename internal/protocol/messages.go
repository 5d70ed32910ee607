// Package protocol defines the wire format of engine requests and responses.
//
// Requests and responses are flat objects tagged by a "kind" field. They are
// carried as JSON (text websocket frames, HTTP bodies) or msgpack (binary
// websocket frames) with the same field names.
package protocol

import (
	"errors"
	"fmt"

	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/gameid"
)

// KindError tags an error response
const KindError = "Error"

// Protocol-level error codes, alongside the game.Error codes
const (
	CodeInvalidRequest = "InvalidRequest"
	CodeUnknownKind    = "UnknownKind"
	CodeInternal       = "InternalError"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnknownKind        = errors.New("unknown request kind")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Request is sent by clients
type Request struct {
	Kind  string `json:"kind" msg:"kind"`
	ID    string `json:"id,omitempty" msg:"id"`
	Guess *int64 `json:"guess,omitempty" msg:"guess"`
}

// Response is sent by the server, either a game event or an error
type Response struct {
	Kind    string   `json:"kind" msg:"kind"`
	ID      string   `json:"id,omitempty" msg:"id"`
	Guesses []*uint8 `json:"guesses,omitempty" msg:"guesses"`
	Status  string   `json:"status,omitempty" msg:"status"`
	Code    string   `json:"code,omitempty" msg:"code"`
	Message string   `json:"message,omitempty" msg:"message"`
}

// IsError reports whether the response carries an error
func (r *Response) IsError() bool {
	return r.Kind == KindError
}

// ActorEvent validates the request and converts it for the engine.
func (r *Request) ActorEvent() (game.ActorEvent, error) {
	switch game.RequestKind(r.Kind) {
	case game.RequestGame:
		return game.GameRequested{}, nil

	case game.RequestGameInfo:
		id, err := gameid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return game.GameInfoRequested{ID: id}, nil

	case game.RequestGuess:
		id, err := gameid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if r.Guess == nil {
			return nil, fmt.Errorf("%w: guess is required", ErrInvalidRequest)
		}
		if *r.Guess < 0 || *r.Guess > 255 {
			return nil, fmt.Errorf("%w: guess %d out of range 0..255", ErrInvalidRequest, *r.Guess)
		}
		return game.GuessSubmitted{ID: id, Guess: uint8(*r.Guess)}, nil

	case "":
		return nil, fmt.Errorf("%w: kind is required", ErrInvalidRequest)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
}

// NewRequest builds the wire form of an actor event
func NewRequest(ev game.ActorEvent) Request {
	switch e := ev.(type) {
	case game.GameInfoRequested:
		return Request{Kind: e.Kind().String(), ID: e.ID.String()}
	case game.GuessSubmitted:
		guess := int64(e.Guess)
		return Request{Kind: e.Kind().String(), ID: e.ID.String(), Guess: &guess}
	default:
		return Request{Kind: game.RequestGame.String()}
	}
}

// NewResponse builds the wire form of a game event
func NewResponse(ev game.GameEvent) Response {
	guesses := make([]*uint8, game.NumberOfGuesses)
	for i, slot := range ev.Game.Guesses {
		if v, ok := slot.Value(); ok {
			guesses[i] = &v
		}
	}

	return Response{
		Kind:    ev.Kind.String(),
		ID:      ev.Game.ID.String(),
		Guesses: guesses,
		Status:  ev.Game.Status.String(),
	}
}

// NewErrorResponse maps err to a coded error response
func NewErrorResponse(err error) Response {
	code, message := ErrorCode(err)
	return Response{Kind: KindError, Code: code, Message: message}
}

// ErrorCode returns the wire code and message for err
func ErrorCode(err error) (string, string) {
	var gameErr *game.Error
	switch {
	case errors.As(err, &gameErr):
		return gameErr.Code, gameErr.Message
	case errors.Is(err, ErrUnknownKind):
		return CodeUnknownKind, err.Error()
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest, err.Error()
	default:
		return CodeInternal, err.Error()
	}
}

// GameEvent converts a non-error response back into a game event.
func (r *Response) GameEvent() (game.GameEvent, error) {
	if r.IsError() {
		return game.GameEvent{}, fmt.Errorf("response is an error: %s", r.Code)
	}

	switch game.EventKind(r.Kind) {
	case game.EventGameCreated, game.EventGameInfoProvided, game.EventGuessEvaluated,
		game.EventGameWon, game.EventGameLost:
	default:
		return game.GameEvent{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, r.Kind)
	}

	id, err := gameid.Parse(r.ID)
	if err != nil {
		return game.GameEvent{}, err
	}
	status, ok := game.ParseStatus(r.Status)
	if !ok {
		return game.GameEvent{}, fmt.Errorf("unknown status %q", r.Status)
	}
	if len(r.Guesses) > game.NumberOfGuesses {
		return game.GameEvent{}, fmt.Errorf("too many guesses: %d", len(r.Guesses))
	}

	var guesses game.Guesses
	for i, g := range r.Guesses {
		if g != nil {
			guesses[i] = game.Filled(*g)
		}
	}

	return game.GameEvent{
		Kind: game.EventKind(r.Kind),
		Game: game.Projection{ID: id, Guesses: guesses, Status: status},
	}, nil
}
