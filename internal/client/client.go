// Package client is a websocket client for the guessing game server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/protocol"
)

// ErrNotConnected is returned when a request is made on a closed client
var ErrNotConnected = errors.New("client not connected")

// RemoteError is an error response returned by the server. It matches the
// corresponding game or protocol sentinel with errors.Is.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is the sentinel for this error's code
func (e *RemoteError) Is(target error) bool {
	var gameErr *game.Error
	if errors.As(target, &gameErr) {
		return gameErr.Code == e.Code
	}
	switch target {
	case protocol.ErrInvalidRequest:
		return e.Code == protocol.CodeInvalidRequest
	case protocol.ErrUnknownKind:
		return e.Code == protocol.CodeUnknownKind
	}
	return false
}

// Client represents a WebSocket client for the game server
type Client struct {
	serverURL string
	format    protocol.Format
	logger    *log.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// Option configures a Client
type Option func(*Client)

// WithMsgpack sends binary msgpack frames instead of JSON text frames
func WithMsgpack() Option {
	return func(c *Client) {
		c.format = protocol.FormatMsgpack
	}
}

// New creates a client for serverURL without connecting
func New(serverURL string, logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		serverURL: serverURL,
		format:    protocol.FormatJSON,
		logger:    logger.WithPrefix("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	c.logger.Debug("Connecting to server", "url", u.String(), "format", c.format)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Do sends one request and waits for its response. Server error responses
// are returned as *RemoteError. A send or receive failure, including
// cancellation while waiting, closes the connection: the request may already
// have been applied, so later calls fail with ErrNotConnected.
func (c *Client) Do(ctx context.Context, ev game.ActorEvent) (game.GameEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return game.GameEvent{}, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return game.GameEvent{}, fmt.Errorf("request not sent: %w", err)
	}

	req := protocol.NewRequest(ev)
	data, err := protocol.Marshal(c.format, &req)
	if err != nil {
		return game.GameEvent{}, err
	}

	conn := c.conn
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(time.Time{})

	// Unblock the read when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	messageType := websocket.TextMessage
	if c.format == protocol.FormatMsgpack {
		messageType = websocket.BinaryMessage
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		c.dropLocked()
		return game.GameEvent{}, fmt.Errorf("failed to send request: %w", err)
	}

	_, reply, err := conn.ReadMessage()
	if err != nil {
		c.dropLocked()
		if ctx.Err() != nil {
			return game.GameEvent{}, fmt.Errorf("failed to read response: %w", ctx.Err())
		}
		return game.GameEvent{}, fmt.Errorf("failed to read response: %w", err)
	}

	var resp protocol.Response
	if err := protocol.Unmarshal(c.format, reply, &resp); err != nil {
		return game.GameEvent{}, err
	}
	if resp.IsError() {
		return game.GameEvent{}, &RemoteError{Code: resp.Code, Message: resp.Message}
	}

	out, err := resp.GameEvent()
	if err != nil {
		return game.GameEvent{}, err
	}
	c.logger.Debug("Received event", "kind", out.Kind, "gameId", out.Game.ID)
	return out, nil
}

// dropLocked closes a connection that can no longer be trusted. c.mu must
// be held.
func (c *Client) dropLocked() {
	c.logger.Debug("Dropping connection")
	_ = c.conn.Close()
	c.conn = nil
}

// NewGame requests a new game
func (c *Client) NewGame(ctx context.Context) (game.GameEvent, error) {
	return c.Do(ctx, game.GameRequested{})
}

// Info requests the current state of a game
func (c *Client) Info(ctx context.Context, id uuid.UUID) (game.GameEvent, error) {
	return c.Do(ctx, game.GameInfoRequested{ID: id})
}

// Guess submits a guess
func (c *Client) Guess(ctx context.Context, id uuid.UUID, guess uint8) (game.GameEvent, error) {
	return c.Do(ctx, game.GuessSubmitted{ID: id, Guess: guess})
}
