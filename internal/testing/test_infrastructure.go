package testing

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/lox/guessinggame/internal/client"
	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/randutil"
	"github.com/lox/guessinggame/internal/server"
	"github.com/lox/guessinggame/internal/tui"
)

// Test timeouts
const (
	StartupTimeout = 5 * time.Second
	RequestTimeout = 2 * time.Second
)

// TestLogger discards everything below error level
func TestLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// TestServer wraps a running server instance
type TestServer struct {
	Server *server.Server
	Engine *game.Engine
	URL    string
	seed   int64
}

// StartTestServer runs a server on a random localhost port with a seeded
// engine. It is shut down when the test ends.
func StartTestServer(t *testing.T, seed int64) *TestServer {
	t.Helper()

	logger := TestLogger()
	engine := game.NewEngine(logger, randutil.New(seed))
	srv := server.NewServer(logger, engine)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server stopped: %v", err)
		}
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), StartupTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	ts := &TestServer{Server: srv, Engine: engine, URL: "http://" + ln.Addr().String(), seed: seed}

	ctx, cancel := context.WithTimeout(context.Background(), StartupTimeout)
	defer cancel()
	require.NoError(t, server.WaitForHealthy(ctx, ts.URL))
	return ts
}

// Targets replays the server's target draws for its first n games
func (s *TestServer) Targets(n int) []uint8 {
	rng := randutil.New(s.seed)
	targets := make([]uint8, n)
	for i := range targets {
		targets[i] = uint8(randutil.Between(rng, game.MinTarget, game.MaxTarget))
	}
	return targets
}

// TestPlayer drives the terminal UI model over a real client connection
type TestPlayer struct {
	Client *client.Client
	Model  *tui.Model
	t      *testing.T
}

// Connect opens a client connection with a terminal UI model on top
func (s *TestServer) Connect(t *testing.T, opts ...client.Option) *TestPlayer {
	t.Helper()

	c := client.New(s.URL, TestLogger(), opts...)
	ctx, cancel := context.WithTimeout(context.Background(), StartupTimeout)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { _ = c.Close() })

	return &TestPlayer{
		Client: c,
		Model:  tui.NewModel(c.Do, TestLogger()),
		t:      t,
	}
}

// Type enters line as keystrokes, presses enter and applies the response.
// It returns the message produced by the submission, or nil.
func (p *TestPlayer) Type(line string) tea.Msg {
	p.t.Helper()

	// Keystroke commands only drive the cursor blink, so they are dropped.
	for _, r := range line {
		p.Model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	_, cmd := p.Model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return nil
	}

	msg := cmd()
	if _, quit := msg.(tea.QuitMsg); !quit {
		p.Model.Update(msg)
	}
	return msg
}

// Current returns the game the player is looking at
func (p *TestPlayer) Current() game.Projection {
	p.t.Helper()
	current, ok := p.Model.Current()
	require.True(p.t, ok, "player has no game")
	return current
}

// Misses returns n guesses that are all different from target
func Misses(target uint8, n int) []uint8 {
	var out []uint8
	for v := uint8(game.MinTarget); len(out) < n && v <= game.MaxTarget; v++ {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
