package server

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/guessinggame/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// fixedTarget makes every game hide the same number.
type fixedTarget uint8

func (f fixedTarget) IntN(n int) int {
	return (int(f) - game.MinTarget) % n
}

func newTestServer(t *testing.T, target uint8, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	engine := game.NewEngine(testLogger(), fixedTarget(target))
	srv := NewServer(testLogger(), engine, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newMockClockServer(t *testing.T, target uint8) (*Server, *httptest.Server, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	srv, ts := newTestServer(t, target, WithClock(clock))
	return srv, ts, clock
}
