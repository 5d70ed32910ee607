package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/guessinggame/internal/client"
	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/gameid"
	"github.com/lox/guessinggame/internal/protocol"
)

func TestServerHealth(t *testing.T) {
	t.Parallel()
	srv := NewServer(testLogger(), game.NewEngine(testLogger(), fixedTarget(5)))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTripText(t *testing.T, conn *websocket.Conn, raw string) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestWebSocketJSONScenario(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, 7)
	conn := dialWS(t, ts)

	created := roundTripText(t, conn, `{"kind":"gameRequested"}`)
	assert.Equal(t, "GameCreated", created["kind"])
	assert.Equal(t, "Ongoing", created["status"])
	assert.Equal(t, []interface{}{nil, nil, nil}, created["guesses"])
	assert.NotContains(t, created, "target")
	id := created["id"].(string)

	ev := roundTripText(t, conn, `{"kind":"guessSubmitted","id":"`+id+`","guess":3}`)
	assert.Equal(t, "GuessEvaluated", ev["kind"])
	assert.Equal(t, []interface{}{3.0, nil, nil}, ev["guesses"])

	ev = roundTripText(t, conn, `{"kind":"guessSubmitted","id":"`+id+`","guess":3}`)
	assert.Equal(t, []interface{}{3.0, 3.0, nil}, ev["guesses"])

	ev = roundTripText(t, conn, `{"kind":"guessSubmitted","id":"`+id+`","guess":7}`)
	assert.Equal(t, "GameWon", ev["kind"])
	assert.Equal(t, "Won", ev["status"])
	assert.Equal(t, []interface{}{3.0, 3.0, 7.0}, ev["guesses"])

	info := roundTripText(t, conn, `{"kind":"gameInfoRequested","id":"`+id+`"}`)
	assert.Equal(t, "GameInfoProvided", info["kind"])
	assert.Equal(t, "Won", info["status"])
}

func TestWebSocketErrors(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, 7)
	conn := dialWS(t, ts)

	tests := []struct {
		name string
		raw  string
		code string
	}{
		{"unknown game", `{"kind":"gameInfoRequested","id":"` + gameid.Generate().String() + `"}`, "GameNotFound"},
		{"unknown kind", `{"kind":"gameDeleted"}`, protocol.CodeUnknownKind},
		{"malformed", `{"kind":`, protocol.CodeInvalidRequest},
		{"bad guess", `{"kind":"guessSubmitted","id":"` + gameid.Generate().String() + `","guess":-4}`, protocol.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := roundTripText(t, conn, tt.raw)
			assert.Equal(t, protocol.KindError, out["kind"])
			assert.Equal(t, tt.code, out["code"])
			assert.NotEmpty(t, out["message"])
		})
	}

	// The connection survives request errors.
	created := roundTripText(t, conn, `{"kind":"gameRequested"}`)
	assert.Equal(t, "GameCreated", created["kind"])
}

func TestWebSocketLostThenFinished(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, 7)

	c := client.New(ts.URL, testLogger(), client.WithMsgpack())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	created, err := c.NewGame(ctx)
	require.NoError(t, err)
	id := created.Game.ID

	for i := 0; i < game.NumberOfGuesses-1; i++ {
		ev, err := c.Guess(ctx, id, 3)
		require.NoError(t, err)
		assert.Equal(t, game.EventGuessEvaluated, ev.Kind)
	}
	ev, err := c.Guess(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, game.EventGameLost, ev.Kind)
	assert.Equal(t, game.NewGuesses(3, 3, 3), ev.Game.Guesses)

	_, err = c.Guess(ctx, id, 3)
	require.ErrorIs(t, err, game.ErrGameFinished)

	info, err := c.Info(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, game.NewGuesses(3, 3, 3), info.Game.Guesses)
	assert.Equal(t, game.Lost, info.Game.Status)
}

func TestConcurrentClientsSameGame(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner := client.New(ts.URL, testLogger())
	require.NoError(t, owner.Connect(ctx))
	defer owner.Close()
	created, err := owner.NewGame(ctx)
	require.NoError(t, err)

	const clients = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := client.New(ts.URL, testLogger())
			if !assert.NoError(t, c.Connect(ctx)) {
				return
			}
			defer c.Close()

			_, err := c.Guess(ctx, created.Game.ID, 1)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, game.ErrGameFinished)
		}()
	}
	wg.Wait()

	assert.Equal(t, game.NumberOfGuesses, accepted)
}

func postInvoke(t *testing.T, ts *httptest.Server, body string) (int, protocol.Response) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/invoke", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out protocol.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestInvoke(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, 4)

	status, created := postInvoke(t, ts, `{"kind":"gameRequested"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GameCreated", created.Kind)

	status, won := postInvoke(t, ts, `{"kind":"guessSubmitted","id":"`+created.ID+`","guess":4}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GameWon", won.Kind)

	status, finished := postInvoke(t, ts, `{"kind":"guessSubmitted","id":"`+created.ID+`","guess":4}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "GameFinished", finished.Code)
	assert.Equal(t, "Game Already Finished", finished.Message)

	status, missing := postInvoke(t, ts, `{"kind":"gameInfoRequested","id":"`+gameid.Generate().String()+`"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "GameNotFound", missing.Code)

	status, bad := postInvoke(t, ts, `{"kind":"guessSubmitted"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, protocol.CodeInvalidRequest, bad.Code)
}

func TestInvokeBodyTooLarge(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, 4, WithReadLimit(64))

	status, resp := postInvoke(t, ts, `{"kind":"gameRequested","padding":"`+strings.Repeat("x", 200)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, protocol.CodeInvalidRequest, resp.Code)
}

func TestInvokeRejectsGet(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, 4)

	resp, err := http.Get(ts.URL + "/invoke")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, ts, clock := newMockClockServer(t, 2)

	_, created := postInvoke(t, ts, `{"kind":"gameRequested"}`)
	postInvoke(t, ts, `{"kind":"guessSubmitted","id":"`+created.ID+`","guess":2}`)
	postInvoke(t, ts, `{"kind":"gameInfoRequested","id":"`+gameid.Generate().String()+`"}`)

	clock.Advance(90 * time.Second).MustWait(ctx)

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap StatsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))

	assert.Equal(t, "1m30s", snap.Uptime)
	assert.Equal(t, map[string]int{"gameRequested": 1, "guessSubmitted": 1, "gameInfoRequested": 1}, snap.Requests)
	assert.Equal(t, map[string]int{"GameCreated": 1, "GameWon": 1}, snap.Events)
	assert.Equal(t, map[string]int{"GameNotFound": 1}, snap.Errors)
	assert.NotNil(t, snap.LastRequest)
	assert.Equal(t, game.EngineStats{Games: 1, Won: 1}, snap.Games)
}

func TestStatsBucketsUnknownKinds(t *testing.T) {
	t.Parallel()
	srv := NewServer(testLogger(), game.NewEngine(testLogger(), fixedTarget(5)))

	for i := 0; i < 500; i++ {
		_, err := srv.HandleFrame(protocol.FormatJSON, []byte(fmt.Sprintf(`{"kind":"junk-%d"}`, i)))
		require.NoError(t, err)
	}
	_, err := srv.HandleFrame(protocol.FormatJSON, []byte(`{"kind":"gameRequested"}`))
	require.NoError(t, err)

	snap := srv.Stats().Snapshot()
	assert.Equal(t, map[string]int{UnknownRequestKind: 500, "gameRequested": 1}, snap.Requests)
	assert.Equal(t, map[string]int{protocol.CodeUnknownKind: 500}, snap.Errors)
}

func TestNilIDIsNotFound(t *testing.T) {
	t.Parallel()
	srv := NewServer(testLogger(), game.NewEngine(testLogger(), fixedTarget(5)))

	for _, raw := range []string{
		`{"kind":"gameInfoRequested","id":"00000000-0000-0000-0000-000000000000"}`,
		`{"kind":"guessSubmitted","id":"00000000-0000-0000-0000-000000000000","guess":5}`,
	} {
		data, err := srv.HandleFrame(protocol.FormatJSON, []byte(raw))
		require.NoError(t, err)

		var resp protocol.Response
		require.NoError(t, json.Unmarshal(data, &resp))
		assert.Equal(t, protocol.KindError, resp.Kind, raw)
		assert.Equal(t, game.ErrGameNotFound.Code, resp.Code, raw)
		assert.Equal(t, "Game Not Found", resp.Message, raw)
	}
}

func TestHandleFrameEncodingFailureIsReported(t *testing.T) {
	t.Parallel()
	srv := NewServer(testLogger(), game.NewEngine(testLogger(), fixedTarget(1)))

	_, err := srv.HandleFrame(protocol.Format(99), []byte(`{}`))
	require.Error(t, err)
}

func TestStartAndShutdown(t *testing.T) {
	engine := game.NewEngine(testLogger(), fixedTarget(3))
	srv := NewServer(testLogger(), engine)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	baseURL := "http://" + ln.Addr().String()
	require.NoError(t, WaitForHealthy(ctx, baseURL))

	c := client.New(baseURL, testLogger())
	require.NoError(t, c.Connect(ctx))
	_, err = c.NewGame(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)

	require.Eventually(t, func() bool { return srv.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
	_ = c.Close()
}

func TestShutdownBeforeServe(t *testing.T) {
	t.Parallel()
	srv := NewServer(testLogger(), game.NewEngine(testLogger(), fixedTarget(3)))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, srv.Serve(ln), http.ErrServerClosed)

	// The listener is released rather than left accepting
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		_ = conn.Close()
	}
	assert.Error(t, err)
}

func TestWaitForHealthyCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := WaitForHealthy(ctx, "http://127.0.0.1:1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
