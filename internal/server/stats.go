package server

import (
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/guessinggame/internal/game"
)

// Stats tracks request traffic handled by the server
type Stats struct {
	clock   quartz.Clock
	started time.Time

	mu          sync.Mutex
	requests    map[string]int
	events      map[string]int
	errors      map[string]int
	lastRequest time.Time
}

// StatsSnapshot is the JSON body served on /stats
type StatsSnapshot struct {
	Uptime      string           `json:"uptime"`
	Requests    map[string]int   `json:"requests"`
	Events      map[string]int   `json:"events"`
	Errors      map[string]int   `json:"errors"`
	LastRequest *time.Time       `json:"lastRequest,omitempty"`
	Connections int              `json:"connections"`
	Games       game.EngineStats `json:"games"`
}

// NewStats creates a collector using clock for timing
func NewStats(clock quartz.Clock) *Stats {
	return &Stats{
		clock:    clock,
		started:  clock.Now(),
		requests: make(map[string]int),
		events:   make(map[string]int),
		errors:   make(map[string]int),
	}
}

// UnknownRequestKind is the bucket for requests whose kind is not recognised
const UnknownRequestKind = "unknown"

// RecordRequest counts a decoded request. Unrecognised kinds share one
// counter so client input cannot grow the map.
func (s *Stats) RecordRequest(kind game.RequestKind) {
	key := UnknownRequestKind
	if kind.Known() {
		key = kind.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[key]++
	s.lastRequest = s.clock.Now()
}

// RecordResponse counts a response by event kind or error code
func (s *Stats) RecordResponse(kind, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code != "" {
		s.errors[code]++
		return
	}
	s.events[kind]++
}

// Uptime returns the time since the collector was created
func (s *Stats) Uptime() time.Duration {
	return s.clock.Since(s.started)
}

// Snapshot copies the current counters
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Uptime:   s.Uptime().Round(time.Second).String(),
		Requests: copyCounts(s.requests),
		Events:   copyCounts(s.events),
		Errors:   copyCounts(s.errors),
	}
	if !s.lastRequest.IsZero() {
		last := s.lastRequest
		snap.LastRequest = &last
	}
	return snap
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
