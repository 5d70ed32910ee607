// Package tui is an interactive terminal player for the guessing game.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/guessinggame/internal/game"
)

const (
	requestTimeout = 5 * time.Second
	maxLogLines    = 8
)

// ProcessFunc sends one request to the game, locally or over the network
type ProcessFunc func(ctx context.Context, ev game.ActorEvent) (game.GameEvent, error)

// eventMsg carries a successful response
type eventMsg struct {
	event game.GameEvent
}

// errMsg carries a failed request
type errMsg struct {
	err error
}

// Model is the Bubble Tea model for one player session
type Model struct {
	process ProcessFunc
	logger  *log.Logger

	input    textinput.Model
	current  *game.Projection
	gameLog  []string
	lastErr  error
	pending  bool
	quitting bool
}

// NewModel creates a model that starts a game as soon as it runs
func NewModel(process ProcessFunc, logger *log.Logger) *Model {
	ti := textinput.New()
	ti.Placeholder = fmt.Sprintf("guess %d-%d, n for a new game, q to quit", game.MinTarget, game.MaxTarget)
	ti.Focus()
	ti.CharLimit = 8
	ti.Width = 50
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &Model{
		process: process,
		logger:  logger.WithPrefix("tui"),
		input:   ti,
	}
}

// Init initializes the TUI model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.send(game.GameRequested{}))
}

// send runs a request off the UI goroutine
func (m *Model) send(ev game.ActorEvent) tea.Cmd {
	m.pending = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		out, err := m.process(ctx, ev)
		if err != nil {
			return errMsg{err: err}
		}
		return eventMsg{event: out}
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.pending = false
		m.lastErr = nil
		m.applyEvent(msg.event)
		return m, nil

	case errMsg:
		m.pending = false
		m.lastErr = msg.err
		m.logger.Debug("Request failed", "error", msg.err)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			input := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			return m, m.handleInput(input)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleInput interprets a submitted line
func (m *Model) handleInput(input string) tea.Cmd {
	switch strings.ToLower(input) {
	case "":
		return nil
	case "q", "quit":
		m.quitting = true
		return tea.Quit
	case "n", "new":
		return m.send(game.GameRequested{})
	}

	if m.pending {
		m.lastErr = fmt.Errorf("waiting for the previous request")
		return nil
	}
	if m.current == nil {
		m.lastErr = fmt.Errorf("no game yet, press n to start one")
		return nil
	}

	value, err := strconv.Atoi(input)
	if err != nil || value < game.MinTarget || value > game.MaxTarget {
		m.lastErr = fmt.Errorf("%q is not a number between %d and %d", input, game.MinTarget, game.MaxTarget)
		return nil
	}

	// Finished games are still sent so the server's answer is shown.
	return m.send(game.GuessSubmitted{ID: m.current.ID, Guess: uint8(value)})
}

func (m *Model) applyEvent(ev game.GameEvent) {
	p := ev.Game
	m.current = &p

	switch ev.Kind {
	case game.EventGameCreated:
		m.addLog(fmt.Sprintf("New game %s", shortID(p)))
	case game.EventGuessEvaluated:
		m.addLog(fmt.Sprintf("%s is not it, %d left", lastGuess(p), game.NumberOfGuesses-p.Guesses.Count()))
	case game.EventGameWon:
		m.addLog(fmt.Sprintf("%s is right, you win!", lastGuess(p)))
	case game.EventGameLost:
		m.addLog(fmt.Sprintf("%s is not it, out of guesses", lastGuess(p)))
	case game.EventGameInfoProvided:
		m.addLog(fmt.Sprintf("Game %s is %s", shortID(p), p.Status))
	}
}

func (m *Model) addLog(entry string) {
	m.gameLog = append(m.gameLog, entry)
	if len(m.gameLog) > maxLogLines {
		m.gameLog = m.gameLog[len(m.gameLog)-maxLogLines:]
	}
}

// Current returns the last game state seen, if any
func (m *Model) Current() (game.Projection, bool) {
	if m.current == nil {
		return game.Projection{}, false
	}
	return *m.current, true
}

// Log returns the game log lines, oldest first
func (m *Model) Log() []string {
	return append([]string(nil), m.gameLog...)
}

// Err returns the error from the last request or input, if any
func (m *Model) Err() error {
	return m.lastErr
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Guess the number (%d-%d)", game.MinTarget, game.MaxTarget)))
	b.WriteString("\n\n")

	if m.current != nil {
		b.WriteString(m.renderSlots())
		b.WriteString("\n")
		b.WriteString(m.renderStatus())
		b.WriteString("\n\n")
	}

	for _, line := range m.gameLog {
		b.WriteString(InfoStyle.Render(line))
		b.WriteString("\n")
	}

	if m.lastErr != nil {
		b.WriteString(ErrorStyle.Render("Error: " + m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m *Model) renderSlots() string {
	slots := make([]string, len(m.current.Guesses))
	for i, slot := range m.current.Guesses {
		style := SlotStyle
		if m.current.Status == game.Won && i == m.current.Guesses.Count()-1 {
			style = HitSlotStyle
		}
		slots[i] = style.Render(slot.String())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, slots...)
}

func (m *Model) renderStatus() string {
	switch m.current.Status {
	case game.Won:
		return SuccessStyle.Render("Won")
	case game.Lost:
		return ErrorStyle.Render("Lost")
	default:
		return WarningStyle.Render("Ongoing")
	}
}

func shortID(p game.Projection) string {
	return p.ID.String()[:8]
}

func lastGuess(p game.Projection) string {
	values := p.Guesses.Values()
	if len(values) == 0 {
		return "?"
	}
	return strconv.Itoa(int(values[len(values)-1]))
}
