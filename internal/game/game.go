package game

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// NumberOfGuesses is the number of guess slots in every game.
	NumberOfGuesses = 3

	// MinTarget and MaxTarget bound the hidden number (inclusive).
	MinTarget = 1
	MaxTarget = 10
)

// Status is the outcome state of a game.
type Status int

const (
	Ongoing Status = iota
	Won
	Lost
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Ongoing:
		return "Ongoing"
	case Won:
		return "Won"
	case Lost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further guesses are accepted.
func (s Status) IsTerminal() bool {
	return s == Won || s == Lost
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "Ongoing":
		return Ongoing, true
	case "Won":
		return Won, true
	case "Lost":
		return Lost, true
	}
	return Ongoing, false
}

// Slot is one guess position. The zero value is an empty slot.
type Slot struct {
	value  uint8
	filled bool
}

// Filled returns a slot holding v.
func Filled(v uint8) Slot {
	return Slot{value: v, filled: true}
}

// Value returns the guess held in the slot and whether the slot is filled.
func (s Slot) Value() (uint8, bool) {
	return s.value, s.filled
}

// IsEmpty reports whether no guess has been recorded in the slot.
func (s Slot) IsEmpty() bool {
	return !s.filled
}

func (s Slot) String() string {
	if !s.filled {
		return "_"
	}
	return strconv.Itoa(int(s.value))
}

// Guesses is the fixed sequence of guess slots of a game, in slot order.
type Guesses [NumberOfGuesses]Slot

// NewGuesses builds a sequence with values filling the leading slots.
// Values beyond NumberOfGuesses are ignored.
func NewGuesses(values ...uint8) Guesses {
	var g Guesses
	for i, v := range values {
		if i >= NumberOfGuesses {
			break
		}
		g[i] = Filled(v)
	}
	return g
}

// Count returns the number of filled slots.
func (g Guesses) Count() int {
	n := 0
	for _, s := range g {
		if s.filled {
			n++
		}
	}
	return n
}

// Full reports whether every slot is filled.
func (g Guesses) Full() bool {
	return g.Count() == NumberOfGuesses
}

// Contains reports whether v was guessed in any filled slot.
func (g Guesses) Contains(v uint8) bool {
	for _, s := range g {
		if s.filled && s.value == v {
			return true
		}
	}
	return false
}

// Values returns the filled slot values in order.
func (g Guesses) Values() []uint8 {
	out := make([]uint8, 0, NumberOfGuesses)
	for _, s := range g {
		if s.filled {
			out = append(out, s.value)
		}
	}
	return out
}

func (g Guesses) String() string {
	parts := make([]string, len(g))
	for i, s := range g {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Game is one guessing session. Only the Engine mutates it.
type Game struct {
	ID      uuid.UUID
	Target  uint8
	Guesses Guesses
	Status  Status
}

// NewGame creates an ongoing game with the given guesses recorded.
func NewGame(id uuid.UUID, target uint8, guesses Guesses) *Game {
	return &Game{
		ID:      id,
		Target:  target,
		Guesses: guesses,
		Status:  Ongoing,
	}
}

// Projection returns the externally visible copy of the game. The target is
// not part of it.
func (g *Game) Projection() Projection {
	return Projection{
		ID:      g.ID,
		Guesses: g.Guesses,
		Status:  g.Status,
	}
}

// Projection is what callers get to see of a game.
type Projection struct {
	ID      uuid.UUID
	Guesses Guesses
	Status  Status
}
