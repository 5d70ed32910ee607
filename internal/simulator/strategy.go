package simulator

import (
	"fmt"
	rand "math/rand/v2"
	"sort"

	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/randutil"
)

// Strategy picks the next guess for a game
type Strategy interface {
	Name() string
	NextGuess(guesses game.Guesses, rng *rand.Rand) uint8
}

// Sequential guesses MinTarget, MinTarget+1, ...
type Sequential struct{}

func (Sequential) Name() string { return "sequential" }

func (Sequential) NextGuess(guesses game.Guesses, _ *rand.Rand) uint8 {
	return uint8(game.MinTarget + guesses.Count())
}

// Random guesses uniformly among the values not yet tried
type Random struct{}

func (Random) Name() string { return "random" }

func (Random) NextGuess(guesses game.Guesses, rng *rand.Rand) uint8 {
	remaining := make([]uint8, 0, game.MaxTarget-game.MinTarget+1)
	for v := game.MinTarget; v <= game.MaxTarget; v++ {
		if !guesses.Contains(uint8(v)) {
			remaining = append(remaining, uint8(v))
		}
	}
	return remaining[randutil.Between(rng, 0, len(remaining)-1)]
}

// Repeat guesses the same random value every time, the worst sensible play
type Repeat struct{}

func (Repeat) Name() string { return "repeat" }

func (Repeat) NextGuess(guesses game.Guesses, rng *rand.Rand) uint8 {
	if v, ok := guesses[0].Value(); ok {
		return v
	}
	return uint8(randutil.Between(rng, game.MinTarget, game.MaxTarget))
}

var strategies = map[string]Strategy{
	Sequential{}.Name(): Sequential{},
	Random{}.Name():     Random{},
	Repeat{}.Name():     Repeat{},
}

// StrategyNames lists the registered strategies
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupStrategy resolves a strategy by name
func LookupStrategy(name string) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, StrategyNames())
	}
	return s, nil
}
