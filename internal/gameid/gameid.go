// Package gameid generates and parses the identifiers handed out for games.
//
// Identifiers are RFC 4122 version 4 UUIDs. Production code draws them from
// crypto/rand; tests inject a RandSource to get reproducible ids.
package gameid

import (
	"fmt"

	"github.com/google/uuid"
)

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator handles game ID generation with configurable randomness
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new game ID from crypto/rand
func Generate() uuid.UUID {
	return NewGenerator(nil).Generate()
}

// Generate creates a new game ID using the generator's RandSource
func (g *Generator) Generate() uuid.UUID {
	if g == nil || g.randSource == nil {
		return uuid.New()
	}

	id, err := uuid.NewRandomFromReader(sourceReader{g.randSource})
	if err != nil {
		// sourceReader never fails
		panic("gameid: " + err.Error())
	}
	return id
}

// sourceReader adapts a RandSource to io.Reader, one byte per draw.
type sourceReader struct {
	src RandSource
}

func (r sourceReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.src.IntN(256))
	}
	return len(p), nil
}

// Parse decodes a textual game ID. The nil UUID is well-formed; it is simply
// never generated.
func Parse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid game ID %q: %w", s, err)
	}
	return id, nil
}

// Validate checks if a game ID is a well-formed UUID
func Validate(s string) error {
	_, err := Parse(s)
	return err
}
