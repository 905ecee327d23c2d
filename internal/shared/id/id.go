// Package id provides centralized ID generation for the service.
//
// Session identifiers are prefixed ULIDs (sess_*): lexicographically
// sortable, collision-free across concurrent generation, and readable
// in logs. A collision would indicate a broken entropy source and is
// treated as a fatal invariant violation by callers.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies a browser session.
type SessionID string

func (id SessionID) String() string { return string(id) }

// Valid reports whether the id carries the session prefix and a
// parseable ULID.
func (id SessionID) Valid() bool {
	_, err := Timestamp(id)
	return err == nil
}

// SessionPrefix namespaces session IDs in logs and API payloads.
const SessionPrefix = "sess"

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy
// source, useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// Timestamp extracts the creation time encoded in a prefixed session ID.
func Timestamp(sid SessionID) (time.Time, error) {
	s := string(sid)
	if len(s) <= len(SessionPrefix)+1 || s[:len(SessionPrefix)+1] != SessionPrefix+"_" {
		return time.Time{}, fmt.Errorf("malformed session id: %q", s)
	}
	parsed, err := ulid.Parse(s[len(SessionPrefix)+1:])
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
