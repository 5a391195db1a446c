// Package id generates the identifiers used by the chat service.
//
// Session IDs are ULIDs: 26 characters, URL and cookie safe, and
// lexicographically sortable by creation time.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator creates unique IDs.
type Generator interface {
	Generate() string
}

// ULIDGenerator produces monotonic ULIDs. It is safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewULIDGenerator returns a generator backed by crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Generate returns a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

var (
	defaultULID *ULIDGenerator
	initOnce    sync.Once
)

// NewULID returns a ULID from the shared generator.
func NewULID() string {
	initOnce.Do(func() {
		defaultULID = NewULIDGenerator()
	})
	return defaultULID.Generate()
}

// IsULID reports whether s parses as a ULID. Session cookies are checked
// with it before being used as store keys.
func IsULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
