// Package idgen provides idempotency token generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/artpar/shapewire/ports"
)

// UUID generates random UUID v4 tokens.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

var _ ports.IDGenerator = UUID{}

// Seeded generates name-based UUID v5 tokens from a seed and a counter, so a
// run with the same seed produces the same tokens.
type Seeded struct {
	space   uuid.UUID
	counter uint64
}

// NewSeeded creates a seeded generator.
func NewSeeded(seed string) *Seeded {
	return &Seeded{space: uuid.NewSHA1(uuid.NameSpaceURL, []byte("shapewire:"+seed))}
}

// New generates the next token.
func (s *Seeded) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return uuid.NewSHA1(s.space, strconv.AppendUint(nil, n, 10)).String()
}

var _ ports.IDGenerator = (*Seeded)(nil)

// Sequential generates prefixed sequential tokens (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential token.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Reset resets the counter.
func (s *Sequential) Reset() {
	atomic.StoreUint64(&s.counter, 0)
}

var _ ports.IDGenerator = (*Sequential)(nil)
