// Package random provides the randomness source shared by token
// sampling and dice rolls, plus cryptographic seed generation.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Source is the single injectable randomness interface. Production
// code uses a seeded math/rand behind it; tests substitute scripted
// sequences without touching production paths.
type Source interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64

	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewSource returns a Source seeded deterministically. The same seed
// always yields the same draw sequence.
func NewSource(seed int64) Source {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))}
}

// lockedSource serializes access so a Source may be shared between
// the main loop and concurrent suggestion runs.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
