// Package modeltest provides a deterministic in-memory Model for
// tests: the next-token distribution is scripted per call, and the
// codec maps token IDs to a fixed word list.
package modeltest

import (
	"context"
	"strings"
	"sync"

	"github.com/megaman333/Clover-Edition/pkg/model"
	"github.com/megaman333/Clover-Edition/pkg/token"
)

// Scripted is a model.Model whose behavior is fully determined by its
// fields. Safe for concurrent use.
type Scripted struct {
	// Vocab maps token IDs to words. Decoded text joins words with
	// single spaces; Encode splits on whitespace.
	Vocab []string

	// EOS is the end-of-sequence token ID.
	EOS token.ID

	// Script produces the distribution for a given context. The call
	// counter starts at 0 and increments per ScoreNextToken call. When
	// nil, every call returns a uniform distribution.
	Script func(call int, contextIDs []token.ID) token.Distribution

	// Err, when set, makes ScoreNextToken fail with a
	// GenerationFailedError wrapping it.
	Err error

	mu    sync.Mutex
	calls int
}

// Calls returns how many times ScoreNextToken has been invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Scripted) ScoreNextToken(_ context.Context, contextIDs []token.ID) (token.Distribution, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()

	if s.Err != nil {
		return nil, &model.GenerationFailedError{Err: s.Err}
	}

	if s.Script == nil {
		dist := token.NewDistribution(len(s.Vocab))
		dist.Uniform()
		return dist, nil
	}

	return s.Script(call, contextIDs), nil
}

func (s *Scripted) IsEndOfSequence(id token.ID) bool { return id == s.EOS }

func (s *Scripted) Encode(_ context.Context, text string) ([]token.ID, error) {
	index := make(map[string]token.ID, len(s.Vocab))
	for i, w := range s.Vocab {
		index[w] = token.ID(i)
	}

	var ids []token.ID
	for _, w := range strings.Fields(text) {
		if id, ok := index[w]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Scripted) Decode(_ context.Context, ids []token.ID) (string, error) {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if int(id) < 0 || int(id) >= len(s.Vocab) {
			continue
		}
		words = append(words, s.Vocab[id])
	}
	return strings.Join(words, " "), nil
}

// Peaked returns a distribution over vocabSize tokens with all mass on
// id. Scripts use it to force a specific continuation.
func Peaked(vocabSize int, id token.ID) token.Distribution {
	dist := token.NewDistribution(vocabSize)
	dist[id] = 1
	return dist
}
