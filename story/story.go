// Package story implements the turn engine for an interactive story:
// prompt assembly, the main decoding run, parallel action suggestions,
// and the dice-outcome splice.
package story

import (
	"strings"
	"sync"
	"time"

	"github.com/megaman333/Clover-Edition/pkg/storage/sqlite"
)

// Story is the state of one play session: the starting context, the
// generated opening, and the alternating actions and results since.
// One story is shared between concurrently running turns, so every
// method that touches Actions/Results takes the story lock.
type Story struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Context   string    `json:"context"`
	Opening   string    `json:"opening"`
	Actions   []string  `json:"actions"`
	Results   []string  `json:"results"`
	CreatedAt time.Time `json:"created_at"`

	mu sync.RWMutex
}

// Text renders the full story so far, which doubles as the prompt
// context for the next generation.
func (s *Story) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	b.WriteString(s.Context)
	b.WriteString("\n")
	b.WriteString(s.Opening)
	for i, action := range s.Actions {
		b.WriteString(action)
		if i < len(s.Results) {
			b.WriteString(s.Results[i])
		}
	}
	return b.String()
}

// LatestResult returns the most recent generated passage, falling back
// to the opening.
func (s *Story) LatestResult() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Results) > 0 {
		return s.Results[len(s.Results)-1]
	}
	return s.Opening
}

// Revert drops the last action/result pair. It reports false when
// there is nothing to revert.
func (s *Story) Revert() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Actions) == 0 {
		return false
	}
	s.Actions = s.Actions[:len(s.Actions)-1]
	if len(s.Results) > 0 {
		s.Results = s.Results[:len(s.Results)-1]
	}
	return true
}

// appendTurn records one completed action/result pair.
func (s *Story) appendTurn(action, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Actions = append(s.Actions, action)
	s.Results = append(s.Results, result)
}

// Snapshot returns a copy safe to serialize while turns keep running.
func (s *Story) Snapshot() *Story {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Story{
		ID:        s.ID,
		Title:     s.Title,
		Context:   s.Context,
		Opening:   s.Opening,
		Actions:   append([]string(nil), s.Actions...),
		Results:   append([]string(nil), s.Results...),
		CreatedAt: s.CreatedAt,
	}
}

// Record converts the story for persistence.
func (s *Story) Record() *sqlite.StoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := &sqlite.StoryRecord{
		ID:        s.ID,
		Title:     s.Title,
		Context:   s.Context,
		Opening:   s.Opening,
		CreatedAt: s.CreatedAt,
	}
	for i, action := range s.Actions {
		turn := sqlite.Turn{Action: action}
		if i < len(s.Results) {
			turn.Result = s.Results[i]
		}
		rec.Turns = append(rec.Turns, turn)
	}
	return rec
}

// FromRecord rebuilds a story from its persisted form.
func FromRecord(rec *sqlite.StoryRecord) *Story {
	s := &Story{
		ID:        rec.ID,
		Title:     rec.Title,
		Context:   rec.Context,
		Opening:   rec.Opening,
		CreatedAt: rec.CreatedAt,
	}
	for _, turn := range rec.Turns {
		s.Actions = append(s.Actions, turn.Action)
		s.Results = append(s.Results, turn.Result)
	}
	return s
}
