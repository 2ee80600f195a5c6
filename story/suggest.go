package story

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/megaman333/Clover-Edition/pkg/sampling"
)

// ActionCandidate is one generated action suggestion, tagged with the
// parameters that produced it. Candidates are discarded once the
// player picks one or asks for a fresh set.
type ActionCandidate struct {
	Text   string          `json:"text"`
	Config sampling.Config `json:"config"`
}

// suggestionSeed primes each run so the model continues with an
// action rather than narration.
const suggestionSeed = "\n> You"

// SuggestActions generates up to the configured number of action
// candidates. Runs are independent: each starts from a fresh copy of
// the story context and never sees another run's output, so they
// execute concurrently.
//
// Candidates whose trimmed continuation is shorter than the configured
// minimum are discarded; a shorter-than-requested list is a reported
// condition, not an error, and ordering always matches run order.
func (e *Engine) SuggestActions(ctx context.Context) ([]ActionCandidate, error) {
	settings, _, s := e.snapshot()
	if s == nil {
		return nil, ErrNoStory
	}

	count := settings.Suggestions.Count
	if count == 0 {
		return nil, nil
	}

	cfg := settings.SuggestionConfig()
	base := s.Text() + suggestionSeed

	raw := make([]string, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			text, err := e.generate(gctx, base, settings, true, nil)
			if err != nil {
				return err
			}
			raw[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]ActionCandidate, 0, count)
	for _, text := range raw {
		trimmed := trimSuggestion(text)
		if len([]rune(trimmed)) < cfg.MinLength {
			continue
		}
		candidates = append(candidates, ActionCandidate{
			Text:   "You " + trimmed,
			Config: cfg,
		})
	}

	if len(candidates) < count {
		e.logger.Info("fewer suggestions than requested",
			zap.Int("requested", count),
			zap.Int("usable", len(candidates)),
		)
	}

	return candidates, nil
}
