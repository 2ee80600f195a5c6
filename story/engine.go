package story

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/megaman333/Clover-Edition/pkg/config"
	"github.com/megaman333/Clover-Edition/pkg/decode"
	"github.com/megaman333/Clover-Edition/pkg/dice"
	"github.com/megaman333/Clover-Edition/pkg/model"
	"github.com/megaman333/Clover-Edition/pkg/random"
	"github.com/megaman333/Clover-Edition/pkg/token"
)

// ErrNoStory is returned when a turn is attempted before a story has
// been started or loaded.
var ErrNoStory = errors.New("no active story")

// maxContextTokens bounds how much trailing story context is fed back
// into the model.
const maxContextTokens = 1024

// loopSimilarity is the threshold above which a new result counts as
// the model looping on its previous output.
const loopSimilarity = 0.9

// maxEmptyRetries bounds regeneration when cleanup empties a result;
// after allowActionAfter attempts the cleanup keeps action lines too.
const (
	maxEmptyRetries  = 8
	allowActionAfter = 4
)

// TurnResult is what one player action produced.
type TurnResult struct {
	Action string        `json:"action"`
	Result string        `json:"result"`
	Dice   *dice.Outcome `json:"dice,omitempty"`

	// LoopDetected means the generated result was nearly identical to
	// the previous one; the turn was rolled back and the player should
	// try a different action.
	LoopDetected bool `json:"loop_detected,omitempty"`
}

// Engine runs one story session against a shared, read-only model
// handle. The settings snapshot is immutable per run; Reload swaps in
// a new snapshot between turns.
type Engine struct {
	model  model.Model
	rng    random.Source
	logger *zap.Logger

	mu       sync.Mutex
	settings config.Settings
	resolver *dice.Resolver
	story    *Story
}

// NewEngine validates the settings and builds an engine.
func NewEngine(m model.Model, settings config.Settings, rng random.Source, logger *zap.Logger) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	resolver, err := dice.NewResolver(settings.Dice.Enabled, settings.DicePolicy(), rng)
	if err != nil {
		return nil, err
	}

	return &Engine{
		model:    m,
		rng:      rng,
		logger:   logger,
		settings: settings,
		resolver: resolver,
	}, nil
}

// Reload replaces the settings snapshot. Runs already in flight keep
// the snapshot they started with.
func (e *Engine) Reload(settings config.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	resolver, err := dice.NewResolver(settings.Dice.Enabled, settings.DicePolicy(), e.rng)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.settings = settings
	e.resolver = resolver
	e.mu.Unlock()

	e.logger.Info("engine settings reloaded")
	return nil
}

func (e *Engine) snapshot() (config.Settings, *dice.Resolver, *Story) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings, e.resolver, e.story
}

// Model returns the shared model collaborator handle.
func (e *Engine) Model() model.Model { return e.model }

// Story returns the active story, or nil.
func (e *Engine) Story() *Story {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.story
}

// SetStory installs a loaded story as the active session.
func (e *Engine) SetStory(s *Story) {
	e.mu.Lock()
	e.story = s
	e.mu.Unlock()
}

// StartStory begins a new session from a world context and an opening
// prompt, generating the story opening. onToken may be nil.
func (e *Engine) StartStory(ctx context.Context, title, storyContext, prompt string, onToken func(token.ID)) (*Story, error) {
	settings, _, _ := e.snapshot()

	opening, err := e.generate(ctx, storyContext+"\n"+prompt, settings, false, onToken)
	if err != nil {
		return nil, err
	}

	s := &Story{
		ID:        uuid.NewString(),
		Title:     title,
		Context:   storyContext,
		Opening:   prompt + opening,
		CreatedAt: time.Now().UTC(),
	}
	e.SetStory(s)

	e.logger.Info("story started",
		zap.String("id", s.ID),
		zap.String("title", title),
		zap.Int("opening_len", len(s.Opening)),
	)

	return s, nil
}

// Act resolves one player action: normalize the input, roll the dice
// outcome when enabled, splice the outcome hint into the prompt, run
// the main decoding loop, and append the turn. A result that loops on
// the previous passage is rolled back and reported via LoopDetected.
func (e *Engine) Act(ctx context.Context, input string, onToken func(token.ID)) (*TurnResult, error) {
	settings, resolver, s := e.snapshot()
	if s == nil {
		return nil, ErrNoStory
	}

	action := NormalizeAction(input)

	turn := &TurnResult{Action: action}
	prompt := s.Text() + action

	// The dice result influences generation only through the prompt.
	if outcome, ok := resolver.Resolve(); ok && action != "" {
		turn.Dice = &outcome
		prompt += outcome.Hint() + " "
		e.logger.Debug("dice outcome",
			zap.Int("roll", outcome.Roll),
			zap.String("tier", outcome.Tier.String()),
		)
	}

	result, err := e.generate(ctx, prompt, settings, false, onToken)
	if err != nil {
		return nil, err
	}

	// Cancelled or exhausted generations come back empty; don't record
	// a blank turn for them.
	if result == "" {
		return turn, nil
	}

	if prev := s.LatestResult(); Similarity(result, prev) > loopSimilarity {
		turn.LoopDetected = true
		e.logger.Warn("generation loop detected, turn rolled back")
		return turn, nil
	}

	turn.Result = "\n" + result
	s.appendTurn(action, turn.Result)

	return turn, nil
}

// SuggestionCount returns the configured number of suggestion runs, so
// callers can report a shortfall against it.
func (e *Engine) SuggestionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Suggestions.Count
}

// generate runs one decoding pass over the prompt and cleans the
// result. Empty results after cleanup are retried a bounded number of
// times; this retry is caller-side policy, the loop itself never
// retries.
func (e *Engine) generate(ctx context.Context, prompt string, settings config.Settings, suggestion bool, onToken func(token.ID)) (string, error) {
	cfg := settings.GenerationConfig()
	if suggestion {
		cfg = settings.SuggestionConfig()
	}

	loop, err := decode.NewLoop(e.model, cfg, e.rng, e.logger)
	if err != nil {
		return "", err
	}

	for attempt := 0; ; attempt++ {
		promptTokens, err := e.encodePrompt(ctx, prompt, cfg.MaxNewTokens)
		if err != nil {
			return "", err
		}

		res, err := loop.Run(ctx, promptTokens, onToken)
		if err != nil {
			return "", err
		}

		text, err := e.model.Decode(ctx, res.Tokens)
		if err != nil {
			return "", err
		}

		if suggestion {
			return text, nil
		}

		result := CleanResult(text, attempt >= allowActionAfter)
		if result != "" || res.Reason == decode.StopCancelled {
			return result, nil
		}
		if attempt >= maxEmptyRetries {
			e.logger.Warn("model kept generating empty text, giving up",
				zap.Int("attempts", attempt+1))
			return "", nil
		}

		// The rng has advanced, so regenerating from the unchanged
		// prompt explores a different continuation.
		e.logger.Debug("empty result after cleanup, regenerating",
			zap.Int("attempt", attempt+1))
	}
}

// encodePrompt tokenizes the prompt and keeps only the trailing
// window that fits the model context alongside the generation budget.
func (e *Engine) encodePrompt(ctx context.Context, prompt string, maxNewTokens int) ([]token.ID, error) {
	ids, err := e.model.Encode(ctx, prompt)
	if err != nil {
		return nil, err
	}

	budget := maxContextTokens - maxNewTokens
	if budget > 0 && len(ids) > budget {
		ids = ids[len(ids)-budget:]
	}
	return ids, nil
}

// trimSuggestion reduces a raw suggestion continuation to a single
// action line.
func trimSuggestion(text string) string {
	if i := strings.IndexAny(text, "\n>"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
