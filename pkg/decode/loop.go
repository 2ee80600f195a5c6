// Package decode implements the token-by-token generation loop:
// score, penalize, filter, sample, append, until a stop condition.
package decode

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/megaman333/Clover-Edition/pkg/model"
	"github.com/megaman333/Clover-Edition/pkg/random"
	"github.com/megaman333/Clover-Edition/pkg/sampling"
	"github.com/megaman333/Clover-Edition/pkg/token"
)

// StopReason records why a run left the Running state.
type StopReason int

const (
	// StopMaxTokens: the run emitted its full token budget.
	StopMaxTokens StopReason = iota

	// StopEndOfSequence: the model signaled its end-of-sequence token.
	StopEndOfSequence

	// StopCancelled: the caller's context was cancelled between steps.
	StopCancelled
)

func (r StopReason) String() string {
	switch r {
	case StopMaxTokens:
		return "max tokens"
	case StopEndOfSequence:
		return "end of sequence"
	case StopCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// minTokensBeforeEOS is how many tokens a run must emit before an
// end-of-sequence token ends it. Models often open with whitespace-ish
// stop tokens; honoring those immediately yields empty results.
const minTokensBeforeEOS = 4

// Result is the outcome of one completed run.
type Result struct {
	// Tokens are the newly generated tokens, in emission order. The
	// prompt is not included.
	Tokens []token.ID

	// Reason is why the run stopped.
	Reason StopReason
}

// Loop drives one generation at a time against a shared, read-only
// model scorer. Each Run owns its history privately; a Loop value may
// be used from multiple goroutines because it carries no per-run
// state.
type Loop struct {
	scorer model.Scorer
	cfg    sampling.Config
	rng    random.Source
	logger *zap.Logger
}

// NewLoop validates the sampling config and returns a ready loop.
func NewLoop(scorer model.Scorer, cfg sampling.Config, rng random.Source, logger *zap.Logger) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Loop{scorer: scorer, cfg: cfg, rng: rng, logger: logger}, nil
}

// Config returns the immutable sampling snapshot this loop runs with.
func (l *Loop) Config() sampling.Config { return l.cfg }

// Run generates up to MaxNewTokens tokens after prompt. Each emitted
// token is passed to onToken (which may be nil) right after it is
// appended.
//
// Steps are atomic: a cancellation observed mid-step stops the run
// without appending a partial token, and Result.Tokens reflects only
// fully completed steps. Scorer failures surface as
// GenerationFailedError without any internal retry and likewise leave
// the history of completed steps intact.
func (l *Loop) Run(ctx context.Context, prompt []token.ID, onToken func(token.ID)) (Result, error) {
	history := make([]token.ID, len(prompt), len(prompt)+l.cfg.MaxNewTokens)
	copy(history, prompt)

	res := Result{Tokens: make([]token.ID, 0, l.cfg.MaxNewTokens)}

	for len(res.Tokens) < l.cfg.MaxNewTokens {
		if ctx.Err() != nil {
			res.Reason = StopCancelled
			return res, nil
		}

		next, stopped, err := l.step(ctx, history, &res)
		if stopped || err != nil {
			return res, err
		}

		history = append(history, next)
		res.Tokens = append(res.Tokens, next)
		if onToken != nil {
			onToken(next)
		}

		if l.scorer.IsEndOfSequence(next) && len(res.Tokens) > minTokensBeforeEOS {
			res.Reason = StopEndOfSequence
			l.logger.Debug("stopping on end-of-sequence token",
				zap.Int("token", int(next)),
				zap.Int("generated", len(res.Tokens)),
			)
			return res, nil
		}
	}

	res.Reason = StopMaxTokens
	return res, nil
}

// step performs one score-penalize-filter-sample cycle. It mutates
// nothing; the caller appends the returned token once the whole step
// has succeeded.
func (l *Loop) step(ctx context.Context, history []token.ID, res *Result) (token.ID, bool, error) {
	dist, err := l.scorer.ScoreNextToken(ctx, history)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// The in-flight model call was abandoned; this is a stop,
			// not a failure.
			res.Reason = StopCancelled
			return 0, true, nil
		}

		var gf *model.GenerationFailedError
		if !errors.As(err, &gf) {
			err = &model.GenerationFailedError{Err: err}
		}
		return 0, false, err
	}

	window := sampling.Window(history, l.cfg.RepetitionWindow)
	penalized := sampling.Penalize(dist, window, l.cfg.RepetitionPenalty)

	filtered, err := sampling.Filter(penalized, l.cfg.Temperature, l.cfg.TopK, l.cfg.TopP)
	if err != nil {
		// Unreachable with a validated config.
		return 0, false, err
	}

	next, err := sampling.Sample(filtered, l.rng)
	if err != nil {
		return 0, false, err
	}

	return next, false, nil
}
