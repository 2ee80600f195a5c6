// Package sampling turns a model's next-token score distribution into
// a chosen continuation: repetition penalty, temperature scaling,
// top-k and nucleus truncation, and the final stochastic draw.
package sampling

import "fmt"

// InvalidConfigError reports a settings value that is out of range.
// Validation failures are fatal at load time.
type InvalidConfigError struct {
	Key    string
	Value  any
	Reason string
}

func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %q = %v: %s", e.Key, e.Value, e.Reason)
}

// Config is an immutable snapshot of the sampling parameters for one
// decoding run. It is created once from external settings and never
// mutated while a run is in flight.
type Config struct {
	// Temperature scales log-scores before normalization. Must be > 0;
	// values toward 0 sharpen, large values flatten toward uniform.
	Temperature float64

	// RepetitionPenalty divides the score of recently emitted tokens.
	// 1.0 is a no-op; values in [0, 1) encourage repeats instead.
	RepetitionPenalty float64

	// RepetitionWindow bounds how many trailing history tokens are
	// penalized. 0 means the entire history.
	RepetitionWindow int

	// TopK keeps only the K highest-scoring tokens. 0 disables.
	TopK int

	// TopP keeps the smallest high-probability prefix whose cumulative
	// mass reaches P. Must be in (0, 1]; 1.0 effectively disables.
	TopP float64

	// MaxNewTokens bounds how many tokens one run may emit.
	MaxNewTokens int

	// MinLength is the minimum trimmed length for a generated string
	// to count as a usable candidate.
	MinLength int
}

// Validate checks every field and returns an InvalidConfigError naming
// the first offending key.
func (c Config) Validate() error {
	if c.Temperature <= 0 {
		return InvalidConfigError{Key: "temperature", Value: c.Temperature, Reason: "must be > 0"}
	}
	if c.RepetitionPenalty < 0 {
		return InvalidConfigError{Key: "repetition-penalty", Value: c.RepetitionPenalty, Reason: "must be >= 0"}
	}
	if c.RepetitionWindow < 0 {
		return InvalidConfigError{Key: "repetition-window", Value: c.RepetitionWindow, Reason: "must be >= 0"}
	}
	if c.TopK < 0 {
		return InvalidConfigError{Key: "top-k", Value: c.TopK, Reason: "must be >= 0"}
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return InvalidConfigError{Key: "top-p", Value: c.TopP, Reason: "must be in (0, 1]"}
	}
	if c.MaxNewTokens < 1 {
		return InvalidConfigError{Key: "max-new-tokens", Value: c.MaxNewTokens, Reason: "must be >= 1"}
	}
	if c.MinLength < 0 {
		return InvalidConfigError{Key: "min-length", Value: c.MinLength, Reason: "must be >= 0"}
	}
	return nil
}
