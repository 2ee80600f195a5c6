// Package config loads the flat TOML settings file and turns it into
// the immutable value structs the engine components consume. Nothing
// reads ambient global state; the loaded snapshot is passed explicitly.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/megaman333/Clover-Edition/pkg/dice"
	"github.com/megaman333/Clover-Edition/pkg/sampling"
)

// Settings mirrors the settings file. Out-of-range values fail fast at
// load time with an error naming the offending key.
type Settings struct {
	Generation  Generation  `toml:"generation"`
	Suggestions Suggestions `toml:"suggestions"`
	Dice        Dice        `toml:"dice"`
	Model       Model       `toml:"model"`
	Console     Console     `toml:"console"`
}

// Generation configures the main story decoding run.
type Generation struct {
	Temperature       float64 `toml:"temperature"`
	TopK              int     `toml:"top-k"`
	TopP              float64 `toml:"top-p"`
	RepetitionPenalty float64 `toml:"repetition-penalty"`
	RepetitionWindow  int     `toml:"repetition-window"`
	MaxNewTokens      int     `toml:"max-new-tokens"`
}

// Suggestions configures the secondary action-suggestion runs.
type Suggestions struct {
	Count       int     `toml:"count"`
	MaxTokens   int     `toml:"max-tokens"`
	Temperature float64 `toml:"temperature"`
	TopK        int     `toml:"top-k"`
	TopP        float64 `toml:"top-p"`
	MinLength   int     `toml:"min-length"`
}

// Dice configures the action-outcome mechanic.
type Dice struct {
	Enabled            bool `toml:"enabled"`
	CriticalFailureMax int  `toml:"critical-failure-max"`
	FailureMax         int  `toml:"failure-max"`
	SuccessMax         int  `toml:"success-max"`
}

// Model points at the inference service.
type Model struct {
	UpstreamURL string `toml:"upstream-url"`

	// Seed for the shared randomness source. 0 draws a fresh
	// crypto/rand seed at startup.
	Seed int64 `toml:"seed"`
}

// Console holds thin presentation options for the play command.
type Console struct {
	TextWrapWidth int  `toml:"text-wrap-width"`
	Bell          bool `toml:"console-bell"`
}

// Default returns the settings used when no file is present, matching
// the tuning the story model ships with.
func Default() Settings {
	return Settings{
		Generation: Generation{
			Temperature:       0.4,
			TopK:              40,
			TopP:              0.9,
			RepetitionPenalty: 1.0,
			RepetitionWindow:  256,
			MaxNewTokens:      60,
		},
		Suggestions: Suggestions{
			Count:       4,
			MaxTokens:   30,
			Temperature: 0.6,
			TopK:        40,
			TopP:        0.9,
			MinLength:   2,
		},
		Dice: Dice{
			Enabled:            true,
			CriticalFailureMax: 1,
			FailureMax:         9,
			SuccessMax:         19,
		},
		Model: Model{
			UpstreamURL: "http://localhost:6071",
		},
		Console: Console{
			TextWrapWidth: 80,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Settings, error) {
	s := Default()
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Settings{}, fmt.Errorf("could not read settings %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// Validate checks every option and returns an error naming the first
// offending key.
func (s Settings) Validate() error {
	if err := s.GenerationConfig().Validate(); err != nil {
		return err
	}

	if s.Suggestions.Count < 0 {
		return sampling.InvalidConfigError{Key: "suggestions.count", Value: s.Suggestions.Count, Reason: "must be >= 0"}
	}
	if err := s.SuggestionConfig().Validate(); err != nil {
		if ice, ok := err.(sampling.InvalidConfigError); ok {
			ice.Key = "suggestions." + ice.Key
			return ice
		}
		return err
	}

	if err := s.DicePolicy().Validate(); err != nil {
		return sampling.InvalidConfigError{Key: "dice", Value: "", Reason: err.Error()}
	}

	if s.Model.UpstreamURL == "" {
		return sampling.InvalidConfigError{Key: "model.upstream-url", Value: "", Reason: "must not be empty"}
	}

	return nil
}

// GenerationConfig returns the sampling snapshot for main story runs.
func (s Settings) GenerationConfig() sampling.Config {
	return sampling.Config{
		Temperature:       s.Generation.Temperature,
		RepetitionPenalty: s.Generation.RepetitionPenalty,
		RepetitionWindow:  s.Generation.RepetitionWindow,
		TopK:              s.Generation.TopK,
		TopP:              s.Generation.TopP,
		MaxNewTokens:      s.Generation.MaxNewTokens,
	}
}

// SuggestionConfig returns the sampling snapshot for suggestion runs.
// Suggestions share the generation repetition settings but carry their
// own temperature, truncation, and length bounds.
func (s Settings) SuggestionConfig() sampling.Config {
	return sampling.Config{
		Temperature:       s.Suggestions.Temperature,
		RepetitionPenalty: s.Generation.RepetitionPenalty,
		RepetitionWindow:  s.Generation.RepetitionWindow,
		TopK:              s.Suggestions.TopK,
		TopP:              s.Suggestions.TopP,
		MaxNewTokens:      s.Suggestions.MaxTokens,
		MinLength:         s.Suggestions.MinLength,
	}
}

// DicePolicy returns the configured tier partition.
func (s Settings) DicePolicy() dice.Policy {
	return dice.Policy{
		CriticalFailureMax: s.Dice.CriticalFailureMax,
		FailureMax:         s.Dice.FailureMax,
		SuccessMax:         s.Dice.SuccessMax,
	}
}
