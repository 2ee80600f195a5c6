// Package setup holds the wiring shared by clover subcommands.
package setup

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/megaman333/Clover-Edition/pkg/config"
	"github.com/megaman333/Clover-Edition/pkg/model"
	"github.com/megaman333/Clover-Edition/pkg/random"
	"github.com/megaman333/Clover-Edition/story"
)

// LoadSettings reads the settings file, falling back to defaults when
// it does not exist. Invalid settings fail fast.
func LoadSettings(path string, log *zap.Logger) (config.Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info("no settings file, using defaults", zap.String("path", path))
		return config.Default(), nil
	}

	return config.Load(path)
}

// NewEngine builds the story engine: seeded randomness, remote model
// handle, validated settings.
func NewEngine(ctx context.Context, settings config.Settings, log *zap.Logger) (*story.Engine, error) {
	seed := settings.Model.Seed
	if seed == 0 {
		var err error
		if seed, err = random.NewSeed(); err != nil {
			return nil, err
		}
	}
	rng := random.NewSource(seed)

	m, err := model.NewRemote(ctx, settings.Model.UpstreamURL, log)
	if err != nil {
		return nil, fmt.Errorf("could not reach inference service: %w", err)
	}

	return story.NewEngine(m, settings, rng, log)
}

// WatchSettings applies settings-file edits to the engine until ctx is
// cancelled. Intended to run in its own goroutine.
func WatchSettings(ctx context.Context, path string, engine *story.Engine, log *zap.Logger) {
	err := config.Watch(ctx, path, log, func(s config.Settings) {
		if err := engine.Reload(s); err != nil {
			log.Error("could not apply reloaded settings", zap.Error(err))
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Warn("settings watcher stopped", zap.Error(err))
	}
}
