// Package model defines the engine's view of a language model: an
// opaque scorer producing a distribution over a fixed vocabulary,
// plus the text codec that turns prompts into tokens and back.
//
// The engine never binds to a concrete implementation; a variant
// (remote HTTP service, test double) is selected at startup.
package model

import (
	"context"

	"github.com/megaman333/Clover-Edition/pkg/token"
)

// Scorer produces next-token distributions.
type Scorer interface {
	// ScoreNextToken returns the score distribution for the token
	// following the given context. The returned slice is owned by the
	// caller.
	ScoreNextToken(ctx context.Context, contextIDs []token.ID) (token.Distribution, error)

	// IsEndOfSequence reports whether the token terminates generation.
	IsEndOfSequence(id token.ID) bool
}

// Codec converts between text and token IDs. Tokenizer internals stay
// on the model side of this interface.
type Codec interface {
	Encode(ctx context.Context, text string) ([]token.ID, error)
	Decode(ctx context.Context, ids []token.ID) (string, error)
}

// Model is the full collaborator handle shared read-only across the
// main loop and concurrent suggestion runs.
type Model interface {
	Scorer
	Codec
}
