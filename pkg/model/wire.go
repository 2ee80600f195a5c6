package model

import "github.com/megaman333/Clover-Edition/pkg/token"

// infoResponse describes the served model (returned by GET /api/model).
type infoResponse struct {
	Model     string   `json:"model"`      // Model name (e.g., "gpt2-xl-aid")
	VocabSize int      `json:"vocab_size"` // Fixed vocabulary size
	EOSToken  token.ID `json:"eos_token"`  // End-of-sequence token ID
}

// scoreRequest asks for the next-token distribution after Context.
type scoreRequest struct {
	Context []token.ID `json:"context"`
}

// scoreResponse carries one score per vocabulary entry.
type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// tokenizeRequest and tokenizeResponse round-trip text to token IDs.
type tokenizeRequest struct {
	Text string `json:"text"`
}

type tokenizeResponse struct {
	Tokens []token.ID `json:"tokens"`
}

// detokenizeRequest and detokenizeResponse round-trip token IDs to text.
type detokenizeRequest struct {
	Tokens []token.ID `json:"tokens"`
}

type detokenizeResponse struct {
	Text string `json:"text"`
}

// errorResponse represents an error from the inference API.
type errorResponse struct {
	Error string `json:"error"`
}
