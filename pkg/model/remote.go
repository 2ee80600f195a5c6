package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/megaman333/Clover-Edition/pkg/token"
)

// Remote is a Model backed by an inference service speaking the clover
// scoring API (GET /api/model, POST /api/score, /api/tokenize,
// /api/detokenize). It is safe for concurrent use; the underlying
// http.Client handles concurrent requests.
type Remote struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	vocabSize int
	eos       token.ID
}

// NewRemote connects to the inference service at baseURL and fetches
// the model description (vocabulary size, EOS token).
func NewRemote(ctx context.Context, baseURL string, logger *zap.Logger) (*Remote, error) {
	r := &Remote{
		baseURL: baseURL,
		logger:  logger,
		httpClient: &http.Client{
			// Scoring a long context on CPU can be slow
			Timeout: 5 * time.Minute,
		},
	}

	var info infoResponse
	if err := r.call(ctx, "GET", "/api/model", nil, &info); err != nil {
		return nil, fmt.Errorf("failed to describe model at %s: %w", baseURL, err)
	}
	if info.VocabSize <= 0 {
		return nil, fmt.Errorf("model at %s reports vocab size %d", baseURL, info.VocabSize)
	}

	r.vocabSize = info.VocabSize
	r.eos = info.EOSToken

	logger.Info("connected to inference service",
		zap.String("url", baseURL),
		zap.String("model", info.Model),
		zap.Int("vocab_size", info.VocabSize),
	)

	return r, nil
}

// VocabSize returns the fixed vocabulary size reported by the service.
func (r *Remote) VocabSize() int { return r.vocabSize }

// ScoreNextToken requests the distribution for the next token.
// Failures come back wrapped as GenerationFailedError.
func (r *Remote) ScoreNextToken(ctx context.Context, contextIDs []token.ID) (token.Distribution, error) {
	var resp scoreResponse
	if err := r.call(ctx, "POST", "/api/score", scoreRequest{Context: contextIDs}, &resp); err != nil {
		return nil, &GenerationFailedError{Err: err}
	}

	if len(resp.Scores) != r.vocabSize {
		return nil, &GenerationFailedError{
			Err: fmt.Errorf("score response has %d entries, want %d", len(resp.Scores), r.vocabSize),
		}
	}

	return token.Distribution(resp.Scores), nil
}

// IsEndOfSequence reports whether id is the service's EOS token.
func (r *Remote) IsEndOfSequence(id token.ID) bool { return id == r.eos }

// Encode tokenizes text via the service.
func (r *Remote) Encode(ctx context.Context, text string) ([]token.ID, error) {
	var resp tokenizeResponse
	if err := r.call(ctx, "POST", "/api/tokenize", tokenizeRequest{Text: text}, &resp); err != nil {
		return nil, &GenerationFailedError{Err: err}
	}
	return resp.Tokens, nil
}

// Decode detokenizes IDs via the service.
func (r *Remote) Decode(ctx context.Context, ids []token.ID) (string, error) {
	var resp detokenizeResponse
	if err := r.call(ctx, "POST", "/api/detokenize", detokenizeRequest{Tokens: ids}, &resp); err != nil {
		return "", &GenerationFailedError{Err: err}
	}
	return resp.Text, nil
}

// call performs one JSON request/response round trip against the
// service.
func (r *Remote) call(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("could not marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("inference request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respData, _ := io.ReadAll(httpResp.Body)
		var apiErr errorResponse
		if json.Unmarshal(respData, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("inference service returned %d: %s", httpResp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("inference service returned %d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}

	return nil
}
