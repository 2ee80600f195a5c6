// Package server exposes a story engine over HTTP: starting stories,
// taking turns (optionally streamed token by token), action
// suggestions, and story persistence.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/megaman333/Clover-Edition/pkg/storage/sqlite"
	"github.com/megaman333/Clover-Edition/pkg/token"
	"github.com/megaman333/Clover-Edition/story"
)

// Server wraps a single story engine behind a Fiber app. One story is
// active at a time, matching the single narrative thread of a play
// session; saved stories can be swapped in via the load endpoint.
type Server struct {
	config Config
	engine *story.Engine
	store  *sqlite.Store
	logger *zap.Logger
	app    *fiber.App
}

// New creates a new Server around an engine.
func New(config Config, engine *story.Engine, logger *zap.Logger) (*Server, error) {
	dbPath := config.DBPath
	if dbPath == "" {
		dbPath = ":memory:"
	}
	store, err := sqlite.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create story store: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		engine: engine,
		store:  store,
		logger: logger,
		app:    app,
	}

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Post("/api/story", s.handleStart)
	app.Get("/api/story", s.handleGetStory)
	app.Post("/api/story/act", s.handleAct)
	app.Get("/api/story/suggestions", s.handleSuggestions)
	app.Post("/api/story/revert", s.handleRevert)
	app.Post("/api/story/save", s.handleSave)

	app.Get("/api/stories", s.handleListStories)
	app.Post("/api/stories/:id/load", s.handleLoadStory)
	app.Delete("/api/stories/:id", s.handleDeleteStory)

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting story server", zap.String("listen", s.config.ListenAddr))
	return s.app.Listen(s.config.ListenAddr)
}

// Close shuts down the server and releases resources.
func (s *Server) Close() error {
	return s.store.Close()
}

type startRequest struct {
	Title   string `json:"title"`
	Context string `json:"context"`
	Prompt  string `json:"prompt"`
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	var req startRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid request body"))
	}

	st, err := s.engine.StartStory(c.Context(), req.Title, req.Context, req.Prompt, nil)
	if err != nil {
		s.logger.Error("failed to start story", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorBody(err.Error()))
	}

	return c.JSON(st.Snapshot())
}

func (s *Server) handleGetStory(c *fiber.Ctx) error {
	st := s.engine.Story()
	if st == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("no active story"))
	}
	return c.JSON(st.Snapshot())
}

type actRequest struct {
	Action string `json:"action"`
	Stream bool   `json:"stream,omitempty"`
}

func (s *Server) handleAct(c *fiber.Ctx) error {
	var req actRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid request body"))
	}

	if req.Stream {
		return s.handleStreamingAct(c, &req)
	}

	turn, err := s.engine.Act(c.Context(), req.Action, nil)
	if err != nil {
		return s.turnError(c, err)
	}

	return c.JSON(turn)
}

// streamChunk is one ndjson line of a streamed turn: token text while
// generating, then a final line carrying the full turn.
type streamChunk struct {
	Text string            `json:"text,omitempty"`
	Done bool              `json:"done"`
	Turn *story.TurnResult `json:"turn,omitempty"`
	Err  string            `json:"error,omitempty"`
}

// handleStreamingAct emits each chosen token as it is appended, then a
// final chunk with the resolved turn.
func (s *Server) handleStreamingAct(c *fiber.Ctx, req *actRequest) error {
	c.Set("Content-Type", "application/x-ndjson")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx := context.Background()
		enc := json.NewEncoder(w)

		onToken := func(id token.ID) {
			text, err := s.engine.Model().Decode(ctx, []token.ID{id})
			if err != nil {
				s.logger.Warn("failed to decode streamed token", zap.Error(err))
				return
			}
			enc.Encode(streamChunk{Text: text})
			w.Flush()
		}

		turn, err := s.engine.Act(ctx, req.Action, onToken)
		if err != nil {
			s.logger.Error("streamed turn failed", zap.Error(err))
			enc.Encode(streamChunk{Done: true, Err: err.Error()})
			w.Flush()
			return
		}

		enc.Encode(streamChunk{Done: true, Turn: turn})
		w.Flush()
	}))

	return nil
}

// suggestionsResponse reports the candidates plus the requested count,
// so a shortfall is visible as data rather than as an error.
type suggestionsResponse struct {
	Requested  int                     `json:"requested"`
	Candidates []story.ActionCandidate `json:"candidates"`
}

func (s *Server) handleSuggestions(c *fiber.Ctx) error {
	candidates, err := s.engine.SuggestActions(c.Context())
	if err != nil {
		return s.turnError(c, err)
	}

	return c.JSON(suggestionsResponse{
		Requested:  s.engine.SuggestionCount(),
		Candidates: candidates,
	})
}

func (s *Server) handleRevert(c *fiber.Ctx) error {
	st := s.engine.Story()
	if st == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("no active story"))
	}
	if !st.Revert() {
		return c.Status(fiber.StatusConflict).JSON(errorBody("nothing to revert"))
	}
	return c.JSON(st.Snapshot())
}

func (s *Server) handleSave(c *fiber.Ctx) error {
	st := s.engine.Story()
	if st == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("no active story"))
	}

	if err := s.store.Save(c.Context(), st.Record()); err != nil {
		s.logger.Error("failed to save story", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("could not save story"))
	}

	s.logger.Info("story saved", zap.String("id", st.ID))
	return c.JSON(map[string]string{"id": st.ID})
}

func (s *Server) handleListStories(c *fiber.Ctx) error {
	recs, err := s.store.List(c.Context())
	if err != nil {
		s.logger.Error("failed to list stories", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("could not list stories"))
	}
	return c.JSON(recs)
}

func (s *Server) handleLoadStory(c *fiber.Ctx) error {
	rec, err := s.store.Load(c.Context(), c.Params("id"))
	if err != nil {
		var notFound sqlite.ErrNotFound
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorBody(err.Error()))
		}
		s.logger.Error("failed to load story", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("could not load story"))
	}

	st := story.FromRecord(rec)
	s.engine.SetStory(st)
	return c.JSON(st.Snapshot())
}

func (s *Server) handleDeleteStory(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.store.Delete(c.Context(), id); err != nil {
		var notFound sqlite.ErrNotFound
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorBody(err.Error()))
		}
		s.logger.Error("failed to delete story", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("could not delete story"))
	}

	s.logger.Info("story deleted", zap.String("id", id))
	return c.JSON(map[string]string{"id": id})
}

func (s *Server) turnError(c *fiber.Ctx, err error) error {
	if errors.Is(err, story.ErrNoStory) {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("no active story"))
	}

	s.logger.Error("generation failed", zap.Error(err))
	return c.Status(fiber.StatusBadGateway).JSON(errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
