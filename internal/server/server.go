// Package server exposes the HTTP API: session lifecycle, conversation
// turns, the communication test, and the one-shot translate and
// pronounce endpoints.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/engli-ai/engli/internal/commtest"
	"github.com/engli-ai/engli/internal/llm"
	"github.com/engli-ai/engli/internal/modules"
	"github.com/engli-ai/engli/internal/pipeline"
	"github.com/engli-ai/engli/internal/session"
	"github.com/engli-ai/engli/internal/speech"
	"github.com/engli-ai/engli/internal/translate"
)

// Server bundles the handler dependencies.
type Server struct {
	sessions    *session.Manager
	registry    *modules.Registry
	pipe        *pipeline.Pipeline
	transcriber speech.Transcriber
	synth       speech.Synthesizer
	translator  *translate.Translator
	evaluator   *commtest.Evaluator
	logger      *slog.Logger
}

// New creates a Server. transcriber and synth may be nil; the endpoints
// that need them report the feature as unavailable.
func New(
	sessions *session.Manager,
	registry *modules.Registry,
	pipe *pipeline.Pipeline,
	transcriber speech.Transcriber,
	synth speech.Synthesizer,
	translator *translate.Translator,
	evaluator *commtest.Evaluator,
	logger *slog.Logger,
) *Server {
	return &Server{
		sessions:    sessions,
		registry:    registry,
		pipe:        pipe,
		transcriber: transcriber,
		synth:       synth,
		translator:  translator,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS(allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", s.handleListModules)
		r.Post("/translate", s.handleTranslate)
		r.Post("/pronounce", s.handlePronounce)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Put("/profile", s.handleUpdateProfile)
				r.Post("/module", s.handleSelectModule)
				r.Post("/reset", s.handleReset)
				r.Get("/messages", s.handleMessages)
				r.Post("/turns", s.handleTurn)

				r.Route("/test", func(r chi.Router) {
					r.Post("/", s.handleStartTest)
					r.Get("/", s.handleTestState)
					r.Post("/answers", s.handleTestAnswer)
					r.Get("/result", s.handleTestResult)
					r.Post("/restart", s.handleRestartTest)
				})
			})
		})
	})

	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps domain errors onto HTTP statuses. Unknown
// errors become 500s.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var notFound *session.ErrNotFound
	var genErr *pipeline.ErrGeneration
	var rateLimit *llm.ErrRateLimit
	var unavailable *llm.ErrProviderUnavailable
	var invalid *llm.ErrInvalidResponse
	var truncated *llm.ErrMaxTokensExceeded

	switch {
	case errors.As(err, &notFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, speech.ErrEmptyUtterance{}):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pipeline.ErrNoModule):
		Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &genErr):
		s.logger.Error("generation failed", "error", err)
		JSON(w, http.StatusBadGateway, map[string]string{
			"error": err.Error(),
			"reply": pipeline.Apology,
		})
	case errors.As(err, &rateLimit),
		errors.As(err, &unavailable),
		errors.As(err, &invalid),
		errors.As(err, &truncated):
		s.logger.Error("upstream provider error", "error", err)
		Error(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("internal error", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeDomainError(w, err)
		return nil, false
	}
	return sess, true
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
