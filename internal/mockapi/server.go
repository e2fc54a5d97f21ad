// Package mockapi is an in-memory stand-in for the soil advisor service. It
// implements the HTTP JSON contract the client relies on and returns fixture
// predictions; it never scores soil itself.
package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/soil-advisor/internal/identity"
	"github.com/ashureev/soil-advisor/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type user struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Server holds the in-memory state of the stand-in service.
type Server struct {
	logger      *slog.Logger
	fixture     Prediction
	speechLines []string
	now         func() time.Time

	mu        sync.Mutex
	users     map[int64]*user
	byEmail   map[string]int64
	tokens    map[string]int64
	analyses  map[int64][]*analysis
	chats     map[int64][]*chatExchange
	nextUser  int64
	nextRowID int64
}

// Option configures a Server.
type Option func(*Server)

// WithFixture sets the prediction returned by /api/soil/analyze.
func WithFixture(p Prediction) Option {
	return func(s *Server) { s.fixture = p }
}

// WithSpeechLines sets the transcripts streamed by /ws/speech.
func WithSpeechLines(lines []string) Option {
	return func(s *Server) { s.speechLines = lines }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		fixture:  DefaultFixture(),
		now:      time.Now,
		users:    make(map[int64]*user),
		byEmail:  make(map[string]int64),
		tokens:   make(map[string]int64),
		analyses: make(map[int64][]*analysis),
		chats:    make(map[int64][]*chatExchange),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	r.Get("/api/health", s.handleHealth)
	r.Get("/ws/speech", s.handleSpeech)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(identity.Middleware(s.lookupToken))
			r.Post("/logout", s.handleLogout)
			r.Get("/user", s.handleCurrentUser)
		})
	})

	r.Route("/api/soil", func(r chi.Router) {
		r.Use(identity.Middleware(s.lookupToken))
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/history", s.handleSoilHistory)
		r.Get("/analysis/{id}", s.handleAnalysisDetail)
		r.Get("/statistics", s.handleStatistics)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(identity.Middleware(s.lookupToken))
		r.Post("/message", s.handleChatMessage)
		r.Get("/history", s.handleChatHistory)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(isoLayout),
	})
}

// isoLayout matches the zone-less timestamps of the real service.
const isoLayout = "2006-01-02T15:04:05.000000"

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v) == nil
}
