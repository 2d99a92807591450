package api

import (
	"log/slog"
	"net/http"

	"github.com/friendhotline/hotline/internal/api/middleware"
	"github.com/friendhotline/hotline/internal/config"
	"github.com/friendhotline/hotline/internal/database"
	"github.com/friendhotline/hotline/internal/telephony"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Server holds HTTP handler dependencies and the chi router. It exposes
// two surfaces: provider webhooks under /telephony and the organizer
// JSON API under /api/v1.
type Server struct {
	router *chi.Mux
	cfg    *config.Config

	hotlines   database.HotlineRepository
	members    database.MemberRepository
	blocklist  database.BlockListRepository
	adminUsers database.AdminUserRepository

	voice        *telephony.Voice
	verification *telephony.Verification

	sessions *middleware.SessionStore
	logger   *slog.Logger
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(db *database.DB, cfg *config.Config, voice *telephony.Voice, verification *telephony.Verification, sessions *middleware.SessionStore, logger *slog.Logger) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		cfg:          cfg,
		hotlines:     database.NewHotlineRepository(db),
		members:      database.NewMemberRepository(db),
		blocklist:    database.NewBlockListRepository(db),
		adminUsers:   database.NewAdminUserRepository(db),
		voice:        voice,
		verification: verification,
		sessions:     sessions,
		logger:       logger.With("component", "api"),
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	// Provider webhooks. The provider treats a non-200 answer as a dead
	// call, so these handlers always produce a usable response body.
	webhookLimiter := middleware.NewIPRateLimiter(middleware.WebhookRateLimitConfig())
	r.Route("/telephony", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookLimiter))
		r.Post("/inbound-call", s.handleInboundCall)
		r.Post("/connect-to-conference/{conversationID}/{callID}", s.handleConnectToConference)
		r.Post("/inbound-sms", s.handleInboundSMS)
		r.Post("/event", s.handleCallEvent)
	})

	// Organizer JSON API.
	authLimiter := middleware.NewIPRateLimiter(middleware.AuthRateLimitConfig())
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(authLimiter))
			r.Post("/setup", s.handleSetup)
			r.Post("/auth/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessions))
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)

			r.Route("/hotlines", func(r chi.Router) {
				r.Get("/", s.handleListHotlines)
				r.Post("/", s.handleCreateHotline)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetHotline)
					r.Put("/", s.handleUpdateHotline)
					r.Delete("/", s.handleDeleteHotline)

					r.Route("/members", func(r chi.Router) {
						r.Get("/", s.handleListMembers)
						r.Post("/", s.handleCreateMember)
						r.Delete("/{memberID}", s.handleDeleteMember)
					})

					r.Route("/blocklist", func(r chi.Router) {
						r.Get("/", s.handleListBlockList)
						r.Post("/", s.handleCreateBlockListEntry)
						r.Delete("/{entryID}", s.handleDeleteBlockListEntry)
					})
				})
			})
		})
	})

	s.logger.Info("routes mounted")
}

// handleHealth returns basic health status. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
