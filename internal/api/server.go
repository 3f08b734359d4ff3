// Package api exposes the chat assistant, consent and survey over HTTP.
package api

import (
	"context"
	"net/http"

	"fleet-assistant/internal/chat/flow"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/validation"
	"fleet-assistant/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	HeaderTabID     = "X-Tab-ID"
	HeaderVisitorID = "X-Visitor-ID"

	// maxBodyBytes caps request bodies; the largest is a survey submission.
	maxBodyBytes = 64 << 10
)

type SessionProvider interface {
	GetOrCreateSessionID(ctx context.Context, tabID string) string
}

// Conversations creates sessions through Open only. Lookup never creates.
type Conversations interface {
	Open(ctx context.Context, sessionID string) (*flow.Controller, bool)
	Lookup(ctx context.Context, sessionID string) (*flow.Controller, error)
}

type ConsentStore interface {
	Get(ctx context.Context, visitorID string) models.ConsentPreferences
	Save(ctx context.Context, visitorID string, prefs models.ConsentPreferences) (models.ConsentPreferences, error)
}

type Surveys interface {
	ValidateStep(step string, payload []byte) (*validation.ValidationResult, error)
	Submit(ctx context.Context, payload []byte) (*models.SurveyResponse, error)
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Dependencies wires the server. Surveys may be nil when Postgres is off.
type Dependencies struct {
	Sessions      SessionProvider
	Conversations Conversations
	Consent       ConsentStore
	Surveys       Surveys
	Ready         map[string]ReadinessCheck
	Logger        logger.Logger
}

type Server struct {
	deps   Dependencies
	logger logger.Logger
	router *mux.Router
}

func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "api"}),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(s.recoverMiddleware, s.loggingMiddleware, visitorMiddleware)

	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.ready).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	chat := s.router.PathPrefix("/api/chat").Subrouter()
	chat.HandleFunc("/session", s.openSession).Methods(http.MethodPost)
	chat.HandleFunc("/{sessionId:[A-Za-z0-9_-]{1,128}}/messages", s.sendMessage).Methods(http.MethodPost)
	chat.HandleFunc("/{sessionId:[A-Za-z0-9_-]{1,128}}/messages", s.listMessages).Methods(http.MethodGet)
	chat.HandleFunc("/{sessionId:[A-Za-z0-9_-]{1,128}}/actions", s.handleAction).Methods(http.MethodPost)

	consent := s.router.PathPrefix("/api/consent").Subrouter()
	consent.HandleFunc("/{visitorId:[A-Za-z0-9_-]{1,128}}", s.getConsent).Methods(http.MethodGet)
	consent.HandleFunc("/{visitorId:[A-Za-z0-9_-]{1,128}}", s.putConsent).Methods(http.MethodPut)

	survey := s.router.PathPrefix("/api/survey").Subrouter()
	survey.HandleFunc("", s.submitSurvey).Methods(http.MethodPost)
	survey.HandleFunc("/steps/{step}", s.validateSurveyStep).Methods(http.MethodPost)
}
