// internal/infra/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"compliance_notifier/internal/app"
	"compliance_notifier/internal/infra/config"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Runner executes one notification run. Satisfied by app.BatchService.
type Runner interface {
	Run(ctx context.Context) *app.RunSummary
}

// OperatorDirectory resolves operator bearer tokens to account emails.
// Implementations return database.ErrOperatorNotFound for unknown or
// revoked tokens.
type OperatorDirectory interface {
	GetEmailByToken(ctx context.Context, token string) (string, error)
}

// Pinger reports storage liveness for the health endpoint. *sql.DB
// satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server exposes the cron trigger endpoint and a health check.
type Server struct {
	router         chi.Router
	runner         Runner
	operators      OperatorDirectory
	pinger         Pinger
	cronSecret     string
	internalDomain string
	logger         *logrus.Entry
}

func NewServer(cfg *config.AppConfig, runner Runner, operators OperatorDirectory, pinger Pinger, logger *logrus.Entry) *Server {
	s := &Server{
		runner:         runner,
		operators:      operators,
		pinger:         pinger,
		cronSecret:     cfg.CronSecret,
		internalDomain: cfg.InternalDomain,
		logger:         logger,
	}
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.With(s.requireCronAuth).Post("/jobs/run", s.handleRun)
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	summary := s.runner.Run(r.Context())
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.PingContext(r.Context()); err != nil {
			s.logger.Errorf("Health check failed to reach database: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
