package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/repository"
)

// Server is the admin/ops HTTP surface: health, Prometheus metrics, stats and
// credit grants. It never serves end users.
type Server struct {
	sessions repository.SessionStore
	credits  repository.CreditsRepository
	auth     *AuthManager
	secret   string
	log      *zerolog.Logger
}

func NewServer(
	sessions repository.SessionStore,
	credits repository.CreditsRepository,
	auth *AuthManager,
	secret string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		sessions: sessions,
		credits:  credits,
		auth:     auth,
		secret:   secret,
		log:      logger,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)
			r.Get("/stats", s.handleStats)
			r.Post("/credits", s.handleGrantCredits)
		})
	})
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if s.secret == "" || subtle.ConstantTimeCompare([]byte(body.Secret), []byte(s.secret)) != 1 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("minting admin token failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.credits.TotalCredits(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats: total credits failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":          s.sessions.Len(),
		"total_credits_one": total.ONE(false),
	})
}

func (s *Server) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccountID string  `json:"account_id"`
		AmountONE float64 `json:"amount_one"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if body.AccountID == "" || body.AmountONE <= 0 {
		http.Error(w, "account_id and positive amount_one required", http.StatusBadRequest)
		return
	}
	amount := model.AttoFromONE(body.AmountONE)
	if err := s.credits.Grant(r.Context(), body.AccountID, amount); err != nil {
		s.log.Error().Err(err).Str("account_id", body.AccountID).Msg("credit grant failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("account_id", body.AccountID).Float64("amount_one", body.AmountONE).Msg("credits granted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
