// Package httpapi expone health, métricas y reportes en JSON.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/jose-valero/away-tracker-bot/internal/infra/metrics"
	"github.com/rs/zerolog"
)

const SecretHeader = "X-Report-Secret"

// Lo implementa service.AwayService
type ReportSource interface {
	Report(ctx context.Context, q service.ReportQuery) (service.Report, error)
}

// Lo implementa storage.DB (via *sql.DB)
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	reports ReportSource
	db      Pinger
	secret  string // vacío = /api deshabilitado
	log     zerolog.Logger
}

func New(reports ReportSource, db Pinger, secret string, log zerolog.Logger) *Server {
	return &Server{reports: reports, db: db, secret: secret, log: log.With().Str("component", "http").Logger()}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	if s.secret != "" {
		r.Route("/api", func(r chi.Router) {
			r.Use(s.requireSecret)
			r.Get("/guilds/{guildID}/reports/{date}", s.handleReport)
		})
	}
	return r
}

// Serve corre hasta que ctx termina y luego apaga con gracia.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := service.ReportQuery{
		GuildID: chi.URLParam(r, "guildID"),
		Date:    chi.URLParam(r, "date"),
		UserID:  r.URL.Query().Get("user"),
		Admin:   true,
	}
	q.UserIDs = SplitIDs(r.URL.Query().Get("users"))

	rep, err := s.reports.Report(r.Context(), q)
	if err != nil {
		status, msg := StatusFor(err)
		if status == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("guild", q.GuildID).Str("date", q.Date).Msg("report failed")
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// SplitIDs parte "a, b,,c" en IDs sin espacios ni vacíos.
func SplitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// StatusFor mapea errores de dominio a HTTP; lo comparte la Lambda de reportes.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoRecords):
		return http.StatusNotFound, "no away records"
	case errors.Is(err, domain.ErrMalformedInput):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
