package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tradeagent/src/model"
)

type performanceSource interface {
	Latest(ctx context.Context) (*model.PerformanceRecord, error)
}

type positionSource interface {
	All(ctx context.Context) ([]model.Position, error)
}

type stopSource interface {
	Get(ctx context.Context, symbol string) (*model.TrailingStop, error)
}

// StatusServer exposes the agent's runtime state over HTTP: a liveness
// probe, the latest performance snapshot and the open positions with
// their working stops. Read-only; trading is never driven through it.
type StatusServer struct {
	cfg       Config
	perf      performanceSource
	positions positionSource
	stops     stopSource
	log       *logger.Entry
}

func NewStatusServer(cfg Config, perf performanceSource, positions positionSource, stops stopSource) *StatusServer {
	return &StatusServer{
		cfg:       cfg,
		perf:      perf,
		positions: positions,
		stops:     stops,
		log:       logger.WithField("component", "StatusServer"),
	}
}

func (s *StatusServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/status/performance", s.handlePerformance)
		r.Get("/status/positions", s.handlePositions)
	})

	return r
}

// Start serves until the context ends, then shuts down gracefully.
func (s *StatusServer) Start(ctx context.Context) {
	addr := ":" + s.cfg.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	go func() {
		s.log.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Fatal("Server crashed")
		}
	}()

	<-ctx.Done()
	s.log.Info("Shutting down status server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Error("Shutdown error")
	}
}

func (s *StatusServer) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.TokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" ||
			bcrypt.CompareHashAndPassword([]byte(s.cfg.TokenHash), []byte(token)) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *StatusServer) handlePerformance(w http.ResponseWriter, r *http.Request) {
	latest, err := s.perf.Latest(r.Context())
	if err != nil {
		s.log.WithError(err).Error("failed to load performance snapshot")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if latest == nil {
		latest = &model.PerformanceRecord{}
	}
	s.writeJSON(w, latest)
}

type positionStatus struct {
	Position model.Position      `json:"position"`
	Stop     *model.TrailingStop `json:"stop,omitempty"`
}

func (s *StatusServer) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.positions.All(r.Context())
	if err != nil {
		s.log.WithError(err).Error("failed to load positions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]positionStatus, 0, len(positions))
	for _, p := range positions {
		if p.Quantity == 0 {
			continue
		}
		entry := positionStatus{Position: p}
		if stop, err := s.stops.Get(r.Context(), p.Symbol); err == nil {
			entry.Stop = stop
		}
		out = append(out, entry)
	}
	s.writeJSON(w, out)
}

func (s *StatusServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}
