package api

import (
	"context"
	"net/http"
	"time"

	"FinUp/internal/collector"
	"FinUp/internal/model"
	"FinUp/internal/portfolio"
	"FinUp/internal/recorder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Authenticator opens and resolves sessions.
type Authenticator interface {
	Login(ctx context.Context, cpf, password string) (*model.Session, error)
	Resolve(ctx context.Context, sess *model.Session) error
}

// Evaluator runs one evaluation pass.
type Evaluator interface {
	Evaluate(ctx context.Context, sess *model.Session) (*portfolio.Report, error)
}

// IndicatorSource returns the latest economic indicators.
type IndicatorSource interface {
	Indicators(ctx context.Context, series []collector.Series) ([]model.EconomicIndicator, error)
}

// Server exposes evaluations over HTTP.
type Server struct {
	R          chi.Router
	Auth       Authenticator
	Evaluator  Evaluator
	Indicators IndicatorSource
	Recorder   recorder.Recorder
	Series     []collector.Series
	limiter    *rate.Limiter
}

// NewServer wires the router and middleware. rps <= 0 disables rate limiting.
func NewServer(auth Authenticator, ev Evaluator, inds IndicatorSource, rec recorder.Recorder, rps float64, burst int) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Server{
		Auth:       auth,
		Evaluator:  ev,
		Indicators: inds,
		Recorder:   rec,
		Series:     collector.DefaultSeries,
	}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Get("/indicators", s.indicators)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/portfolio", s.portfolio)
			r.Get("/portfolio/plan", s.plan)
			r.Get("/history", s.history)
		})
	})

	s.R = r
	return s
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.R,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	sessionKey
)

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http_request",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("ip", r.RemoteAddr),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			zap.L().Warn("rate limit exceeded", zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
