// internal/admin/server.go

// Package admin serves the local operator HTTP surface.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tamzrod/buttonfetch/internal/status"
)

const defaultHold = 200 * time.Millisecond

// StatusFunc returns an assessed snapshot.
type StatusFunc func() status.Snapshot

// Presser simulates a physical press. Only the virtual pin has one.
type Presser interface {
	Press(hold time.Duration)
}

type Deps struct {
	Gatherer prometheus.Gatherer
	Status   StatusFunc
	Presser  Presser // nil => POST /press is not routed
	Log      *zap.Logger
}

// NewHandler builds the router.
func NewHandler(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withLogging(log))

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s := d.Status()
		code := http.StatusOK
		if s.Health == status.HealthError {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"health": s.Health.String()})
	})

	if d.Presser != nil {
		r.Post("/press", func(w http.ResponseWriter, r *http.Request) {
			hold := defaultHold
			if v := r.URL.Query().Get("hold_ms"); v != "" {
				ms, err := strconv.Atoi(v)
				if err != nil || ms <= 0 {
					http.Error(w, "hold_ms must be a positive integer", http.StatusBadRequest)
					return
				}
				hold = time.Duration(ms) * time.Millisecond
			}
			d.Presser.Press(hold)
			writeJSON(w, http.StatusAccepted, map[string]int64{"hold_ms": hold.Milliseconds()})
		})
	}

	return r
}

// Server runs the handler until its context ends.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(listen string, h http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              listen,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Serve listens on ln and shuts down when ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(ln) }()
	s.log.Info("admin listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// ListenAndServe binds the configured address, then Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// ---- middleware ----

func withLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("admin",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
