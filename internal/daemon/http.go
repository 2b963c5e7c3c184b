package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HornetGeek/petow-frontend-sub000/internal/room"
)

// Pinger is a dependency the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"` // "pass" or "fail"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Profile   string           `json:"profile"`
	State     string           `json:"state"`
	FeedID    string           `json:"feed_id,omitempty"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// NewRouter builds the side HTTP surface: health and Prometheus metrics.
func NewRouter(profileName string, session *room.Session, feedStore Pinger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]Check)
		healthy := true
		if feedStore != nil {
			start := time.Now()
			if err := feedStore.Ping(ctx); err != nil {
				checks["feed"] = Check{Status: "fail", Message: "connection failed"}
				healthy = false
			} else {
				checks["feed"] = Check{Status: "pass", Latency: time.Since(start).String()}
			}
		}

		resp := HealthResponse{
			Status:    "healthy",
			Profile:   profileName,
			State:     string(session.State()),
			FeedID:    session.FeedID(),
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		code := http.StatusOK
		if !healthy {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

// HTTPServer serves the router on a TCP address. An empty address disables it.
type HTTPServer struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewHTTPServer creates the side HTTP server.
func NewHTTPServer(addr string, handler http.Handler, logger *zap.Logger) *HTTPServer {
	if addr == "" {
		return &HTTPServer{logger: logger}
	}
	return &HTTPServer{
		srv:    &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start listens and serves in the background.
func (s *HTTPServer) Start() error {
	if s.srv == nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("http server starting", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) {
	if s.srv == nil {
		return
	}
	_ = s.srv.Shutdown(ctx)
}
