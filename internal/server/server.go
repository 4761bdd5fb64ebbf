// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-sale/internal/utils/logger"
	"github.com/rovshanmuradov/token-sale/internal/utils/metrics"
)

// Config содержит параметры HTTP-границы.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	CORSOrigins    []string
	// Gatherer для /metrics; nil отключает эндпоинт
	Gatherer prometheus.Gatherer
}

// Server обслуживает HTTP-запросы сервиса продажи токена.
type Server struct {
	cfg       Config
	purchaser Purchaser
	metrics   *metrics.Collector
	logger    *logger.Logger
	handler   http.Handler
	server    *http.Server
}

// New собирает маршруты. collector может быть nil.
func New(cfg Config, purchaser Purchaser, collector *metrics.Collector, log *logger.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		cfg:       cfg,
		purchaser: purchaser,
		metrics:   collector,
		logger:    logger.Wrap(log.WithComponent("http")),
	}
	s.handler = s.routes()
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/purchase_token",
		metrics.HTTPMiddleware(s.metrics, "purchase_token")(
			handlePurchaseToken(s.purchaser, s.cfg.RequestTimeout, s.logger)))

	mux.HandleFunc("GET /health", handleHealth())

	if s.cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         3600,
	}).Handler(mux)
}

// Handler возвращает корневой обработчик (удобно в тестах).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start слушает cfg.Addr до вызова Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve обслуживает соединения из ln. Возврат после Shutdown не считается ошибкой.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.Stringer("addr", ln.Addr()))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown останавливает приём соединений и дожидается активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
