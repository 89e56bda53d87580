package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/voyagen/channelvault/api"
	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/models"
	"github.com/voyagen/channelvault/internal/notify"
	"github.com/voyagen/channelvault/internal/service"
	"github.com/voyagen/channelvault/internal/store"
)

const (
	maxBodyBytes   = 8 << 20
	defaultChanges = 20
	maxChanges     = 100
)

// Server holds dependencies for the HTTP API.
type Server struct {
	catalog *service.Catalog
	cfg     *config.Config
	rds     *notify.Redis // nil when REDIS_URL is not set
	log     *log.Logger
	mux     *http.ServeMux
}

// New creates a Server and registers routes.
// rds may be nil if change history is not configured.
func New(c *service.Catalog, cfg *config.Config, rds *notify.Redis, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	srv := &Server{catalog: c, cfg: cfg, rds: rds, log: logger, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Channels. Method dispatch happens in the handler so unsupported
	// methods get a JSON 405 body.
	s.mux.HandleFunc("/api/channels", s.handleChannels)
	s.mux.HandleFunc("/.netlify/functions/channels", s.handleChannels)

	s.mux.HandleFunc("GET /api/changes", s.handleChanges)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the server wrapped in its CORS and logging middleware.
func (s *Server) Handler() http.Handler {
	return withCORS(s.withLogging(s))
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Error("server shutdown")
		}
	}()

	s.log.WithField("addr", addr).Info("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.catalog.Ping(ctx); err != nil {
		requestLogger(r, s.log).WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: service.Message(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListChannels(w, r)
	case http.MethodPost:
		s.handleMutateChannels(w, r)
	default:
		s.writeErr(w, r, service.ErrMethodNotAllowed)
	}
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleMutateChannels(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErr(w, r, &service.Error{Kind: service.KindInvalidPayload, Msg: "request body too large"})
			return
		}
		s.writeErr(w, r, &service.Error{Kind: service.KindInvalidPayload, Msg: "invalid JSON", Err: err})
		return
	}

	req, err := service.ParseRequest(body)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.catalog.Apply(r.Context(), req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if s.rds == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "change history not configured"})
		return
	}

	limit := int64(defaultChanges)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid limit: %s", v)})
			return
		}
		limit = n
	}
	if limit <= 0 {
		limit = defaultChanges
	}
	if limit > maxChanges {
		limit = maxChanges
	}

	events, err := notify.Recent(r.Context(), s.rds, limit)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if events == nil {
		events = []notify.ChangeEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// --- helpers ---

// errorBody is the envelope for every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("writeJSON")
	}
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	status := kind.Status()
	if status >= 500 {
		class, code := store.Classify(err)
		requestLogger(r, s.log).WithFields(log.Fields{
			"status": status,
			"class":  class,
			"code":   code,
			"err":    err,
		}).Error("request failed")
	}
	writeJSON(w, status, errorBody{Error: service.Message(err)})
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>ChannelVault API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: "/api/docs/openapi.yaml", dom_id: "#swagger-ui" });
  </script>
</body>
</html>`
