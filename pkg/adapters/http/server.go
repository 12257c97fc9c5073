// Package http exposes the playground as a JSON API with server-sent session
// updates.
package http

import (
	_ "embed"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/scorebridge"
	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var rawSpec []byte

// maxBodyBytes bounds request bodies; graphs are pasted Turtle, not uploads.
const maxBodyBytes = 8 << 20

// Server routes API calls to a Playground.
type Server struct {
	pg       *scorebridge.Playground
	streams  *StreamManager
	validate *validator.Validate
	logger   *slog.Logger
	origins  []string
	gatherer prometheus.Gatherer

	router      chi.Router
	unsubscribe func()

	specOnce   sync.Once
	apiVersion string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORSOrigins restricts the allowed browser origins. Defaults to any origin.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithMetrics serves g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer builds the router and subscribes to playground snapshots.
// Call Close to stop streaming.
func NewServer(pg *scorebridge.Playground, opts ...Option) *Server {
	s := &Server{
		pg:       pg,
		streams:  NewStreamManager(),
		validate: newValidator(),
		logger:   logging.NewNop(),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams.logger = s.logger
	s.unsubscribe = pg.Subscribe(s.streams.BroadcastSnapshot)
	s.router = s.routes()
	return s
}

// NewHandler is NewServer for callers that never close the stream.
func NewHandler(pg *scorebridge.Playground, opts ...Option) http.Handler {
	return NewServer(pg, opts...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close detaches the server from the playground.
func (s *Server) Close() {
	s.unsubscribe()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/runtime", func(r chi.Router) {
		r.Get("/", s.getRuntime)
		r.Post("/init", s.initRuntime)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/evaluate", s.evaluate)
			r.Get("/events", s.subscribeEvents)
			r.Post("/steps/next", s.nextStep)
			r.Post("/steps/previous", s.previousStep)
			r.Put("/steps/current", s.seekStep)
			r.Post("/clear", s.clear)
		})
	})

	r.Route("/saves", func(r chi.Router) {
		r.Get("/", s.listSaves)
		r.Post("/", s.createSave)
		r.Get("/{id}", s.getSave)
		r.Put("/{id}", s.updateSave)
		r.Delete("/{id}", s.deleteSave)
	})

	r.Route("/examples", func(r chi.Router) {
		r.Get("/", s.listExamples)
		r.Get("/{id}", s.getExample)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Spec parses and validates the embedded OpenAPI document.
func Spec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Server) specVersion() string {
	s.specOnce.Do(func() {
		s.apiVersion = "unknown"
		doc, err := Spec()
		if err != nil {
			s.logger.Error("failed to load OpenAPI spec", "err", err)
			return
		}
		if doc.Info != nil {
			s.apiVersion = doc.Info.Version
		}
	})
	return s.apiVersion
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Scorebridge API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`
