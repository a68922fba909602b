package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/secmon-lab/taskrelay/pkg/usecase"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

type Server struct {
	router         *chi.Mux
	uc             *usecase.UseCases
	allowedOrigins []string
	legacyRoutes   bool
}

type Options func(*Server)

// WithAllowedOrigins enables CORS for the given origins
func WithAllowedOrigins(origins ...string) Options {
	return func(s *Server) {
		s.allowedOrigins = append(s.allowedOrigins, origins...)
	}
}

// WithLegacyRoutes mounts the query-string endpoints used by the existing web
// front end (/new, /start, /update, /delete, /all).
func WithLegacyRoutes(enabled bool) Options {
	return func(s *Server) {
		s.legacyRoutes = enabled
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:       r,
		uc:           uc,
		legacyRoutes: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.createTask)
			r.Get("/", s.listTasks)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getTask)
				r.Patch("/", s.updateTask)
				r.Delete("/", s.deleteTask)
				r.Post("/start", s.startTask)
				r.Post("/complete", s.completeTask)
			})
		})
		r.Post("/dispatch", s.dispatch)
	})

	if s.legacyRoutes {
		r.Post("/new", s.legacyNew)
		r.Post("/start", s.legacyStart)
		r.Post("/update", s.legacyUpdate)
		r.Delete("/delete", s.legacyDelete)
		r.Get("/all", s.legacyAll)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger logs every request and puts a request-scoped logger in the
// context so that downstream logs carry the request ID.
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.From(r.Context()).With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.With(r.Context(), logger))

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
