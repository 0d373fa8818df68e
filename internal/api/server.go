// Package api exposes the draft pipeline over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/example/draft-agent/internal/archive"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/metrics"
	"github.com/example/draft-agent/internal/orchestrator"
)

const (
	maxBodyBytes     = 1 << 20
	archiveTimeout   = 5 * time.Second
	defaultKeepAlive = 15 * time.Second
)

// Deps are the collaborators of the HTTP surface. Archive and Metrics are
// optional. KeepAlive is the comment-frame interval on live streams; zero
// means the default and a negative value disables it.
type Deps struct {
	Runner         *orchestrator.Runner
	Sessions       *orchestrator.Sessions
	Archive        archive.Store
	Metrics        *metrics.Metrics
	Logger         *logging.Logger
	AllowedOrigins []string
	KeepAlive      time.Duration
}

type Server struct {
	runner    *orchestrator.Runner
	sessions  *orchestrator.Sessions
	archive   archive.Store
	metrics   *metrics.Metrics
	log       *logging.Logger
	origins   []string
	pingEvery time.Duration
	now       func() time.Time
	newID     func() string
}

func New(d Deps) *Server {
	s := &Server{
		runner:    d.Runner,
		sessions:  d.Sessions,
		archive:   d.Archive,
		metrics:   d.Metrics,
		log:       d.Logger,
		origins:   d.AllowedOrigins,
		pingEvery: d.KeepAlive,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	if s.pingEvery == 0 {
		s.pingEvery = defaultKeepAlive
	}
	if s.sessions == nil {
		s.sessions = orchestrator.NewSessions()
	}
	if s.log == nil {
		s.log = logging.NewNop()
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.origins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/ai", func(r chi.Router) {
		r.Post("/draft", s.handleDraft)
		r.Delete("/sessions/{sessionID}", s.handleCancelSession)
		r.Get("/runs/{runID}", s.handleGetRun)
	})
	return r
}

func requestLogger(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request", map[string]interface{}{
					"method":               r.Method,
					"path":                 r.URL.Path,
					"status":               ww.Status(),
					logging.FieldDuration:  time.Since(start).Milliseconds(),
					logging.FieldRequestID: middleware.GetReqID(r.Context()),
				})
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// cors answers preflight requests and tags responses for allowed origins.
// A "*" entry allows any origin.
func cors(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, allowed) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-Session-ID, X-Request-Id")
				h.Set("Access-Control-Expose-Headers", "X-Run-ID")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
