package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/viewstodownloads/tiktok-connect/internal/api/handler"
	mw "github.com/viewstodownloads/tiktok-connect/internal/api/middleware"
	"github.com/viewstodownloads/tiktok-connect/internal/config"
	"github.com/viewstodownloads/tiktok-connect/internal/core"
)

//go:embed docs/swagger.json
var swaggerJSON []byte

// Pinger reports database reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	db             Pinger
	temporalClient temporalclient.Client
	cfg            *config.Config
}

// NewServer builds the router. temporalClient may be nil when publish jobs
// are watched in-process.
func NewServer(logger zerolog.Logger, db Pinger, services *core.Services, temporalClient temporalclient.Client, cfg *config.Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		db:             db,
		temporalClient: temporalClient,
		cfg:            cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
	if len(s.cfg.CORSOrigins) > 0 {
		s.router.Use(mw.CORS(s.cfg.CORSOrigins))
	}
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Get("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(swaggerJSON)
	})
	s.router.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(scalarHTML))
	})

	oauth := handler.NewOAuth(s.services.Connect, s.cfg.DevMode)
	s.router.Route("/api/auth/tiktok", func(r chi.Router) {
		r.Get("/oauth", oauth.Start)
		r.With(mw.OptionalSession(s.services.Session)).Get("/callback", oauth.Callback)
	})

	s.router.Route("/api/tiktok", func(r chi.Router) {
		r.Use(mw.RequireSession(s.services.Session))

		publish := handler.NewPublish(s.services.Publish, s.services.Status)
		r.Post("/publish", publish.Create)
		r.Get("/publish-status", publish.Status)
		r.Post("/publish-status", publish.Status)

		creatorInfo := handler.NewCreatorInfo(s.services.CreatorInfo)
		r.Post("/creator-info", creatorInfo.Get)

		account := handler.NewAccount(s.services.Accounts, s.services.Connect)
		r.Get("/accounts", account.List)
		r.Delete("/accounts/{id}", account.Delete)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if s.temporalClient != nil {
		if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
			checks["temporal"] = err.Error()
			healthy = false
		} else {
			checks["temporal"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

const scalarHTML = `<!DOCTYPE html>
<html>
<head>
  <title>TikTok Connect API</title>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
  <script id="api-reference" data-url="/docs/openapi.json"></script>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`
