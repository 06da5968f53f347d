// Package api serves the synced dashboard files and the run log over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"dashsync/internal/config"
	"dashsync/ports"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// DataFile is one CSV object exposed under /api/data/:name.
type DataFile struct {
	Key      string
	MaxAge   int
	NotFound string
}

const (
	dataMaxAge       = 300
	agentNicheMaxAge = 3600
	syncLogMaxAge    = 60
)

// Routes maps API names to stored objects: every dataset, its priority
// variant as "<name>-priority", and the hand-maintained agent/niche file.
func Routes(datasets []config.Dataset) map[string]DataFile {
	routes := map[string]DataFile{
		"agent-niche": {Key: config.AgentNicheKey, MaxAge: agentNicheMaxAge, NotFound: "Agent/Niche data not found"},
	}
	for _, ds := range datasets {
		if ds.Route == "" {
			continue
		}
		routes[ds.Route] = DataFile{Key: ds.Key, MaxAge: dataMaxAge, NotFound: "Data not found"}
		if ds.PriorityKey != "" {
			routes[ds.Route+"-priority"] = DataFile{Key: ds.PriorityKey, MaxAge: dataMaxAge, NotFound: "Data not found"}
		}
	}
	return routes
}

// Options configures the server.
type Options struct {
	Routes    map[string]DataFile
	LogKey    string
	TestToken string
	GinMode   string
}

// Server is the dashboard API.
type Server struct {
	store   ports.ObjectStore
	archive ports.RunArchive
	opts    Options
	engine  *gin.Engine
	logger  *zap.Logger
}

// NewServer builds the API. archive may be nil, in which case
// /api/sync-runs answers 404.
func NewServer(opts Options, store ports.ObjectStore, archive ports.RunArchive, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}

	s := &Server{
		store:   store,
		archive: archive,
		opts:    opts,
		engine:  gin.New(),
		logger:  logger,
	}
	s.engine.Use(gin.Recovery(), requestLogger(logger))
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api", RequireSession(s.opts.TestToken))
	api.GET("/data/:name", s.handleData)
	api.GET("/sync-log", s.handleSyncLog)
	api.GET("/sync-status", s.handleSyncStatus)
	api.GET("/sync-report", s.handleSyncReport)
	api.GET("/sync-runs", s.handleSyncRuns)
}

// Handler wraps the gin engine with the outer router: request IDs,
// compression and the unauthenticated health check.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5, "text/csv", "application/json", "text/html"))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Mount("/", s.engine)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting dashboard API", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down dashboard API")
		return srv.Shutdown(shutdownCtx)
	}
}
