package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/dictation"
	"github.com/voxtype/voxtype/internal/storage/sqlite"
	"github.com/voxtype/voxtype/internal/websocket"
	"github.com/voxtype/voxtype/pkg/logger"
)

// Router wires the HTTP API, the WebSocket endpoint and the static
// dashboard onto a single chi mux.
type Router struct {
	handler  *Handler
	config   *config.Config
	logger   *logger.Logger
	wsServer *websocket.Server
}

// NewRouter creates a new API router
func NewRouter(controller *dictation.Controller, sessionStorage *sqlite.SessionStorage, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Router {
	return &Router{
		handler:  NewHandler(controller, sessionStorage, cfg, log, wsServer),
		config:   cfg,
		logger:   log.Named("api-router"),
		wsServer: wsServer,
	}
}

// Routes returns the configured mux.
func (rt *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", rt.handler.GetStatus)
		r.Get("/sessions", rt.handler.GetSessions)
		r.Get("/stats", rt.handler.GetStats)
	})

	r.Get("/ws", rt.wsServer.HandleConnection)

	if rt.config.Server.StaticFilesDir != "" {
		staticHandler := NewStaticFileHandler(rt.config.Server.StaticFilesDir, rt.logger)
		r.Handle("/*", staticHandler)
		rt.logger.Info("Serving static dashboard",
			logger.String("dir", rt.config.Server.StaticFilesDir))
	}

	return r
}
