package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/p2pchat/internal/config"
	"github.com/vovakirdan/p2pchat/internal/core"
)

// Hub is the part of the signaling core the transport talks to.
type Hub interface {
	RegisterClient(c *core.Client)
	UnregisterClient(c *core.Client)
	PublicRooms(ctx context.Context) ([]core.RoomInfo, error)
	Lookup(ctx context.Context, id string) (core.RoomSnapshot, bool, error)
}

// NewServer builds an HTTP server with basic routes.
func NewServer(hub Hub, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts the websocket endpoint next to the gin router.
// The upgrade needs the raw ResponseWriter, so /ws stays off gin.
func NewHandler(hub Hub, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, WSOptions{
		MaxMessageBytes: cfg.MaxMessageBytes,
		WriteTimeout:    cfg.WriteTimeout,
		ClientBuffer:    cfg.ClientBuffer,
		AllowedOrigins:  cfg.AllowedOrigins,
		FramesPerMinute: cfg.FramesPerMinute,
	}, logger))
	mux.Handle("/", NewRouter(hub, cfg, logger))
	return mux
}

// NewRouter registers health and directory routes.
func NewRouter(hub Hub, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", healthHandler)

	rooms := NewRoomHandlers(hub, logger)
	api := router.Group("/api")
	api.GET("/rooms", rooms.ListPublicRooms)
	api.GET("/rooms/:id", rooms.GetRoom)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
