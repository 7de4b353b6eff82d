// Package http bridges WebSocket connections and REST endpoints to the relay core.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/zerochat/zerochat-server/internal/config"
	"github.com/zerochat/zerochat-server/internal/core"
	"github.com/zerochat/zerochat-server/internal/metrics"
)

// NewServer builds the HTTP server: health, metrics, room stats, and the
// WebSocket endpoint.
func NewServer(hub *core.Hub, m *metrics.Metrics, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware())

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	roomHandlers := NewRoomHandlers(hub, logger)
	router.GET("/api/rooms", roomHandlers.ListRooms)

	// The websocket handshake hijacks the connection, which gin's response
	// writer refuses, so /ws is served from a stdlib mux in front of the
	// engine.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
