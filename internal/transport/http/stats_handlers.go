package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/zerochat/zerochat-server/internal/core"
)

// RoomHandlers provides HTTP handlers for room observability endpoints.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// RoomResponse represents a live room in API responses.
type RoomResponse struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListRooms returns every room with at least one member and its size.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	stats, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to snapshot rooms")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	rooms := make([]RoomResponse, 0, len(stats))
	for _, st := range stats {
		rooms = append(rooms, RoomResponse{Name: st.Name, Members: st.Members})
	}
	c.JSON(stdhttp.StatusOK, rooms)
}
