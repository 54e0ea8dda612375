package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/p2pchat/internal/proto"
)

// RoomHandlers serves the read-only room directory over HTTP.
type RoomHandlers struct {
	hub Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomsResponse is the public directory.
type RoomsResponse struct {
	Rooms []proto.RoomInfo `json:"rooms"`
}

// RoomResponse describes one public room.
type RoomResponse struct {
	ID        string       `json:"id"`
	Count     int          `json:"count"`
	Permanent bool         `json:"permanent"`
	Peers     []proto.Peer `json:"peers"`
}

// ListPublicRooms returns the same directory the websocket pushes.
// GET /api/rooms
func (h *RoomHandlers) ListPublicRooms(c *gin.Context) {
	rooms, err := h.hub.PublicRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read room directory")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "directory unavailable"})
		return
	}
	c.JSON(http.StatusOK, RoomsResponse{Rooms: roomsToProto(rooms)})
}

// GetRoom returns a public room with its roster. Private rooms are
// indistinguishable from missing ones.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	id := c.Param("id")
	snap, found, err := h.hub.Lookup(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("room", id).Msg("failed to look up room")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "directory unavailable"})
		return
	}
	if !found || !snap.Public {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	c.JSON(http.StatusOK, RoomResponse{
		ID:        snap.ID,
		Count:     len(snap.Peers),
		Permanent: snap.Permanent,
		Peers:     peersToProto(snap.Peers),
	})
}
