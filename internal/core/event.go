package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomPeers delivers the full roster of the recipient's room.
	EventRoomPeers EventKind = iota
	// EventPublicRooms delivers the public room directory.
	EventPublicRooms
	// EventSignal delivers a relayed negotiation payload.
	EventSignal
	// EventChat delivers a server-relayed chat line.
	EventChat
	// EventError notifies clients about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRoomPeers:
		return "room_peers"
	case EventPublicRooms:
		return "public_rooms"
	case EventSignal:
		return "signal"
	case EventChat:
		return "chat"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    string
	Peers   []Peer
	Rooms   []RoomInfo
	From    string
	Payload json.RawMessage
	Message Message
	Error   *CoreError
}

// Peer is a roster entry.
type Peer struct {
	UID      string
	Nickname string
}

// RoomInfo is a directory entry.
type RoomInfo struct {
	ID    string
	Count int
}
