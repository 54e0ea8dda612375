package proto

import "encoding/json"

const (
	InboundTypeJoin      = "join"
	InboundTypeHost      = "host"
	InboundTypeLeave     = "leave"
	InboundTypeSignal    = "signal"
	InboundTypeListRooms = "listRooms"
	InboundTypeChat      = "chat"

	OutboundTypeRoomPeers   = "roomPeers"
	OutboundTypePublicRooms = "publicRooms"
	OutboundTypeSignal      = "signal"
	OutboundTypeChat        = "chat"
	OutboundTypeError       = "error"
)

// Inbound is a frame sent by a client to the signaling server.
// All message kinds share one flat object distinguished by Type.
type Inbound struct {
	Type     string          `json:"type"`
	UID      string          `json:"uid,omitempty"`
	Nickname string          `json:"nickname,omitempty"`
	RoomID   string          `json:"roomId,omitempty"`
	IsPublic bool            `json:"isPublic,omitempty"`
	From     string          `json:"from,omitempty"`
	To       string          `json:"to,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Text     string          `json:"text,omitempty"`

	// Signal is the payload key used by older browser clients.
	Signal json.RawMessage `json:"signal,omitempty"`
}

// SignalPayload returns the opaque negotiation payload, preferring the
// payload key over the legacy signal key.
func (in Inbound) SignalPayload() json.RawMessage {
	if len(in.Payload) > 0 {
		return in.Payload
	}
	return in.Signal
}

// Peer is one roster entry.
type Peer struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
}

// RoomInfo is one entry of the public room directory.
type RoomInfo struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// RoomPeers carries the current roster of the recipient's room.
// RoomID is an addition older clients ignore; it lets a client discard a
// roster for a room it has already left.
type RoomPeers struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Peers  []Peer `json:"peers"`
}

// PublicRooms carries the public room directory.
type PublicRooms struct {
	Type  string     `json:"type"`
	Rooms []RoomInfo `json:"rooms"`
}

// Signal is a relayed negotiation payload. The payload is repeated under
// the legacy signal key for older browser clients.
type Signal struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
	Signal  json.RawMessage `json:"signal,omitempty"`
}

// Chat is a server-relayed chat line.
type Chat struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	Nickname string `json:"nickname,omitempty"`
	Text     string `json:"text"`
}

// Error describes a rejected request.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outbound is the union of every server frame, used by clients to decode
// whatever arrives before switching on Type.
type Outbound struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId,omitempty"`
	Peers    []Peer          `json:"peers,omitempty"`
	Rooms    []RoomInfo      `json:"rooms,omitempty"`
	From     string          `json:"from,omitempty"`
	Nickname string          `json:"nickname,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Text     string          `json:"text,omitempty"`
	Code     string          `json:"code,omitempty"`
	Message  string          `json:"message,omitempty"`

	Signal json.RawMessage `json:"signal,omitempty"`
}

// SignalPayload mirrors Inbound.SignalPayload for relayed signals.
func (out Outbound) SignalPayload() json.RawMessage {
	if len(out.Payload) > 0 {
		return out.Payload
	}
	return out.Signal
}
