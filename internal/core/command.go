package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom moves the client's uid into a room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom removes the client's uid from its room.
	CommandLeaveRoom
	// CommandSignal relays an opaque payload to another member of the room.
	CommandSignal
	// CommandListRooms requests the public room directory.
	CommandListRooms
	// CommandChat relays a chat line to another member (relay policy only).
	CommandChat
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	UID      string
	Nickname string
	Room     string
	IsPublic bool
	// Create marks an explicit host intent; it only matters under the strict policy.
	Create  bool
	To      string
	Payload json.RawMessage
	Text    string
}
