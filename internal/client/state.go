package client

import (
	"errors"

	"github.com/vovakirdan/p2pchat/internal/proto"
)

// Validation and lifecycle errors returned synchronously by Session methods.
var (
	ErrEmptyNickname = errors.New("nickname is required")
	ErrEmptyRoomID   = errors.New("room id is required")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrNotInRoom     = errors.New("not in a room")
	ErrClosed        = errors.New("session closed")
)

// State is the session's position in its connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	// StateConnected means the signaling transport is open and no room is joined.
	StateConnected
	// StateInRoom is entered once the join has been sent.
	StateInRoom
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateInRoom:
		return "in_room"
	default:
		return "unknown"
	}
}

// SignalStrategy picks how a signal from an unknown uid is handled.
type SignalStrategy string

const (
	// SignalEager creates a non-initiator link on the first signal.
	SignalEager SignalStrategy = "eager"
	// SignalQueue holds signals until a roster names the sender.
	SignalQueue SignalStrategy = "queue"
)

// EventKind classifies what a Session reports to its UI.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventChat
	EventSystem
	EventDirectory
	EventPeerConnected
	EventPeerLeft
	EventNickname
	EventJoinRejected
)

// Event is a UI notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind     EventKind
	State    State
	From     string
	Nickname string
	Text     string
	Code     string
	Local    bool
	Rooms    []proto.RoomInfo
}

// PeerStatus describes one remote member as the session sees it.
type PeerStatus struct {
	UID       string
	Nickname  string
	Initiator bool
	Connected bool
	Confirmed bool
	Queued    int
}

// DisplayName is the nickname once exchanged, the uid before that.
func (p PeerStatus) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.UID
}

// Snapshot is a read-only copy of session state.
type Snapshot struct {
	UID               string
	Nickname          string
	State             State
	RoomID            string
	CanSend           bool
	Peers             []PeerStatus
	PendingSignals    int
	Directory         []proto.RoomInfo
	DirectoryReceived bool
}
