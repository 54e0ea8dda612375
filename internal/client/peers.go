package client

import (
	"encoding/json"
	"time"
)

// PeerLink is a direct connection to one remote member.
type PeerLink interface {
	// Signal feeds a negotiation payload received from the remote side.
	Signal(payload json.RawMessage) error
	// Send writes one data-channel message. It fails until the link is connected.
	Send(data []byte) error
	Close() error
}

// LinkHandler receives a PeerLink's events. Implementations may call it from
// any goroutine.
type LinkHandler interface {
	OnSignal(payload json.RawMessage)
	OnConnect()
	OnData(data []byte)
	OnClose()
	OnError(err error)
}

// LinkFactory creates the link toward remoteUID.
type LinkFactory func(remoteUID string, initiator bool, h LinkHandler) (PeerLink, error)

// isInitiator reports whether self starts negotiation toward remote.
// Both ends compute it from the same two uids and reach opposite answers.
func isInitiator(self, remote string) bool {
	return self < remote
}

const maxOutbox = 256

type peerEntry struct {
	uid       string
	link      PeerLink
	nickname  string
	initiator bool
	connected bool
	// confirmed is false for entries created from a signal until a roster names the uid.
	confirmed bool
	createdAt time.Time
	detached  bool
	outbox    [][]byte
}

func (e *peerEntry) displayName() string {
	if e.nickname != "" {
		return e.nickname
	}
	return e.uid
}

func (e *peerEntry) status() PeerStatus {
	return PeerStatus{
		UID:       e.uid,
		Nickname:  e.nickname,
		Initiator: e.initiator,
		Connected: e.connected,
		Confirmed: e.confirmed,
		Queued:    len(e.outbox),
	}
}

// linkHandler routes one link's callbacks onto the session loop. Callbacks
// for an entry that was detached or replaced are dropped there.
type linkHandler struct {
	s     *Session
	entry *peerEntry
}

func (h linkHandler) OnSignal(payload json.RawMessage) {
	h.s.post(func() {
		if h.s.live(h.entry) {
			h.s.onLinkSignal(h.entry, payload)
		}
	})
}

func (h linkHandler) OnConnect() {
	h.s.post(func() {
		if h.s.live(h.entry) {
			h.s.onLinkConnect(h.entry)
		}
	})
}

func (h linkHandler) OnData(data []byte) {
	h.s.post(func() {
		if h.s.live(h.entry) {
			h.s.onLinkData(h.entry, data)
		}
	})
}

func (h linkHandler) OnClose() {
	h.s.post(func() {
		if h.s.live(h.entry) {
			h.s.onLinkClose(h.entry)
		}
	})
}

func (h linkHandler) OnError(err error) {
	h.s.post(func() {
		if h.s.live(h.entry) {
			h.s.log.Warn().Err(err).Str("peer", h.entry.uid).Msg("peer link error")
		}
	})
}
