package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// JoinPolicy decides what happens when a join names a room that does not exist.
type JoinPolicy string

const (
	// JoinPolicyPermissive creates any unknown room on join.
	JoinPolicyPermissive JoinPolicy = "permissive"
	// JoinPolicyStrict rejects plain joins to unknown private rooms.
	// Hosting and public joins still create the room.
	JoinPolicyStrict JoinPolicy = "strict"
)

// Options tune hub behaviour.
type Options struct {
	// ResyncInterval re-emits every roster and the directory. Zero disables it.
	ResyncInterval time.Duration
	JoinPolicy     JoinPolicy
	// PermanentRooms are created public at startup and never deleted.
	PermanentRooms []string
	AllowChatRelay bool
}

// RoomSnapshot is a read-only copy of one room's state.
type RoomSnapshot struct {
	ID        string
	Public    bool
	Permanent bool
	Peers     []Peer
}

type envelope struct {
	client *Client
	cmd    *Command
}

// Hub owns all rooms and memberships. Every mutation runs on the goroutine
// executing Run, so membership changes never interleave.
type Hub struct {
	opts Options
	log  *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	inbox      chan envelope
	queries    chan func()
	stopped    chan struct{}

	clients  map[*Client]struct{}
	rooms    map[string]*Room
	memberOf map[string]string
}

// NewHub creates a hub with its permanent rooms in place.
func NewHub(opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.JoinPolicy == "" {
		opts.JoinPolicy = JoinPolicyPermissive
	}

	h := &Hub{
		opts:       opts,
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan envelope, 64),
		queries:    make(chan func()),
		stopped:    make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]*Room),
		memberOf:   make(map[string]string),
	}
	for _, id := range opts.PermanentRooms {
		if id == "" {
			continue
		}
		h.rooms[id] = NewRoom(id, true, true)
	}
	return h
}

// Run processes registrations, commands, queries and the resync ticker
// until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	var resync <-chan time.Time
	if h.opts.ResyncInterval > 0 {
		ticker := time.NewTicker(h.opts.ResyncInterval)
		defer ticker.Stop()
		resync = ticker.C
	}

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			go h.pump(ctx, c)
			h.log.Debug().Str("client_id", c.ID).Msg("client registered")
		case c := <-h.unregister:
			h.removeClient(c)
		case env := <-h.inbox:
			h.handle(env.client, env.cmd)
		case query := <-h.queries:
			query()
		case <-resync:
			h.resync()
		case <-ctx.Done():
			for c := range h.clients {
				h.closeClient(c)
			}
			return
		}
	}
}

// RegisterClient makes the hub aware of a new connection.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

// UnregisterClient tears the connection down, leaving whatever room its uid was in.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// PublicRooms returns the current directory.
func (h *Hub) PublicRooms(ctx context.Context) ([]RoomInfo, error) {
	var rooms []RoomInfo
	err := h.query(ctx, func() {
		rooms = Directory(h.rooms)
	})
	return rooms, err
}

// Lookup returns a snapshot of the room, if it exists.
func (h *Hub) Lookup(ctx context.Context, id string) (RoomSnapshot, bool, error) {
	var (
		snap  RoomSnapshot
		found bool
	)
	err := h.query(ctx, func() {
		room, ok := h.rooms[id]
		if !ok {
			return
		}
		found = true
		snap = RoomSnapshot{
			ID:        room.ID,
			Public:    room.Public,
			Permanent: room.Permanent,
			Peers:     room.Roster(),
		}
	})
	return snap, found, err
}

// MemberRoom reports which room uid currently belongs to.
func (h *Hub) MemberRoom(ctx context.Context, uid string) (string, bool, error) {
	var (
		room  string
		found bool
	)
	err := h.query(ctx, func() {
		room, found = h.memberOf[uid]
	})
	return room, found, err
}

func (h *Hub) query(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return ErrHubStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pump forwards one client's commands into the hub inbox, preserving their order.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(c *Client, cmd *Command) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.join(c, cmd)
	case CommandLeaveRoom:
		h.leaveCommand(c, cmd)
	case CommandSignal:
		h.relay(c, cmd)
	case CommandListRooms:
		c.deliver(h.directoryEvent())
	case CommandChat:
		h.relayChat(c, cmd)
	default:
		h.log.Warn().Str("client_id", c.ID).Int("kind", int(cmd.Kind)).Msg("unknown command")
	}
}

func (h *Hub) join(c *Client, cmd *Command) {
	if cmd.UID == "" || cmd.Room == "" {
		c.deliver(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "uid and roomId are required")})
		return
	}

	room, exists := h.rooms[cmd.Room]
	if !exists && h.opts.JoinPolicy == JoinPolicyStrict && !cmd.IsPublic && !cmd.Create {
		h.log.Info().Str("uid", cmd.UID).Str("room", cmd.Room).Msg("join rejected: unknown private room")
		// A refused switch still vacates the previous room.
		if c.UID != "" {
			h.leave(c.UID, c)
		}
		c.deliver(&Event{Kind: EventError, Room: cmd.Room, Error: coreError(ErrCodeRoomNotFound, "room "+cmd.Room+" does not exist")})
		return
	}

	// The connection switched identity: its old uid goes away.
	if c.UID != "" && c.UID != cmd.UID {
		h.leave(c.UID, c)
	}

	if prev, ok := h.memberOf[cmd.UID]; ok {
		if m, found := h.rooms[prev].Member(cmd.UID); found && m.Client != c {
			// Same uid on a new connection: the old one no longer speaks for it.
			m.Client.UID = ""
		}
		if prev != cmd.Room {
			h.leave(cmd.UID, nil)
		}
	}

	if !exists {
		room = NewRoom(cmd.Room, cmd.IsPublic, false)
		h.rooms[room.ID] = room
		h.log.Info().Str("room", room.ID).Bool("public", room.Public).Msg("room created")
	} else if cmd.IsPublic != room.Public {
		h.log.Debug().Str("room", room.ID).Bool("requested_public", cmd.IsPublic).Msg("visibility fixed by creator, ignoring")
	}

	room.Upsert(&Member{UID: cmd.UID, Nickname: cmd.Nickname, Client: c})
	h.memberOf[cmd.UID] = room.ID
	c.UID = cmd.UID
	c.Name = cmd.Nickname

	h.log.Info().Str("uid", cmd.UID).Str("room", room.ID).Int("members", room.Len()).Msg("joined room")

	h.broadcastRoster(room)
	h.broadcastDirectory()
}

func (h *Hub) leaveCommand(c *Client, cmd *Command) {
	if c.UID == "" {
		h.log.Debug().Str("client_id", c.ID).Msg("leave from unbound connection")
		return
	}
	if cmd.UID != "" && cmd.UID != c.UID {
		h.log.Warn().Str("client_id", c.ID).Str("uid", cmd.UID).Str("bound_uid", c.UID).Msg("leave for foreign uid ignored")
		return
	}
	h.leave(c.UID, c)
}

// leave removes uid from its room. With a non-nil owner the removal only
// happens if that connection still owns the membership.
func (h *Hub) leave(uid string, owner *Client) bool {
	roomID, ok := h.memberOf[uid]
	if !ok {
		return false
	}
	room := h.rooms[roomID]
	m, ok := room.Member(uid)
	if !ok {
		delete(h.memberOf, uid)
		return false
	}
	if owner != nil && m.Client != owner {
		return false
	}

	room.Remove(uid)
	delete(h.memberOf, uid)
	h.log.Info().Str("uid", uid).Str("room", roomID).Int("members", room.Len()).Msg("left room")

	if room.Empty() && !room.Permanent {
		delete(h.rooms, roomID)
		h.log.Info().Str("room", roomID).Msg("room deleted")
	} else {
		h.broadcastRoster(room)
	}
	h.broadcastDirectory()
	return true
}

// roomOf resolves the room whose membership is owned by c.
func (h *Hub) roomOf(c *Client) (*Room, *Member, bool) {
	if c.UID == "" {
		return nil, nil, false
	}
	roomID, ok := h.memberOf[c.UID]
	if !ok {
		return nil, nil, false
	}
	room := h.rooms[roomID]
	m, ok := room.Member(c.UID)
	if !ok || m.Client != c {
		return nil, nil, false
	}
	return room, m, true
}

func (h *Hub) relay(c *Client, cmd *Command) {
	room, _, ok := h.roomOf(c)
	if !ok {
		h.log.Debug().Str("client_id", c.ID).Str("to", cmd.To).Msg("signal from connection outside any room dropped")
		return
	}
	target, ok := room.Member(cmd.To)
	if !ok {
		h.log.Debug().Str("from", c.UID).Str("to", cmd.To).Str("room", room.ID).Msg("signal target not in room, dropped")
		return
	}
	if !target.Client.deliver(&Event{Kind: EventSignal, Room: room.ID, From: c.UID, Payload: cmd.Payload}) {
		h.log.Debug().Str("from", c.UID).Str("to", cmd.To).Msg("signal target not writable, dropped")
	}
}

func (h *Hub) relayChat(c *Client, cmd *Command) {
	if !h.opts.AllowChatRelay {
		h.log.Debug().Str("client_id", c.ID).Msg("chat relay disabled, dropped")
		return
	}
	room, sender, ok := h.roomOf(c)
	if !ok {
		return
	}
	target, ok := room.Member(cmd.To)
	if !ok {
		return
	}
	target.Client.deliver(&Event{
		Kind: EventChat,
		Room: room.ID,
		From: c.UID,
		Message: Message{
			From:     c.UID,
			Nickname: sender.Nickname,
			Text:     cmd.Text,
		},
	})
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	if c.UID != "" {
		h.leave(c.UID, c)
	}
	h.closeClient(c)
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) closeClient(c *Client) {
	delete(h.clients, c)
	close(c.done)
	close(c.Events)
}

func (h *Hub) broadcastRoster(room *Room) {
	room.Broadcast(&Event{Kind: EventRoomPeers, Room: room.ID, Peers: room.Roster()})
}

func (h *Hub) directoryEvent() *Event {
	return &Event{Kind: EventPublicRooms, Rooms: Directory(h.rooms)}
}

func (h *Hub) broadcastDirectory() {
	event := h.directoryEvent()
	for c := range h.clients {
		c.deliver(event)
	}
}

// resync recomputes and re-sends every roster and the directory.
func (h *Hub) resync() {
	for _, room := range h.rooms {
		if !room.Empty() {
			h.broadcastRoster(room)
		}
	}
	h.broadcastDirectory()
}
