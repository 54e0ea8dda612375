package client

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/p2pchat/internal/proto"
)

const maxPendingSignals = 64

// Options configure a Session.
type Options struct {
	ServerURL string
	Dialer    Dialer
	Links     LinkFactory
	// UID identifies this endpoint. A random one is generated when empty.
	UID string

	JoinRetryDelay    time.Duration
	ListRoomsInterval time.Duration
	// UnconfirmedGrace protects links created from an early signal against
	// rosters that do not list the sender yet.
	UnconfirmedGrace time.Duration
	SignalStrategy   SignalStrategy
	// ChatRelay sends chat for not yet connected peers through the server
	// instead of holding it until the direct link is up.
	ChatRelay   bool
	PublicRoom  string
	EventBuffer int
	Logger      *zerolog.Logger
}

// Session is one chat endpoint: a signaling connection, at most one room and
// a direct link per remote member. All state is owned by the goroutine
// executing Run; every other method posts work onto it.
type Session struct {
	opts Options
	log  *zerolog.Logger
	uid  string
	now  func() time.Time

	ops    chan func()
	events chan Event
	done   chan struct{}

	state             State
	transport         Transport
	connGen           int
	roomID            string
	nickname          string
	isPublic          bool
	host              bool
	joinPending       bool
	joinSeq           int
	peers             map[string]*peerEntry
	pending           map[string][]json.RawMessage
	directory         []proto.RoomInfo
	directoryReceived bool
	stopping          bool
}

// New validates opts and builds an idle session. Call Run to start it.
func New(opts Options) (*Session, error) {
	if opts.Dialer == nil {
		return nil, errors.New("client: dialer is required")
	}
	if opts.Links == nil {
		return nil, errors.New("client: link factory is required")
	}
	if opts.UID == "" {
		opts.UID = uuid.NewString()
	}
	if opts.JoinRetryDelay <= 0 {
		opts.JoinRetryDelay = 100 * time.Millisecond
	}
	if opts.UnconfirmedGrace <= 0 {
		opts.UnconfirmedGrace = 5 * time.Second
	}
	switch opts.SignalStrategy {
	case SignalEager, SignalQueue:
	case "":
		opts.SignalStrategy = SignalEager
	default:
		return nil, errors.New("client: unknown signal strategy " + string(opts.SignalStrategy))
	}
	if opts.PublicRoom == "" {
		opts.PublicRoom = "Public"
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}

	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	sessionLog := logger.With().Str("uid", opts.UID).Logger()

	return &Session{
		opts:    opts,
		log:     &sessionLog,
		uid:     opts.UID,
		now:     time.Now,
		ops:     make(chan func(), 256),
		events:  make(chan Event, opts.EventBuffer),
		done:    make(chan struct{}),
		peers:   make(map[string]*peerEntry),
		pending: make(map[string][]json.RawMessage),
	}, nil
}

// UID returns the session's endpoint id.
func (s *Session) UID() string {
	return s.uid
}

// Events streams UI notifications. The channel is closed when Run returns.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Run executes the session loop until ctx is cancelled or Close is called.
// Leaving the loop sends a best-effort leave and closes every link.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	var poll <-chan time.Time
	if s.opts.ListRoomsInterval > 0 {
		ticker := time.NewTicker(s.opts.ListRoomsInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case op := <-s.ops:
			op()
			if s.stopping {
				s.shutdown()
				return nil
			}
		case <-poll:
			s.pollRooms()
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		}
	}
}

// Connect starts dialing the signaling server and returns without waiting
// for the connection. It is a no-op unless the session is disconnected.
func (s *Session) Connect(ctx context.Context) error {
	return s.call(func() {
		if s.state != StateDisconnected {
			return
		}
		s.connGen++
		gen := s.connGen
		s.setState(StateConnecting)
		go s.dial(ctx, gen)
	})
}

// JoinRoom asks to enter roomID. Input is validated here and never sent when
// invalid. Until the transport is open the join is retried on a fixed delay.
func (s *Session) JoinRoom(roomID, nickname string, isPublic bool) error {
	roomID = strings.TrimSpace(roomID)
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return ErrEmptyNickname
	}
	if roomID == "" {
		return ErrEmptyRoomID
	}
	return s.call(func() {
		s.requestJoin(roomID, nickname, isPublic, false)
	})
}

// HostRoom creates roomID, generating an id when it is empty, and joins it.
func (s *Session) HostRoom(roomID, nickname string, isPublic bool) (string, error) {
	roomID = strings.TrimSpace(roomID)
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "", ErrEmptyNickname
	}
	if roomID == "" {
		roomID = strings.SplitN(uuid.NewString(), "-", 2)[0]
	}
	err := s.call(func() {
		s.requestJoin(roomID, nickname, isPublic, true)
	})
	return roomID, err
}

// JoinPublic enters the shared public room.
func (s *Session) JoinPublic(nickname string) error {
	return s.JoinRoom(s.opts.PublicRoom, nickname, true)
}

// SendChat echoes text locally and sends it to every member of the room.
// Members whose link is still negotiating get it once they connect.
func (s *Session) SendChat(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	var err error
	callErr := s.call(func() {
		if s.state != StateInRoom {
			err = ErrNotInRoom
			return
		}
		s.sendChat(text)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// LeaveRoom closes every link, tells the server and asks for a fresh directory.
func (s *Session) LeaveRoom() error {
	return s.call(func() {
		if s.state != StateInRoom && !s.joinPending {
			return
		}
		wasIn := s.state == StateInRoom
		s.cancelJoin()
		s.teardownPeers()
		if wasIn {
			s.send(proto.Inbound{Type: proto.InboundTypeLeave, UID: s.uid})
			s.log.Info().Str("room", s.roomID).Msg("left room")
		}
		s.roomID = ""
		if s.transport != nil {
			s.setState(StateConnected)
			s.send(proto.Inbound{Type: proto.InboundTypeListRooms})
		}
	})
}

// Close leaves the room without waiting for the server, closes the
// transport and stops Run.
func (s *Session) Close() error {
	err := s.call(func() {
		s.stopping = true
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	<-s.done
	return nil
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	done := make(chan struct{})
	if !s.post(func() {
		snap = s.snapshot()
		close(done)
	}) {
		return Snapshot{}, ErrClosed
	}
	select {
	case <-done:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		select {
		case <-done:
			return snap, nil
		default:
			return Snapshot{}, ErrClosed
		}
	}
}

// post queues fn onto the loop. It reports false once the loop has exited.
func (s *Session) post(fn func()) bool {
	select {
	case s.ops <- fn:
		return true
	case <-s.done:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (s *Session) call(fn func()) error {
	done := make(chan struct{})
	if !s.post(func() {
		fn()
		close(done)
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-s.done:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (s *Session) dial(ctx context.Context, gen int) {
	t, err := s.opts.Dialer.Dial(ctx, s.opts.ServerURL, sessionSink{s: s, gen: gen})
	if !s.post(func() { s.onDialed(gen, t, err) }) && t != nil {
		_ = t.Close()
	}
}

func (s *Session) onDialed(gen int, t Transport, err error) {
	if gen != s.connGen || s.state != StateConnecting {
		if t != nil {
			_ = t.Close()
		}
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("url", s.opts.ServerURL).Msg("signaling dial failed")
		s.setState(StateDisconnected)
		s.system("could not reach signaling server: " + err.Error())
		return
	}

	s.transport = t
	s.setState(StateConnected)
	s.log.Info().Str("url", s.opts.ServerURL).Msg("signaling connected")
	s.send(proto.Inbound{Type: proto.InboundTypeListRooms})
	if s.joinPending {
		s.attemptJoin(s.joinSeq)
	}
}

func (s *Session) onTransportClosed(gen int, err error) {
	if gen != s.connGen {
		return
	}
	s.connGen++
	s.transport = nil
	if s.state == StateInRoom {
		s.teardownPeers()
		s.roomID = ""
	}
	s.setState(StateDisconnected)
	if err != nil {
		s.log.Warn().Err(err).Msg("signaling connection lost")
		s.system("disconnected from signaling server")
	}
}

func (s *Session) requestJoin(roomID, nickname string, isPublic, host bool) {
	if s.state == StateInRoom {
		// The server moves the uid on join; only local links need to go.
		s.teardownPeers()
		s.setState(StateConnected)
	}
	s.roomID = roomID
	s.nickname = nickname
	s.isPublic = isPublic
	s.host = host
	s.joinPending = true
	s.joinSeq++
	s.attemptJoin(s.joinSeq)
}

func (s *Session) attemptJoin(seq int) {
	if seq != s.joinSeq || !s.joinPending {
		return
	}
	if s.transport == nil || s.state != StateConnected {
		s.scheduleJoinRetry(seq)
		return
	}

	frameType := proto.InboundTypeJoin
	if s.host {
		frameType = proto.InboundTypeHost
	}
	err := s.transport.Send(proto.Inbound{
		Type:     frameType,
		UID:      s.uid,
		Nickname: s.nickname,
		RoomID:   s.roomID,
		IsPublic: s.isPublic,
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("join not sent, retrying")
		s.scheduleJoinRetry(seq)
		return
	}

	s.joinPending = false
	s.setState(StateInRoom)
	s.log.Info().Str("room", s.roomID).Bool("public", s.isPublic).Bool("host", s.host).Msg("join sent")
}

func (s *Session) scheduleJoinRetry(seq int) {
	time.AfterFunc(s.opts.JoinRetryDelay, func() {
		s.post(func() { s.attemptJoin(seq) })
	})
}

func (s *Session) cancelJoin() {
	s.joinPending = false
	s.joinSeq++
}

func (s *Session) onFrame(gen int, frame proto.Outbound) {
	if gen != s.connGen {
		return
	}
	switch frame.Type {
	case proto.OutboundTypeRoomPeers:
		s.onRoster(frame)
	case proto.OutboundTypePublicRooms:
		s.directory = append([]proto.RoomInfo{}, frame.Rooms...)
		s.directoryReceived = true
		s.emit(Event{Kind: EventDirectory, Rooms: s.directory})
	case proto.OutboundTypeSignal:
		s.onSignal(frame.From, frame.SignalPayload())
	case proto.OutboundTypeChat:
		s.onRelayedChat(frame)
	case proto.OutboundTypeError:
		s.onServerError(frame)
	default:
		s.log.Debug().Str("type", frame.Type).Msg("unknown server frame ignored")
	}
}

// onRosterUpdate reconciles links against the server's member list. It is a
// set difference and may run any number of times with the same roster.
func (s *Session) onRoster(frame proto.Outbound) {
	if s.state != StateInRoom {
		s.log.Debug().Msg("roster outside a room ignored")
		return
	}
	if frame.RoomID != "" && frame.RoomID != s.roomID {
		s.log.Debug().Str("room", frame.RoomID).Msg("roster for another room ignored")
		return
	}

	desired := make(map[string]struct{}, len(frame.Peers))
	for _, p := range frame.Peers {
		if p.UID != "" && p.UID != s.uid {
			desired[p.UID] = struct{}{}
		}
	}

	now := s.now()
	for uid, e := range s.peers {
		if _, ok := desired[uid]; ok {
			continue
		}
		if !e.confirmed && now.Sub(e.createdAt) < s.opts.UnconfirmedGrace {
			continue
		}
		s.removePeer(e)
		s.emit(Event{Kind: EventPeerLeft, From: uid, Nickname: e.displayName()})
	}

	for _, p := range frame.Peers {
		if _, ok := desired[p.UID]; !ok {
			continue
		}
		if e, ok := s.peers[p.UID]; ok {
			e.confirmed = true
			continue
		}
		s.addPeer(p.UID, isInitiator(s.uid, p.UID), true)
	}
}

func (s *Session) onSignal(from string, payload json.RawMessage) {
	if from == "" || len(payload) == 0 {
		return
	}
	if s.state != StateInRoom {
		s.log.Debug().Str("from", from).Msg("signal outside a room dropped")
		return
	}
	if e, ok := s.peers[from]; ok {
		s.feed(e, payload)
		return
	}

	if s.opts.SignalStrategy == SignalQueue {
		q := s.pending[from]
		if len(q) >= maxPendingSignals {
			s.log.Warn().Str("from", from).Msg("pending signal queue full, dropping oldest")
			q = q[1:]
		}
		s.pending[from] = append(q, payload)
		return
	}

	if e := s.addPeer(from, false, false); e != nil {
		s.feed(e, payload)
	}
}

func (s *Session) onRelayedChat(frame proto.Outbound) {
	if s.state != StateInRoom {
		return
	}
	nickname := frame.Nickname
	if e, ok := s.peers[frame.From]; ok && e.nickname != "" {
		nickname = e.nickname
	}
	if nickname == "" {
		nickname = frame.From
	}
	s.emit(Event{Kind: EventChat, From: frame.From, Nickname: nickname, Text: frame.Text})
}

// onServerError treats any error frame while a join is outstanding as its
// rejection: the join is not retried.
func (s *Session) onServerError(frame proto.Outbound) {
	s.log.Warn().Str("code", frame.Code).Str("message", frame.Message).Msg("server error")
	if s.state != StateInRoom && !s.joinPending {
		s.system("server: " + frame.Message)
		return
	}

	rejected := s.roomID
	s.cancelJoin()
	s.teardownPeers()
	s.roomID = ""
	if s.transport != nil {
		s.setState(StateConnected)
	}
	s.emit(Event{Kind: EventJoinRejected, Code: frame.Code, Text: frame.Message, From: rejected})
}

func (s *Session) addPeer(uid string, initiator, confirmed bool) *peerEntry {
	e := &peerEntry{
		uid:       uid,
		initiator: initiator,
		confirmed: confirmed,
		createdAt: s.now(),
	}
	link, err := s.opts.Links(uid, initiator, linkHandler{s: s, entry: e})
	if err != nil {
		s.log.Error().Err(err).Str("peer", uid).Msg("create peer link")
		s.system("could not open a link to " + uid)
		return nil
	}
	e.link = link
	s.peers[uid] = e
	s.log.Debug().Str("peer", uid).Bool("initiator", initiator).Bool("confirmed", confirmed).Msg("peer link created")

	if queued := s.pending[uid]; len(queued) > 0 {
		delete(s.pending, uid)
		for _, payload := range queued {
			s.feed(e, payload)
		}
	}
	return e
}

// removePeer detaches e before closing its link, so callbacks already in
// flight find nothing to act on.
func (s *Session) removePeer(e *peerEntry) {
	e.detached = true
	delete(s.peers, e.uid)
	if e.link != nil {
		if err := e.link.Close(); err != nil {
			s.log.Debug().Err(err).Str("peer", e.uid).Msg("close peer link")
		}
	}
}

func (s *Session) teardownPeers() {
	for _, e := range s.peers {
		e.detached = true
	}
	entries := s.peers
	s.peers = make(map[string]*peerEntry)
	s.pending = make(map[string][]json.RawMessage)
	for _, e := range entries {
		s.removePeer(e)
	}
}

func (s *Session) live(e *peerEntry) bool {
	return !e.detached && s.peers[e.uid] == e
}

func (s *Session) feed(e *peerEntry, payload json.RawMessage) {
	if err := e.link.Signal(payload); err != nil {
		s.log.Warn().Err(err).Str("peer", e.uid).Msg("peer link rejected signal")
	}
}

func (s *Session) onLinkSignal(e *peerEntry, payload json.RawMessage) {
	if !s.send(proto.Inbound{Type: proto.InboundTypeSignal, From: s.uid, To: e.uid, Payload: payload}) {
		s.log.Warn().Str("peer", e.uid).Msg("signal not sent, no signaling connection")
	}
}

func (s *Session) onLinkConnect(e *peerEntry) {
	e.connected = true
	if err := e.link.Send(proto.EncodeNickname(s.nickname)); err != nil {
		s.log.Warn().Err(err).Str("peer", e.uid).Msg("send nickname")
	}
	for _, data := range e.outbox {
		if err := e.link.Send(data); err != nil {
			s.log.Warn().Err(err).Str("peer", e.uid).Msg("flush queued chat")
		}
	}
	e.outbox = nil
	s.log.Info().Str("peer", e.uid).Msg("peer connected")
	s.emit(Event{Kind: EventPeerConnected, From: e.uid, Nickname: e.displayName()})
}

func (s *Session) onLinkData(e *peerEntry, data []byte) {
	frame := proto.DecodePeerFrame(data)
	if frame.IsNickname {
		e.nickname = frame.Nickname
		s.emit(Event{Kind: EventNickname, From: e.uid, Nickname: frame.Nickname})
		return
	}
	s.emit(Event{Kind: EventChat, From: e.uid, Nickname: e.displayName(), Text: frame.Text})
}

func (s *Session) onLinkClose(e *peerEntry) {
	s.removePeer(e)
	s.log.Info().Str("peer", e.uid).Msg("peer link closed")
	s.emit(Event{Kind: EventPeerLeft, From: e.uid, Nickname: e.displayName()})
}

func (s *Session) sendChat(text string) {
	s.emit(Event{Kind: EventChat, From: s.uid, Nickname: s.nickname, Text: text, Local: true})

	data := proto.EncodeChat(text)
	for _, e := range s.sortedPeers() {
		switch {
		case e.connected:
			if err := e.link.Send(data); err != nil {
				s.log.Warn().Err(err).Str("peer", e.uid).Msg("send chat")
			}
		case s.opts.ChatRelay:
			s.send(proto.Inbound{Type: proto.InboundTypeChat, From: s.uid, To: e.uid, Text: text})
		default:
			if len(e.outbox) >= maxOutbox {
				s.log.Warn().Str("peer", e.uid).Msg("chat outbox full, dropping oldest")
				e.outbox = e.outbox[1:]
			}
			e.outbox = append(e.outbox, data)
		}
	}
}

func (s *Session) pollRooms() {
	if s.transport != nil {
		s.send(proto.Inbound{Type: proto.InboundTypeListRooms})
	}
}

func (s *Session) send(frame proto.Inbound) bool {
	if s.transport == nil {
		return false
	}
	if err := s.transport.Send(frame); err != nil {
		s.log.Debug().Err(err).Str("type", frame.Type).Msg("frame not sent")
		return false
	}
	return true
}

func (s *Session) shutdown() {
	s.cancelJoin()
	if s.state == StateInRoom {
		s.send(proto.Inbound{Type: proto.InboundTypeLeave, UID: s.uid})
	}
	s.teardownPeers()
	s.roomID = ""
	s.connGen++
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close transport")
		}
		s.transport = nil
	}
	s.setState(StateDisconnected)
	close(s.events)
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", state).Msg("state changed")
	s.state = state
	s.emit(Event{Kind: EventStateChanged, State: state})
}

func (s *Session) system(text string) {
	s.emit(Event{Kind: EventSystem, Text: text})
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn().Int("kind", int(ev.Kind)).Msg("ui event dropped, consumer too slow")
	}
}

func (s *Session) sortedPeers() []*peerEntry {
	out := make([]*peerEntry, 0, len(s.peers))
	for _, e := range s.peers {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].uid < out[j].uid })
	return out
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		UID:               s.uid,
		Nickname:          s.nickname,
		State:             s.state,
		RoomID:            s.roomID,
		CanSend:           s.state == StateInRoom,
		Directory:         append([]proto.RoomInfo{}, s.directory...),
		DirectoryReceived: s.directoryReceived,
	}
	for _, e := range s.sortedPeers() {
		snap.Peers = append(snap.Peers, e.status())
	}
	for _, q := range s.pending {
		snap.PendingSignals += len(q)
	}
	return snap
}
