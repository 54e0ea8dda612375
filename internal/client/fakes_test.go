package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/p2pchat/internal/proto"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames []proto.Inbound
	closed bool
}

func (t *fakeTransport) Send(frame proto.Inbound) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	t.frames = append(t.frames, frame)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) sent(frameType string) []proto.Inbound {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []proto.Inbound
	for _, f := range t.frames {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

type fakeDialer struct {
	mu        sync.Mutex
	gate      chan struct{}
	err       error
	sink      FrameSink
	transport *fakeTransport
}

func (d *fakeDialer) Dial(ctx context.Context, _ string, sink FrameSink) (Transport, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
	d.transport = &fakeTransport{}
	return d.transport, nil
}

// push delivers a server frame as the transport's reader would.
func (d *fakeDialer) push(frame proto.Outbound) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()
	sink.HandleFrame(frame)
}

func (d *fakeDialer) conn() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transport
}

type fakeLink struct {
	mu        sync.Mutex
	uid       string
	initiator bool
	handler   LinkHandler
	signals   []string
	data      []string
	closed    bool
	sendErr   error
}

func (l *fakeLink) Signal(payload json.RawMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signals = append(l.signals, string(payload))
	return nil
}

func (l *fakeLink) Send(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sendErr != nil {
		return l.sendErr
	}
	l.data = append(l.data, string(data))
	return nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

func (l *fakeLink) snapshot() (signals, data []string, closed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.signals...), append([]string(nil), l.data...), l.closed
}

type fakeLinks struct {
	mu    sync.Mutex
	links []*fakeLink
}

func (f *fakeLinks) factory(remoteUID string, initiator bool, h LinkHandler) (PeerLink, error) {
	if remoteUID == "broken" {
		return nil, errors.New("no link for you")
	}
	l := &fakeLink{uid: remoteUID, initiator: initiator, handler: h}
	f.mu.Lock()
	f.links = append(f.links, l)
	f.mu.Unlock()
	return l, nil
}

func (f *fakeLinks) forUID(uid string) []*fakeLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeLink
	for _, l := range f.links {
		if l.uid == uid {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeLinks) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links)
}

// testClock is a settable clock shared between the test and the session loop.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	t       *testing.T
	session *Session
	dialer  *fakeDialer
	links   *fakeLinks
	clock   *testClock
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		dialer: &fakeDialer{},
		links:  &fakeLinks{},
		clock:  &testClock{now: time.Unix(1000, 0)},
	}
	opts := Options{
		ServerURL:      "ws://signal.test/ws",
		Dialer:         h.dialer,
		Links:          h.links.factory,
		UID:            "mmm",
		JoinRetryDelay: 10 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.now = h.clock.Now
	h.session = s

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.done
	})
	return h
}

func (h *harness) snapshot() Snapshot {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := h.session.Snapshot(ctx)
	if err != nil {
		h.t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func (h *harness) eventually(cond func(Snapshot) bool, msg string) Snapshot {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := h.snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out: %s (state %+v)", msg, snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// connect dials and waits for the open transport.
func (h *harness) connect() {
	h.t.Helper()
	if err := h.session.Connect(context.Background()); err != nil {
		h.t.Fatalf("connect: %v", err)
	}
	h.eventually(func(s Snapshot) bool { return s.State == StateConnected }, "connected")
}

// joined connects and joins room as "mallory".
func (h *harness) joined(room string) {
	h.t.Helper()
	h.connect()
	if err := h.session.JoinRoom(room, "mallory", false); err != nil {
		h.t.Fatalf("join: %v", err)
	}
	h.eventually(func(s Snapshot) bool { return s.State == StateInRoom }, "in room")
}

func (h *harness) roster(room string, uids ...string) {
	h.t.Helper()
	peers := make([]proto.Peer, 0, len(uids))
	for _, uid := range uids {
		peers = append(peers, proto.Peer{UID: uid, Nickname: "nick-" + uid})
	}
	h.dialer.push(proto.Outbound{Type: proto.OutboundTypeRoomPeers, RoomID: room, Peers: peers})
	h.settle()
}

func (h *harness) signal(from, payload string) {
	h.t.Helper()
	h.dialer.push(proto.Outbound{Type: proto.OutboundTypeSignal, From: from, Payload: json.RawMessage(payload)})
	h.settle()
}

// settle waits until the loop has handled everything posted so far.
// The ops queue is FIFO, so a snapshot round trip is enough.
func (h *harness) settle() {
	h.t.Helper()
	h.snapshot()
}

func (h *harness) onlyLink(uid string) *fakeLink {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		links := h.links.forUID(uid)
		if len(links) == 1 {
			return links[0]
		}
		if len(links) > 1 || time.Now().After(deadline) {
			h.t.Fatalf("expected exactly one link to %s, got %d", uid, len(links))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// drainEvents collects events already emitted without blocking.
func (h *harness) drainEvents() []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-h.session.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
