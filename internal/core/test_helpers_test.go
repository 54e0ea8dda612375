package core

import (
	"context"
	"testing"
	"time"
)

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(opts, nil)
	go hub.Run(ctx)
	return hub
}

func newRegisteredClient(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id, 64)
	hub.RegisterClient(c)
	return c
}

func joinCmd(uid, nickname, room string, public bool) *Command {
	return &Command{Kind: CommandJoinRoom, UID: uid, Nickname: nickname, Room: room, IsPublic: public}
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustRoster waits for a roster event with exactly n peers.
func mustRoster(t *testing.T, c *Client, n int) []Peer {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev := mustEvent(t, c.Events, EventRoomPeers)
		if len(ev.Peers) == n {
			return ev.Peers
		}
	}
	t.Fatalf("expected roster of %d peers for %s", n, c.ID)
	return nil
}

// eventually polls cond until it holds.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func roomExists(t *testing.T, hub *Hub, id string) bool {
	t.Helper()

	_, ok, err := hub.Lookup(context.Background(), id)
	if err != nil {
		t.Fatalf("lookup %s: %v", id, err)
	}
	return ok
}

func hasPeer(peers []Peer, uid string) bool {
	for _, p := range peers {
		if p.UID == uid {
			return true
		}
	}
	return false
}
