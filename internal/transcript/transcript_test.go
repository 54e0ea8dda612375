package transcript

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/p2pchat/internal/client"
	"github.com/vovakirdan/p2pchat/internal/proto"
)

func TestConsoleRender(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsole(&buf)
	console.now = func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) }

	console.Render(client.Event{Kind: client.EventChat, Nickname: "bob", Text: "hi there"})
	console.Render(client.Event{Kind: client.EventPeerConnected, Nickname: "bob"})
	console.Render(client.Event{Kind: client.EventJoinRejected, From: "ghost", Text: "room ghost does not exist"})
	console.Render(client.Event{Kind: client.EventDirectory})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	for i, want := range []string{"bob: hi there", "bob connected", "could not join ghost"} {
		if !strings.Contains(lines[i], want) || !strings.Contains(lines[i], "09:30") {
			t.Fatalf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
}

func TestRenderDirectory(t *testing.T) {
	var buf bytes.Buffer
	RenderDirectory(&buf, []proto.RoomInfo{{ID: "zoo", Count: 1}, {ID: "Public", Count: 4}})

	out := buf.String()
	pub := strings.Index(out, "Public")
	zoo := strings.Index(out, "zoo")
	if pub < 0 || zoo < 0 || pub > zoo {
		t.Fatalf("rooms missing or unsorted:\n%s", out)
	}

	buf.Reset()
	RenderDirectory(&buf, nil)
	if !strings.Contains(buf.String(), "no public rooms") {
		t.Fatalf("unexpected empty output %q", buf.String())
	}
}

func TestRenderPeers(t *testing.T) {
	var buf bytes.Buffer
	RenderPeers(&buf, []client.PeerStatus{
		{UID: "bbb", Nickname: "bob", Connected: true},
		{UID: "ccc", Queued: 2},
	})
	out := buf.String()
	for _, want := range []string{"bob", "connected", "ccc", "negotiating"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
