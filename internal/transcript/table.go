package transcript

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vovakirdan/p2pchat/internal/client"
	"github.com/vovakirdan/p2pchat/internal/proto"
)

// RenderDirectory prints the public rooms as a table, sorted by room id.
func RenderDirectory(w io.Writer, rooms []proto.RoomInfo) {
	if len(rooms) == 0 {
		fmt.Fprintln(w, "no public rooms")
		return
	}
	sorted := append([]proto.RoomInfo{}, rooms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Room", "Members"})
	for _, r := range sorted {
		t.AppendRow(table.Row{r.ID, r.Count})
	}
	t.Render()
}

// RenderPeers prints the members of the current room and their link state.
func RenderPeers(w io.Writer, peers []client.PeerStatus) {
	if len(peers) == 0 {
		fmt.Fprintln(w, "nobody else is here")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Peer", "UID", "Link", "Queued"})
	for _, p := range peers {
		link := "negotiating"
		if p.Connected {
			link = "connected"
		}
		t.AppendRow(table.Row{p.DisplayName(), p.UID, link, p.Queued})
	}
	t.Render()
}
