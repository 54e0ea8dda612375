package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/vovakirdan/p2pchat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	nick := flag.String("nick", "tester", "nickname to join with")
	room := flag.String("room", "Public", "room id")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	uid := uuid.NewString()
	frames := []proto.Inbound{
		{Type: proto.InboundTypeJoin, UID: uid, Nickname: *nick, RoomID: *room, IsPublic: true},
		{Type: proto.InboundTypeListRooms},
	}
	for _, frame := range frames {
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			return fmt.Errorf("send %s: %w", frame.Type, err)
		}
	}

	var sawRoster, sawDirectory bool
	for !sawRoster || !sawDirectory {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch out.Type {
		case proto.OutboundTypeRoomPeers:
			sawRoster = true
			fmt.Printf("roster room=%s peers=%d\n", out.RoomID, len(out.Peers))
			for _, p := range out.Peers {
				fmt.Printf("  %s (%s)\n", p.Nickname, p.UID)
			}
		case proto.OutboundTypePublicRooms:
			sawDirectory = true
			fmt.Printf("directory rooms=%d\n", len(out.Rooms))
			for _, r := range out.Rooms {
				fmt.Printf("  %s: %d\n", r.ID, r.Count)
			}
		case proto.OutboundTypeError:
			return fmt.Errorf("server error %s: %s", out.Code, out.Message)
		default:
			raw, _ := json.Marshal(out)
			fmt.Printf("other frame: %s\n", raw)
		}
	}

	return wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeLeave, UID: uid, RoomID: *room})
}
