package http

import (
	"github.com/vovakirdan/p2pchat/internal/core"
	"github.com/vovakirdan/p2pchat/internal/proto"
)

// inboundToCommand maps a decoded frame to a hub command. A nil command with a
// nil error means the frame kind is unknown and should be ignored.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin, proto.InboundTypeHost:
		if inbound.UID == "" || inbound.RoomID == "" {
			return nil, &proto.Error{Type: proto.OutboundTypeError, Code: core.ErrCodeBadRequest, Message: "uid and roomId are required"}
		}
		return &core.Command{
			Kind:     core.CommandJoinRoom,
			UID:      inbound.UID,
			Nickname: inbound.Nickname,
			Room:     inbound.RoomID,
			IsPublic: inbound.IsPublic,
			Create:   inbound.Type == proto.InboundTypeHost,
		}, nil
	case proto.InboundTypeLeave:
		return &core.Command{Kind: core.CommandLeaveRoom, UID: inbound.UID}, nil
	case proto.InboundTypeSignal:
		if inbound.To == "" {
			return nil, nil
		}
		return &core.Command{
			Kind:    core.CommandSignal,
			UID:     inbound.From,
			To:      inbound.To,
			Payload: inbound.SignalPayload(),
		}, nil
	case proto.InboundTypeListRooms:
		return &core.Command{Kind: core.CommandListRooms}, nil
	case proto.InboundTypeChat:
		if inbound.To == "" {
			return nil, nil
		}
		return &core.Command{
			Kind: core.CommandChat,
			UID:  inbound.From,
			To:   inbound.To,
			Text: inbound.Text,
		}, nil
	default:
		return nil, nil
	}
}

func outboundFromEvent(event *core.Event) any {
	switch event.Kind {
	case core.EventRoomPeers:
		return proto.RoomPeers{Type: proto.OutboundTypeRoomPeers, RoomID: event.Room, Peers: peersToProto(event.Peers)}
	case core.EventPublicRooms:
		return proto.PublicRooms{Type: proto.OutboundTypePublicRooms, Rooms: roomsToProto(event.Rooms)}
	case core.EventSignal:
		return proto.Signal{Type: proto.OutboundTypeSignal, From: event.From, Payload: event.Payload, Signal: event.Payload}
	case core.EventChat:
		return proto.Chat{
			Type:     proto.OutboundTypeChat,
			From:     event.Message.From,
			Nickname: event.Message.Nickname,
			Text:     event.Message.Text,
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Error{Type: proto.OutboundTypeError, Code: "unknown", Message: "unknown error"}
		}
		return proto.Error{Type: proto.OutboundTypeError, Code: event.Error.Code, Message: event.Error.Message}
	default:
		return nil
	}
}

func peersToProto(peers []core.Peer) []proto.Peer {
	out := make([]proto.Peer, 0, len(peers))
	for _, p := range peers {
		out = append(out, proto.Peer{UID: p.UID, Nickname: p.Nickname})
	}
	return out
}

func roomsToProto(rooms []core.RoomInfo) []proto.RoomInfo {
	out := make([]proto.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, proto.RoomInfo{ID: r.ID, Count: r.Count})
	}
	return out
}
