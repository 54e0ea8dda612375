package proto

import (
	"encoding/json"
	"testing"
)

func TestDecodePeerFrame(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		nickname bool
		want     string
	}{
		{name: "nickname frame", data: EncodeNickname("alice"), nickname: true, want: "alice"},
		{name: "plain text", data: EncodeChat("hello there"), want: "hello there"},
		{name: "json without nickname type", data: []byte(`{"type":"other","nickname":"x"}`), want: `{"type":"other","nickname":"x"}`},
		{name: "broken json", data: []byte(`{not json`), want: `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := DecodePeerFrame(tt.data)
			if frame.IsNickname != tt.nickname {
				t.Fatalf("IsNickname = %v, want %v", frame.IsNickname, tt.nickname)
			}
			got := frame.Text
			if tt.nickname {
				got = frame.Nickname
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInboundLegacySignalKey(t *testing.T) {
	var in Inbound
	if err := json.Unmarshal([]byte(`{"type":"signal","to":"b","from":"a","signal":{"sdp":"x"}}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(in.SignalPayload()) != `{"sdp":"x"}` {
		t.Fatalf("unexpected payload: %s", in.SignalPayload())
	}

	in = Inbound{Payload: json.RawMessage(`1`), Signal: json.RawMessage(`2`)}
	if string(in.SignalPayload()) != "1" {
		t.Fatalf("payload key should win, got %s", in.SignalPayload())
	}
}

func TestPublicRoomsEncodesEmptyList(t *testing.T) {
	data, err := json.Marshal(PublicRooms{Type: OutboundTypePublicRooms, Rooms: []RoomInfo{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"type":"publicRooms","rooms":[]}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}
