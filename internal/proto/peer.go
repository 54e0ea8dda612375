package proto

import (
	"encoding/json"
	"strings"
)

// PeerFrameNickname is the only enveloped data-channel frame; anything
// else on the channel is chat text.
const PeerFrameNickname = "nickname"

// NicknameFrame announces the sender's nickname over a direct link.
type NicknameFrame struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
}

// PeerFrame is a decoded data-channel message.
type PeerFrame struct {
	Nickname   string
	IsNickname bool
	Text       string
}

// EncodeNickname builds the nickname frame.
func EncodeNickname(nickname string) []byte {
	data, _ := json.Marshal(NicknameFrame{Type: PeerFrameNickname, Nickname: nickname})
	return data
}

// EncodeChat builds a chat frame. Chat travels as raw text.
func EncodeChat(text string) []byte {
	return []byte(text)
}

// DecodePeerFrame classifies a data-channel message.
func DecodePeerFrame(data []byte) PeerFrame {
	text := string(data)
	if !strings.HasPrefix(strings.TrimSpace(text), "{") {
		return PeerFrame{Text: text}
	}
	var frame NicknameFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type != PeerFrameNickname {
		return PeerFrame{Text: text}
	}
	return PeerFrame{Nickname: frame.Nickname, IsNickname: true}
}
