package core

// Message is a chat line relayed through the server when the chat relay
// policy is enabled. Peer-to-peer chat never reaches the core.
type Message struct {
	From     string
	Nickname string
	Text     string
}
