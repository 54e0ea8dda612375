package client

import (
	"context"

	"github.com/vovakirdan/p2pchat/internal/proto"
)

// Transport is an open connection to the signaling server.
// Send must not block; frames are delivered in the order they were sent.
type Transport interface {
	Send(frame proto.Inbound) error
	Close() error
}

// FrameSink receives whatever the server pushes. HandleClose is called once,
// with a nil error when the close was requested locally.
type FrameSink interface {
	HandleFrame(frame proto.Outbound)
	HandleClose(err error)
}

// Dialer opens a Transport to url that reports into sink.
type Dialer interface {
	Dial(ctx context.Context, url string, sink FrameSink) (Transport, error)
}

// sessionSink tags frames with the connection generation they arrived on,
// so frames from a replaced transport are ignored.
type sessionSink struct {
	s   *Session
	gen int
}

func (k sessionSink) HandleFrame(frame proto.Outbound) {
	k.s.post(func() { k.s.onFrame(k.gen, frame) })
}

func (k sessionSink) HandleClose(err error) {
	k.s.post(func() { k.s.onTransportClosed(k.gen, err) })
}
