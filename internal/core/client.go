package core

// Client is one signaling connection as seen by the core layer.
// UID and Name are owned by the hub loop once the client is registered.
type Client struct {
	ID       string
	UID      string
	Name     string
	Commands chan *Command
	Events   chan *Event
	done     chan struct{}
}

// NewClient constructs a client with initialized channels. buffer bounds the
// number of undelivered events before the hub starts dropping them.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 8
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, buffer),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has unregistered the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// deliver enqueues an event without blocking the hub loop.
func (c *Client) deliver(event *Event) bool {
	select {
	case c.Events <- event:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}
