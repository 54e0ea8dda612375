package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/p2pchat/internal/proto"
)

var (
	ErrTransportClosed = errors.New("transport closed")
	ErrTransportBusy   = errors.New("transport send buffer full")
)

// WSDialer opens signaling transports over WebSocket.
type WSDialer struct {
	// Buffer bounds frames waiting to be written.
	Buffer       int
	WriteTimeout time.Duration
	// DrainTimeout bounds how long Close waits for queued frames, such as a
	// final leave, to reach the server.
	DrainTimeout time.Duration
	ReadLimit    int64
	Logger       *zerolog.Logger
}

// Dial connects to url and starts the read and write loops.
func (d *WSDialer) Dial(ctx context.Context, url string, sink FrameSink) (Transport, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	buffer := d.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	readLimit := d.ReadLimit
	if readLimit <= 0 {
		readLimit = 1 << 20
	}
	conn.SetReadLimit(readLimit)

	logger := d.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t := &wsTransport{
		conn:         conn,
		ctx:          loopCtx,
		cancel:       cancel,
		out:          make(chan []byte, buffer),
		closing:      make(chan struct{}),
		writerDone:   make(chan struct{}),
		writeTimeout: d.WriteTimeout,
		drainTimeout: d.DrainTimeout,
		log:          logger,
	}
	if t.writeTimeout <= 0 {
		t.writeTimeout = 5 * time.Second
	}
	if t.drainTimeout <= 0 {
		t.drainTimeout = time.Second
	}

	go t.readLoop(sink)
	go t.writeLoop()
	return t, nil
}

type wsTransport struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	out        chan []byte
	closing    chan struct{}
	closeOnce  sync.Once
	writerDone chan struct{}

	writeTimeout time.Duration
	drainTimeout time.Duration
	log          *zerolog.Logger
}

func (t *wsTransport) Send(frame proto.Inbound) error {
	select {
	case <-t.closing:
		return ErrTransportClosed
	case <-t.ctx.Done():
		return ErrTransportClosed
	default:
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case t.out <- data:
		return nil
	default:
		return ErrTransportBusy
	}
}

// Close flushes queued frames for up to the drain timeout, then closes the socket.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closing) })
	select {
	case <-t.writerDone:
	case <-time.After(t.drainTimeout):
	}
	t.cancel()
	return nil
}

func (t *wsTransport) readLoop(sink FrameSink) {
	defer t.cancel()
	for {
		_, data, err := t.conn.Read(t.ctx)
		if err != nil {
			select {
			case <-t.closing:
				sink.HandleClose(nil)
			default:
				sink.HandleClose(err)
			}
			return
		}

		var frame proto.Outbound
		if err := json.Unmarshal(data, &frame); err != nil {
			t.log.Debug().Err(err).Msg("malformed server frame dropped")
			continue
		}
		sink.HandleFrame(frame)
	}
}

func (t *wsTransport) writeLoop() {
	defer close(t.writerDone)
	for {
		select {
		case data := <-t.out:
			if err := t.write(data); err != nil {
				t.log.Debug().Err(err).Msg("signaling write failed")
				t.cancel()
				return
			}
		case <-t.closing:
			for {
				select {
				case data := <-t.out:
					if err := t.write(data); err != nil {
						t.cancel()
						return
					}
				default:
					_ = t.conn.Close(websocket.StatusNormalClosure, "bye")
					return
				}
			}
		case <-t.ctx.Done():
			_ = t.conn.CloseNow()
			return
		}
	}
}

func (t *wsTransport) write(data []byte) error {
	ctx, cancel := context.WithTimeout(t.ctx, t.writeTimeout)
	defer cancel()
	return t.conn.Write(ctx, websocket.MessageText, data)
}
