package peerlink

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// DefaultLabel names the chat data channel.
const DefaultLabel = "chat"

var (
	ErrNotConnected = errors.New("peerlink: data channel not open")
	ErrClosed       = errors.New("peerlink: link closed")
	ErrBacklog      = errors.New("peerlink: too many unprocessed signals")
)

// Handler receives link events. It is called from pion's goroutines.
type Handler interface {
	OnSignal(payload json.RawMessage)
	OnConnect()
	OnData(data []byte)
	OnClose()
	OnError(err error)
}

// Config holds the options shared by every link a Factory creates.
type Config struct {
	STUNServers []string
	Label       string
	Logger      *zerolog.Logger
}

// Factory creates WebRTC links sharing one pion API.
type Factory struct {
	api   *webrtc.API
	rtc   webrtc.Configuration
	label string
	log   *zerolog.Logger
}

// NewFactory builds a factory.
func NewFactory(cfg Config) *Factory {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	label := cfg.Label
	if label == "" {
		label = DefaultLabel
	}

	se := webrtc.SettingEngine{LoggerFactory: zerologFactory{log: logger}}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))

	var rtc webrtc.Configuration
	if len(cfg.STUNServers) > 0 {
		rtc.ICEServers = []webrtc.ICEServer{{URLs: cfg.STUNServers}}
	}

	return &Factory{api: api, rtc: rtc, label: label, log: logger}
}

// signalMessage is the negotiation payload carried opaquely by the server.
// Descriptions are sent complete with candidates; a separate candidate is
// accepted from peers that trickle.
type signalMessage struct {
	Type      string                   `json:"type,omitempty"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// Link is one WebRTC peer connection carrying a single data channel.
type Link struct {
	remote    string
	initiator bool
	label     string
	pc        *webrtc.PeerConnection
	handler   Handler
	log       zerolog.Logger

	inbound chan json.RawMessage
	closed  chan struct{}

	mu        sync.Mutex
	dc        *webrtc.DataChannel
	open      bool
	closeOnce sync.Once
	doneOnce  sync.Once
}

// New opens a link toward remoteUID. The initiator creates the data channel
// and emits the offer through h.OnSignal.
func (f *Factory) New(remoteUID string, initiator bool, h Handler) (*Link, error) {
	pc, err := f.api.NewPeerConnection(f.rtc)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	l := &Link{
		remote:    remoteUID,
		initiator: initiator,
		label:     f.label,
		pc:        pc,
		handler:   h,
		log:       f.log.With().Str("peer", remoteUID).Logger(),
		inbound:   make(chan json.RawMessage, 32),
		closed:    make(chan struct{}),
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		l.log.Debug().Str("state", state.String()).Msg("peer connection state")
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			l.finish()
		}
	})

	if initiator {
		dc, err := pc.CreateDataChannel(f.label, nil)
		if err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("create data channel: %w", err)
		}
		l.attach(dc)
		go l.offer()
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() != l.label {
				l.log.Debug().Str("label", dc.Label()).Msg("unexpected data channel ignored")
				return
			}
			l.attach(dc)
		})
	}

	go l.processSignals()
	return l, nil
}

// Signal queues a remote payload. Payloads are applied in arrival order.
func (l *Link) Signal(payload json.RawMessage) error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	select {
	case l.inbound <- payload:
		return nil
	case <-l.closed:
		return ErrClosed
	default:
		return ErrBacklog
	}
}

// Send writes one text message on the data channel.
func (l *Link) Send(data []byte) error {
	l.mu.Lock()
	dc, open := l.dc, l.open
	l.mu.Unlock()
	if !open || dc == nil {
		return ErrNotConnected
	}
	return dc.SendText(string(data))
}

// Close tears the peer connection down. It is safe to call more than once.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.pc.Close()
	})
	return err
}

func (l *Link) attach(dc *webrtc.DataChannel) {
	l.mu.Lock()
	l.dc = dc
	l.mu.Unlock()

	dc.OnOpen(func() {
		l.mu.Lock()
		l.open = true
		l.mu.Unlock()
		l.handler.OnConnect()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		l.handler.OnData(msg.Data)
	})
	dc.OnClose(func() {
		l.finish()
	})
}

// finish reports the end of the link once.
func (l *Link) finish() {
	l.doneOnce.Do(func() {
		l.mu.Lock()
		l.open = false
		l.mu.Unlock()
		l.handler.OnClose()
	})
}

func (l *Link) offer() {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		l.handler.OnError(fmt.Errorf("create offer: %w", err))
		return
	}
	if err := l.setLocal(offer); err != nil {
		l.handler.OnError(err)
	}
}

// setLocal applies desc and emits it once candidate gathering is complete.
func (l *Link) setLocal(desc webrtc.SessionDescription) error {
	gathered := webrtc.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("set local %s: %w", desc.Type, err)
	}
	select {
	case <-gathered:
	case <-l.closed:
		return nil
	}

	local := l.pc.LocalDescription()
	if local == nil {
		return fmt.Errorf("missing local %s", desc.Type)
	}
	payload, err := json.Marshal(signalMessage{Type: local.Type.String(), SDP: local.SDP})
	if err != nil {
		return err
	}
	l.handler.OnSignal(payload)
	return nil
}

func (l *Link) processSignals() {
	for {
		select {
		case payload := <-l.inbound:
			if err := l.apply(payload); err != nil {
				l.handler.OnError(err)
			}
		case <-l.closed:
			return
		}
	}
}

func (l *Link) apply(payload json.RawMessage) error {
	var msg signalMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode signal: %w", err)
	}

	switch {
	case msg.Candidate != nil:
		return l.pc.AddICECandidate(*msg.Candidate)
	case msg.Type == webrtc.SDPTypeOffer.String():
		if l.initiator {
			return errors.New("offer received by initiator")
		}
		if err := l.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.SDP}); err != nil {
			return fmt.Errorf("set remote offer: %w", err)
		}
		answer, err := l.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		return l.setLocal(answer)
	case msg.Type == webrtc.SDPTypeAnswer.String():
		if err := l.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: msg.SDP}); err != nil {
			return fmt.Errorf("set remote answer: %w", err)
		}
		return nil
	default:
		l.log.Debug().Str("type", msg.Type).Msg("unsupported signal ignored")
		return nil
	}
}
