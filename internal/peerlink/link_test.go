package peerlink

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type recorder struct {
	signals chan json.RawMessage
	connect chan struct{}
	data    chan []byte
	errs    chan error
	closed  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		signals: make(chan json.RawMessage, 8),
		connect: make(chan struct{}, 1),
		data:    make(chan []byte, 8),
		errs:    make(chan error, 8),
		closed:  make(chan struct{}, 1),
	}
}

func (r *recorder) OnSignal(payload json.RawMessage) { r.signals <- payload }
func (r *recorder) OnConnect()                       { r.connect <- struct{}{} }
func (r *recorder) OnData(data []byte)               { r.data <- data }
func (r *recorder) OnError(err error)                { r.errs <- err }
func (r *recorder) OnClose() {
	select {
	case r.closed <- struct{}{}:
	default:
	}
}

func TestSendBeforeOpen(t *testing.T) {
	link, err := NewFactory(Config{}).New("remote", true, newRecorder())
	if err != nil {
		t.Fatalf("new link: %v", err)
	}
	defer link.Close()

	if err := link.Send([]byte("hi")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestMalformedSignalReportsError(t *testing.T) {
	rec := newRecorder()
	link, err := NewFactory(Config{}).New("remote", false, rec)
	if err != nil {
		t.Fatalf("new link: %v", err)
	}
	defer link.Close()

	if err := link.Signal(json.RawMessage(`not json`)); err != nil {
		t.Fatalf("signal: %v", err)
	}
	select {
	case <-rec.errs:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a decode error")
	}
}

func TestSignalAfterClose(t *testing.T) {
	link, err := NewFactory(Config{}).New("remote", false, newRecorder())
	if err != nil {
		t.Fatalf("new link: %v", err)
	}
	if err := link.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := link.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := link.Signal(json.RawMessage(`{}`)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

// pipe forwards every signal from one recorder into the other link.
func pipe(from *recorder, to *Link, stop <-chan struct{}) {
	go func() {
		for {
			select {
			case payload := <-from.signals:
				if err := to.Signal(payload); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()
}

func TestLoopbackChat(t *testing.T) {
	factory := NewFactory(Config{})
	aRec, bRec := newRecorder(), newRecorder()

	a, err := factory.New("bbb", true, aRec)
	if err != nil {
		t.Fatalf("new initiator: %v", err)
	}
	defer a.Close()
	b, err := factory.New("aaa", false, bRec)
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}
	defer b.Close()

	stop := make(chan struct{})
	defer close(stop)
	pipe(aRec, b, stop)
	pipe(bRec, a, stop)

	for _, rec := range []*recorder{aRec, bRec} {
		select {
		case <-rec.connect:
		case err := <-rec.errs:
			t.Fatalf("link error: %v", err)
		case <-time.After(10 * time.Second):
			t.Fatal("data channel never opened")
		}
	}

	if err := a.Send([]byte("hello over the channel")); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-bRec.data:
		if string(got) != "hello over the channel" {
			t.Fatalf("unexpected data %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message never arrived")
	}
}
