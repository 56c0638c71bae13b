package render

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
)

// chanSource serves packets from a channel; closing the channel ends the track.
type chanSource struct {
	id  string
	pkt chan *rtp.Packet
}

func (s *chanSource) ID() string { return s.id }

func (s *chanSource) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	p, ok := <-s.pkt
	if !ok {
		return nil, nil, io.EOF
	}
	return p, nil, nil
}

type failingSink struct{}

func (failingSink) WriteRTP(*rtp.Packet) error { return errors.New("decoder gone") }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRelayFansOutAndMutes(t *testing.T) {
	src := &chanSource{id: "video-1", pkt: make(chan *rtp.Packet)}
	m := NewManager()
	relay := m.Start(context.Background(), src)

	a, b := &CounterSink{}, &CounterSink{}
	if !m.Attach("video-1", "a", a) || !m.Attach("video-1", "b", b) {
		t.Fatal("attach failed")
	}
	src.pkt <- &rtp.Packet{Payload: []byte{1, 2, 3}}
	waitFor(t, func() bool { return a.Packets() == 1 && b.Packets() == 1 })

	m.SetMuted("video-1", "b", true)
	src.pkt <- &rtp.Packet{Payload: []byte{4}}
	waitFor(t, func() bool { return a.Packets() == 2 })
	if b.Packets() != 1 {
		t.Fatalf("muted sink got %d packets", b.Packets())
	}
	if a.Bytes() != 4 {
		t.Fatalf("bytes = %d, want 4", a.Bytes())
	}

	close(src.pkt)
	select {
	case <-relay.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop at end of track")
	}
}

func TestFailingSinkIsDropped(t *testing.T) {
	src := &chanSource{id: "audio-1", pkt: make(chan *rtp.Packet)}
	m := NewManager()
	relay := m.Start(context.Background(), src)
	defer m.StopAll()

	ok := &CounterSink{}
	m.Attach("audio-1", "bad", failingSink{})
	m.Attach("audio-1", "ok", ok)

	src.pkt <- &rtp.Packet{}
	src.pkt <- &rtp.Packet{}
	waitFor(t, func() bool { return ok.Packets() == 2 })
	if _, found := relay.sink("bad"); found {
		t.Fatal("failing sink still registered")
	}
}

func TestAttachUnknownTrack(t *testing.T) {
	m := NewManager()
	if m.Attach("missing", "a", &CounterSink{}) {
		t.Fatal("attached to a relay that does not exist")
	}
	m.Stop("missing")
	if m.Has("missing") {
		t.Fatal("phantom relay")
	}
}
