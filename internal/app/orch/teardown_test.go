package orch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Interview/internal/app"
	"github.com/dkeye/Interview/internal/app/media"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
)

// trackedSource records whether it was closed.
type trackedSource struct {
	media.Source
	mu     sync.Mutex
	closed bool
}

func (s *trackedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Source.Close()
}

func (s *trackedSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// gatedDevices blocks Open until gate is closed, ignoring cancellation like
// a permission prompt nobody answers.
type gatedDevices struct {
	gate    chan struct{}
	mu      sync.Mutex
	sources []*trackedSource
}

func (d *gatedDevices) Open(ctx context.Context, kind media.Kind) (media.Source, error) {
	if d.gate != nil {
		<-d.gate
	}
	src, err := media.Synthetic{}.Open(context.Background(), kind)
	if err != nil {
		return nil, err
	}
	ts := &trackedSource{Source: src}
	d.mu.Lock()
	d.sources = append(d.sources, ts)
	d.mu.Unlock()
	return ts, nil
}

func (d *gatedDevices) allClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sources {
		if !s.isClosed() {
			return false
		}
	}
	return len(d.sources) > 0
}

type fakeChannel struct {
	mu           sync.Mutex
	disconnected bool
	once         sync.Once
	done         chan struct{}
}

func newFakeChannel() *fakeChannel { return &fakeChannel{done: make(chan struct{})} }

func (c *fakeChannel) Subscribe(func(core.Envelope)) {}

func (c *fakeChannel) Publish(context.Context, core.Envelope) error { return nil }

func (c *fakeChannel) Disconnect() {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
	c.drop()
}

func (c *fakeChannel) Done() <-chan struct{} { return c.done }

// drop simulates the relay going away.
func (c *fakeChannel) drop() { c.once.Do(func() { close(c.done) }) }

func (c *fakeChannel) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// gatedDialer hangs in Connect until gate is closed, then hands out ch.
type gatedDialer struct {
	gate chan struct{}
	ch   *fakeChannel
}

func (d *gatedDialer) Connect(context.Context, string) (core.Channel, error) {
	<-d.gate
	return d.ch, nil
}

func joinAsync(s *Session) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Join(context.Background()) }()
	return done
}

func assertTornDown(t *testing.T, s *Session) {
	t.Helper()
	if s.State() != StateClosed {
		t.Fatalf("state = %s, want CLOSED", s.State())
	}
	if s.PeerState() != core.PeerClosed {
		t.Fatalf("peer = %s, want CLOSED", s.PeerState())
	}
	if s.Connected() {
		t.Fatal("channel still attached")
	}
	if s.Media().Stream() != nil {
		t.Fatal("media stream still held")
	}
}

func TestTeardownWhileAcquiringMedia(t *testing.T) {
	devices := &gatedDevices{gate: make(chan struct{})}
	s := newTestSession(t, app.NewHub(app.HubConfig{}), "a", Deps{Devices: devices})

	done := joinAsync(s)
	waitFor(t, "ACQUIRING_MEDIA", func() bool { return s.State() == StateAcquiringMedia })

	if err := s.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	assertTornDown(t, s)

	close(devices.gate)
	if err := <-done; !errors.Is(err, core.ErrClosed) {
		t.Fatalf("join err = %v, want closed", err)
	}
	waitFor(t, "late tracks stopped", devices.allClosed)
	assertTornDown(t, s)
}

func TestTeardownWhileNegotiating(t *testing.T) {
	devices := &gatedDevices{}
	dialer := &gatedDialer{gate: make(chan struct{}), ch: newFakeChannel()}
	s := newTestSession(t, nil, "a", Deps{Devices: devices, Dialer: dialer})

	done := joinAsync(s)
	waitFor(t, "NEGOTIATING", func() bool { return s.State() == StateNegotiating })
	stream := s.Media().Stream()
	if stream == nil {
		t.Fatal("no local media acquired")
	}

	if err := s.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	assertTornDown(t, s)
	if !stream.Stopped() || !devices.allClosed() {
		t.Fatal("local tracks still running")
	}

	close(dialer.gate)
	if err := <-done; !errors.Is(err, core.ErrClosed) {
		t.Fatalf("join err = %v, want closed", err)
	}
	if !dialer.ch.isDisconnected() {
		t.Fatal("late channel was not disconnected")
	}
}

func TestTeardownWhenJoined(t *testing.T) {
	hub := app.NewHub(app.HubConfig{})
	devices := &gatedDevices{}
	s := newTestSession(t, hub, "a", Deps{Devices: devices})
	if err := s.Join(context.Background()); err != nil {
		t.Fatal(err)
	}
	stream := s.Media().Stream()
	if stream == nil || len(stream.Tracks()) != 2 {
		t.Fatal("expected audio and video tracks")
	}

	if err := s.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	assertTornDown(t, s)
	if !stream.Stopped() || !devices.allClosed() {
		t.Fatal("local tracks still running")
	}
	if info := hub.Room("r1"); info.Participants != 0 {
		t.Fatalf("room still occupied: %+v", info)
	}
	if err := s.Leave(); err != nil {
		t.Fatalf("second leave: %v", err)
	}
	if err := s.EditCode("late"); !errors.Is(err, core.ErrClosed) {
		t.Fatalf("edit after leave err = %v", err)
	}
}

func TestLeaveBeforeJoin(t *testing.T) {
	s := newTestSession(t, app.NewHub(app.HubConfig{}), "a", Deps{})
	if err := s.Leave(); err != nil {
		t.Fatal(err)
	}
	if err := s.Join(context.Background()); !errors.Is(err, core.ErrClosed) {
		t.Fatalf("join after leave err = %v", err)
	}
	assertTornDown(t, s)
}

// panicDevices make the media step of teardown blow up.
type panicDevices struct{}

func (panicDevices) Open(context.Context, media.Kind) (media.Source, error) {
	return panicSource{}, nil
}

type panicSource struct{}

func (panicSource) ReadSample(ctx context.Context) (pmedia.Sample, error) {
	<-ctx.Done()
	return pmedia.Sample{}, ctx.Err()
}

func (panicSource) Close() error { panic("driver crashed") }

func TestTeardownStepsSurvivePanics(t *testing.T) {
	hub := app.NewHub(app.HubConfig{})
	s := newTestSession(t, hub, "a", Deps{Devices: panicDevices{}})
	if err := s.Join(context.Background()); err != nil {
		t.Fatal(err)
	}
	err := s.Leave()
	if err == nil {
		t.Fatal("teardown swallowed the panic")
	}
	if s.PeerState() != core.PeerClosed || s.Connected() {
		t.Fatal("later teardown steps skipped after panic")
	}
	if hub.Room(domain.RoomID("r1")).Participants != 0 {
		t.Fatal("channel not disconnected")
	}
}

func TestRelayLossTakesSessionOffline(t *testing.T) {
	gate := make(chan struct{})
	close(gate)
	dialer := &gatedDialer{gate: gate, ch: newFakeChannel()}
	s := newTestSession(t, nil, "a", Deps{Devices: &gatedDevices{}, Dialer: dialer})
	if err := s.Join(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.Connected() {
		t.Fatal("not connected after join")
	}

	dialer.ch.drop()
	w := expectWarning(t, s, WarnConnect)
	if !errors.Is(w.Err, core.ErrConnectFailure) {
		t.Fatalf("warning = %v", w)
	}
	if s.Connected() {
		t.Fatal("still connected after the relay dropped")
	}
	if s.State() != StateJoined {
		t.Fatalf("state = %s, want JOINED until leave", s.State())
	}
	if err := s.EditCode("offline edit"); !errors.Is(err, core.ErrConnectFailure) {
		t.Fatalf("edit err = %v, want connect failure", err)
	}
	if s.Code() != "offline edit" {
		t.Fatalf("buffer = %q, local edit lost", s.Code())
	}
	if err := s.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	assertTornDown(t, s)
}
