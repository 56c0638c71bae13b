package render

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

// Sink consumes RTP packets of one remote track (a decoder, a recorder, a
// stats counter).
type Sink interface {
	WriteRTP(pkt *rtp.Packet) error
}

type SinkState int32

const (
	SinkStateOk SinkState = iota
	SinkStateMuted
	SinkStateDelete
)

// OutSink is a registered Sink plus its forwarding state.
type OutSink struct {
	Sink  Sink
	state atomic.Int32 // Zero by default (SinkStateOk)
}

func NewOutSink(s Sink) *OutSink {
	return &OutSink{Sink: s}
}

func (o *OutSink) GetState() SinkState {
	return SinkState(o.state.Load())
}

func (o *OutSink) MarkOk() {
	o.state.Store(int32(SinkStateOk))
}

func (o *OutSink) MarkMuted() {
	o.state.Store(int32(SinkStateMuted))
}

func (o *OutSink) MarkDelete() {
	o.state.Store(int32(SinkStateDelete))
}

// CounterSink counts what it receives. The headless participant uses it to
// prove remote media is flowing.
type CounterSink struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
}

func (c *CounterSink) WriteRTP(pkt *rtp.Packet) error {
	c.packets.Add(1)
	c.bytes.Add(uint64(len(pkt.Payload)))
	return nil
}

func (c *CounterSink) Packets() uint64 { return c.packets.Load() }

func (c *CounterSink) Bytes() uint64 { return c.bytes.Load() }
