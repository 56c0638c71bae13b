package render

import (
	"context"
	"maps"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// Source is a remote track; *webrtc.TrackRemote satisfies it.
type Source interface {
	ID() string
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

type Relay struct {
	Src Source

	mu    sync.RWMutex
	sinks map[string]*OutSink

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(src Source, cancel context.CancelFunc) *Relay {
	return &Relay{
		Src:    src,
		sinks:  make(map[string]*OutSink),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// loop reads RTP packets from the source track and forwards them to all sinks.
func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, marking all sinks for delete")
			r.markAllDelete()
			return
		default:
		}
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("relay read RTP ended, stopping")
			r.markAllDelete()
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := make(map[string]*OutSink, len(r.sinks))
	maps.Copy(snapshot, r.sinks)
	r.mu.RUnlock()

	dirty := make([]string, 0, len(snapshot))
	for name, out := range snapshot {
		switch out.GetState() {
		case SinkStateDelete:
			dirty = append(dirty, name)
		case SinkStateMuted:
		case SinkStateOk:
			if err := out.Sink.WriteRTP(pkt); err != nil {
				logger.Error().
					Err(err).
					Str("sink", name).
					Msg("sink write RTP error, marking sink as delete")
				out.MarkDelete()
				dirty = append(dirty, name)
			}
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range dirty {
		delete(r.sinks, name)
	}
}

func (r *Relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, out := range r.sinks {
		out.MarkDelete()
	}
}

func (r *Relay) AddSink(name string, out *OutSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[name] = out
}

func (r *Relay) sink(name string) (*OutSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.sinks[name]
	return out, ok
}

// Done is closed once the read loop has exited.
func (r *Relay) Done() <-chan struct{} { return r.done }
