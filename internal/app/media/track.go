package media

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
)

type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

func (k Kind) codec() webrtc.RTPCodecCapability {
	if k == KindVideo {
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	}
	return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
}

// Source produces encoded samples from one capture device.
type Source interface {
	// ReadSample blocks until the next sample is available.
	ReadSample(ctx context.Context) (pmedia.Sample, error)
	Close() error
}

// DeviceProvider opens capture devices. Open may block for as long as the
// user takes to answer a permission prompt.
type DeviceProvider interface {
	Open(ctx context.Context, kind Kind) (Source, error)
}

// Track pumps one Source into a local sample track.
type Track struct {
	kind    Kind
	local   *webrtc.TrackLocalStaticSample
	src     Source
	enabled atomic.Bool
	stopped atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newTrack(kind Kind, src Source, streamID string) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(kind.codec(), string(kind), streamID)
	if err != nil {
		return nil, err
	}
	t := &Track{kind: kind, local: local, src: src, done: make(chan struct{})}
	t.enabled.Store(true)
	return t, nil
}

func (t *Track) Kind() Kind { return t.kind }

func (t *Track) Enabled() bool { return t.enabled.Load() }

func (t *Track) Stopped() bool { return t.stopped.Load() }

func (t *Track) start(logger *zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.pump(ctx, logger)
}

// pump drops samples while the track is disabled, so the peer keeps the
// track negotiated but receives nothing.
func (t *Track) pump(ctx context.Context, logger *zerolog.Logger) {
	defer close(t.done)
	for {
		sample, err := t.src.ReadSample(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				logger.Error().Err(err).Str("kind", string(t.kind)).Msg("read sample, stopping track")
			}
			return
		}
		if !t.enabled.Load() {
			continue
		}
		if err := t.local.WriteSample(sample); err != nil {
			if errors.Is(err, io.ErrClosedPipe) {
				return
			}
			logger.Debug().Err(err).Str("kind", string(t.kind)).Msg("write sample")
		}
	}
}

func (t *Track) stop() error {
	var err error
	t.once.Do(func() {
		t.stopped.Store(true)
		if t.cancel != nil {
			t.cancel()
		}
		err = t.src.Close()
		if t.cancel != nil {
			<-t.done
		}
	})
	return err
}

// Stream is the set of local tracks produced by one Acquire.
type Stream struct {
	ID     string
	tracks map[Kind]*Track
}

// Tracks returns the pion tracks to attach to a peer connection.
func (s *Stream) Tracks() []webrtc.TrackLocal {
	if s == nil {
		return nil
	}
	out := make([]webrtc.TrackLocal, 0, len(s.tracks))
	for _, k := range []Kind{KindAudio, KindVideo} {
		if t, ok := s.tracks[k]; ok {
			out = append(out, t.local)
		}
	}
	return out
}

func (s *Stream) Track(kind Kind) (*Track, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.tracks[kind]
	return t, ok
}

// Stopped reports whether every track of the stream has been stopped.
func (s *Stream) Stopped() bool {
	if s == nil {
		return true
	}
	for _, t := range s.tracks {
		if !t.Stopped() {
			return false
		}
	}
	return true
}

func (s *Stream) stop() error {
	var errs []error
	for _, t := range s.tracks {
		if err := t.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
