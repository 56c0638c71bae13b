package media

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
)

var (
	// opusSilence is a single 20ms opus frame of digital silence.
	opusSilence = []byte{0xf8, 0xff, 0xfe}
	// vp8Blank is never decoded by anybody; it only keeps RTP flowing.
	vp8Blank = []byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a, 0x10, 0x00, 0x10, 0x00}
)

const (
	audioFrame = 20 * time.Millisecond
	videoFrame = 33 * time.Millisecond
)

// Synthetic is a device provider for headless participants. It produces
// silence and blank frames in real time.
type Synthetic struct {
	Deny    bool // every Open fails with ErrPermissionDenied
	NoVideo bool
	NoAudio bool
}

func (s Synthetic) Open(ctx context.Context, kind Kind) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Deny {
		return nil, core.WrapError("open "+string(kind), core.ErrPermissionDenied, "synthetic deny")
	}
	if (kind == KindVideo && s.NoVideo) || (kind == KindAudio && s.NoAudio) {
		return nil, core.WrapError("open "+string(kind), core.ErrNoDevice, "synthetic device absent")
	}
	if kind == KindVideo {
		return newSyntheticSource(vp8Blank, videoFrame), nil
	}
	return newSyntheticSource(opusSilence, audioFrame), nil
}

type syntheticSource struct {
	frame  []byte
	every  time.Duration
	ticker *time.Ticker

	closed chan struct{}
	once   sync.Once
}

func newSyntheticSource(frame []byte, every time.Duration) *syntheticSource {
	return &syntheticSource{
		frame:  frame,
		every:  every,
		ticker: time.NewTicker(every),
		closed: make(chan struct{}),
	}
}

func (s *syntheticSource) ReadSample(ctx context.Context) (pmedia.Sample, error) {
	select {
	case <-ctx.Done():
		return pmedia.Sample{}, ctx.Err()
	case <-s.closed:
		return pmedia.Sample{}, io.EOF
	case <-s.ticker.C:
		data := make([]byte, len(s.frame))
		copy(data, s.frame)
		return pmedia.Sample{Data: data, Duration: s.every}, nil
	}
}

func (s *syntheticSource) Close() error {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.closed)
	})
	return nil
}

// DiscardPlayer "plays" samples by waiting out their total duration.
type DiscardPlayer struct{}

func (DiscardPlayer) Play(ctx context.Context, samples []pmedia.Sample) error {
	var total time.Duration
	for _, s := range samples {
		total += s.Duration
	}
	t := time.NewTimer(total)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
