package media

import (
	"context"
	"time"

	"github.com/dkeye/Interview/internal/core"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
)

// Player renders recorded samples back to the user.
type Player interface {
	Play(ctx context.Context, samples []pmedia.Sample) error
}

// SelfTest records from a separate short-lived microphone source, plays the
// recording back and closes the source. The call stream is never touched.
func (c *Controller) SelfTest(ctx context.Context, player Player) error {
	src, err := c.provider.Open(ctx, KindAudio)
	if err != nil {
		return classify(KindAudio, err)
	}
	defer src.Close()

	c.logger.Info().Dur("duration", c.cfg.SelfTestDuration).Msg("self-test recording")
	samples, err := record(ctx, src, c.cfg.SelfTestDuration)
	if err != nil {
		return core.NewError("self-test record", err)
	}

	c.logger.Info().Int("samples", len(samples)).Msg("self-test playback")
	if err := player.Play(ctx, samples); err != nil {
		return core.NewError("self-test playback", err)
	}
	return nil
}

func record(ctx context.Context, src Source, d time.Duration) ([]pmedia.Sample, error) {
	var (
		samples []pmedia.Sample
		total   time.Duration
	)
	for total < d {
		s, err := src.ReadSample(ctx)
		if err != nil {
			return samples, err
		}
		samples = append(samples, s)
		total += s.Duration
	}
	return samples, nil
}
