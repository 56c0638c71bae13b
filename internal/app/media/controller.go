// Package media owns the participant's local capture tracks and the
// microphone self-test.
package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultSelfTestDuration = 3 * time.Second

type Config struct {
	SelfTestDuration time.Duration
}

// Controller is the only component allowed to mutate local tracks.
type Controller struct {
	provider DeviceProvider
	cfg      Config
	logger   zerolog.Logger

	mu     sync.Mutex
	stream *Stream
}

func NewController(provider DeviceProvider, cfg Config) *Controller {
	if cfg.SelfTestDuration <= 0 {
		cfg.SelfTestDuration = DefaultSelfTestDuration
	}
	return &Controller{
		provider: provider,
		cfg:      cfg,
		logger:   log.With().Str("module", "media").Logger(),
	}
}

// Acquire opens the requested devices. It is all or nothing: if any device
// fails, the ones already opened are closed again.
func (c *Controller) Acquire(ctx context.Context, wantVideo, wantAudio bool) (*Stream, error) {
	c.mu.Lock()
	if c.stream != nil {
		s := c.stream
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	var kinds []Kind
	if wantAudio {
		kinds = append(kinds, KindAudio)
	}
	if wantVideo {
		kinds = append(kinds, KindVideo)
	}
	if len(kinds) == 0 {
		return nil, core.WrapError("acquire media", core.ErrNoDevice, "nothing requested")
	}

	stream := &Stream{ID: uuid.NewString(), tracks: make(map[Kind]*Track, len(kinds))}
	for _, kind := range kinds {
		src, err := c.provider.Open(ctx, kind)
		if err == nil && ctx.Err() != nil {
			_ = src.Close()
			err = ctx.Err()
		}
		if err != nil {
			_ = stream.stop()
			return nil, classify(kind, err)
		}
		t, err := newTrack(kind, src, stream.ID)
		if err != nil {
			_ = src.Close()
			_ = stream.stop()
			return nil, core.WrapError("acquire "+string(kind), core.ErrNoDevice, err.Error())
		}
		stream.tracks[kind] = t
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		_ = stream.stop()
		return c.stream, nil
	}
	for _, t := range stream.tracks {
		t.start(&c.logger)
	}
	c.stream = stream
	c.logger.Info().Str("stream_id", stream.ID).Int("tracks", len(stream.tracks)).Msg("local media acquired")
	return stream, nil
}

func classify(kind Kind, err error) error {
	op := "acquire " + string(kind)
	switch {
	case errors.Is(err, core.ErrPermissionDenied), errors.Is(err, core.ErrNoDevice):
		return core.NewError(op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return core.NewError(op, err)
	default:
		return core.WrapError(op, core.ErrNoDevice, err.Error())
	}
}

// Stream returns the acquired stream, or nil.
func (c *Controller) Stream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// SetTrackEnabled mutes or unmutes a local track without renegotiation.
func (c *Controller) SetTrackEnabled(kind Kind, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.stream.Track(kind)
	if !ok {
		return core.WrapError("set track enabled", core.ErrNoDevice, "no "+string(kind)+" track")
	}
	t.enabled.Store(enabled)
	c.logger.Info().Str("kind", string(kind)).Bool("enabled", enabled).Msg("track toggled")
	return nil
}

// Release stops every track. Safe to call any number of times.
func (c *Controller) Release() error {
	c.mu.Lock()
	s := c.stream
	c.stream = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	err := s.stop()
	c.logger.Info().Str("stream_id", s.ID).Msg("local media released")
	return err
}
