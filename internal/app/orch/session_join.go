package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Interview/internal/adapters/rtc"
	"github.com/dkeye/Interview/internal/core"
	"github.com/pion/webrtc/v4"
)

// Join runs IDLE -> JOINED once. A second call, concurrent or not, is a
// no-op. ICE and media failures degrade; only a failed connect is returned,
// leaving the session in NEGOTIATING until Leave. Cancelling ctx tears the
// session down.
func (s *Session) Join(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("duplicate join suppressed")
		return nil
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Leave() })
	s.mu.Lock()
	s.stopWatch = stop
	s.mu.Unlock()
	go s.loop()

	if !s.advance(StateIdle, StateAcquiringICE) {
		return s.aborted("join")
	}
	servers := s.discoverICE()

	if !s.advance(StateAcquiringICE, StateAcquiringMedia) {
		return s.aborted("join")
	}
	tracks := s.acquireMedia()
	if s.tearingDown() {
		// Teardown may have released before the stream was stored.
		_ = s.media.Release()
		return s.aborted("join")
	}

	if !s.advance(StateAcquiringMedia, StateNegotiating) {
		return s.aborted("join")
	}
	if err := s.neg.Initialize(tracks, servers); err != nil {
		s.logger.Error().Err(err).Msg("peer init failed, continuing without a call")
	}
	if s.tearingDown() {
		_ = s.neg.Close()
		return s.aborted("join")
	}

	ch, err := s.deps.Dialer.Connect(s.ctx, s.cfg.Room.Topic())
	if err != nil {
		if s.tearingDown() {
			return s.aborted("join")
		}
		if !errors.Is(err, core.ErrConnectFailure) {
			err = core.WrapError("connect", core.ErrConnectFailure, err.Error())
		}
		s.warn(WarnConnect, err)
		return err
	}
	if !s.out.attach(ch) {
		ch.Disconnect()
		return s.aborted("join")
	}
	ch.Subscribe(s.onEnvelope)
	go s.watchChannel(ch)

	if !s.advance(StateNegotiating, StateJoined) {
		return s.aborted("join")
	}
	s.announce()
	s.logger.Info().Int("tracks", len(tracks)).Int("ice_servers", len(servers)).Msg("joined room")

	s.seedProblems()
	return nil
}

// watchChannel takes the session offline when the relay drops the channel.
// The session stays JOINED; recovery is Leave and a fresh Join.
func (s *Session) watchChannel(ch core.Channel) {
	select {
	case <-s.ctx.Done():
		return
	case <-ch.Done():
	}
	if s.tearingDown() || !s.out.detach(ch) {
		return
	}
	s.warn(WarnConnect, core.WrapError("relay "+s.cfg.Room.Topic(), core.ErrConnectFailure, "connection lost"))
}

func (s *Session) aborted(op string) error {
	return core.WrapError(op, core.ErrClosed, "session is tearing down")
}

func (s *Session) discoverICE() []webrtc.ICEServer {
	if s.deps.ICE == nil {
		return rtc.DefaultICEServers()
	}
	servers, _ := s.deps.ICE.Servers(s.ctx)
	if len(servers) == 0 {
		return rtc.DefaultICEServers()
	}
	return servers
}

func (s *Session) acquireMedia() []webrtc.TrackLocal {
	if !s.cfg.WantVideo && !s.cfg.WantAudio {
		return nil
	}
	stream, err := s.media.Acquire(s.ctx, s.cfg.WantVideo, s.cfg.WantAudio)
	if err != nil {
		if !s.tearingDown() {
			s.warn(WarnMedia, err)
		}
		return nil
	}
	return stream.Tracks()
}

func (s *Session) announce() {
	env, err := core.NewEnvelope(core.TypeJoin, s.token, nil)
	if err != nil {
		return
	}
	if err := s.out.Publish(s.ctx, env); err != nil {
		s.logger.Warn().Err(err).Msg("join announcement not delivered")
	}
}

// seedProblems loads the catalog and selects the first problem. A failing
// catalog leaves the buffer empty.
func (s *Session) seedProblems() {
	if s.deps.Catalog == nil {
		return
	}
	problems, err := s.deps.Catalog.Problems(s.ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("problem catalog unavailable")
		return
	}
	if len(problems) == 0 {
		return
	}
	s.mu.Lock()
	s.problems = problems
	s.mu.Unlock()

	first := problems[0]
	s.enqueue(func() { s.selectProblem(first) })
}
