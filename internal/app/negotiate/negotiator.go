// Package negotiate drives one peer connection through the
// offer/answer/candidate exchange relayed over a room channel.
package negotiate

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Negotiator owns the peer connection of one participant. HandleEnvelope and
// CreateOffer are expected to run on a single event stream; Close may run
// concurrently with them.
type Negotiator struct {
	sender  domain.ParticipantToken
	out     core.Publisher
	factory core.PeerFactory
	logger  zerolog.Logger

	mu    sync.Mutex
	pc    core.PeerConnection
	state core.PeerLinkState

	// Candidates gathered before the local description went out are held
	// back so the peer never sees a candidate ahead of its description.
	candMu      sync.Mutex
	descSent    bool
	pendingCand []webrtc.ICECandidateInit

	trackMu       sync.RWMutex
	onRemoteTrack func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
}

func New(sender domain.ParticipantToken, out core.Publisher, factory core.PeerFactory) *Negotiator {
	return &Negotiator{
		sender:  sender,
		out:     out,
		factory: factory,
		logger:  log.With().Str("module", "negotiate").Str("sender", sender.Short()).Logger(),
	}
}

// OnRemoteTrack sets the callback for remote media arrival.
func (n *Negotiator) OnRemoteTrack(fn func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	n.trackMu.Lock()
	n.onRemoteTrack = fn
	n.trackMu.Unlock()
}

// State reports the current PeerLinkState.
func (n *Negotiator) State() core.PeerLinkState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// HasRemoteDescription reports whether a remote description is applied.
func (n *Negotiator) HasRemoteDescription() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pc != nil && n.pc.RemoteDescription() != nil
}

// HasLocalDescription reports whether a local description is applied.
func (n *Negotiator) HasLocalDescription() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pc != nil && n.pc.LocalDescription() != nil
}

// Initialize creates the peer connection, attaches local tracks and makes
// sure both audio and video are negotiated even without local media.
func (n *Negotiator) Initialize(tracks []webrtc.TrackLocal, iceServers []webrtc.ICEServer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	next, ok := core.NextPeerState(n.state, core.EventInit)
	if !ok {
		return n.violation(core.EventInit)
	}

	if n.factory == nil {
		return core.NewError("initialize peer", errors.New("no peer factory"))
	}
	pc, err := n.factory(iceServers)
	if err != nil {
		return core.NewError("initialize peer", err)
	}

	have := map[webrtc.RTPCodecType]bool{}
	for _, t := range tracks {
		if err := pc.AddLocalTrack(t); err != nil {
			n.logger.Error().Err(err).Str("track_id", t.ID()).Msg("add local track")
			continue
		}
		have[t.Kind()] = true
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		if have[kind] {
			continue
		}
		if err := pc.AddReceiver(kind); err != nil {
			n.logger.Error().Err(err).Str("kind", kind.String()).Msg("add receiver")
		}
	}

	pc.OnICECandidate(n.onLocalCandidate)
	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		n.trackMu.RLock()
		fn := n.onRemoteTrack
		n.trackMu.RUnlock()
		if fn != nil {
			fn(track, receiver)
		}
	})

	n.pc = pc
	n.state = next
	n.logger.Info().Int("tracks", len(tracks)).Int("ice_servers", len(iceServers)).Msg("peer initialized")
	return nil
}

// outgoing is a description applied under mu. It is published only after
// mu is released.
type outgoing struct {
	typ core.EnvelopeType
	sd  webrtc.SessionDescription
}

// CreateOffer sets a local offer and publishes it. Only valid in STABLE.
func (n *Negotiator) CreateOffer(ctx context.Context) error {
	n.mu.Lock()
	desc, err := n.offerLocked()
	n.mu.Unlock()
	if err != nil {
		return err
	}
	n.sendDescription(ctx, desc)
	n.logger.Info().Msg("offer sent")
	return nil
}

func (n *Negotiator) offerLocked() (outgoing, error) {
	next, ok := core.NextPeerState(n.state, core.EventLocalOffer)
	if !ok {
		return outgoing{}, n.violation(core.EventLocalOffer)
	}
	offer, err := n.pc.CreateOffer()
	if err != nil {
		return outgoing{}, core.NewError("create offer", err)
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		return outgoing{}, core.NewError("set local description", err)
	}
	n.state = next
	return outgoing{typ: core.TypeOffer, sd: n.localOr(offer)}, nil
}

// HandleEnvelope dispatches a signaling envelope from the peer. Guard
// violations and rejected candidates are logged and dropped.
func (n *Negotiator) HandleEnvelope(ctx context.Context, env core.Envelope) {
	var err error
	switch env.Type {
	case core.TypeJoin:
		err = n.handleJoin(ctx, env)
	case core.TypeOffer:
		err = n.handleOffer(ctx, env)
	case core.TypeAnswer:
		err = n.handleAnswer(env)
	case core.TypeCandidate:
		err = n.handleCandidate(env)
	default:
		n.logger.Warn().Str("type", string(env.Type)).Msg("not a signaling envelope")
		return
	}
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, core.ErrGuardViolation):
		n.logger.Warn().Err(err).Str("type", string(env.Type)).Str("from", env.Sender.Short()).Msg("envelope dropped")
	case errors.Is(err, core.ErrCandidateRejected):
		n.logger.Warn().Err(err).Str("from", env.Sender.Short()).Msg("candidate ignored")
	default:
		n.logger.Error().Err(err).Str("type", string(env.Type)).Str("from", env.Sender.Short()).Msg("negotiation error")
	}
}

// handleJoin answers a newcomer with an offer, unless this side is already
// negotiating or connected.
func (n *Negotiator) handleJoin(ctx context.Context, env core.Envelope) error {
	n.logger.Info().Str("from", env.Sender.Short()).Msg("peer joined")

	n.mu.Lock()
	if n.state != core.PeerStable || n.pc.RemoteDescription() != nil {
		state := n.state
		n.mu.Unlock()
		n.logger.Debug().Str("state", state.String()).Msg("skipping offer on join")
		return nil
	}
	desc, err := n.offerLocked()
	n.mu.Unlock()
	if err != nil {
		return err
	}
	n.sendDescription(ctx, desc)
	n.logger.Info().Str("to", env.Sender.Short()).Msg("offer sent")
	return nil
}

func (n *Negotiator) handleOffer(ctx context.Context, env core.Envelope) error {
	n.mu.Lock()
	desc, err := n.answerLocked(env)
	n.mu.Unlock()
	if err != nil {
		return err
	}
	n.sendDescription(ctx, desc)
	n.logger.Info().Str("from", env.Sender.Short()).Msg("offer accepted, answer sent")
	return nil
}

func (n *Negotiator) answerLocked(env core.Envelope) (outgoing, error) {
	next, ok := core.NextPeerState(n.state, core.EventRemoteOffer)
	if !ok {
		return outgoing{}, n.violation(core.EventRemoteOffer)
	}
	offer, err := env.SessionDescription()
	if err != nil {
		return outgoing{}, err
	}
	if err := n.pc.SetRemoteDescription(offer); err != nil {
		return outgoing{}, core.NewError("set remote description", err)
	}
	answer, err := n.pc.CreateAnswer()
	if err != nil {
		return outgoing{}, core.NewError("create answer", err)
	}
	if err := n.pc.SetLocalDescription(answer); err != nil {
		return outgoing{}, core.NewError("set local description", err)
	}
	n.state = next
	return outgoing{typ: core.TypeAnswer, sd: n.localOr(answer)}, nil
}

func (n *Negotiator) handleAnswer(env core.Envelope) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	next, ok := core.NextPeerState(n.state, core.EventRemoteAnswer)
	if !ok {
		return n.violation(core.EventRemoteAnswer)
	}
	answer, err := env.SessionDescription()
	if err != nil {
		return err
	}
	if err := n.pc.SetRemoteDescription(answer); err != nil {
		return core.NewError("set remote description", err)
	}
	n.state = next
	n.logger.Info().Str("from", env.Sender.Short()).Msg("answer applied, link stable")
	return nil
}

func (n *Negotiator) handleCandidate(env core.Envelope) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := core.NextPeerState(n.state, core.EventCandidate); !ok {
		return core.WrapError("add candidate", core.ErrCandidateRejected, "state "+n.state.String())
	}
	ci, err := env.Candidate()
	if err != nil {
		return err
	}
	if err := n.pc.AddICECandidate(ci); err != nil {
		return core.WrapError("add candidate", core.ErrCandidateRejected, err.Error())
	}
	return nil
}

// Close releases the peer connection. Safe in any state and idempotent.
func (n *Negotiator) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	next, ok := core.NextPeerState(n.state, core.EventClose)
	if !ok {
		return nil
	}
	n.state = next
	if n.pc == nil {
		return nil
	}
	if err := n.pc.Close(); err != nil {
		return core.NewError("close peer", err)
	}
	return nil
}

func (n *Negotiator) violation(ev core.PeerEvent) error {
	return core.WrapError(ev.String(), core.ErrGuardViolation, "state "+n.state.String())
}

// localOr prefers the applied local description, which may already carry
// gathered candidates.
func (n *Negotiator) localOr(sd webrtc.SessionDescription) webrtc.SessionDescription {
	if ld := n.pc.LocalDescription(); ld != nil {
		return *ld
	}
	return sd
}

// sendDescription runs without mu. Candidates queued meanwhile follow the
// description.
func (n *Negotiator) sendDescription(ctx context.Context, desc outgoing) {
	n.publish(ctx, desc.typ, desc.sd)

	n.candMu.Lock()
	defer n.candMu.Unlock()
	n.descSent = true
	for _, ci := range n.pendingCand {
		n.publish(ctx, core.TypeCandidate, ci)
	}
	n.pendingCand = nil
}

func (n *Negotiator) onLocalCandidate(ci *webrtc.ICECandidateInit) {
	if ci == nil {
		n.logger.Info().Msg("candidate gathering complete")
		return
	}
	n.candMu.Lock()
	defer n.candMu.Unlock()
	if !n.descSent {
		n.pendingCand = append(n.pendingCand, *ci)
		return
	}
	n.publish(context.Background(), core.TypeCandidate, *ci)
}

func (n *Negotiator) publish(ctx context.Context, t core.EnvelopeType, payload any) {
	env, err := core.NewEnvelope(t, n.sender, payload)
	if err != nil {
		n.logger.Error().Err(err).Str("type", string(t)).Msg("encode envelope")
		return
	}
	if err := n.out.Publish(ctx, env); err != nil {
		n.logger.Warn().Err(err).Str("type", string(t)).Msg("publish failed")
	}
}
