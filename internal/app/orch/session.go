// Package orch runs one participant's room session: it boots discovery,
// media, negotiation and sync in order, serialises every inbound envelope on
// a single event loop and tears everything down exactly once.
package orch

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Interview/internal/app/media"
	"github.com/dkeye/Interview/internal/app/negotiate"
	"github.com/dkeye/Interview/internal/app/render"
	"github.com/dkeye/Interview/internal/app/syncstate"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type State int32

const (
	StateIdle State = iota
	StateAcquiringICE
	StateAcquiringMedia
	StateNegotiating
	StateJoined
	StateTearingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAcquiringICE:
		return "ACQUIRING_ICE"
	case StateAcquiringMedia:
		return "ACQUIRING_MEDIA"
	case StateNegotiating:
		return "NEGOTIATING"
	case StateJoined:
		return "JOINED"
	case StateTearingDown:
		return "TEARING_DOWN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ICESource discovers ICE servers. ok is false when defaults were substituted.
type ICESource interface {
	Servers(ctx context.Context) (servers []webrtc.ICEServer, ok bool)
}

type ProblemCatalog interface {
	Problems(ctx context.Context) ([]domain.Problem, error)
}

// Deps are the collaborators of a session. Only Dialer and Peers are required.
type Deps struct {
	Dialer  core.Dialer
	Peers   core.PeerFactory
	ICE     ICESource
	Devices media.DeviceProvider
	Player  media.Player
	Catalog ProblemCatalog
	Grader  syncstate.Grader
}

type Config struct {
	Room             domain.RoomID
	WantVideo        bool
	WantAudio        bool
	Debounce         time.Duration
	SelfTestDuration time.Duration
	UserID           int64
	Language         string
}

type Session struct {
	cfg    Config
	deps   Deps
	token  domain.ParticipantToken
	logger zerolog.Logger

	state   atomic.Int32
	started atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()

	out    *outbox
	media  *media.Controller
	neg    *negotiate.Negotiator
	sync   *syncstate.Sync
	render *render.Manager

	mu       sync.Mutex
	problems []domain.Problem
	problem  *domain.Problem
	remote   map[string]*remoteTrack

	warnings chan Warning

	teardownOnce sync.Once
	teardownErr  error
	stopWatch    func() bool
	closed       chan struct{}
}

type remoteTrack struct {
	kind  webrtc.RTPCodecType
	stats *render.CounterSink
}

// RemoteTrackStats describes media received from the peer.
type RemoteTrackStats struct {
	ID      string
	Kind    string
	Packets uint64
	Bytes   uint64
}

func NewSession(cfg Config, deps Deps) *Session {
	token := domain.NewParticipantToken()
	ctx, cancel := context.WithCancel(context.Background())
	out := &outbox{}

	devices := deps.Devices
	if devices == nil {
		devices = media.Synthetic{Deny: true}
	}

	s := &Session{
		cfg:   cfg,
		deps:  deps,
		token: token,
		logger: log.With().
			Str("module", "orch").
			Str("room", string(cfg.Room)).
			Str("sender", token.Short()).
			Logger(),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan func(), 256),
		out:      out,
		media:    media.NewController(devices, media.Config{SelfTestDuration: cfg.SelfTestDuration}),
		neg:      negotiate.New(token, out, deps.Peers),
		sync:     syncstate.New(token, out, syncstate.Config{Debounce: cfg.Debounce}),
		render:   render.NewManager(),
		remote:   make(map[string]*remoteTrack),
		warnings: make(chan Warning, 16),
		closed:   make(chan struct{}),
	}
	s.neg.OnRemoteTrack(s.onRemoteTrack)
	return s
}

func (s *Session) Token() domain.ParticipantToken { return s.token }

func (s *Session) Room() domain.RoomID { return s.cfg.Room }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) PeerState() core.PeerLinkState { return s.neg.State() }

// HasDescriptions reports whether local and remote descriptions are both set.
func (s *Session) HasDescriptions() (local, remote bool) {
	return s.neg.HasLocalDescription(), s.neg.HasRemoteDescription()
}

func (s *Session) Code() string { return s.sync.Code() }

func (s *Session) Result() json.RawMessage { return s.sync.Result() }

// Sync exposes the change callbacks of the shared state.
func (s *Session) Sync() *syncstate.Sync { return s.sync }

func (s *Session) Media() *media.Controller { return s.media }

// Done is closed once teardown completed.
func (s *Session) Done() <-chan struct{} { return s.closed }

func (s *Session) Problems() []domain.Problem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Problem(nil), s.problems...)
}

func (s *Session) CurrentProblem() (domain.Problem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.problem == nil {
		return domain.Problem{}, false
	}
	return *s.problem, true
}

func (s *Session) RemoteTracks() []RemoteTrackStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RemoteTrackStats, 0, len(s.remote))
	for id, rt := range s.remote {
		out = append(out, RemoteTrackStats{
			ID:      id,
			Kind:    rt.kind.String(),
			Packets: rt.stats.Packets(),
			Bytes:   rt.stats.Bytes(),
		})
	}
	return out
}

// advance moves from one setup state to the next. It fails once teardown
// has started.
func (s *Session) advance(from, to State) bool {
	if !s.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	s.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("state")
	return true
}

func (s *Session) tearingDown() bool {
	return s.State() >= StateTearingDown
}

// loop is the single actor of the session: every inbound envelope and every
// user operation runs here, one at a time.
func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.events:
			fn()
		}
	}
}

func (s *Session) enqueue(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// do runs fn on the event loop and waits for its result.
func (s *Session) do(op string, fn func() error) error {
	if !s.started.Load() {
		return core.WrapError(op, core.ErrClosed, "session not joined")
	}
	if s.tearingDown() {
		return core.NewError(op, core.ErrClosed)
	}
	done := make(chan error, 1)
	if !s.enqueue(func() { done <- fn() }) {
		return core.NewError(op, core.ErrClosed)
	}
	select {
	case err := <-done:
		return err
	case <-s.ctx.Done():
		return core.NewError(op, core.ErrClosed)
	}
}

// onEnvelope runs on the transport's delivery goroutine.
func (s *Session) onEnvelope(env core.Envelope) {
	if env.Sender == s.token {
		return
	}
	s.enqueue(func() { s.dispatch(env) })
}

func (s *Session) dispatch(env core.Envelope) {
	switch env.Type {
	case core.TypeJoin, core.TypeOffer, core.TypeAnswer, core.TypeCandidate:
		s.neg.HandleEnvelope(s.ctx, env)
	case core.TypeCodeUpdate:
		_ = s.sync.HandleCodeUpdate(env)
	case core.TypeTerminalUpdate:
		_ = s.sync.HandleResultUpdate(env)
	case core.TypeRoomFull:
		s.warn(WarnRoomFull, core.WrapError("join "+string(s.cfg.Room), core.ErrRoomFull, ""))
	default:
		s.logger.Debug().Str("type", string(env.Type)).Msg("ignoring unknown envelope")
	}
}

func (s *Session) onRemoteTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	if s.tearingDown() {
		return
	}
	s.render.Start(s.ctx, track)
	stats := &render.CounterSink{}
	s.render.Attach(track.ID(), "stats", stats)

	s.mu.Lock()
	s.remote[track.ID()] = &remoteTrack{kind: track.Kind(), stats: stats}
	s.mu.Unlock()
	s.logger.Info().Str("kind", track.Kind().String()).Str("track_id", track.ID()).Msg("remote media attached")
}

// outbox is the Publisher handed to negotiation and sync. Envelopes sent
// while no channel is attached are dropped.
type outbox struct {
	mu     sync.RWMutex
	ch     core.Channel
	closed bool
}

func (o *outbox) attach(ch core.Channel) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.ch = ch
	return true
}

func (o *outbox) Publish(ctx context.Context, env core.Envelope) error {
	o.mu.RLock()
	ch := o.ch
	o.mu.RUnlock()
	if ch == nil {
		return core.WrapError("publish "+string(env.Type), core.ErrClosed, "not connected")
	}
	return ch.Publish(ctx, env)
}

// detach forgets ch if it is still the attached channel.
func (o *outbox) detach(ch core.Channel) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ch != ch {
		return false
	}
	o.ch = nil
	return true
}

// close disconnects the attached channel, if any. Later attaches fail.
func (o *outbox) close() error {
	o.mu.Lock()
	ch := o.ch
	o.ch = nil
	o.closed = true
	o.mu.Unlock()
	if ch != nil {
		ch.Disconnect()
	}
	return nil
}

func (o *outbox) connected() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ch != nil
}
