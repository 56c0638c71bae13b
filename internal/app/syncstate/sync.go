// Package syncstate keeps the shared code buffer and the latest evaluation
// result consistent between the two participants of a room.
package syncstate

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultDebounce = 300 * time.Millisecond

// Grader is the remote judge. The verdict is kept opaque.
type Grader interface {
	Evaluate(ctx context.Context, sub domain.Submission) (json.RawMessage, error)
}

type Config struct {
	Debounce time.Duration
}

// Sync owns the code buffer, the evaluation result and the single pending
// debounce timer. Last write wins; no merge is attempted.
type Sync struct {
	sender domain.ParticipantToken
	out    core.Publisher
	window time.Duration
	logger zerolog.Logger

	mu          sync.Mutex
	code        string
	result      json.RawMessage
	pending     *time.Timer
	pendingText string
	gen         uint64
	stopped     bool

	onCode   func(string)
	onResult func(json.RawMessage)
}

func New(sender domain.ParticipantToken, out core.Publisher, cfg Config) *Sync {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Sync{
		sender: sender,
		out:    out,
		window: cfg.Debounce,
		logger: log.With().Str("module", "sync").Str("sender", sender.Short()).Logger(),
	}
}

// OnCodeChange is called after a remote update replaced the buffer.
func (s *Sync) OnCodeChange(fn func(string)) {
	s.mu.Lock()
	s.onCode = fn
	s.mu.Unlock()
}

// OnResultChange is called whenever the displayed result changes.
func (s *Sync) OnResultChange(fn func(json.RawMessage)) {
	s.mu.Lock()
	s.onResult = fn
	s.mu.Unlock()
}

func (s *Sync) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Result returns the latest evaluation result, nil when cleared.
func (s *Sync) Result() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// BroadcastCodeChange applies a local edit and (re)arms the debounce. Only
// the value at the end of a quiet window is sent. Empty text is never sent.
func (s *Sync) BroadcastCodeChange(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.code = text
	s.cancelPendingLocked()
	if text == "" {
		return
	}
	s.pendingText = text
	s.gen++
	gen := s.gen
	s.pending = time.AfterFunc(s.window, func() { s.fire(gen) })
}

func (s *Sync) fire(gen uint64) {
	s.mu.Lock()
	if s.pending == nil || s.gen != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	text := s.pendingText
	s.pending = nil
	s.pendingText = ""
	s.mu.Unlock()

	s.publish(core.TypeCodeUpdate, core.CodeUpdate{SourceCode: &text})
}

func (s *Sync) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
		s.pendingText = ""
	}
}

// HandleCodeUpdate overwrites the local buffer with the peer's text. A local
// edit still waiting for its debounce is discarded, so the remote value is
// not echoed back.
func (s *Sync) HandleCodeUpdate(env core.Envelope) error {
	text, err := env.CodeUpdate()
	if err != nil {
		s.logger.Warn().Err(err).Str("from", env.Sender.Short()).Msg("code update dropped")
		return err
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.cancelPendingLocked()
	s.code = text
	fn := s.onCode
	s.mu.Unlock()

	s.logger.Debug().Int("len", len(text)).Str("from", env.Sender.Short()).Msg("code buffer replaced")
	if fn != nil {
		fn(text)
	}
	return nil
}

// BroadcastResult sends the verdict to the peer once.
func (s *Sync) BroadcastResult(result json.RawMessage) {
	s.publish(core.TypeTerminalUpdate, core.TerminalUpdate{Result: result})
}

// HandleResultUpdate replaces the displayed result with the peer's verdict.
func (s *Sync) HandleResultUpdate(env core.Envelope) error {
	result, err := env.TerminalUpdate()
	if err != nil {
		s.logger.Warn().Err(err).Str("from", env.Sender.Short()).Msg("result update dropped")
		return err
	}
	s.setResult(result)
	return nil
}

// SelectProblem resets the buffer to the problem's starter code and clears
// the result locally. The switch itself is not announced; only the new text
// goes out on the next debounce.
func (s *Sync) SelectProblem(p domain.Problem) {
	s.setResult(nil)
	s.BroadcastCodeChange(p.StarterCode())
	s.logger.Info().Int64("problem_id", p.ID).Str("title", p.Title).Msg("problem selected")
}

// Submit grades the current buffer, stores the verdict and mirrors it.
func (s *Sync) Submit(ctx context.Context, grader Grader, sub domain.Submission) (json.RawMessage, error) {
	if sub.SourceCode == "" {
		sub.SourceCode = s.Code()
	}
	s.setResult(nil)

	result, err := grader.Evaluate(ctx, sub)
	if err != nil {
		return nil, core.NewError("submit", err)
	}
	s.setResult(result)
	s.BroadcastResult(result)

	var verdict domain.EvaluationResult
	if err := json.Unmarshal(result, &verdict); err == nil {
		s.logger.Info().
			Str("status", verdict.Status).
			Int("passed", verdict.PassCount).
			Int("total", verdict.TotalTestCases).
			Msg("submission graded")
	}
	return result, nil
}

// Stop cancels the pending debounce. Trailing edits are not flushed.
func (s *Sync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cancelPendingLocked()
}

func (s *Sync) setResult(result json.RawMessage) {
	s.mu.Lock()
	s.result = result
	fn := s.onResult
	s.mu.Unlock()
	if fn != nil {
		fn(result)
	}
}

func (s *Sync) publish(t core.EnvelopeType, payload any) {
	env, err := core.NewEnvelope(t, s.sender, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(t)).Msg("encode envelope")
		return
	}
	if err := s.out.Publish(context.Background(), env); err != nil {
		s.logger.Warn().Err(err).Str("type", string(t)).Msg("publish failed")
	}
}
