package orch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/Interview/internal/app/media"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
)

// EditCode applies a local edit; the peer sees it after the debounce.
// Offline edits are kept locally and reported with ErrConnectFailure.
func (s *Session) EditCode(text string) error {
	return s.do("edit code", func() error {
		s.sync.BroadcastCodeChange(text)
		if !s.out.connected() {
			return core.WrapError("edit code", core.ErrConnectFailure, "offline, edit kept locally")
		}
		return nil
	})
}

// SelectProblem switches problem locally by id.
func (s *Session) SelectProblem(id int64) error {
	return s.do("select problem", func() error {
		s.mu.Lock()
		var found *domain.Problem
		for i := range s.problems {
			if s.problems[i].ID == id {
				found = &s.problems[i]
				break
			}
		}
		s.mu.Unlock()
		if found == nil {
			return core.WrapError("select problem", core.ErrSyncApply, "unknown problem")
		}
		s.selectProblem(*found)
		return nil
	})
}

func (s *Session) selectProblem(p domain.Problem) {
	s.mu.Lock()
	s.problem = &p
	s.mu.Unlock()
	s.sync.SelectProblem(p)
}

// Submit grades the shared buffer and mirrors the verdict to the peer. The
// grader call runs on the caller's goroutine so the event loop keeps
// processing signaling meanwhile.
func (s *Session) Submit(ctx context.Context) (json.RawMessage, error) {
	if s.deps.Grader == nil {
		return nil, core.NewError("submit", errors.New("no grader configured"))
	}
	p, ok := s.CurrentProblem()
	if !ok {
		return nil, core.WrapError("submit", core.ErrSyncApply, "no problem selected")
	}
	if s.State() != StateJoined {
		return nil, core.WrapError("submit", core.ErrClosed, "not joined")
	}
	return s.sync.Submit(ctx, s.deps.Grader, domain.Submission{
		UserID:     s.cfg.UserID,
		ProblemID:  p.ID,
		SourceCode: s.sync.Code(),
		Language:   s.cfg.Language,
	})
}

// StartCall offers to the peer by hand. It needs local media and a stable link.
func (s *Session) StartCall() error {
	return s.do("start call", func() error {
		if s.media.Stream() == nil {
			return core.WrapError("start call", core.ErrNoDevice, "no local media")
		}
		return s.neg.CreateOffer(s.ctx)
	})
}

func (s *Session) SetTrackEnabled(kind media.Kind, enabled bool) error {
	return s.do("set track enabled", func() error {
		return s.media.SetTrackEnabled(kind, enabled)
	})
}

// SelfTest records and plays back the microphone on a separate source.
func (s *Session) SelfTest(ctx context.Context) error {
	player := s.deps.Player
	if player == nil {
		player = media.DiscardPlayer{}
	}
	return s.media.SelfTest(ctx, player)
}

// Connected reports whether the transport channel is attached.
func (s *Session) Connected() bool { return s.out.connected() }
