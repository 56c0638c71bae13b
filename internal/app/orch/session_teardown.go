package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Interview/internal/core"
)

// Leave tears the session down from any state: channel disconnect, media
// release, peer close, in that order. Every step runs even if an earlier one
// failed or panicked. Only the first call does work; later calls return the
// same result.
func (s *Session) Leave() error {
	s.teardownOnce.Do(func() {
		prev := State(s.state.Swap(int32(StateTearingDown)))
		s.logger.Info().Str("from", prev.String()).Msg("tearing down")

		s.mu.Lock()
		stop := s.stopWatch
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.cancel()
		s.sync.Stop()

		s.teardownErr = errors.Join(
			step("channel disconnect", s.out.close),
			step("media release", s.media.Release),
			step("peer close", s.neg.Close),
		)
		s.render.StopAll()

		s.state.Store(int32(StateClosed))
		close(s.closed)
		if s.teardownErr != nil {
			s.logger.Warn().Err(s.teardownErr).Msg("teardown finished with errors")
		} else {
			s.logger.Info().Msg("session closed")
		}
	})
	return s.teardownErr
}

func step(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
	}()
	if e := fn(); e != nil {
		return core.NewError(name, e)
	}
	return nil
}
