// Package channel implements core.Channel against the relay: over a
// websocket for real participants, in process for tests.
package channel

import (
	"encoding/json"

	"github.com/dkeye/Interview/internal/core"
	"github.com/rs/zerolog"
)

// deliver decodes one relay frame and hands envelopes for topic to fn.
func deliver(logger *zerolog.Logger, topic string, data []byte, fn func(core.Envelope)) {
	var f core.HubFrame
	if err := json.Unmarshal(data, &f); err != nil {
		logger.Warn().Err(err).Msg("bad relay frame")
		return
	}
	switch f.Op {
	case core.OpMessage:
		if f.Topic != topic {
			return
		}
		env, err := core.Decode(f.Body)
		if err != nil {
			logger.Warn().Err(err).Msg("bad envelope")
			return
		}
		if fn != nil {
			fn(env)
		}
	case core.OpErrorFrame:
		logger.Warn().Str("topic", f.Topic).Str("error", f.Error).Msg("relay error")
	case core.OpPong:
	default:
		logger.Debug().Str("op", string(f.Op)).Msg("unexpected relay op")
	}
}
