package signal

import (
	"errors"

	"github.com/dkeye/Interview/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	_ = conn.TrySend(core.ControlFrame(core.OpPong, ""))
}

func (ctl *SignalWSController) handleSubscribe(sid core.SessionID, conn *WsSignalConn, topic string) {
	if err := ctl.Hub.Subscribe(sid, topic); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("topic", topic).Msg("subscribe rejected")
		_ = conn.TrySend(core.ErrorFrame(topic, "bad_topic"))
	}
}

func (ctl *SignalWSController) handleUnsubscribe(sid core.SessionID, topic string) {
	ctl.Hub.Unsubscribe(sid, topic)
}

// handlePublish reports relay rejections back to the publisher. A full room
// is already answered with a ROOM_FULL envelope.
func (ctl *SignalWSController) handlePublish(sid core.SessionID, conn *WsSignalConn, topic string, body []byte) {
	err := ctl.Hub.Publish(sid, topic, body)
	if err == nil || errors.Is(err, core.ErrRoomFull) {
		return
	}
	log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("topic", topic).Msg("publish rejected")
	_ = conn.TrySend(core.ErrorFrame(topic, err.Error()))
}
