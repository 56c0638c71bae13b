// Package app holds the relay side: topic fan-out, room occupancy and the
// policies applied to relay connections.
package app

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

type HubConfig struct {
	RoomCapacity  int
	JoinRateLimit int
	JoinRateEvery time.Duration
}

// Hub relays envelopes between the connections subscribed to a room topic.
type Hub struct {
	Broker  *Broker
	Rooms   *RoomTracker
	Limiter *JoinRateLimiter
	Policy  Policy

	mu    sync.RWMutex
	conns map[core.SessionID]core.SignalConnection
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.JoinRateLimit <= 0 {
		cfg.JoinRateLimit = 5
	}
	if cfg.JoinRateEvery <= 0 {
		cfg.JoinRateEvery = 10 * time.Second
	}
	return &Hub{
		Broker:  NewBroker(),
		Rooms:   NewRoomTracker(cfg.RoomCapacity),
		Limiter: NewJoinRateLimiter(cfg.JoinRateLimit, cfg.JoinRateEvery),
		Policy:  SimplePolicy{},
		conns:   make(map[core.SessionID]core.SignalConnection),
	}
}

func (h *Hub) Register(sid core.SessionID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[sid] = conn
	log.Info().Str("module", "app.hub").Str("sid", string(sid)).Msg("connection registered")
}

func (h *Hub) conn(sid core.SessionID) (core.SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[sid]
	return c, ok
}

func (h *Hub) Subscribe(sid core.SessionID, topic string) error {
	if _, ok := domain.RoomFromTopic(topic); !ok {
		return core.WrapError("subscribe", core.ErrGuardViolation, "bad topic "+topic)
	}
	c, ok := h.conn(sid)
	if !ok {
		return core.NewError("subscribe", core.ErrClosed)
	}
	h.Broker.Subscribe(topic, sid, c)
	return nil
}

// Unsubscribe also frees the room slot held by sid.
func (h *Hub) Unsubscribe(sid core.SessionID, topic string) {
	h.Broker.Unsubscribe(topic, sid)
	if room, ok := domain.RoomFromTopic(topic); ok {
		h.Rooms.Leave(room, sid)
	}
}

// Publish relays body to every joined member subscribed to topic. A JOIN
// must pass the rate limiter and the room capacity check first; a rejected
// joiner gets a ROOM_FULL envelope and nothing is relayed. Other envelopes
// are only accepted from joined members. Subscribers that never joined, or
// were turned away, receive nothing.
func (h *Hub) Publish(sid core.SessionID, topic string, body []byte) error {
	room, ok := domain.RoomFromTopic(topic)
	if !ok {
		return core.WrapError("publish", core.ErrGuardViolation, "bad topic "+topic)
	}
	env, err := core.Decode(body)
	if err != nil {
		return err
	}

	if env.Type == core.TypeJoin {
		if !h.Limiter.Allow(sid) {
			return core.WrapError("publish", core.ErrGuardViolation, "join rate limited")
		}
		if err := h.Rooms.Join(room, sid); err != nil {
			if errors.Is(err, core.ErrRoomFull) {
				h.sendRoomFull(sid, topic)
			}
			return err
		}
	} else if !h.Rooms.IsMember(room, sid) {
		return core.WrapError("publish", core.ErrGuardViolation, "not joined "+string(room))
	}

	f, err := core.MessageFrame(topic, body)
	if err != nil {
		return core.NewError("publish", err)
	}
	res := h.Broker.PublishTo(topic, f, func(member core.SessionID) bool {
		return h.Rooms.IsMember(room, member)
	})
	log.Debug().
		Str("module", "app.hub").
		Str("sid", string(sid)).
		Str("type", string(env.Type)).
		Int("delivered", res.Delivered).
		Msg("relayed")

	for _, slow := range res.Dropped {
		switch h.Policy.OnBackPressure(topic, slow) {
		case KickMember:
			log.Warn().Str("module", "app.hub").Str("sid", string(slow)).Msg("kicking slow subscriber")
			h.Disconnect(slow)
		case MarkSlow, DropFrame, NoAction:
		}
	}
	return nil
}

func (h *Hub) sendRoomFull(sid core.SessionID, topic string) {
	c, ok := h.conn(sid)
	if !ok {
		return
	}
	env, err := core.NewEnvelope(core.TypeRoomFull, domain.ServerSender, nil)
	if err != nil {
		return
	}
	body, err := core.Encode(env)
	if err != nil {
		return
	}
	f, err := core.MessageFrame(topic, body)
	if err != nil {
		return
	}
	if err := c.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "app.hub").Str("sid", string(sid)).Msg("room full notice dropped")
	}
	log.Info().Str("module", "app.hub").Str("sid", string(sid)).Str("topic", topic).Msg("join rejected, room full")
}

// Disconnect forgets sid everywhere and closes its connection. Idempotent.
func (h *Hub) Disconnect(sid core.SessionID) {
	h.mu.Lock()
	c, ok := h.conns[sid]
	delete(h.conns, sid)
	h.mu.Unlock()

	h.Broker.UnsubscribeAll(sid)
	h.Rooms.LeaveAll(sid)
	h.Limiter.Forget(sid)
	if ok {
		c.Close()
		log.Info().Str("module", "app.hub").Str("sid", string(sid)).Msg("connection closed")
	}
}

func (h *Hub) Room(id domain.RoomID) core.RoomInfo {
	return h.Rooms.Info(id)
}

func (h *Hub) RoomList() []core.RoomInfo {
	return h.Rooms.List()
}
