package channel

import (
	"context"
	"sync"

	"github.com/dkeye/Interview/internal/app"
	"github.com/dkeye/Interview/internal/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MemoryDialer attaches channels directly to an in-process Hub.
type MemoryDialer struct {
	Hub *app.Hub
}

func NewMemoryDialer(hub *app.Hub) *MemoryDialer {
	return &MemoryDialer{Hub: hub}
}

func (d *MemoryDialer) Connect(ctx context.Context, topic string) (core.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.WrapError("connect "+topic, core.ErrConnectFailure, err.Error())
	}
	c := &memChannel{
		hub:    d.Hub,
		sid:    core.SessionID(uuid.NewString()),
		topic:  topic,
		frames: make(chan core.Frame, sendQueue),
		done:   make(chan struct{}),
		logger: log.With().Str("module", "channel.memory").Str("topic", topic).Logger(),
	}
	d.Hub.Register(c.sid, c)
	go c.loop()
	return c, nil
}

// memChannel is both the participant's Channel and the relay's
// SignalConnection for it.
type memChannel struct {
	hub    *app.Hub
	sid    core.SessionID
	topic  string
	frames chan core.Frame
	logger zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once

	mu      sync.RWMutex
	handler func(core.Envelope)
}

func (c *memChannel) Subscribe(fn func(core.Envelope)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
	if err := c.hub.Subscribe(c.sid, c.topic); err != nil {
		c.logger.Warn().Err(err).Msg("subscribe rejected")
	}
}

func (c *memChannel) Publish(ctx context.Context, env core.Envelope) error {
	select {
	case <-c.done:
		return core.NewError("publish", core.ErrClosed)
	default:
	}
	body, err := core.Encode(env)
	if err != nil {
		return err
	}
	return c.hub.Publish(c.sid, c.topic, body)
}

func (c *memChannel) Disconnect() {
	c.hub.Disconnect(c.sid)
	c.Close()
}

func (c *memChannel) Done() <-chan struct{} { return c.done }

// TrySend is called by the hub.
func (c *memChannel) TrySend(f core.Frame) error {
	select {
	case <-c.done:
		return core.ErrClosed
	default:
	}
	select {
	case c.frames <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *memChannel) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *memChannel) loop() {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.frames:
			select {
			case <-c.done:
				return
			default:
			}
			c.mu.RLock()
			fn := c.handler
			c.mu.RUnlock()
			deliver(&c.logger, c.topic, f, fn)
		}
	}
}
