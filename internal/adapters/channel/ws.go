package channel

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Interview/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
	sendQueue  = 64
)

// WSDialer connects to the relay websocket endpoint.
type WSDialer struct {
	URL    string
	Dialer *websocket.Dialer
}

func NewWSDialer(url string) *WSDialer {
	return &WSDialer{URL: url, Dialer: websocket.DefaultDialer}
}

func (d *WSDialer) Connect(ctx context.Context, topic string) (core.Channel, error) {
	ws, _, err := d.Dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, core.WrapError("connect "+topic, core.ErrConnectFailure, err.Error())
	}
	c := &wsChannel{
		topic:  topic,
		conn:   ws,
		send:   make(chan core.Frame, sendQueue),
		done:   make(chan struct{}),
		logger: log.With().Str("module", "channel.ws").Str("topic", topic).Logger(),
	}
	go c.writePump()
	go c.readPump()
	c.logger.Info().Str("url", d.URL).Msg("connected")
	return c, nil
}

type wsChannel struct {
	topic  string
	conn   *websocket.Conn
	send   chan core.Frame
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger

	mu      sync.RWMutex
	handler func(core.Envelope)
}

func (c *wsChannel) Subscribe(fn func(core.Envelope)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
	if err := c.enqueue(core.ControlFrame(core.OpSubscribe, c.topic)); err != nil {
		c.logger.Warn().Err(err).Msg("subscribe not sent")
	}
}

func (c *wsChannel) Publish(ctx context.Context, env core.Envelope) error {
	body, err := core.Encode(env)
	if err != nil {
		return err
	}
	f, err := core.PublishFrame(c.topic, body)
	if err != nil {
		return core.NewError("publish", err)
	}
	return c.enqueue(f)
}

func (c *wsChannel) enqueue(f core.Frame) error {
	select {
	case <-c.done:
		return core.NewError("publish", core.ErrClosed)
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return core.NewError("publish", core.ErrClosed)
	default:
		return core.NewError("publish", core.ErrBackpressure)
	}
}

// Disconnect closes the socket; queued frames are dropped.
func (c *wsChannel) Disconnect() {
	c.shutdown(true)
}

func (c *wsChannel) Done() <-chan struct{} { return c.done }

// shutdown closes done exactly once. A lost connection skips the close
// handshake.
func (c *wsChannel) shutdown(graceful bool) {
	c.once.Do(func() {
		close(c.done)
		if graceful {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
		}
		_ = c.conn.Close()
		c.logger.Info().Bool("graceful", graceful).Msg("disconnected")
	})
}

func (c *wsChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Warn().Err(err).Msg("ping failed")
				c.shutdown(false)
				return
			}
		case f := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown(false)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, f); err != nil {
				c.logger.Error().Err(err).Msg("write error")
				c.shutdown(false)
				return
			}
		}
	}
}

func (c *wsChannel) readPump() {
	defer c.shutdown(false)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn().Err(err).Msg("relay connection lost")
			}
			return
		}
		select {
		case <-c.done:
			return
		default:
		}
		c.mu.RLock()
		fn := c.handler
		c.mu.RUnlock()
		deliver(&c.logger, c.topic, data, fn)
	}
}
