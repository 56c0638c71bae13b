package core

import "context"

// Frame is a raw encoded payload handed to a relay connection.
type Frame []byte

type SessionID string

// SignalConnection abstracts a relay-side messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Channel is a participant's publish/subscribe connection scoped to one
// room topic. Every subscriber receives every envelope, its own included.
type Channel interface {
	// Subscribe registers the inbound handler and starts delivery.
	Subscribe(fn func(Envelope))
	Publish(ctx context.Context, env Envelope) error
	// Disconnect is idempotent and drops in-flight messages.
	Disconnect()
	// Done is closed once the channel is gone, whether by Disconnect or
	// because the relay dropped it.
	Done() <-chan struct{}
}

// Dialer opens a Channel for a topic. Failures wrap ErrConnectFailure.
type Dialer interface {
	Connect(ctx context.Context, topic string) (Channel, error)
}

// Publisher is the outbound half of a Channel.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}
