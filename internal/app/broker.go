package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Interview/internal/core"
	"github.com/rs/zerolog/log"
)

type PublishResult struct {
	Delivered int
	Dropped   []core.SessionID
}

// Broker fans frames out to every subscriber of a topic, publisher included.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[core.SessionID]core.SignalConnection
}

func NewBroker() *Broker {
	return &Broker{topics: make(map[string]map[core.SessionID]core.SignalConnection)}
}

// Subscribe reports false if sid was already subscribed to topic.
func (b *Broker) Subscribe(topic string, sid core.SessionID, conn core.SignalConnection) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[core.SessionID]core.SignalConnection)
		b.topics[topic] = subs
	}
	if _, dup := subs[sid]; dup {
		return false
	}
	subs[sid] = conn
	log.Info().Str("module", "app.broker").Str("sid", string(sid)).Str("topic", topic).Msg("subscribed")
	return true
}

func (b *Broker) Unsubscribe(topic string, sid core.SessionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		return false
	}
	if _, ok := subs[sid]; !ok {
		return false
	}
	delete(subs, sid)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
	log.Info().Str("module", "app.broker").Str("sid", string(sid)).Str("topic", topic).Msg("unsubscribed")
	return true
}

// UnsubscribeAll removes sid from every topic and returns those topics.
func (b *Broker) UnsubscribeAll(sid core.SessionID) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var left []string
	for topic, subs := range b.topics {
		if _, ok := subs[sid]; !ok {
			continue
		}
		delete(subs, sid)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
		left = append(left, topic)
	}
	return left
}

func (b *Broker) IsSubscribed(topic string, sid core.SessionID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.topics[topic][sid]
	return ok
}

// Publish never blocks: a subscriber whose queue is full is reported in Dropped.
func (b *Broker) Publish(topic string, f core.Frame) PublishResult {
	return b.PublishTo(topic, f, nil)
}

// PublishTo is Publish restricted to subscribers accepted by allow. A nil
// allow accepts everyone.
func (b *Broker) PublishTo(topic string, f core.Frame, allow func(core.SessionID) bool) PublishResult {
	b.mu.RLock()
	subs := make(map[core.SessionID]core.SignalConnection, len(b.topics[topic]))
	for sid, c := range b.topics[topic] {
		subs[sid] = c
	}
	b.mu.RUnlock()

	var res PublishResult
	for sid, c := range subs {
		if allow != nil && !allow(sid) {
			continue
		}
		if err := c.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.Delivered++
	}
	return res
}

func (b *Broker) Topics() []core.TopicInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.TopicInfo, 0, len(b.topics))
	for topic, subs := range b.topics {
		out = append(out, core.TopicInfo{Topic: topic, Subscribers: len(subs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}
