// Package render fans remote RTP out to local render sinks. It never
// decodes media.
package render

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type Manager struct {
	mu     sync.RWMutex
	relays map[string]*Relay
}

func NewManager() *Manager {
	return &Manager{
		relays: make(map[string]*Relay),
	}
}

// Start creates a Relay for the remote track and starts its loop. A relay
// already running for the same track id is replaced.
func (m *Manager) Start(ctx context.Context, src Source) *Relay {
	logger := log.With().
		Str("module", "render").
		Str("track_id", src.ID()).
		Logger()

	relayCtx, cancel := context.WithCancel(ctx)
	relay := NewRelay(src, cancel)

	m.mu.Lock()
	if old, ok := m.relays[src.ID()]; ok {
		logger.Info().Msg("replacing existing relay for track")
		old.markAllDelete()
		if old.cancel != nil {
			old.cancel()
		}
	}
	m.relays[src.ID()] = relay
	m.mu.Unlock()

	logger.Info().Msg("starting relay loop")

	go relay.loop(relayCtx, &logger)
	return relay
}

// Attach registers a sink on the relay of trackID.
func (m *Manager) Attach(trackID, name string, s Sink) bool {
	m.mu.RLock()
	relay, ok := m.relays[trackID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	relay.AddSink(name, NewOutSink(s))
	return true
}

// SetMuted pauses or resumes forwarding to one sink.
func (m *Manager) SetMuted(trackID, name string, muted bool) {
	m.mu.RLock()
	relay, ok := m.relays[trackID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	out, ok := relay.sink(name)
	if !ok {
		return
	}
	if muted {
		out.MarkMuted()
	} else {
		out.MarkOk()
	}
}

// Detach marks a sink as SinkStateDelete; the relay drops it on the next packet.
func (m *Manager) Detach(trackID, name string) {
	m.mu.RLock()
	relay, ok := m.relays[trackID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	if out, ok := relay.sink(name); ok {
		out.MarkDelete()
	}
}

// Stop stops a relay and removes it from the manager.
func (m *Manager) Stop(trackID string) {
	m.mu.Lock()
	relay, ok := m.relays[trackID]
	if ok {
		delete(m.relays, trackID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	relay.markAllDelete()
	if relay.cancel != nil {
		relay.cancel()
	}
}

// StopAll stops every relay.
func (m *Manager) StopAll() {
	m.mu.Lock()
	relays := m.relays
	m.relays = make(map[string]*Relay)
	m.mu.Unlock()
	for _, relay := range relays {
		relay.markAllDelete()
		if relay.cancel != nil {
			relay.cancel()
		}
	}
}

func (m *Manager) Has(trackID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.relays[trackID]
	return ok
}
