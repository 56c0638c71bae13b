package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultRoomCapacity = 2

// RoomTracker counts joined participants per room. Rooms exist only while
// somebody is in them.
type RoomTracker struct {
	mu       sync.RWMutex
	capacity int
	rooms    map[domain.RoomID]map[core.SessionID]*domain.Member
}

func NewRoomTracker(capacity int) *RoomTracker {
	if capacity <= 0 {
		capacity = DefaultRoomCapacity
	}
	return &RoomTracker{
		capacity: capacity,
		rooms:    make(map[domain.RoomID]map[core.SessionID]*domain.Member),
	}
}

// Join admits sid into room. Joining again while already a member is a no-op.
func (t *RoomTracker) Join(room domain.RoomID, sid core.SessionID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.rooms[room]
	if !ok {
		members = make(map[core.SessionID]*domain.Member)
		t.rooms[room] = members
	}
	if _, ok := members[sid]; ok {
		return nil
	}
	if len(members) >= t.capacity {
		return core.WrapError("join "+string(room), core.ErrRoomFull, "")
	}
	members[sid] = domain.NewMember(string(sid), room)
	log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("room", string(room)).Int("count", len(members)).Msg("joined room")
	return nil
}

func (t *RoomTracker) Leave(room domain.RoomID, sid core.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaveLocked(room, sid)
}

func (t *RoomTracker) leaveLocked(room domain.RoomID, sid core.SessionID) {
	members, ok := t.rooms[room]
	if !ok {
		return
	}
	if _, ok := members[sid]; !ok {
		return
	}
	delete(members, sid)
	log.Info().Str("module", "app.rooms").Str("sid", string(sid)).Str("room", string(room)).Int("count", len(members)).Msg("left room")
	if len(members) == 0 {
		delete(t.rooms, room)
	}
}

func (t *RoomTracker) LeaveAll(sid core.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for room := range t.rooms {
		t.leaveLocked(room, sid)
	}
}

func (t *RoomTracker) IsMember(room domain.RoomID, sid core.SessionID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[room][sid]
	return ok
}

func (t *RoomTracker) Info(room domain.RoomID) core.RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return core.RoomInfo{ID: room, Participants: len(t.rooms[room]), Capacity: t.capacity}
}

func (t *RoomTracker) List() []core.RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(t.rooms))
	for id, members := range t.rooms {
		out = append(out, core.RoomInfo{ID: id, Participants: len(members), Capacity: t.capacity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
