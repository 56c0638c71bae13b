package domain

// Member represents a relay connection's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	ConnID string
	Room   RoomID
}

// NewMember keeps construction obvious in adapters.
func NewMember(connID string, room RoomID) *Member {
	return &Member{ConnID: connID, Room: room}
}
