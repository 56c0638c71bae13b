package domain

import "strings"

// TopicPrefix is shared with the grading/notification backend and must not change.
const TopicPrefix = "interview/"

type RoomID string

// Topic returns the pub/sub topic for a room.
func (id RoomID) Topic() string {
	return TopicPrefix + string(id)
}

// RoomFromTopic extracts the room id from an "interview/{roomId}" topic.
func RoomFromTopic(topic string) (RoomID, bool) {
	id, ok := strings.CutPrefix(topic, TopicPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return RoomID(id), true
}
