package core

import "github.com/dkeye/Interview/internal/domain"

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID           domain.RoomID `json:"id"`
	Participants int           `json:"participants"`
	Capacity     int           `json:"capacity"`
}

// TopicInfo reports relay subscriptions per topic.
type TopicInfo struct {
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
}
