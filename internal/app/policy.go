package app

import "github.com/dkeye/Interview/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

// Policy decides what happens to a subscriber whose send queue is full.
type Policy interface {
	OnBackPressure(topic string, sid core.SessionID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(topic string, sid core.SessionID) BackpressureAction {
	return KickMember
}
