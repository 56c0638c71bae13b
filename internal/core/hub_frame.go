package core

import "encoding/json"

// HubOp is the framing verb between a participant and the relay.
type HubOp string

const (
	OpSubscribe   HubOp = "subscribe"
	OpUnsubscribe HubOp = "unsubscribe"
	OpPublish     HubOp = "publish"
	OpMessage     HubOp = "message"
	OpPing        HubOp = "ping"
	OpPong        HubOp = "pong"
	OpErrorFrame  HubOp = "error"
)

// HubFrame wraps envelopes on the relay connection.
type HubFrame struct {
	Op    HubOp           `json:"op"`
	Topic string          `json:"topic,omitempty"`
	Body  json.RawMessage `json:"body,omitempty"`
	Error string          `json:"error,omitempty"`
}

// MessageFrame encodes an envelope body as a delivery frame.
func MessageFrame(topic string, body []byte) (Frame, error) {
	return json.Marshal(HubFrame{Op: OpMessage, Topic: topic, Body: body})
}

// PublishFrame encodes an outbound envelope body for topic.
func PublishFrame(topic string, body []byte) (Frame, error) {
	return json.Marshal(HubFrame{Op: OpPublish, Topic: topic, Body: body})
}

func ErrorFrame(topic, msg string) Frame {
	b, _ := json.Marshal(HubFrame{Op: OpErrorFrame, Topic: topic, Error: msg})
	return b
}

func ControlFrame(op HubOp, topic string) Frame {
	b, _ := json.Marshal(HubFrame{Op: op, Topic: topic})
	return b
}
