package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Interview/internal/domain"
	"github.com/pion/webrtc/v4"
)

type EnvelopeType string

const (
	TypeJoin           EnvelopeType = "JOIN"
	TypeOffer          EnvelopeType = "OFFER"
	TypeAnswer         EnvelopeType = "ANSWER"
	TypeCandidate      EnvelopeType = "CANDIDATE"
	TypeCodeUpdate     EnvelopeType = "CODE_UPDATE"
	TypeTerminalUpdate EnvelopeType = "TERMINAL_UPDATE"

	// TypeRoomFull is only ever sent by the relay, to a rejected joiner.
	TypeRoomFull EnvelopeType = "ROOM_FULL"
)

// Envelope is the tagged message exchanged over a room topic.
// Data is kept raw until the consumer for its type decodes it.
type Envelope struct {
	Type   EnvelopeType            `json:"type"`
	Sender domain.ParticipantToken `json:"sender"`
	Data   json.RawMessage         `json:"data"`
}

type CodeUpdate struct {
	SourceCode *string `json:"sourceCode"`
}

type TerminalUpdate struct {
	Result json.RawMessage `json:"result"`
}

// NewEnvelope marshals payload into Data. A nil payload is encoded as null.
func NewEnvelope(t EnvelopeType, sender domain.ParticipantToken, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, NewError("encode "+string(t), err)
	}
	return Envelope{Type: t, Sender: sender, Data: data}, nil
}

func Encode(env Envelope) ([]byte, error) {
	if env.Data == nil {
		env.Data = json.RawMessage("null")
	}
	return json.Marshal(env)
}

func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, NewError("decode envelope", err)
	}
	if env.Type == "" {
		return Envelope{}, WrapError("decode envelope", ErrSyncApply, "missing type")
	}
	return env, nil
}

func (e Envelope) isNull() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}

// SessionDescription decodes the SDP payload of an OFFER or ANSWER.
func (e Envelope) SessionDescription() (webrtc.SessionDescription, error) {
	var sd webrtc.SessionDescription
	if e.isNull() {
		return sd, WrapError("decode "+string(e.Type), ErrGuardViolation, "empty description")
	}
	if err := json.Unmarshal(e.Data, &sd); err != nil {
		return sd, WrapError("decode "+string(e.Type), ErrGuardViolation, err.Error())
	}
	want := webrtc.SDPTypeOffer
	if e.Type == TypeAnswer {
		want = webrtc.SDPTypeAnswer
	}
	if sd.SDP == "" || sd.Type != want {
		return sd, WrapError("decode "+string(e.Type), ErrGuardViolation, fmt.Sprintf("unexpected sdp type %q", sd.Type.String()))
	}
	return sd, nil
}

// Candidate decodes an ICE candidate payload.
func (e Envelope) Candidate() (webrtc.ICECandidateInit, error) {
	var ci webrtc.ICECandidateInit
	if e.isNull() {
		return ci, WrapError("decode candidate", ErrCandidateRejected, "empty candidate")
	}
	if err := json.Unmarshal(e.Data, &ci); err != nil {
		return ci, WrapError("decode candidate", ErrCandidateRejected, err.Error())
	}
	if ci.Candidate == "" {
		return ci, WrapError("decode candidate", ErrCandidateRejected, "missing candidate line")
	}
	return ci, nil
}

func (e Envelope) CodeUpdate() (string, error) {
	var p CodeUpdate
	if e.isNull() {
		return "", WrapError("decode code update", ErrSyncApply, "empty payload")
	}
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return "", WrapError("decode code update", ErrSyncApply, err.Error())
	}
	if p.SourceCode == nil {
		return "", WrapError("decode code update", ErrSyncApply, "missing sourceCode")
	}
	return *p.SourceCode, nil
}

func (e Envelope) TerminalUpdate() (json.RawMessage, error) {
	var p TerminalUpdate
	if e.isNull() {
		return nil, WrapError("decode terminal update", ErrSyncApply, "empty payload")
	}
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return nil, WrapError("decode terminal update", ErrSyncApply, err.Error())
	}
	if len(p.Result) == 0 || bytes.Equal(p.Result, []byte("null")) {
		return nil, WrapError("decode terminal update", ErrSyncApply, "missing result")
	}
	return p.Result, nil
}
