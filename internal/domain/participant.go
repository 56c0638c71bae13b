// Package domain contains entities without logic, just meta-data
package domain

import "github.com/google/uuid"

// ParticipantToken tags envelopes with their origin. It is generated per
// room join and carries no authority.
type ParticipantToken string

// ServerSender is the sender of envelopes originated by the relay itself.
const ServerSender ParticipantToken = "SERVER"

// NewParticipantToken avoids ad-hoc token construction in callers.
func NewParticipantToken() ParticipantToken {
	return ParticipantToken(uuid.NewString())
}

// Short is the display form used in logs.
func (t ParticipantToken) Short() string {
	if len(t) > 8 {
		return string(t[:8])
	}
	return string(t)
}
