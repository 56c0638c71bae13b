package core

// PeerLinkState mirrors the WebRTC signaling states the coordinator cares about.
type PeerLinkState int

const (
	PeerNew PeerLinkState = iota
	PeerHaveLocalOffer
	PeerStable
	PeerClosed
)

func (s PeerLinkState) String() string {
	switch s {
	case PeerNew:
		return "NEW"
	case PeerHaveLocalOffer:
		return "HAVE_LOCAL_OFFER"
	case PeerStable:
		return "STABLE"
	case PeerClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// PeerEvent is an input to the negotiation state machine.
type PeerEvent int

const (
	EventInit PeerEvent = iota
	EventLocalOffer
	EventRemoteOffer
	EventRemoteAnswer
	EventCandidate
	EventClose
)

func (e PeerEvent) String() string {
	switch e {
	case EventInit:
		return "init"
	case EventLocalOffer:
		return "local_offer"
	case EventRemoteOffer:
		return "remote_offer"
	case EventRemoteAnswer:
		return "remote_answer"
	case EventCandidate:
		return "candidate"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

type transitionKey struct {
	from  PeerLinkState
	event PeerEvent
}

// Answering a remote offer is a single step for the coordinator, so it
// never observes have-remote-offer.
var peerTransitions = map[transitionKey]PeerLinkState{
	{PeerNew, EventInit}:                    PeerStable,
	{PeerStable, EventLocalOffer}:           PeerHaveLocalOffer,
	{PeerStable, EventRemoteOffer}:          PeerStable,
	{PeerHaveLocalOffer, EventRemoteAnswer}: PeerStable,
	{PeerStable, EventCandidate}:            PeerStable,
	{PeerHaveLocalOffer, EventCandidate}:    PeerHaveLocalOffer,
	{PeerNew, EventClose}:                   PeerClosed,
	{PeerStable, EventClose}:                PeerClosed,
	{PeerHaveLocalOffer, EventClose}:        PeerClosed,
}

// NextPeerState looks up the transition table. ok is false when the event
// is not allowed in the given state.
func NextPeerState(from PeerLinkState, ev PeerEvent) (PeerLinkState, bool) {
	to, ok := peerTransitions[transitionKey{from, ev}]
	return to, ok
}
