package core

import "github.com/pion/webrtc/v4"

// PeerConnection is the subset of a WebRTC peer connection the negotiator drives.
type PeerConnection interface {
	SignalingState() webrtc.SignalingState
	LocalDescription() *webrtc.SessionDescription
	RemoteDescription() *webrtc.SessionDescription

	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error

	// AddLocalTrack attaches a local track for sending.
	AddLocalTrack(webrtc.TrackLocal) error
	// AddReceiver negotiates a receive-only section for kind.
	AddReceiver(kind webrtc.RTPCodecType) error

	// OnICECandidate sets a callback for gathered local candidates.
	// A nil candidate signals that gathering completed.
	OnICECandidate(func(*webrtc.ICECandidateInit))
	// OnTrack sets a callback invoked when a remote track arrives.
	OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))

	Close() error
}

// PeerFactory creates a connection configured with the given ICE servers.
type PeerFactory func(iceServers []webrtc.ICEServer) (PeerConnection, error)
