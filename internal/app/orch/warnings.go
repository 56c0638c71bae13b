package orch

type WarningKind int

const (
	WarnConnect WarningKind = iota
	WarnMedia
	WarnRoomFull
)

func (k WarningKind) String() string {
	switch k {
	case WarnConnect:
		return "connect"
	case WarnMedia:
		return "media"
	case WarnRoomFull:
		return "room_full"
	default:
		return "unknown"
	}
}

// Warning is a user-visible degradation. None of them are fatal.
type Warning struct {
	Kind WarningKind
	Err  error
}

func (w Warning) Error() string { return w.Kind.String() + ": " + w.Err.Error() }

// Warnings delivers user-visible degradations. Slow readers lose warnings.
func (s *Session) Warnings() <-chan Warning { return s.warnings }

func (s *Session) warn(kind WarningKind, err error) {
	s.logger.Warn().Err(err).Str("warning", kind.String()).Msg("session degraded")
	select {
	case s.warnings <- Warning{Kind: kind, Err: err}:
	default:
	}
}
