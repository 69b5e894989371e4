package session

// State enumerates the rest and activity states of one client instance.
// Exactly one is current at any time; the tagged representation rules out
// combinations like "scanning and reviewing simultaneously".
type State int

const (
	// StateUnauthenticated means no credential is held; only login and
	// register are available.
	StateUnauthenticated State = iota
	// StateIdle means a credential is held and no camera, result, or
	// library view is active.
	StateIdle
	// StateScanning means a capture stream is open.
	StateScanning
	// StateReviewing means a scan result is held for review.
	StateReviewing
	// StateLibrary means a freshly fetched library snapshot is held.
	StateLibrary
)

// String returns the state name for logs and error messages.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateReviewing:
		return "reviewing"
	case StateLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// Session pairs the bearer credential with the display identity it was
// issued for. Email may be empty right after startup, when the credential
// was loaded from disk but the identity has not been resolved; Email is
// never set without Token.
type Session struct {
	Token string
	Email string
}

// Authenticated reports whether a credential is held.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
