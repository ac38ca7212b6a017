// Package permission resolves and requests microphone access behind one
// contract, with web-style and native-plugin-style platform variants.
package permission

// State is the tri-state microphone permission value.
type State int

const (
	StateUnknown State = iota
	StateGranted
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// ParseState maps stored or reported status strings onto State.
// "prompt" and anything unrecognized are StateUnknown.
func ParseState(raw string) State {
	switch raw {
	case "granted":
		return StateGranted
	case "denied":
		return StateDenied
	default:
		return StateUnknown
	}
}

// Platform selects the provider variant at process start.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformNative Platform = "native"
)
