package permission

import (
	"errors"
	"fmt"

	"github.com/rbright/meowspeak/internal/audio"
)

// Kind is the failure taxonomy surfaced for microphone acquisition.
type Kind string

const (
	KindAccessDenied      Kind = "access_denied"
	KindDeviceNotFound    Kind = "device_not_found"
	KindDeviceUnsupported Kind = "device_unsupported"
	KindUnknown           Kind = "unknown"
)

// Error is a classified microphone failure.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the user-facing text for the failure.
func (e *Error) Message() string {
	switch e.Kind {
	case KindAccessDenied:
		return "Microphone access denied. Please enable it in your device settings."
	case KindDeviceNotFound:
		return "No microphone found on this device."
	case KindDeviceUnsupported:
		return "Microphone capture is not supported on this device."
	default:
		return "Failed to start microphone: " + e.Detail
	}
}

// Denied builds the AccessDenied failure for a refused grant.
func Denied(detail string) *Error {
	return &Error{Kind: KindAccessDenied, Detail: detail}
}

// Classify maps any acquisition error onto the taxonomy. Already classified
// errors pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, audio.ErrAccessDenied):
		return &Error{Kind: KindAccessDenied, Detail: err.Error(), Err: err}
	case errors.Is(err, audio.ErrNoDevice):
		return &Error{Kind: KindDeviceNotFound, Detail: err.Error(), Err: err}
	case errors.Is(err, audio.ErrUnsupported):
		return &Error{Kind: KindDeviceUnsupported, Detail: err.Error(), Err: err}
	default:
		return &Error{Kind: KindUnknown, Detail: err.Error(), Err: err}
	}
}

// Message returns the user-facing text for err, or "" for nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).Message()
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return Classify(err).Kind == kind
}

func unsupported(format string, args ...any) *Error {
	return &Error{Kind: KindDeviceUnsupported, Detail: fmt.Sprintf(format, args...)}
}
