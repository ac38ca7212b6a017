package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbright/meowspeak/internal/audio"
)

// ErrStatusUnsupported is returned by status queries the platform cannot answer.
var ErrStatusUnsupported = errors.New("permission status query unsupported")

// Provider is one platform's permission surface.
//
// Check is a best-effort query that never prompts. Request may prompt; a
// StateUnknown result with a nil error means the platform could not decide and
// device acquisition is authoritative.
type Provider interface {
	Check(context.Context) State
	Request(context.Context) (State, error)
}

// StatusQuery reports a stored or platform permission status without prompting.
type StatusQuery interface {
	Query(context.Context) (State, error)
}

// Recorder remembers a determined decision for later status queries.
type Recorder interface {
	Save(State) error
}

// Plugin is a native permission plugin with distinct check and request calls.
type Plugin interface {
	Check(context.Context) (State, error)
	Request(context.Context) (State, error)
}

// WebProvider queries a permission status object and requests access by
// acquiring and immediately releasing a device stream.
type WebProvider struct {
	status      StatusQuery
	devices     audio.Provider
	constraints audio.Constraints
	logger      *slog.Logger
}

func NewWebProvider(status StatusQuery, devices audio.Provider, constraints audio.Constraints, logger *slog.Logger) *WebProvider {
	return &WebProvider{status: status, devices: devices, constraints: constraints, logger: logger}
}

// Check fails soft: a query error is Unknown, never Denied.
func (w *WebProvider) Check(ctx context.Context) State {
	if w.status == nil {
		return StateUnknown
	}
	state, err := w.status.Query(ctx)
	if err != nil {
		logDebug(w.logger, "permission status query unavailable", err)
		return StateUnknown
	}
	return state
}

func (w *WebProvider) Request(ctx context.Context) (State, error) {
	if w.devices == nil {
		return StateUnknown, unsupported("no audio input provider")
	}

	stream, err := w.devices.Acquire(ctx, w.constraints)
	if err != nil {
		if ctx.Err() != nil {
			return StateUnknown, ctx.Err()
		}
		classified := Classify(err)
		if classified.Kind == KindAccessDenied {
			w.remember(StateDenied)
			return StateDenied, classified
		}
		return StateUnknown, classified
	}

	// Access is proven; the test stream is not kept.
	if releaseErr := stream.Release(); releaseErr != nil {
		logDebug(w.logger, "permission test stream release failed", releaseErr)
	}
	w.remember(StateGranted)
	return StateGranted, nil
}

func (w *WebProvider) remember(state State) {
	recorder, ok := w.status.(Recorder)
	if !ok {
		return
	}
	if err := recorder.Save(state); err != nil && !errors.Is(err, ErrStatusUnsupported) {
		logDebug(w.logger, "remember permission state failed", err)
	}
}

// NativeProvider asks a platform plugin before any device access.
type NativeProvider struct {
	plugin Plugin
	logger *slog.Logger
}

func NewNativeProvider(plugin Plugin, logger *slog.Logger) *NativeProvider {
	return &NativeProvider{plugin: plugin, logger: logger}
}

func (n *NativeProvider) Check(ctx context.Context) State {
	if n.plugin == nil {
		return StateUnknown
	}
	state, err := n.plugin.Check(ctx)
	if err != nil {
		logDebug(n.logger, "permission plugin check failed", err)
		return StateUnknown
	}
	return state
}

// Request asks the plugin for a grant. A plugin error defers the decision to
// device acquisition; a plugin denial is final for this attempt.
func (n *NativeProvider) Request(ctx context.Context) (State, error) {
	if n.plugin == nil {
		return StateUnknown, nil
	}

	state, err := n.plugin.Request(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return StateUnknown, ctx.Err()
		}
		logDebug(n.logger, "permission plugin request failed; deferring to device access", err)
		return StateUnknown, nil
	}

	switch state {
	case StateGranted:
		return StateGranted, nil
	case StateDenied:
		return StateDenied, Denied("native permission refused")
	default:
		return StateUnknown, nil
	}
}

// Deps carries the collaborators needed by either provider variant.
type Deps struct {
	Status      StatusQuery
	Plugin      Plugin
	Devices     audio.Provider
	Constraints audio.Constraints
	Logger      *slog.Logger
}

// NewProvider selects the provider variant for platform.
func NewProvider(platform Platform, deps Deps) (Provider, error) {
	switch platform {
	case PlatformWeb, "":
		return NewWebProvider(deps.Status, deps.Devices, deps.Constraints, deps.Logger), nil
	case PlatformNative:
		return NewNativeProvider(deps.Plugin, deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}

func logDebug(logger *slog.Logger, message string, err error) {
	if logger == nil || err == nil {
		return
	}
	logger.Debug(message, "error", err.Error())
}
