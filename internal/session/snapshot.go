package session

import (
	"context"

	"github.com/rbright/meowspeak/internal/fsm"
	"github.com/rbright/meowspeak/internal/permission"
	"github.com/rbright/meowspeak/internal/translate"
	"github.com/rbright/meowspeak/internal/waveform"
)

// Snapshot is the presentation-facing view of the controller.
type Snapshot struct {
	State      fsm.State
	Permission permission.State
	Error      string
	Waveform   waveform.Frame
	Result     *translate.Entry
	SessionID  string
}

func (s Snapshot) Listening() bool {
	return s.State == fsm.StateListening
}

func (s Snapshot) Analyzing() bool {
	return s.State == fsm.StateAnalyzing
}

// StatusText is the one-line status shown under the waveform.
func (s Snapshot) StatusText() string {
	switch {
	case s.State == fsm.StateRequestingPermission:
		return "Waiting for microphone permission..."
	case s.Listening():
		return "Listening for meows..."
	case s.Analyzing():
		return "Analyzing cat sound..."
	case s.Result != nil:
		return "Translation complete!"
	case s.Error != "":
		return s.Error
	default:
		return "Tap the button to start"
	}
}

// Presenter receives state changes and live waveform frames. Calls are
// serialized; a frame is never delivered after the change that ended listening.
type Presenter interface {
	StateChanged(context.Context, Snapshot)
	Waveform(waveform.Frame)
}

// noopPresenter preserves session flow when no presenter is wired.
type noopPresenter struct{}

func (noopPresenter) StateChanged(context.Context, Snapshot) {}
func (noopPresenter) Waveform(waveform.Frame)                {}

// Presenters fans out to several presenters in order.
type Presenters []Presenter

func (p Presenters) StateChanged(ctx context.Context, snap Snapshot) {
	for _, presenter := range p {
		presenter.StateChanged(ctx, snap)
	}
}

func (p Presenters) Waveform(frame waveform.Frame) {
	for _, presenter := range p {
		presenter.Waveform(frame)
	}
}
