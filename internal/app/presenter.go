package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/rbright/meowspeak/internal/fsm"
	"github.com/rbright/meowspeak/internal/indicator"
	"github.com/rbright/meowspeak/internal/output"
	"github.com/rbright/meowspeak/internal/session"
	"github.com/rbright/meowspeak/internal/waveform"
	"golang.org/x/term"
)

// completion reports the first terminal snapshot of a started session:
// a result, or a return to idle after listening began.
type completion struct {
	ch chan session.Snapshot

	mu      sync.Mutex
	started bool
}

func newCompletion() *completion {
	return &completion{ch: make(chan session.Snapshot, 1)}
}

func (c *completion) StateChanged(_ context.Context, snap session.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch snap.State {
	case fsm.StateListening, fsm.StateAnalyzing:
		c.started = true
		return
	case fsm.StateResult:
	case fsm.StateIdle:
		if !c.started {
			return
		}
	default:
		return
	}

	c.started = false
	select {
	case c.ch <- snap:
	default:
	}
}

func (c *completion) Waveform(waveform.Frame) {}

// indicatorPresenter maps state changes onto notifications, cues, and the
// clipboard.
type indicatorPresenter struct {
	notifier *indicator.Notifier
	copier   *output.Copier
	logger   *slog.Logger

	prev fsm.State
}

func newIndicatorPresenter(notifier *indicator.Notifier, copier *output.Copier, logger *slog.Logger) *indicatorPresenter {
	return &indicatorPresenter{notifier: notifier, copier: copier, logger: logger, prev: fsm.StateIdle}
}

// StateChanged is serialized by the controller, so prev needs no lock.
func (p *indicatorPresenter) StateChanged(ctx context.Context, snap session.Snapshot) {
	prev := p.prev
	p.prev = snap.State
	if prev == snap.State {
		return
	}

	switch snap.State {
	case fsm.StateListening:
		p.notifier.ShowListening(ctx)
	case fsm.StateAnalyzing:
		p.notifier.ShowAnalyzing(ctx)
	case fsm.StateResult:
		if snap.Result == nil {
			return
		}
		p.notifier.ShowResult(ctx, snap.Result.String())
		if p.copier.Enabled() {
			if err := p.copier.Copy(ctx, *snap.Result); err != nil && p.logger != nil {
				p.logger.Error("copy translation failed", "error", err.Error())
			}
		}
	case fsm.StateIdle:
		switch {
		case snap.Error != "":
			p.notifier.ShowError(ctx, snap.Error)
		case prev == fsm.StateResult:
		default:
			p.notifier.Cancel(ctx)
		}
	}
}

func (p *indicatorPresenter) Waveform(waveform.Frame) {}

// terminalPresenter writes status lines and, on a terminal, a live
// waveform line redrawn in place.
type terminalPresenter struct {
	out  io.Writer
	live bool

	prev  fsm.State
	drawn bool
}

func newTerminalPresenter(out io.Writer) *terminalPresenter {
	return &terminalPresenter{out: out, live: isTerminal(out), prev: fsm.StateIdle}
}

// StateChanged prints in-flight stages only; the listen command reports the
// outcome itself.
func (p *terminalPresenter) StateChanged(_ context.Context, snap session.Snapshot) {
	if snap.State == p.prev {
		return
	}
	p.prev = snap.State
	p.clearLine()
	switch snap.State {
	case fsm.StateRequestingPermission, fsm.StateListening, fsm.StateAnalyzing:
		fmt.Fprintln(p.out, snap.StatusText())
	}
}

func (p *terminalPresenter) Waveform(frame waveform.Frame) {
	if !p.live {
		return
	}
	fmt.Fprintf(p.out, "\r%s", frame.String())
	p.drawn = true
}

func (p *terminalPresenter) clearLine() {
	if !p.drawn {
		return
	}
	fmt.Fprint(p.out, "\r\033[K")
	p.drawn = false
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
