// Package indicator turns session milestones into toasts and audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/meowspeak/internal/config"
)

const (
	listeningText = "Listening for meows…"
	analyzingText = "Analyzing cat sound…"
	failedText    = "Translation failed"

	progressTimeout     = 5 * time.Minute
	resultTimeout       = 8 * time.Second
	defaultErrorTimeout = 1200 * time.Millisecond
	dispatchTimeout     = 400 * time.Millisecond
)

// Notifier routes session milestones to the configured toast surface and
// plays the matching cue.
type Notifier struct {
	cfg     config.IndicatorConfig
	logger  *slog.Logger
	surface surface
	cues    func(cueKind, config.IndicatorConfig) error

	soundMu sync.Mutex
	soundWG sync.WaitGroup
}

// NewNotifier picks a surface from cfg. Disabled indicators and the terminal
// backend get no surface and only play cues.
func NewNotifier(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:     cfg,
		logger:  logger,
		surface: surfaceFor(cfg),
		cues:    emitCue,
	}
}

func surfaceFor(cfg config.IndicatorConfig) surface {
	if !cfg.Enable {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.BackendHypr:
		return hyprSurface{}
	case config.BackendDesktop:
		appName := strings.TrimSpace(cfg.DesktopAppName)
		if appName == "" {
			appName = "meowspeak"
		}
		return &busSurface{appName: appName}
	default:
		return nil
	}
}

func (n *Notifier) ShowListening(ctx context.Context) {
	n.playCue(cueStart)
	n.show(ctx, toast{text: listeningText, timeout: progressTimeout, tone: toneProgress, accent: "rgb(89b4fa)"})
}

func (n *Notifier) ShowAnalyzing(ctx context.Context) {
	n.playCue(cueStop)
	n.show(ctx, toast{text: analyzingText, timeout: progressTimeout, tone: toneProgress, accent: "rgb(cba6f7)"})
}

// ShowResult displays the finished translation.
func (n *Notifier) ShowResult(ctx context.Context, text string) {
	n.playCue(cueResult)
	n.show(ctx, toast{text: text, timeout: resultTimeout, tone: toneDone, accent: "rgb(a6e3a1)"})
}

// ShowError displays a failure; an empty text falls back to a generic line.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = failedText
	}
	timeout := time.Duration(n.cfg.ErrorTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultErrorTimeout
	}
	n.show(ctx, toast{text: text, timeout: timeout, tone: toneAlert, accent: "rgb(f38ba8)"})
}

// Cancel plays the cancel cue and clears the surface.
func (n *Notifier) Cancel(ctx context.Context) {
	n.playCue(cueCancel)
	n.Hide(ctx)
}

func (n *Notifier) Hide(ctx context.Context) {
	if n.surface == nil {
		return
	}
	n.dispatch(ctx, n.surface.clear)
}

// Wait blocks until queued cues have finished playing.
func (n *Notifier) Wait() {
	n.soundWG.Wait()
}

func (n *Notifier) show(ctx context.Context, t toast) {
	if n.surface == nil {
		return
	}
	n.dispatch(ctx, func(ctx context.Context) error {
		return n.surface.show(ctx, t)
	})
}

// dispatch bounds a surface call so a stuck notification daemon cannot stall
// the session.
func (n *Notifier) dispatch(ctx context.Context, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		n.debug("indicator dispatch failed", err)
	}
}

// playCue queues a cue; cues never overlap.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.soundWG.Add(1)
	go func() {
		defer n.soundWG.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cues(kind, n.cfg); err != nil {
			n.debug("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) debug(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
