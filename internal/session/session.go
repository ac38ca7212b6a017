// Package session drives the listen -> analyze -> result lifecycle and owns
// every timer, loop, and capture session it starts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rbright/meowspeak/internal/audio"
	"github.com/rbright/meowspeak/internal/capture"
	"github.com/rbright/meowspeak/internal/fsm"
	"github.com/rbright/meowspeak/internal/ipc"
	"github.com/rbright/meowspeak/internal/permission"
	"github.com/rbright/meowspeak/internal/translate"
	"github.com/rbright/meowspeak/internal/waveform"
)

// ErrCancelled is returned by Start when a reset or teardown interrupts it.
var ErrCancelled = errors.New("session start cancelled")

type stopReason string

const (
	stopByUser   stopReason = "user"
	stopByWindow stopReason = "capture_window"
)

// Options carries optional collaborators; zero values get working defaults.
type Options struct {
	Clock         clockwork.Clock
	FrameInterval time.Duration
	Sampler       *waveform.Sampler
	Presenter     Presenter
	Logger        *slog.Logger
}

// run is the cancellation scope of one start attempt. Cancelling ctx
// invalidates its timers and feedback loop together.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc

	loop          *waveform.Loop
	captureTimer  clockwork.Timer
	analysisTimer clockwork.Timer
}

// Controller is the session state machine.
type Controller struct {
	logger        *slog.Logger
	gateway       *permission.Gateway
	capture       *capture.Manager
	engine        *translate.Engine
	sampler       *waveform.Sampler
	clock         clockwork.Clock
	frameInterval time.Duration
	presenter     Presenter

	// notifyMu serializes presenter calls; it is never taken while mu is held.
	notifyMu sync.Mutex

	mu      sync.Mutex
	state   fsm.State
	errMsg  string
	result  *translate.Entry
	frame   waveform.Frame
	session *capture.Session
	current *run
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	gateway *permission.Gateway,
	manager *capture.Manager,
	engine *translate.Engine,
	opts Options,
) *Controller {
	if gateway == nil {
		gateway = permission.NewGateway(nil, opts.Logger)
	}
	if manager == nil {
		manager = capture.NewManager(nil, gateway, audio.Constraints{}, opts.Logger)
	}
	if engine == nil {
		engine = translate.NewEngine(translate.DefaultWindows(), nil)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = waveform.Interval(60)
	}
	if opts.Sampler == nil {
		opts.Sampler = waveform.NewSampler(nil)
	}
	if opts.Presenter == nil {
		opts.Presenter = noopPresenter{}
	}

	return &Controller{
		logger:        opts.Logger,
		gateway:       gateway,
		capture:       manager,
		engine:        engine,
		sampler:       opts.Sampler,
		clock:         opts.Clock,
		frameInterval: opts.FrameInterval,
		presenter:     opts.Presenter,
		state:         fsm.StateIdle,
		frame:         waveform.Baseline(),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the full presentation view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      c.state,
		Permission: c.gateway.State(),
		Error:      c.errMsg,
		Waveform:   c.frame,
	}
	if c.result != nil {
		entry := *c.result
		snap.Result = &entry
	}
	if c.session != nil {
		snap.SessionID = c.session.ID
	}
	return snap
}

// CheckPermission queries permission without prompting.
func (c *Controller) CheckPermission(ctx context.Context) permission.State {
	state := c.gateway.Check(ctx)
	c.notify(ctx)
	return state
}

// Start requests permission, opens a capture session, and begins listening.
// It returns once the controller is Listening or the attempt has failed.
// A failure returns the controller to Idle with the failure message retained.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if err := c.transitionLocked(fsm.EventStart); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("start: %w", err)
	}
	c.errMsg = ""
	c.result = nil
	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{ctx: runCtx, cancel: cancel}
	c.current = r
	c.mu.Unlock()
	c.notify(ctx)

	// The attempt ends on caller cancellation or on reset/teardown.
	reqCtx, reqCancel := context.WithCancel(ctx)
	defer reqCancel()
	stopAfter := context.AfterFunc(runCtx, reqCancel)
	defer stopAfter()

	state, err := c.gateway.Request(reqCtx)
	if err == nil && state == permission.StateDenied {
		err = permission.Denied("permission refused")
	}
	if err != nil {
		return c.failStart(ctx, r, err)
	}

	session, err := c.capture.Start(reqCtx)
	if err != nil {
		return c.failStart(ctx, r, err)
	}

	c.mu.Lock()
	if r.ctx.Err() != nil || c.current != r {
		c.mu.Unlock()
		c.capture.Stop(session)
		return ErrCancelled
	}
	if err := c.transitionLocked(fsm.EventGranted); err != nil {
		c.mu.Unlock()
		c.capture.Stop(session)
		return fmt.Errorf("start: %w", err)
	}
	c.session = session
	window := c.engine.CaptureWindow()
	r.loop = waveform.Start(r.ctx, c.clock, c.frameInterval, c.sampler, c.onFrame)
	r.captureTimer = c.after(r.ctx, window, func() { c.finishListening(r, stopByWindow) })
	c.mu.Unlock()

	c.log("listening started", "session", session.ID, "capture_window_ms", window.Milliseconds())
	c.notify(ctx)
	return nil
}

// failStart records err and returns to Idle, unless a reset already did.
func (c *Controller) failStart(ctx context.Context, r *run, err error) error {
	c.mu.Lock()
	if r.ctx.Err() != nil || c.current != r {
		c.mu.Unlock()
		return ErrCancelled
	}
	classified := permission.Classify(err)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		c.errMsg = ""
	} else {
		c.errMsg = classified.Message()
	}
	_ = c.transitionLocked(fsm.EventFail)
	c.current = nil
	r.cancel()
	c.mu.Unlock()

	c.log("listening start failed", "kind", string(classified.Kind), "error", err.Error())
	c.notify(context.Background())
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	return classified
}

// Stop ends listening early and moves to Analyzing.
func (c *Controller) Stop() error {
	c.mu.Lock()
	state := c.state
	r := c.current
	c.mu.Unlock()

	if state != fsm.StateListening || r == nil {
		return fmt.Errorf("cannot stop from state %s", state)
	}
	if !c.finishListening(r, stopByUser) {
		return fmt.Errorf("cannot stop from state %s", c.State())
	}
	return nil
}

// finishListening releases the capture session and stops feedback before the
// analysis timer is armed.
func (c *Controller) finishListening(r *run, reason stopReason) bool {
	c.mu.Lock()
	if r.ctx.Err() != nil || c.current != r || c.state != fsm.StateListening {
		c.mu.Unlock()
		return false
	}

	if r.captureTimer != nil {
		r.captureTimer.Stop()
		r.captureTimer = nil
	}
	r.loop.Cancel()
	c.capture.Stop(c.session)
	sessionID := c.session.ID
	c.session = nil
	c.frame = waveform.Baseline()

	_ = c.transitionLocked(fsm.EventStop)
	r.analysisTimer = c.after(r.ctx, c.engine.AnalysisWindow(), func() { c.finishAnalysis(r) })
	c.mu.Unlock()

	c.log("listening stopped", "session", sessionID, "reason", string(reason))
	c.notify(context.Background())
	return true
}

func (c *Controller) finishAnalysis(r *run) {
	c.mu.Lock()
	if r.ctx.Err() != nil || c.current != r || c.state != fsm.StateAnalyzing {
		c.mu.Unlock()
		return
	}

	entry := c.engine.Draw()
	c.result = &entry
	r.analysisTimer = nil
	_ = c.transitionLocked(fsm.EventAnalyzed)
	c.current = nil
	r.cancel()
	c.mu.Unlock()

	c.log("translation ready", "sound", entry.Sound, "mood", string(entry.Mood))
	c.notify(context.Background())
}

// Reset clears the result and error and cancels everything in flight.
func (c *Controller) Reset() {
	c.teardown(fsm.EventReset)
}

// Close is the teardown path: it cancels every timer and loop and releases
// any held device, from whatever state the controller is in.
func (c *Controller) Close() {
	c.teardown(fsm.EventTeardown)
	c.capture.Close()
}

func (c *Controller) teardown(event fsm.Event) {
	c.mu.Lock()
	r := c.current
	c.current = nil
	var loop *waveform.Loop
	if r != nil {
		if r.captureTimer != nil {
			r.captureTimer.Stop()
		}
		if r.analysisTimer != nil {
			r.analysisTimer.Stop()
		}
		r.cancel()
		loop = r.loop
	}
	if c.session != nil {
		c.capture.Stop(c.session)
		c.session = nil
	}
	previous := c.state
	c.result = nil
	c.errMsg = ""
	c.frame = waveform.Baseline()
	_ = c.transitionLocked(event)
	c.mu.Unlock()

	if loop != nil {
		<-loop.Done()
	}

	c.log("session reset", "event", string(event), "from", string(previous))
	c.notify(context.Background())
}

func (c *Controller) onFrame(loopCtx context.Context, frame waveform.Frame) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if loopCtx.Err() != nil || c.state != fsm.StateListening {
		c.mu.Unlock()
		return
	}
	c.frame = frame
	c.mu.Unlock()

	c.presenter.Waveform(frame)
}

// after arms a cancellable delayed callback on the controller clock.
func (c *Controller) after(ctx context.Context, d time.Duration, fn func()) clockwork.Timer {
	timer := c.clock.NewTimer(d)
	go func() {
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.Chan():
			fn()
		}
	}()
	return timer
}

// transitionLocked applies one FSM event; c.mu must be held.
func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) notify(ctx context.Context) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.presenter.StateChanged(ctx, c.Snapshot())
}

func (c *Controller) log(message string, attrs ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(message, attrs...)
}

// Handle serves IPC commands for the owner process.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.response("status")
	case ipc.CommandStop:
		if err := c.Stop(); err != nil {
			return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
		}
		return c.response("stop requested")
	case ipc.CommandReset:
		c.Reset()
		return c.response("reset")
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) response(message string) ipc.Response {
	snap := c.Snapshot()
	resp := ipc.Response{
		OK:         true,
		State:      string(snap.State),
		Message:    message,
		Permission: snap.Permission.String(),
		Failure:    snap.Error,
	}
	if snap.Result != nil {
		resp.Translation = &ipc.Translation{
			Sound:   snap.Result.Sound,
			Meaning: snap.Result.Meaning,
			Mood:    string(snap.Result.Mood),
		}
	}
	return resp
}
