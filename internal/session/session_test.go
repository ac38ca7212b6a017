package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rbright/meowspeak/internal/audio"
	"github.com/rbright/meowspeak/internal/capture"
	"github.com/rbright/meowspeak/internal/fsm"
	"github.com/rbright/meowspeak/internal/ipc"
	"github.com/rbright/meowspeak/internal/permission"
	"github.com/rbright/meowspeak/internal/translate"
	"github.com/rbright/meowspeak/internal/waveform"
	"github.com/stretchr/testify/require"
)

const frameInterval = 16 * time.Millisecond

type fakeStream struct {
	released atomic.Int32
}

func (*fakeStream) Device() audio.Device { return audio.Device{ID: "test-mic"} }
func (*fakeStream) BytesCaptured() int64 { return 3200 }
func (*fakeStream) StopAllTracks()       {}
func (f *fakeStream) Release() error     { f.released.Add(1); return nil }

type fakeDevices struct {
	mu      sync.Mutex
	err     error
	streams []*fakeStream
}

func (f *fakeDevices) Acquire(context.Context, audio.Constraints) (audio.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeStream{}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeDevices) acquired() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

func (f *fakeDevices) released() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, s := range f.streams {
		total += int(s.released.Load())
	}
	return total
}

type fakePermission struct {
	state   permission.State
	err     error
	block   bool
	started chan struct{}
}

func (f *fakePermission) Check(context.Context) permission.State { return f.state }

func (f *fakePermission) Request(ctx context.Context) (permission.State, error) {
	if f.block {
		close(f.started)
		<-ctx.Done()
		return permission.StateUnknown, ctx.Err()
	}
	return f.state, f.err
}

type recordingPresenter struct {
	mu     sync.Mutex
	states []fsm.State
	frames []waveform.Frame
}

func (p *recordingPresenter) StateChanged(_ context.Context, snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, snap.State)
}

func (p *recordingPresenter) Waveform(frame waveform.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
}

func (p *recordingPresenter) frameCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

type harness struct {
	ctrl      *Controller
	clock     *clockwork.FakeClock
	devices   *fakeDevices
	presenter *recordingPresenter
}

func newHarness(t *testing.T, provider permission.Provider) *harness {
	t.Helper()
	if provider == nil {
		provider = &fakePermission{state: permission.StateGranted}
	}
	clock := clockwork.NewFakeClock()
	devices := &fakeDevices{}
	presenter := &recordingPresenter{}
	gateway := permission.NewGateway(provider, nil)
	manager := capture.NewManager(devices, gateway, audio.Constraints{}, nil)
	engine := translate.NewEngine(translate.DefaultWindows(), translate.NewRand(7))

	ctrl := NewController(gateway, manager, engine, Options{
		Clock:         clock,
		FrameInterval: frameInterval,
		Sampler:       waveform.NewSampler(translate.NewRand(11)),
		Presenter:     presenter,
	})
	t.Cleanup(ctrl.Close)
	return &harness{ctrl: ctrl, clock: clock, devices: devices, presenter: presenter}
}

func TestControllerFullCycle(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.ctrl.Start(context.Background()))
	snap := h.ctrl.Snapshot()
	require.True(t, snap.Listening())
	require.Equal(t, permission.StateGranted, snap.Permission)
	require.NotEmpty(t, snap.SessionID)
	require.Equal(t, "Listening for meows...", snap.StatusText())

	h.clock.Advance(translate.DefaultCaptureWindowMax)
	waitForState(t, h.ctrl, fsm.StateAnalyzing)
	snap = h.ctrl.Snapshot()
	require.True(t, snap.Analyzing())
	require.True(t, snap.Waveform.IsBaseline())
	require.Empty(t, snap.SessionID)
	require.Equal(t, 1, h.devices.released())
	require.Equal(t, "Analyzing cat sound...", snap.StatusText())

	h.clock.Advance(translate.DefaultAnalysisWindow)
	waitForState(t, h.ctrl, fsm.StateResult)
	snap = h.ctrl.Snapshot()
	require.NotNil(t, snap.Result)
	require.True(t, translate.InCatalog(*snap.Result))
	require.Empty(t, snap.Error)
	require.Equal(t, "Translation complete!", snap.StatusText())

	h.clock.Advance(time.Minute)
	require.Equal(t, fsm.StateResult, h.ctrl.State())

	h.ctrl.Reset()
	snap = h.ctrl.Snapshot()
	require.Equal(t, fsm.StateIdle, snap.State)
	require.Nil(t, snap.Result)
	require.Equal(t, "Tap the button to start", snap.StatusText())
}

func TestControllerStopEndsListeningEarly(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.ctrl.Start(context.Background()))
	require.NoError(t, h.ctrl.Stop())
	require.Equal(t, fsm.StateAnalyzing, h.ctrl.State())
	require.Equal(t, 1, h.devices.released())

	// The capture window timer was cancelled along with listening.
	h.clock.Advance(translate.DefaultAnalysisWindow - time.Millisecond)
	require.Equal(t, fsm.StateAnalyzing, h.ctrl.State())

	h.clock.Advance(time.Millisecond)
	waitForState(t, h.ctrl, fsm.StateResult)
}

func TestControllerStopOutsideListening(t *testing.T) {
	h := newHarness(t, nil)
	err := h.ctrl.Stop()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot stop from state idle")
}

func TestControllerWaveformOnlyWhileListening(t *testing.T) {
	h := newHarness(t, nil)
	require.True(t, h.ctrl.Snapshot().Waveform.IsBaseline())

	require.NoError(t, h.ctrl.Start(context.Background()))
	h.clock.Advance(frameInterval)
	require.Eventually(t, func() bool { return h.presenter.frameCount() > 0 }, 2*time.Second, 5*time.Millisecond)
	for _, value := range h.ctrl.Snapshot().Waveform {
		require.GreaterOrEqual(t, value, waveform.Floor)
		require.Less(t, value, 1.0)
	}

	require.NoError(t, h.ctrl.Stop())
	frames := h.presenter.frameCount()
	for range 5 {
		h.clock.Advance(frameInterval)
	}
	require.Equal(t, frames, h.presenter.frameCount())
	require.True(t, h.ctrl.Snapshot().Waveform.IsBaseline())
}

func TestControllerPermissionDenied(t *testing.T) {
	h := newHarness(t, &fakePermission{state: permission.StateDenied})

	err := h.ctrl.Start(context.Background())
	require.True(t, permission.IsKind(err, permission.KindAccessDenied))

	snap := h.ctrl.Snapshot()
	require.Equal(t, fsm.StateIdle, snap.State)
	require.Equal(t, permission.StateDenied, snap.Permission)
	require.Equal(t, "Microphone access denied. Please enable it in your device settings.", snap.Error)
	require.Equal(t, snap.Error, snap.StatusText())
	require.Zero(t, h.devices.acquired())
}

// unknownUntilAsked cannot report status without prompting and then refuses.
type unknownUntilAsked struct{}

func (unknownUntilAsked) Check(context.Context) permission.State { return permission.StateUnknown }

func (unknownUntilAsked) Request(context.Context) (permission.State, error) {
	return permission.StateDenied, permission.Denied("user refused the prompt")
}

func TestControllerUnknownPermissionThenDenied(t *testing.T) {
	h := newHarness(t, unknownUntilAsked{})

	require.Equal(t, permission.StateUnknown, h.ctrl.CheckPermission(context.Background()))
	require.Equal(t, permission.StateUnknown, h.ctrl.Snapshot().Permission)

	err := h.ctrl.Start(context.Background())
	require.True(t, permission.IsKind(err, permission.KindAccessDenied))

	snap := h.ctrl.Snapshot()
	require.Equal(t, fsm.StateIdle, snap.State)
	require.Equal(t, permission.StateDenied, snap.Permission)
	require.Equal(t, "Microphone access denied. Please enable it in your device settings.", snap.Error)
	require.Nil(t, snap.Result)
	require.Zero(t, h.devices.acquired())
	require.True(t, snap.Waveform.IsBaseline())
}

func TestControllerDeviceNotFound(t *testing.T) {
	h := newHarness(t, nil)
	h.devices.err = audio.ErrNoDevice

	err := h.ctrl.Start(context.Background())
	require.True(t, permission.IsKind(err, permission.KindDeviceNotFound))
	snap := h.ctrl.Snapshot()
	require.Equal(t, fsm.StateIdle, snap.State)
	require.Equal(t, "No microphone found on this device.", snap.Error)

	// A new attempt clears the previous failure.
	h.devices.err = nil
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.Empty(t, h.ctrl.Snapshot().Error)
}

func TestControllerAccessDeniedDuringCapture(t *testing.T) {
	h := newHarness(t, &fakePermission{state: permission.StateUnknown})
	h.devices.err = audio.ErrAccessDenied

	err := h.ctrl.Start(context.Background())
	require.True(t, permission.IsKind(err, permission.KindAccessDenied))
	require.Equal(t, permission.StateDenied, h.ctrl.Snapshot().Permission)
}

func TestControllerRejectsSecondStart(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.ctrl.Start(context.Background()))
	err := h.ctrl.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, fsm.StateListening, h.ctrl.State())
	require.Equal(t, 1, h.devices.acquired())
}

func TestControllerResetWhileListening(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.ctrl.Start(context.Background()))
	h.ctrl.Reset()
	require.Equal(t, fsm.StateIdle, h.ctrl.State())
	require.Equal(t, 1, h.devices.released())

	h.clock.Advance(translate.DefaultCaptureWindowMax + translate.DefaultAnalysisWindow)
	time.Sleep(20 * time.Millisecond)
	snap := h.ctrl.Snapshot()
	require.Equal(t, fsm.StateIdle, snap.State)
	require.Nil(t, snap.Result)
	require.True(t, snap.Waveform.IsBaseline())
}

func TestControllerResetWhileAnalyzing(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.ctrl.Start(context.Background()))
	require.NoError(t, h.ctrl.Stop())
	h.ctrl.Reset()

	h.clock.Advance(translate.DefaultAnalysisWindow)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, fsm.StateIdle, h.ctrl.State())
	require.Nil(t, h.ctrl.Snapshot().Result)
}

func TestControllerResetWhileRequestingPermission(t *testing.T) {
	provider := &fakePermission{block: true, started: make(chan struct{})}
	h := newHarness(t, provider)

	errCh := make(chan error, 1)
	go func() { errCh <- h.ctrl.Start(context.Background()) }()

	<-provider.started
	require.Equal(t, fsm.StateRequestingPermission, h.ctrl.State())
	h.ctrl.Reset()

	require.ErrorIs(t, <-errCh, ErrCancelled)
	snap := h.ctrl.Snapshot()
	require.Equal(t, fsm.StateIdle, snap.State)
	require.Empty(t, snap.Error)
	require.Zero(t, h.devices.acquired())
}

func TestControllerCallerCancelDuringRequest(t *testing.T) {
	provider := &fakePermission{block: true, started: make(chan struct{})}
	h := newHarness(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.ctrl.Start(ctx) }()

	<-provider.started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	snap := h.ctrl.Snapshot()
	require.Equal(t, fsm.StateIdle, snap.State)
	require.Empty(t, snap.Error)
}

func TestControllerCloseReleasesDevice(t *testing.T) {
	for _, stop := range []bool{false, true} {
		h := newHarness(t, nil)
		require.NoError(t, h.ctrl.Start(context.Background()))
		if stop {
			require.NoError(t, h.ctrl.Stop())
		}

		h.ctrl.Close()
		require.Equal(t, fsm.StateIdle, h.ctrl.State())
		require.Equal(t, 1, h.devices.released())
		require.Nil(t, h.ctrl.Snapshot().Result)
	}
}

func TestControllerPresenterSeesTransitions(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.ctrl.Start(context.Background()))
	require.NoError(t, h.ctrl.Stop())
	h.clock.Advance(translate.DefaultAnalysisWindow)
	waitForState(t, h.ctrl, fsm.StateResult)

	h.presenter.mu.Lock()
	defer h.presenter.mu.Unlock()
	require.Equal(t, []fsm.State{
		fsm.StateRequestingPermission,
		fsm.StateListening,
		fsm.StateAnalyzing,
		fsm.StateResult,
	}, h.presenter.states)
}

func TestControllerHandle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	resp := h.ctrl.Handle(ctx, ipc.Request{Command: "status"})
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: "stop"})
	require.False(t, resp.OK)

	require.NoError(t, h.ctrl.Start(ctx))
	resp = h.ctrl.Handle(ctx, ipc.Request{Command: "stop"})
	require.True(t, resp.OK)
	require.Equal(t, "analyzing", resp.State)

	h.clock.Advance(translate.DefaultAnalysisWindow)
	waitForState(t, h.ctrl, fsm.StateResult)
	resp = h.ctrl.Handle(ctx, ipc.Request{Command: "status"})
	require.NotNil(t, resp.Translation)
	require.Equal(t, "granted", resp.Permission)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: "reset"})
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)
	require.Nil(t, resp.Translation)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: "bogus"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command")
}

func TestSnapshotStatusTextRequesting(t *testing.T) {
	snap := Snapshot{State: fsm.StateRequestingPermission}
	require.Equal(t, "Waiting for microphone permission...", snap.StatusText())
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}
