package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rbright/meowspeak/internal/audio"
	"github.com/rbright/meowspeak/internal/permission"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	stopped  atomic.Int32
	released atomic.Int32
}

func (*fakeStream) Device() audio.Device   { return audio.Device{ID: "fake-mic"} }
func (*fakeStream) BytesCaptured() int64   { return 1024 }
func (f *fakeStream) StopAllTracks()       { f.stopped.Add(1) }
func (f *fakeStream) Release() error       { f.released.Add(1); return nil }

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

type staticProvider struct{ state permission.State }

func (p staticProvider) Check(context.Context) permission.State { return p.state }
func (p staticProvider) Request(context.Context) (permission.State, error) {
	return p.state, nil
}

func TestStartMarksPermissionGranted(t *testing.T) {
	gateway := permission.NewGateway(staticProvider{state: permission.StateDenied}, nil)
	gateway.Check(context.Background())
	require.Equal(t, permission.StateDenied, gateway.State())

	devices := &fakeDevices{}
	manager := NewManager(devices, gateway, audio.Constraints{}, nil)

	session, err := manager.Start(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.False(t, session.StartedAt.IsZero())
	require.Equal(t, "fake-mic", session.Device().ID)
	require.Equal(t, permission.StateGranted, gateway.State())
	require.Same(t, session, manager.Active())
}

func TestStartRejectsSecondSession(t *testing.T) {
	devices := &fakeDevices{}
	manager := NewManager(devices, nil, audio.Constraints{}, nil)

	first, err := manager.Start(context.Background())
	require.NoError(t, err)

	_, err = manager.Start(context.Background())
	require.ErrorIs(t, err, ErrSessionActive)
	require.Len(t, devices.streams, 1)

	manager.Stop(first)
	second, err := manager.Start(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestStopIsIdempotent(t *testing.T) {
	devices := &fakeDevices{}
	manager := NewManager(devices, nil, audio.Constraints{}, nil)

	session, err := manager.Start(context.Background())
	require.NoError(t, err)

	manager.Stop(session)
	manager.Stop(session)
	manager.Stop(nil)

	require.Nil(t, manager.Active())
	require.Equal(t, int32(1), devices.streams[0].released.Load())
	require.Equal(t, int32(1), devices.streams[0].stopped.Load())
}

func TestStopStaleSessionDoesNotReleaseActive(t *testing.T) {
	devices := &fakeDevices{}
	manager := NewManager(devices, nil, audio.Constraints{}, nil)

	first, err := manager.Start(context.Background())
	require.NoError(t, err)
	manager.Stop(first)

	second, err := manager.Start(context.Background())
	require.NoError(t, err)

	manager.Stop(first)
	require.Same(t, second, manager.Active())
	require.Equal(t, int32(0), devices.streams[1].released.Load())
}

func TestCloseReleasesHeldSession(t *testing.T) {
	devices := &fakeDevices{}
	manager := NewManager(devices, nil, audio.Constraints{}, nil)

	_, err := manager.Start(context.Background())
	require.NoError(t, err)

	manager.Close()
	manager.Close()
	require.Nil(t, manager.Active())
	require.Equal(t, int32(1), devices.streams[0].released.Load())
}

type blockingDevices struct {
	entered chan struct{}
	release chan struct{}
	stream  *fakeStream
}

func (b *blockingDevices) Acquire(context.Context, audio.Constraints) (audio.Stream, error) {
	close(b.entered)
	<-b.release
	return b.stream, nil
}

func TestAcquireDoesNotBlockActiveOrClose(t *testing.T) {
	devices := &blockingDevices{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		stream:  &fakeStream{},
	}
	manager := NewManager(devices, nil, audio.Constraints{}, nil)

	type startResult struct {
		session *Session
		err     error
	}
	results := make(chan startResult, 1)
	go func() {
		session, err := manager.Start(context.Background())
		results <- startResult{session: session, err: err}
	}()
	<-devices.entered

	require.Nil(t, manager.Active())
	_, err := manager.Start(context.Background())
	require.ErrorIs(t, err, ErrSessionActive)

	manager.Close()
	close(devices.release)

	got := <-results
	require.ErrorIs(t, got.err, ErrClosed)
	require.Nil(t, got.session)
	require.Nil(t, manager.Active())
	require.Equal(t, int32(1), devices.stream.stopped.Load())
	require.Equal(t, int32(1), devices.stream.released.Load())

	// The manager stays usable after the discarded acquisition.
	manager.devices = &fakeDevices{}
	session, err := manager.Start(context.Background())
	require.NoError(t, err)
	require.Same(t, session, manager.Active())
}

func TestStartFailureIsClassified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind permission.Kind
	}{
		{name: "denied", err: audio.ErrAccessDenied, kind: permission.KindAccessDenied},
		{name: "missing", err: audio.ErrNoDevice, kind: permission.KindDeviceNotFound},
		{name: "unsupported", err: audio.ErrUnsupported, kind: permission.KindDeviceUnsupported},
		{name: "other", err: errors.New("driver crashed"), kind: permission.KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gateway := permission.NewGateway(nil, nil)
			manager := NewManager(&fakeDevices{err: tc.err}, gateway, audio.Constraints{}, nil)

			session, err := manager.Start(context.Background())
			require.Nil(t, session)
			require.True(t, permission.IsKind(err, tc.kind))
			require.Nil(t, manager.Active())
			if tc.kind == permission.KindAccessDenied {
				require.Equal(t, permission.StateDenied, gateway.State())
			} else {
				require.Equal(t, permission.StateUnknown, gateway.State())
			}
		})
	}
}

func TestStartWithoutProviderIsUnsupported(t *testing.T) {
	manager := NewManager(nil, nil, audio.Constraints{}, nil)
	_, err := manager.Start(context.Background())
	require.True(t, permission.IsKind(err, permission.KindDeviceUnsupported))
}

func TestStartCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	manager := NewManager(&fakeDevices{err: errors.New("aborted")}, nil, audio.Constraints{}, nil)

	_, err := manager.Start(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNilSessionDevice(t *testing.T) {
	var s *Session
	require.Equal(t, audio.Device{}, s.Device())
}
