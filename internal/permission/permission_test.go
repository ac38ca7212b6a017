package permission

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rbright/meowspeak/internal/audio"
	"github.com/stretchr/testify/require"
)

func TestParseStateAndString(t *testing.T) {
	require.Equal(t, StateGranted, ParseState("granted"))
	require.Equal(t, StateDenied, ParseState("denied"))
	require.Equal(t, StateUnknown, ParseState("prompt"))
	require.Equal(t, StateUnknown, ParseState(""))
	require.Equal(t, "granted", StateGranted.String())
	require.Equal(t, "denied", StateDenied.String())
	require.Equal(t, "unknown", StateUnknown.String())
}

func TestClassifyTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{name: "denied", err: fmt.Errorf("wrap: %w", audio.ErrAccessDenied), kind: KindAccessDenied, message: "Microphone access denied. Please enable it in your device settings."},
		{name: "no device", err: audio.ErrNoDevice, kind: KindDeviceNotFound, message: "No microphone found on this device."},
		{name: "unsupported", err: audio.ErrUnsupported, kind: KindDeviceUnsupported, message: "Microphone capture is not supported on this device."},
		{name: "unknown", err: errors.New("stream exploded"), kind: KindUnknown, message: "Failed to start microphone: stream exploded"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			classified := Classify(tc.err)
			require.Equal(t, tc.kind, classified.Kind)
			require.Equal(t, tc.message, classified.Message())
			require.Equal(t, tc.message, Message(tc.err))
			require.True(t, IsKind(tc.err, tc.kind))
		})
	}

	require.Nil(t, Classify(nil))
	require.Empty(t, Message(nil))
	require.False(t, IsKind(nil, KindUnknown))
}

func TestClassifyPassesThroughClassifiedErrors(t *testing.T) {
	original := Denied("refused")
	wrapped := fmt.Errorf("start: %w", original)
	require.Same(t, original, Classify(wrapped))
	require.Equal(t, "access_denied: refused", original.Error())
	require.Equal(t, "access_denied", (&Error{Kind: KindAccessDenied}).Error())
}

func TestClassifyUnwrapsCause(t *testing.T) {
	classified := Classify(fmt.Errorf("open: %w", audio.ErrNoDevice))
	require.ErrorIs(t, classified, audio.ErrNoDevice)
}

func TestWebCheckFailsSoftToUnknown(t *testing.T) {
	provider := NewWebProvider(&fakeStatus{err: ErrStatusUnsupported}, nil, audio.Constraints{}, nil)
	require.Equal(t, StateUnknown, provider.Check(context.Background()))

	provider = NewWebProvider(&fakeStatus{err: errors.New("boom")}, nil, audio.Constraints{}, nil)
	require.Equal(t, StateUnknown, provider.Check(context.Background()))

	provider = NewWebProvider(nil, nil, audio.Constraints{}, nil)
	require.Equal(t, StateUnknown, provider.Check(context.Background()))

	provider = NewWebProvider(&fakeStatus{state: StateGranted}, nil, audio.Constraints{}, nil)
	require.Equal(t, StateGranted, provider.Check(context.Background()))
}

func TestWebRequestAcquiresAndReleases(t *testing.T) {
	status := &fakeStatus{}
	devices := &fakeDevices{}
	provider := NewWebProvider(status, devices, audio.Constraints{SampleRate: 44100}, nil)

	state, err := provider.Request(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateGranted, state)
	require.Equal(t, int32(1), devices.acquires.Load())
	require.Equal(t, int32(1), devices.stream.released.Load())
	require.Equal(t, []State{StateGranted}, status.saved)
}

func TestWebRequestDenied(t *testing.T) {
	status := &fakeStatus{}
	provider := NewWebProvider(status, &fakeDevices{err: audio.ErrAccessDenied}, audio.Constraints{}, nil)

	state, err := provider.Request(context.Background())
	require.Equal(t, StateDenied, state)
	require.True(t, IsKind(err, KindAccessDenied))
	require.Equal(t, []State{StateDenied}, status.saved)
}

func TestWebRequestNoDeviceIsNotDenial(t *testing.T) {
	provider := NewWebProvider(&fakeStatus{}, &fakeDevices{err: audio.ErrNoDevice}, audio.Constraints{}, nil)

	state, err := provider.Request(context.Background())
	require.Equal(t, StateUnknown, state)
	require.True(t, IsKind(err, KindDeviceNotFound))
}

func TestWebRequestWithoutDevicesIsUnsupported(t *testing.T) {
	provider := NewWebProvider(nil, nil, audio.Constraints{}, nil)
	_, err := provider.Request(context.Background())
	require.True(t, IsKind(err, KindDeviceUnsupported))
}

func TestWebRequestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := NewWebProvider(nil, &fakeDevices{err: errors.New("interrupted")}, audio.Constraints{}, nil)

	state, err := provider.Request(ctx)
	require.Equal(t, StateUnknown, state)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNativeCheck(t *testing.T) {
	require.Equal(t, StateDenied, NewNativeProvider(&fakePlugin{checkState: StateDenied}, nil).Check(context.Background()))
	require.Equal(t, StateUnknown, NewNativeProvider(&fakePlugin{checkErr: errors.New("no plugin")}, nil).Check(context.Background()))
	require.Equal(t, StateUnknown, NewNativeProvider(nil, nil).Check(context.Background()))
}

func TestNativeRequestDeniedIsAccessDenied(t *testing.T) {
	provider := NewNativeProvider(&fakePlugin{requestState: StateDenied}, nil)

	state, err := provider.Request(context.Background())
	require.Equal(t, StateDenied, state)
	require.True(t, IsKind(err, KindAccessDenied))
}

func TestNativeRequestPluginErrorDefersToDevice(t *testing.T) {
	provider := NewNativeProvider(&fakePlugin{requestErr: errors.New("plugin missing")}, nil)

	state, err := provider.Request(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateUnknown, state)
}

func TestNativeRequestGranted(t *testing.T) {
	provider := NewNativeProvider(&fakePlugin{requestState: StateGranted}, nil)

	state, err := provider.Request(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateGranted, state)
}

func TestNewProviderSelectsVariant(t *testing.T) {
	web, err := NewProvider(PlatformWeb, Deps{})
	require.NoError(t, err)
	require.IsType(t, &WebProvider{}, web)

	native, err := NewProvider(PlatformNative, Deps{})
	require.NoError(t, err)
	require.IsType(t, &NativeProvider{}, native)

	_, err = NewProvider(Platform("desktop"), Deps{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown platform")
}

func TestGatewayRequestShortCircuitsWhenGranted(t *testing.T) {
	provider := &fakeProvider{requestState: StateGranted}
	gateway := NewGateway(provider, nil)

	state, err := gateway.Request(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateGranted, state)

	state, err = gateway.Request(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateGranted, state)
	require.Equal(t, int32(1), provider.requests.Load())
}

func TestGatewayStateNeverReturnsToUnknown(t *testing.T) {
	provider := &fakeProvider{checkState: StateDenied}
	gateway := NewGateway(provider, nil)
	require.Equal(t, StateUnknown, gateway.State())

	require.Equal(t, StateDenied, gateway.Check(context.Background()))

	provider.checkState = StateUnknown
	require.Equal(t, StateDenied, gateway.Check(context.Background()))

	provider.requestState = StateUnknown
	_, err := gateway.Request(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDenied, gateway.State())
}

func TestGatewayDeniedCanBecomeGranted(t *testing.T) {
	provider := &fakeProvider{requestState: StateDenied, requestErr: Denied("no")}
	gateway := NewGateway(provider, nil)

	state, err := gateway.Request(context.Background())
	require.Equal(t, StateDenied, state)
	require.True(t, IsKind(err, KindAccessDenied))
	require.Equal(t, StateDenied, gateway.State())

	gateway.MarkGranted()
	require.Equal(t, StateGranted, gateway.State())

	gateway.MarkDenied()
	require.Equal(t, StateDenied, gateway.State())
}

func TestGatewayWithoutProvider(t *testing.T) {
	gateway := NewGateway(nil, nil)
	require.Equal(t, StateUnknown, gateway.Check(context.Background()))
	state, err := gateway.Request(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateUnknown, state)
}
