// Package audio provides the platform audio-input surface: device discovery,
// selection, and acquire/release of microphone streams.
package audio

import (
	"context"
	"errors"
)

var (
	// ErrAccessDenied indicates the platform refused access to the input device.
	ErrAccessDenied = errors.New("audio input access denied")
	// ErrNoDevice indicates no usable input device is present.
	ErrNoDevice = errors.New("no audio input device found")
	// ErrUnsupported indicates the platform cannot capture audio at all.
	ErrUnsupported = errors.New("audio capture unsupported")
)

// Constraints are acquisition hints. Providers apply what they can and ignore the rest.
type Constraints struct {
	Input            string
	Fallback         string
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Stream is one open input handle.
type Stream interface {
	Device() Device
	BytesCaptured() int64
	// StopAllTracks halts delivery without freeing the device.
	StopAllTracks()
	// Release stops tracks and frees the device. Safe to call repeatedly.
	Release() error
}

// Provider acquires input streams from the platform.
type Provider interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(context.Context, Constraints) (Stream, error)

func (f ProviderFunc) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	return f(ctx, c)
}
