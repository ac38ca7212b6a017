// Package capture owns the lifecycle of the single open microphone session.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/meowspeak/internal/audio"
	"github.com/rbright/meowspeak/internal/permission"
)

var (
	// ErrSessionActive is returned when Start is called while a session is
	// open or another acquisition is in flight.
	ErrSessionActive = errors.New("capture session already active")
	// ErrClosed is returned by a Start whose acquisition was overtaken by Close.
	ErrClosed = errors.New("capture manager closed during acquisition")
)

// Session is one open microphone stream. Only the Manager touches its stream.
type Session struct {
	ID        string
	StartedAt time.Time

	stream audio.Stream
}

// Device returns the device backing the session.
func (s *Session) Device() audio.Device {
	if s == nil || s.stream == nil {
		return audio.Device{}
	}
	return s.stream.Device()
}

// Manager acquires and releases capture sessions, at most one at a time.
type Manager struct {
	devices     audio.Provider
	gateway     *permission.Gateway
	constraints audio.Constraints
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.Mutex
	active    *Session
	acquiring bool
	// epoch advances on Close so an in-flight acquisition knows to give its
	// stream back.
	epoch uint64
}

func NewManager(devices audio.Provider, gateway *permission.Gateway, constraints audio.Constraints, logger *slog.Logger) *Manager {
	return &Manager{
		devices:     devices,
		gateway:     gateway,
		constraints: constraints,
		logger:      logger,
		now:         time.Now,
	}
}

// Start acquires a device stream. Failures are classified into the permission
// taxonomy; an open session or a concurrent acquisition makes Start fail with
// ErrSessionActive. The lock is not held while the device opens.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.active != nil || m.acquiring {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	if m.devices == nil {
		m.mu.Unlock()
		return nil, &permission.Error{Kind: permission.KindDeviceUnsupported, Detail: "no audio input provider"}
	}
	m.acquiring = true
	epoch := m.epoch
	m.mu.Unlock()

	stream, err := m.devices.Acquire(ctx, m.constraints)

	m.mu.Lock()
	m.acquiring = false
	if err != nil {
		m.mu.Unlock()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		classified := permission.Classify(err)
		if classified.Kind == permission.KindAccessDenied && m.gateway != nil {
			m.gateway.MarkDenied()
		}
		m.log("capture start failed", "kind", string(classified.Kind), "error", err.Error())
		return nil, classified
	}
	if m.epoch != epoch {
		m.mu.Unlock()
		stream.StopAllTracks()
		if releaseErr := stream.Release(); releaseErr != nil {
			m.log("capture release failed", "error", releaseErr.Error())
		}
		m.log("capture discarded after close", "device", stream.Device().ID)
		return nil, ErrClosed
	}

	session := &Session{
		ID:        uuid.NewString(),
		StartedAt: m.now(),
		stream:    stream,
	}
	m.active = session
	m.mu.Unlock()

	// A working stream is proof of permission regardless of earlier checks.
	if m.gateway != nil {
		m.gateway.MarkGranted()
	}

	m.log("capture started", "session", session.ID, "device", stream.Device().ID)
	return session, nil
}

// Stop releases session's device. Stopping nil, a stale, or an already
// stopped session is a no-op.
func (m *Manager) Stop(session *Session) {
	if session == nil {
		return
	}

	m.mu.Lock()
	if m.active != session {
		m.mu.Unlock()
		return
	}
	m.active = nil
	m.mu.Unlock()

	m.release(session)
}

// Close releases whatever session is held. An acquisition still in flight
// releases its stream as soon as it returns.
func (m *Manager) Close() {
	m.mu.Lock()
	session := m.active
	m.active = nil
	m.epoch++
	m.mu.Unlock()

	if session != nil {
		m.release(session)
	}
}

// Active returns the open session, if any.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) release(session *Session) {
	session.stream.StopAllTracks()
	if err := session.stream.Release(); err != nil {
		m.log("capture release failed", "session", session.ID, "error", err.Error())
	}
	m.log("capture stopped",
		"session", session.ID,
		"bytes_captured", session.stream.BytesCaptured(),
		"duration_ms", m.now().Sub(session.StartedAt).Milliseconds(),
	)
}

func (m *Manager) log(message string, attrs ...any) {
	if m.logger == nil {
		return
	}
	m.logger.Info(message, attrs...)
}
