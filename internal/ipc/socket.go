package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

var ErrAlreadyRunning = errors.New("meowspeak is already listening")

const socketName = "meowspeak.sock"

// RuntimeSocketPath is where the owner process listens for control commands.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// ClaimOptions tunes how Claim deals with an existing socket file.
type ClaimOptions struct {
	// Timeout bounds the status call used to decide whether an existing
	// socket still has an owner.
	Timeout time.Duration
	// Retries is how many more stale sockets may be removed after the first
	// one before Claim gives up.
	Retries int
	// Backoff is the wait before each retry; it grows linearly.
	Backoff time.Duration
}

// Claim binds the control socket for a new owner. A socket whose owner still
// answers yields ErrAlreadyRunning. A dead socket is unlinked and the bind is
// retried. An owner that accepts but never answers leaves the socket in place.
func Claim(ctx context.Context, path string, opts ClaimOptions) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 25 * time.Millisecond
	}

	owner := Client{Path: path, Timeout: opts.Timeout}
	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
				_ = listener.Close()
				return nil, fmt.Errorf("restrict socket %s: %w", path, chmodErr)
			}
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("bind %s: %w", path, err)
		}

		alive, aliveErr := owner.Alive(ctx)
		if aliveErr != nil {
			return nil, fmt.Errorf("existing socket %s is unresponsive: %w", path, aliveErr)
		}
		if alive {
			return nil, ErrAlreadyRunning
		}
		if attempt > opts.Retries {
			return nil, fmt.Errorf("claim %s: still in use after %d retries", path, opts.Retries)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		if attempt == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Backoff * time.Duration(attempt)):
		}
	}
}
