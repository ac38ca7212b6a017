package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store persists the last permission decision so later runs can report it
// without prompting.
type Store struct {
	path string
	now  func() time.Time
}

type storeRecord struct {
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path), now: time.Now}
}

// DefaultStorePath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func DefaultStorePath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "meowspeak", "permission.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "meowspeak", "permission.json"), nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Query reports the stored decision. A missing record is StateUnknown.
func (s *Store) Query(_ context.Context) (State, error) {
	if s == nil || s.path == "" {
		return StateUnknown, ErrStatusUnsupported
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StateUnknown, nil
		}
		return StateUnknown, fmt.Errorf("read permission store %q: %w", s.path, err)
	}

	var record storeRecord
	if err := json.Unmarshal(content, &record); err != nil {
		return StateUnknown, fmt.Errorf("decode permission store %q: %w", s.path, err)
	}
	return ParseState(record.State), nil
}

// Save records a determined decision. Unknown is never written.
func (s *Store) Save(state State) error {
	if s == nil || s.path == "" {
		return ErrStatusUnsupported
	}
	if state == StateUnknown {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure permission store dir: %w", err)
	}

	payload, err := json.Marshal(storeRecord{State: state.String(), UpdatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode permission store: %w", err)
	}
	if err := os.WriteFile(s.path, append(payload, '\n'), 0o600); err != nil {
		return fmt.Errorf("write permission store %q: %w", s.path, err)
	}
	return nil
}
