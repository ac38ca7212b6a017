package hypr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoMonitors is returned when hyprctl reports no outputs.
var ErrNoMonitors = errors.New("hyprctl reported no monitors")

// Monitor is the subset of `hyprctl -j monitors` toasts care about.
type Monitor struct {
	Name    string  `json:"name"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Scale   float64 `json:"scale"`
	Focused bool    `json:"focused"`
}

func (m Monitor) String() string {
	if m.Width <= 0 || m.Height <= 0 {
		return m.Name
	}
	return fmt.Sprintf("%s (%dx%d)", m.Name, m.Width, m.Height)
}

// FocusedMonitor returns the output toasts will appear on: the focused one,
// else the first listed.
func FocusedMonitor(ctx context.Context) (Monitor, error) {
	out, err := hyprctl(ctx, "-j", "monitors")
	if err != nil {
		return Monitor{}, err
	}

	var monitors []Monitor
	if err := json.Unmarshal(out, &monitors); err != nil {
		return Monitor{}, fmt.Errorf("decode hyprctl monitors: %w", err)
	}
	if len(monitors) == 0 {
		return Monitor{}, ErrNoMonitors
	}

	chosen := monitors[0]
	for _, m := range monitors {
		if m.Focused {
			chosen = m
			break
		}
	}
	chosen.Name = strings.TrimSpace(chosen.Name)
	return chosen, nil
}
