package hypr

import (
	"context"
	"strconv"
	"time"
)

// Icon is the glyph index accepted by `hyprctl dispatch notify`.
type Icon int

const (
	IconWarning Icon = iota
	IconInfo
	IconHint
	IconError
	IconConfused
	IconOK
)

// DefaultColor is used when a toast has no accent color.
const DefaultColor = "rgb(89b4fa)"

// Toast is one Hyprland notification.
type Toast struct {
	Icon    Icon
	Timeout time.Duration
	Color   string
	Text    string
}

func (t Toast) args() []string {
	color := t.Color
	if color == "" {
		color = DefaultColor
	}
	return []string{
		"--quiet", "dispatch", "notify",
		strconv.Itoa(int(t.Icon)),
		strconv.FormatInt(t.Timeout.Milliseconds(), 10),
		color,
		t.Text,
	}
}

// Show displays t on top of any toasts already visible.
func Show(ctx context.Context, t Toast) error {
	_, err := hyprctl(ctx, t.args()...)
	return err
}

// Dismiss clears every visible toast.
func Dismiss(ctx context.Context) error {
	_, err := hyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
	return err
}
