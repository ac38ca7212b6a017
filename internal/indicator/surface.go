package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rbright/meowspeak/internal/hypr"
)

type tone int

const (
	toneProgress tone = iota
	toneDone
	toneAlert
)

type toast struct {
	text    string
	timeout time.Duration
	tone    tone
	accent  string
}

// surface is where toasts are drawn.
type surface interface {
	show(ctx context.Context, t toast) error
	clear(ctx context.Context) error
}

type hyprSurface struct{}

func (hyprSurface) show(ctx context.Context, t toast) error {
	icon := hypr.IconInfo
	switch t.tone {
	case toneDone:
		icon = hypr.IconOK
	case toneAlert:
		icon = hypr.IconError
	}
	return hypr.Show(ctx, hypr.Toast{Icon: icon, Timeout: t.timeout, Color: t.accent, Text: t.text})
}

func (hyprSurface) clear(ctx context.Context) error {
	return hypr.Dismiss(ctx)
}

const (
	busDest  = "org.freedesktop.Notifications"
	busPath  = "/org/freedesktop/Notifications"
	busIface = "org.freedesktop.Notifications"
	busIcon  = "audio-input-microphone"
)

// busSurface talks to the freedesktop notification daemon through busctl and
// keeps replacing one notification for the whole session.
type busSurface struct {
	appName string

	mu sync.Mutex
	id uint32
}

func (b *busSurface) show(ctx context.Context, t toast) error {
	b.mu.Lock()
	replaces := b.id
	b.mu.Unlock()

	out, err := busctl(ctx, "Notify", "susssasa{sv}i",
		b.appName,
		strconv.FormatUint(uint64(replaces), 10),
		busIcon,
		t.text,
		"",
		"0",
		"1", "urgency", "y", strconv.Itoa(urgency(t.tone)),
		strconv.FormatInt(t.timeout.Milliseconds(), 10),
	)
	if err != nil {
		return err
	}

	var id uint32
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "u %d", &id); err != nil {
		return fmt.Errorf("busctl Notify reply %q: %w", strings.TrimSpace(string(out)), err)
	}

	b.mu.Lock()
	b.id = id
	b.mu.Unlock()
	return nil
}

func (b *busSurface) clear(ctx context.Context) error {
	b.mu.Lock()
	id := b.id
	b.id = 0
	b.mu.Unlock()

	if id == 0 {
		return nil
	}
	_, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

// urgency maps a tone onto the freedesktop levels: 1 normal, 2 critical.
func urgency(t tone) int {
	if t == toneAlert {
		return 2
	}
	return 1
}

func busctl(ctx context.Context, method, signature string, args ...string) ([]byte, error) {
	argv := append([]string{"--user", "call", busDest, busPath, busIface, method, signature}, args...)
	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	if err == nil {
		return out, nil
	}
	if detail := strings.TrimSpace(string(out)); detail != "" {
		return nil, fmt.Errorf("busctl %s: %w (%s)", method, err, detail)
	}
	return nil, fmt.Errorf("busctl %s: %w", method, err)
}
