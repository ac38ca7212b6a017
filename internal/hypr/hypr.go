// Package hypr wraps the hyprctl commands meowspeak uses for toasts and
// environment checks.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Version returns the first line of `hyprctl version`.
func Version(ctx context.Context) (string, error) {
	out, err := hyprctl(ctx, "version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// hyprctl runs one hyprctl invocation; stderr is folded into the error.
func hyprctl(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err == nil {
		return out, nil
	}
	if detail := strings.TrimSpace(string(out)); detail != "" {
		return nil, fmt.Errorf("hyprctl %s: %w (%s)", strings.Join(args, " "), err, detail)
	}
	return nil, fmt.Errorf("hyprctl %s: %w", strings.Join(args, " "), err)
}
