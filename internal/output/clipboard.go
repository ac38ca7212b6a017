// Package output applies result side effects (clipboard copy).
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rbright/meowspeak/internal/config"
	"github.com/rbright/meowspeak/internal/translate"
)

// Copier writes finished translations to the clipboard command.
type Copier struct {
	config config.ClipboardConfig
	logger *slog.Logger
}

// NewCopier constructs a clipboard copier from runtime config.
func NewCopier(cfg config.ClipboardConfig, logger *slog.Logger) *Copier {
	return &Copier{config: cfg, logger: logger}
}

// Enabled reports whether Copy does anything.
func (c *Copier) Enabled() bool {
	return c.config.Enable && len(c.config.Cmd.Argv) > 0
}

// Copy writes the rendered entry to the clipboard when enabled.
func (c *Copier) Copy(ctx context.Context, entry translate.Entry) error {
	if !c.Enabled() {
		return nil
	}

	text := entry.Sound + ": " + entry.Meaning
	clipboardCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(clipboardCtx, c.config.Cmd.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("translation copied to clipboard", "command", c.config.Cmd.Argv[0])
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
