// Package doctor runs runtime readiness diagnostics for config, tools, audio, and permission.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/meowspeak/internal/audio"
	"github.com/rbright/meowspeak/internal/config"
	"github.com/rbright/meowspeak/internal/hypr"
	"github.com/rbright/meowspeak/internal/permission"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})
	checks = append(checks, Check{
		Name:    "platform",
		Pass:    true,
		Message: fmt.Sprintf("permission provider %q", cfg.Config.Platform),
	})
	checks = append(checks, checkPermissionStore(ctx, cfg.Config))

	if cfg.Config.Indicator.Enable {
		switch strings.ToLower(strings.TrimSpace(cfg.Config.Indicator.Backend)) {
		case config.BackendDesktop:
			checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
		case config.BackendHypr:
			checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
			version := checkHyprland(ctx)
			checks = append(checks, version)
			if version.Pass {
				checks = append(checks, checkHyprMonitor(ctx))
			}
		}
	}

	if cfg.Config.Indicator.SoundEnable && hasCueFiles(cfg.Config.Indicator) {
		checks = append(checks, checkBinary("pw-play", "custom cue files play through pw-play"))
	}

	if cfg.Config.Clipboard.Enable {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Cmd.Argv, "clipboard.cmd"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkHyprland(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	version, err := hypr.Version(ctx)
	if err != nil {
		return Check{Name: "hyprctl", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hyprctl", Pass: true, Message: version}
}

// checkHyprMonitor reports which output toasts will land on.
func checkHyprMonitor(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	monitor, err := hypr.FocusedMonitor(ctx)
	if err != nil {
		return Check{Name: "hypr.monitor", Pass: false, Message: err.Error()}
	}
	return Check{Name: "hypr.monitor", Pass: true, Message: "toasts appear on " + monitor.String()}
}

// checkPermissionStore reads the remembered grant. A missing record passes;
// an unreadable one fails because every run would re-prompt.
func checkPermissionStore(ctx context.Context, cfg config.Config) Check {
	path := cfg.Permission.StorePath
	if path == "" {
		resolved, err := permission.DefaultStorePath()
		if err != nil {
			return Check{Name: "permission.store", Pass: false, Message: err.Error()}
		}
		path = resolved
	}

	state, err := permission.NewStore(path).Query(ctx)
	if err != nil {
		return Check{Name: "permission.store", Pass: false, Message: err.Error()}
	}
	if state == permission.StateUnknown {
		return Check{Name: "permission.store", Pass: true, Message: fmt.Sprintf("no remembered decision at %s", path)}
	}
	return Check{Name: "permission.store", Pass: true, Message: fmt.Sprintf("remembered %s at %s", state, path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func hasCueFiles(cfg config.IndicatorConfig) bool {
	for _, path := range []string{cfg.SoundStartFile, cfg.SoundStopFile, cfg.SoundResultFile, cfg.SoundCancelFile} {
		if strings.TrimSpace(path) != "" {
			return true
		}
	}
	return false
}
