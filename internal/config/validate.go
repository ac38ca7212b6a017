package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Platform {
	case PlatformWeb, PlatformNative:
	default:
		return nil, fmt.Errorf("platform must be one of: web, native")
	}
	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("audio.sample_rate must be > 0")
	}
	if cfg.Capture.WindowMinMS <= 0 {
		return nil, fmt.Errorf("capture.window_min_ms must be > 0")
	}
	if cfg.Capture.WindowMaxMS < cfg.Capture.WindowMinMS {
		return nil, fmt.Errorf("capture.window_max_ms must be >= capture.window_min_ms")
	}
	if cfg.Capture.WindowMaxMS == cfg.Capture.WindowMinMS {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("capture window is fixed at %dms", cfg.Capture.WindowMinMS)})
	}
	if cfg.Analysis.WindowMS < 0 {
		return nil, fmt.Errorf("analysis.window_ms must be >= 0")
	}
	if cfg.Waveform.FPS < 1 || cfg.Waveform.FPS > 240 {
		return nil, fmt.Errorf("waveform.fps must be between 1 and 240")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	switch backend {
	case BackendDesktop, BackendHypr, BackendTerminal:
	case "":
		return nil, fmt.Errorf("indicator.backend must not be empty")
	default:
		return nil, fmt.Errorf("indicator.backend must be one of: desktop, hypr, terminal")
	}
	if backend == BackendDesktop && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Clipboard.Enable && len(cfg.Clipboard.Cmd.Argv) == 0 {
		return nil, fmt.Errorf("clipboard.cmd must not be empty when clipboard.enable=true")
	}

	if cfg.Random.Seed != 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("random.seed=%d makes every translation deterministic", cfg.Random.Seed)})
	}

	return warnings, nil
}
