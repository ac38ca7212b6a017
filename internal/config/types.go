// Package config resolves, parses, validates, and defaults meowspeak configuration.
package config

const (
	PlatformWeb    = "web"
	PlatformNative = "native"

	BackendDesktop  = "desktop"
	BackendHypr     = "hypr"
	BackendTerminal = "terminal"
)

// Config is the fully materialized runtime configuration used by meowspeak.
type Config struct {
	Platform   string
	Audio      AudioConfig
	Capture    CaptureConfig
	Analysis   AnalysisConfig
	Waveform   WaveformConfig
	Random     RandomConfig
	Permission PermissionConfig
	Indicator  IndicatorConfig
	Clipboard  ClipboardConfig
}

// AudioConfig controls input-source selection and capture hints.
type AudioConfig struct {
	Input            string
	Fallback         string
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGain         bool
}

// CaptureConfig bounds the randomized listening window.
type CaptureConfig struct {
	WindowMinMS int
	WindowMaxMS int
}

// AnalysisConfig sets the fixed analyzing delay.
type AnalysisConfig struct {
	WindowMS int
}

// WaveformConfig sets the feedback frame cadence.
type WaveformConfig struct {
	FPS int
}

// RandomConfig seeds every random draw. Zero means time-seeded.
type RandomConfig struct {
	Seed uint64
}

// PermissionConfig locates the remembered grant.
type PermissionConfig struct {
	StorePath string
}

// IndicatorConfig controls notification and audio cue behavior.
type IndicatorConfig struct {
	Enable          bool
	Backend         string
	DesktopAppName  string
	SoundEnable     bool
	SoundStartFile  string
	SoundStopFile   string
	SoundResultFile string
	SoundCancelFile string
	ErrorTimeoutMS  int
}

// ClipboardConfig controls copying the finished translation.
type ClipboardConfig struct {
	Enable bool
	Cmd    CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
