package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Platform: PlatformWeb,
		Audio: AudioConfig{
			Input:            "default",
			Fallback:         "default",
			SampleRate:       44100,
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGain:         true,
		},
		Capture:  CaptureConfig{WindowMinMS: 2000, WindowMaxMS: 4000},
		Analysis: AnalysisConfig{WindowMS: 1500},
		Waveform: WaveformConfig{FPS: 60},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        BackendDesktop,
			DesktopAppName: "meowspeak",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Clipboard: ClipboardConfig{
			Enable: false,
			Cmd:    mustCommand("wl-copy --trim-newline"),
		},
	}
}
