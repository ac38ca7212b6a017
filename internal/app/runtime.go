package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rbright/meowspeak/internal/audio"
	"github.com/rbright/meowspeak/internal/capture"
	"github.com/rbright/meowspeak/internal/config"
	"github.com/rbright/meowspeak/internal/permission"
	"github.com/rbright/meowspeak/internal/translate"
	"github.com/rbright/meowspeak/internal/waveform"
)

// runtime is the dependency graph shared by listen and permission.
type runtime struct {
	gateway       *permission.Gateway
	capture       *capture.Manager
	engine        *translate.Engine
	sampler       *waveform.Sampler
	clock         clockwork.Clock
	frameInterval time.Duration
}

func (r Runner) newRuntime(cfg config.Config, logger *slog.Logger) (runtime, error) {
	devices := r.Devices
	if devices == nil {
		devices = audio.NewPulseProvider(logger)
	}
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	storePath := cfg.Permission.StorePath
	if storePath == "" {
		resolved, err := permission.DefaultStorePath()
		if err != nil {
			return runtime{}, fmt.Errorf("resolve permission store: %w", err)
		}
		storePath = resolved
	}
	store := permission.NewStore(storePath)

	var stdin io.Reader = os.Stdin
	if r.Stdin != nil {
		stdin = r.Stdin
	}

	constraints := constraintsFromConfig(cfg.Audio)
	provider, err := permission.NewProvider(permission.Platform(cfg.Platform), permission.Deps{
		Status:      store,
		Plugin:      permission.NewPromptPlugin(store, stdin, r.Stderr, logger),
		Devices:     devices,
		Constraints: constraints,
		Logger:      logger,
	})
	if err != nil {
		return runtime{}, err
	}

	gateway := permission.NewGateway(provider, logger)
	return runtime{
		gateway:       gateway,
		capture:       capture.NewManager(devices, gateway, constraints, logger),
		engine:        translate.NewEngine(windowsFromConfig(cfg), translate.NewRand(cfg.Random.Seed)),
		sampler:       waveform.NewSampler(translate.NewRand(samplerSeed(cfg.Random.Seed))),
		clock:         clock,
		frameInterval: waveform.Interval(cfg.Waveform.FPS),
	}, nil
}

func constraintsFromConfig(cfg config.AudioConfig) audio.Constraints {
	return audio.Constraints{
		Input:            cfg.Input,
		Fallback:         cfg.Fallback,
		SampleRate:       cfg.SampleRate,
		EchoCancellation: cfg.EchoCancellation,
		NoiseSuppression: cfg.NoiseSuppression,
		AutoGainControl:  cfg.AutoGain,
	}
}

func windowsFromConfig(cfg config.Config) translate.Windows {
	return translate.Windows{
		CaptureMin: time.Duration(cfg.Capture.WindowMinMS) * time.Millisecond,
		CaptureMax: time.Duration(cfg.Capture.WindowMaxMS) * time.Millisecond,
		Analysis:   time.Duration(cfg.Analysis.WindowMS) * time.Millisecond,
	}
}

// samplerSeed keeps the waveform stream independent of translation draws
// while staying reproducible for a fixed seed.
func samplerSeed(seed uint64) uint64 {
	if seed == 0 {
		return 0
	}
	return seed + 1
}
