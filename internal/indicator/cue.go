package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/meowspeak/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueResult
	cueCancel
)

const (
	cueSampleRate = 16000
	chirpGap      = 18 * time.Millisecond
	fileCueLimit  = 4 * time.Second
)

// glide is one pitch sweep of a chirp. Frequencies are in Hz.
type glide struct {
	from, to float64
	length   time.Duration
	gain     float64
}

// Cues are short cat-like chirps: rising for attention, falling for
// completion, a quick trill when a translation lands.
var chirps = map[cueKind][]glide{
	cueStart: {
		{from: 520, to: 880, length: 90 * time.Millisecond, gain: 0.18},
		{from: 880, to: 1040, length: 60 * time.Millisecond, gain: 0.15},
	},
	cueStop: {
		{from: 900, to: 600, length: 120 * time.Millisecond, gain: 0.18},
	},
	cueResult: {
		{from: 700, to: 940, length: 45 * time.Millisecond, gain: 0.16},
		{from: 760, to: 1000, length: 45 * time.Millisecond, gain: 0.16},
		{from: 820, to: 1180, length: 70 * time.Millisecond, gain: 0.18},
	},
	cueCancel: {
		{from: 600, to: 420, length: 80 * time.Millisecond, gain: 0.18},
		{from: 420, to: 300, length: 100 * time.Millisecond, gain: 0.15},
	},
}

var renderedChirps = sync.OnceValue(func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(chirps))
	for kind, glides := range chirps {
		out[kind] = renderChirp(glides)
	}
	return out
})

// emitCue plays a configured sound file for kind, or the built-in chirp when
// none is set or the file cannot be played.
func emitCue(kind cueKind, cfg config.IndicatorConfig) error {
	if path := cueFile(kind, cfg); path != "" {
		if err := playFile(path); err == nil {
			return nil
		}
	}
	pcm := renderedChirps()[kind]
	if len(pcm) == 0 {
		return nil
	}
	return playPCM(pcm)
}

func cueFile(kind cueKind, cfg config.IndicatorConfig) string {
	switch kind {
	case cueStart:
		return expandHome(cfg.SoundStartFile)
	case cueStop:
		return expandHome(cfg.SoundStopFile)
	case cueResult:
		return expandHome(cfg.SoundResultFile)
	case cueCancel:
		return expandHome(cfg.SoundCancelFile)
	}
	return ""
}

func expandHome(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

func playFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), fileCueLimit)
	defer cancel()

	if err := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path).Run(); err != nil {
		return fmt.Errorf("pw-play %q: %w", path, err)
	}
	return nil
}

func playPCM(pcm []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("meowspeak"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	rest := pcm
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, rest)
		rest = rest[n:]
		if len(rest) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("meowspeak chirp"),
	)
	if err != nil {
		return fmt.Errorf("open chirp playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play chirp: %w", err)
	}
	return nil
}

// renderChirp concatenates glides with a short silence between each.
func renderChirp(glides []glide) []int16 {
	gap := make([]int16, sampleCount(chirpGap))
	var pcm []int16
	for i, g := range glides {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, renderGlide(g)...)
	}
	return pcm
}

// renderGlide sweeps linearly from g.from to g.to under a Hann window.
// Phase is accumulated per sample so the sweep stays continuous.
func renderGlide(g glide) []int16 {
	n := sampleCount(g.length)
	if n < 2 || g.from <= 0 || g.to <= 0 || g.gain <= 0 {
		return nil
	}

	pcm := make([]int16, n)
	phase := 0.0
	for i := range pcm {
		progress := float64(i) / float64(n-1)
		freq := g.from + (g.to-g.from)*progress
		window := 0.5 - 0.5*math.Cos(2*math.Pi*progress)
		pcm[i] = int16(math.Round(math.Sin(phase) * g.gain * window * math.MaxInt16))
		phase += 2 * math.Pi * freq / cueSampleRate
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
