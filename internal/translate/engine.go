package translate

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultCaptureWindowMin = 2000 * time.Millisecond
	DefaultCaptureWindowMax = 4000 * time.Millisecond
	DefaultAnalysisWindow   = 1500 * time.Millisecond
)

// Windows bounds the two timed stages of one analysis run.
type Windows struct {
	CaptureMin time.Duration
	CaptureMax time.Duration
	Analysis   time.Duration
}

// DefaultWindows returns the stock capture/analysis timing.
func DefaultWindows() Windows {
	return Windows{
		CaptureMin: DefaultCaptureWindowMin,
		CaptureMax: DefaultCaptureWindowMax,
		Analysis:   DefaultAnalysisWindow,
	}
}

// Engine simulates analysis: a randomized capture window followed by a fixed
// analysis delay and a uniform draw from the catalog. The draw ignores audio content.
type Engine struct {
	windows Windows

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine builds an engine. A nil rng is replaced with a time-seeded source.
func NewEngine(windows Windows, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = NewRand(0)
	}
	if windows.CaptureMax < windows.CaptureMin {
		windows.CaptureMax = windows.CaptureMin
	}
	return &Engine{windows: windows, rng: rng}
}

// NewRand returns a PCG source for seed, or a time-seeded one when seed is zero.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// CaptureWindow draws a duration uniformly from [CaptureMin, CaptureMax).
func (e *Engine) CaptureWindow() time.Duration {
	span := e.windows.CaptureMax - e.windows.CaptureMin
	if span <= 0 {
		return e.windows.CaptureMin
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.windows.CaptureMin + time.Duration(e.rng.Int64N(int64(span)))
}

// AnalysisWindow is the fixed delay between capture stop and the draw.
func (e *Engine) AnalysisWindow() time.Duration {
	return e.windows.Analysis
}

// Draw picks one catalog entry uniformly at random.
func (e *Engine) Draw() Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return catalog[e.rng.IntN(len(catalog))]
}
