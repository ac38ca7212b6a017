// Package waveform produces cosmetic amplitude frames for live listening feedback.
package waveform

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	Bars = 12

	// Floor is both the settled baseline and the lower bound of live samples.
	Floor = 0.3
	span  = 0.7
)

// Frame is one set of bar amplitudes in [Floor, 1.0).
type Frame [Bars]float64

// Baseline returns the flat frame shown whenever listening is not active.
func Baseline() Frame {
	var f Frame
	for i := range f {
		f[i] = Floor
	}
	return f
}

// IsBaseline reports whether every bar sits at Floor.
func (f Frame) IsBaseline() bool {
	return f == Baseline()
}

var levels = []rune("▁▂▃▄▅▆▇█")

// String renders the frame as block glyphs, one per bar.
func (f Frame) String() string {
	out := make([]rune, len(f))
	for i, v := range f {
		idx := int((v - Floor) / span * float64(len(levels)))
		idx = max(0, min(idx, len(levels)-1))
		out[i] = levels[idx]
	}
	return string(out)
}

// Sampler draws independent uniform amplitudes. It is unrelated to captured audio.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Sampler{rng: rng}
}

// Tick produces the next live frame.
func (s *Sampler) Tick() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f Frame
	for i := range f {
		f[i] = Floor + s.rng.Float64()*span
	}
	return f
}

// Interval converts a frames-per-second cadence to a tick period.
func Interval(fps int) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Second / time.Duration(fps)
}

// Loop is a running per-frame sampling task.
type Loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs the sampler on clock's cadence, emitting each frame until ctx ends
// or Stop is called. emit is never called after Stop returns.
func Start(ctx context.Context, clock clockwork.Clock, interval time.Duration, sampler *Sampler, emit func(context.Context, Frame)) *Loop {
	loopCtx, cancel := context.WithCancel(ctx)
	l := &Loop{cancel: cancel, done: make(chan struct{})}

	ticker := clock.NewTicker(interval)
	go func() {
		defer close(l.done)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.Chan():
				if loopCtx.Err() != nil {
					return
				}
				emit(loopCtx, sampler.Tick())
			}
		}
	}()
	return l
}

// Cancel invalidates the loop without waiting for its goroutine.
func (l *Loop) Cancel() {
	if l == nil {
		return
	}
	l.cancel()
}

// Stop cancels the loop and waits for it to exit.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	l.cancel()
	<-l.done
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
