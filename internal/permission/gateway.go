package permission

import (
	"context"
	"log/slog"
	"sync"
)

// Gateway holds the process-wide permission state and fronts one Provider.
type Gateway struct {
	provider Provider
	logger   *slog.Logger

	mu    sync.RWMutex
	state State
}

func NewGateway(provider Provider, logger *slog.Logger) *Gateway {
	return &Gateway{provider: provider, logger: logger}
}

// State returns the current permission snapshot.
func (g *Gateway) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Check asks the provider without prompting. An Unknown answer never clears
// a previously determined state.
func (g *Gateway) Check(ctx context.Context) State {
	if g.provider == nil {
		return g.State()
	}
	reported := g.provider.Check(ctx)
	g.record(reported)
	if g.logger != nil {
		g.logger.Debug("permission check", "reported", reported.String(), "state", g.State().String())
	}
	return g.State()
}

// Request asks for access. An already Granted gateway returns immediately
// without consulting the provider.
func (g *Gateway) Request(ctx context.Context) (State, error) {
	if g.State() == StateGranted {
		return StateGranted, nil
	}
	if g.provider == nil {
		return StateUnknown, nil
	}

	state, err := g.provider.Request(ctx)
	g.record(state)
	if g.logger != nil {
		attrs := []any{"result", state.String()}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		g.logger.Info("permission request", attrs...)
	}
	return state, err
}

// MarkGranted records proof of access from a successful capture.
func (g *Gateway) MarkGranted() {
	g.record(StateGranted)
}

// MarkDenied records a refusal observed during capture.
func (g *Gateway) MarkDenied() {
	g.record(StateDenied)
}

func (g *Gateway) record(state State) {
	if state == StateUnknown {
		return
	}
	g.mu.Lock()
	g.state = state
	g.mu.Unlock()
}
