package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/meowspeak/internal/config"
	"github.com/rbright/meowspeak/internal/fsm"
	"github.com/rbright/meowspeak/internal/indicator"
	"github.com/rbright/meowspeak/internal/ipc"
	"github.com/rbright/meowspeak/internal/output"
	"github.com/rbright/meowspeak/internal/permission"
	"github.com/rbright/meowspeak/internal/session"
	"golang.org/x/sync/errgroup"
)

func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Claim(ctx, socketPath, ipc.ClaimOptions{Timeout: 180 * time.Millisecond, Retries: 8})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer listener.Close()

	rt, err := r.newRuntime(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	notifier := indicator.NewNotifier(cfg.Indicator, logger)
	defer notifier.Wait()

	done := newCompletion()
	presenters := session.Presenters{
		newIndicatorPresenter(notifier, output.NewCopier(cfg.Clipboard, logger), logger),
		done,
	}
	if cfg.Indicator.Backend == config.BackendTerminal || !cfg.Indicator.Enable {
		presenters = append(presenters, newTerminalPresenter(r.Stderr))
	}

	ctrl := session.NewController(rt.gateway, rt.capture, rt.engine, session.Options{
		Clock:         rt.clock,
		FrameInterval: rt.frameInterval,
		Sampler:       rt.sampler,
		Presenter:     presenters,
		Logger:        logger,
	})
	defer ctrl.Close()

	initial := ctrl.CheckPermission(ctx)
	logger.Debug("permission checked", "state", initial.String())

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	serverCtx, serverCancel := context.WithCancel(gctx)

	g.Go(func() error {
		return ipc.Serve(serverCtx, listener, ctrl)
	})

	var outcome session.Snapshot
	var startErr error
	g.Go(func() error {
		defer serverCancel()
		if err := ctrl.Start(gctx); err != nil {
			startErr = err
			outcome = ctrl.Snapshot()
			return nil
		}
		select {
		case outcome = <-done.ch:
		case <-gctx.Done():
			ctrl.Close()
			outcome = ctrl.Snapshot()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		return 1
	}

	logSessionSummary(logger, outcome, startErr, time.Since(started))

	switch {
	case outcome.Result != nil:
		fmt.Fprintln(r.Stdout, outcome.Result.String())
		return 0
	case startErr != nil && !errors.Is(startErr, session.ErrCancelled) && !errors.Is(startErr, context.Canceled):
		fmt.Fprintf(r.Stderr, "error: %s\n", permission.Message(startErr))
		return 1
	default:
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
}

func (r Runner) commandPermission(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	rt, err := r.newRuntime(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if state := rt.gateway.Check(ctx); state == permission.StateGranted {
		fmt.Fprintln(r.Stdout, state.String())
		return 0
	}

	state, err := rt.gateway.Request(ctx)
	fmt.Fprintln(r.Stdout, state.String())
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", permission.Message(err))
		return 1
	}
	if state != permission.StateGranted {
		return 1
	}
	return 0
}

func logSessionSummary(logger *slog.Logger, snap session.Snapshot, err error, elapsed time.Duration) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", string(snap.State),
		"permission", snap.Permission.String(),
		"duration_ms", elapsed.Milliseconds(),
	}
	if snap.Result != nil {
		fields = append(fields, "sound", snap.Result.Sound, "mood", string(snap.Result.Mood))
	}

	if err != nil && !errors.Is(err, session.ErrCancelled) {
		logger.Error("session failed", append(fields, "error", err.Error())...)
		return
	}
	if snap.State != fsm.StateResult {
		logger.Info("session cancelled", fields...)
		return
	}
	logger.Info("session complete", fields...)
}
