package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handler answers one control command.
type Handler interface {
	Handle(context.Context, Request) Response
}

type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// requestTimeout bounds how long a connected client may take to send its
// command.
var requestTimeout = 2 * time.Second

// Serve answers control connections until ctx ends or listener closes, then
// waits for in-flight replies.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var conns errgroup.Group
	for {
		conn, err := listener.Accept()
		if err != nil {
			_ = conns.Wait()
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}
		conns.Go(func() error {
			defer conn.Close()
			_ = writeMessage(conn, answer(ctx, conn, handler))
			return nil
		})
	}
}

func answer(ctx context.Context, conn net.Conn, handler Handler) Response {
	if err := conn.SetReadDeadline(time.Now().Add(requestTimeout)); err != nil {
		return refuse("set read deadline: %v", err)
	}

	var req Request
	if err := readMessage(conn, &req); err != nil {
		return refuse("decode request: %v", err)
	}
	if !req.Known() {
		return refuse("unknown command: %s", req.Command)
	}
	return handler.Handle(ctx, req)
}

func refuse(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}
