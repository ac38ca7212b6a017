package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// ErrNoOwner means nothing is listening on the control socket.
var ErrNoOwner = errors.New("no meowspeak owner on socket")

// Client sends one control command per connection to the owner process.
type Client struct {
	Path    string
	Timeout time.Duration
}

// Call sends command and waits for the owner's reply. Dial failures that mean
// no owner is running wrap ErrNoOwner.
func (c Client) Call(ctx context.Context, command string) (Response, error) {
	dialer := net.Dialer{Timeout: c.Timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return Response{}, fmt.Errorf("%w: %v", ErrNoOwner, err)
		}
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := writeMessage(conn, Request{Command: command}); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", command, err)
	}

	var resp Response
	if err := readMessage(conn, &resp); err != nil {
		return Response{}, fmt.Errorf("read %s reply: %w", command, err)
	}
	return resp, nil
}

// Alive reports whether an owner answers status on the socket. Errors other
// than ErrNoOwner leave the answer unknown.
func (c Client) Alive(ctx context.Context) (bool, error) {
	_, err := c.Call(ctx, CommandStatus)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoOwner):
		return false, nil
	default:
		return false, err
	}
}
