package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxMessageBytes caps one newline-delimited JSON message in either direction.
const maxMessageBytes = 16 << 10

var errMessageTooLarge = errors.New("message exceeds 16KiB")

func writeMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(payload, '\n'))
	return err
}

// readMessage decodes one line from r. A line longer than maxMessageBytes is
// rejected without reading the rest of it.
func readMessage(r io.Reader, v any) error {
	reader := bufio.NewReaderSize(io.LimitReader(r, maxMessageBytes+1), 512)
	line, err := reader.ReadBytes('\n')
	if len(line) > maxMessageBytes {
		return errMessageTooLarge
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
