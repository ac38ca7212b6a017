package permission

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ErrNoPromptInput is returned when the prompt plugin has no interactive input.
var ErrNoPromptInput = errors.New("no interactive input for permission prompt")

const promptText = "Allow meowspeak to use the microphone? [y/N] "

// PromptPlugin is the native grant dialog: it asks on a terminal and remembers
// the answer in a Store.
type PromptPlugin struct {
	store  *Store
	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger

	// One reader goroutine serves every prompt. A line typed after its prompt
	// was cancelled answers the next one.
	readOnce sync.Once
	answers  chan promptAnswer
}

type promptAnswer struct {
	line string
	err  error
}

func NewPromptPlugin(store *Store, in io.Reader, out io.Writer, logger *slog.Logger) *PromptPlugin {
	p := &PromptPlugin{store: store, out: out, logger: logger, answers: make(chan promptAnswer, 1)}
	if in != nil {
		p.in = bufio.NewReader(in)
	}
	return p
}

// readAnswers feeds lines until the input fails; the failure is delivered
// once and the channel is closed after it.
func (p *PromptPlugin) readAnswers() {
	defer close(p.answers)
	for {
		line, err := p.in.ReadString('\n')
		p.answers <- promptAnswer{line: line, err: err}
		if err != nil {
			return
		}
	}
}

func (p *PromptPlugin) Check(ctx context.Context) (State, error) {
	return p.store.Query(ctx)
}

// Request returns a remembered grant or prompts. The prompt waits until an
// answer arrives or ctx ends.
func (p *PromptPlugin) Request(ctx context.Context) (State, error) {
	if stored, err := p.store.Query(ctx); err == nil && stored == StateGranted {
		return StateGranted, nil
	}
	if p.in == nil {
		return StateUnknown, ErrNoPromptInput
	}

	if p.out != nil {
		fmt.Fprint(p.out, promptText)
	}

	p.readOnce.Do(func() { go p.readAnswers() })

	var got promptAnswer
	select {
	case <-ctx.Done():
		return StateUnknown, ctx.Err()
	case answer, ok := <-p.answers:
		if !ok {
			return StateUnknown, ErrNoPromptInput
		}
		got = answer
	}
	if got.err != nil && !(errors.Is(got.err, io.EOF) && got.line != "") {
		return StateUnknown, fmt.Errorf("read permission answer: %w", got.err)
	}

	state := StateDenied
	switch strings.ToLower(strings.TrimSpace(got.line)) {
	case "y", "yes":
		state = StateGranted
	}

	// The answer stands even when it cannot be remembered.
	if err := p.store.Save(state); err != nil && !errors.Is(err, ErrStatusUnsupported) {
		logDebug(p.logger, "remember permission answer failed", err)
	}
	return state, nil
}
