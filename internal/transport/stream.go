package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// StreamTransport runs the console over a plain reader and writer, such as piped stdio.
type StreamTransport struct {
	name string
	r    io.Reader
	w    io.Writer

	mu      sync.Mutex
	open    bool
	readMu  sync.Mutex
	lines   lineBuffer
	writeMu sync.Mutex
}

func NewStreamTransport(name string, r io.Reader, w io.Writer) *StreamTransport {
	if name == "" {
		name = "stream"
	}

	return &StreamTransport{name: name, r: r, w: w}
}

func (t *StreamTransport) Name() string {
	return t.name
}

func (t *StreamTransport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = true

	return nil
}

// Close stops the transport without closing the underlying streams.
func (t *StreamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = false

	return nil
}

func (t *StreamTransport) ReadLine(ctx context.Context) (string, error) {
	if !t.isOpen() {
		return "", ErrNotConnected
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()

	return readLine(ctx, &t.lines, t.r.Read)
}

func (t *StreamTransport) WriteLine(ctx context.Context, line string) error {
	if !t.isOpen() {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := writeLine(ctx, t.w, line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}

	return nil
}

func (t *StreamTransport) isOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.open
}
