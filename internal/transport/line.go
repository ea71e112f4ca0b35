package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// MaxLineLength bounds a single command line; longer input is discarded up to the next terminator.
const MaxLineLength = 512

const lineEnding = "\r\n"

var ErrLineTooLong = errors.New("command line too long")

type lineResult struct {
	line string
	err  error
}

// lineBuffer splits a byte stream on CR or LF. Empty lines are dropped, so CRLF yields one line.
type lineBuffer struct {
	buf      []byte
	ready    []lineResult
	overflow bool
	err      error
}

func (b *lineBuffer) feed(chunk []byte) {
	for _, c := range chunk {
		switch c {
		case '\r', '\n':
			b.terminate()
		default:
			if b.overflow {
				continue
			}
			if len(b.buf) >= MaxLineLength {
				b.overflow = true
				b.buf = b.buf[:0]

				continue
			}
			b.buf = append(b.buf, c)
		}
	}
}

func (b *lineBuffer) terminate() {
	if b.overflow {
		b.overflow = false
		b.ready = append(b.ready, lineResult{err: fmt.Errorf("%w: limit %d bytes", ErrLineTooLong, MaxLineLength)})

		return
	}
	if len(b.buf) == 0 {
		return
	}
	b.ready = append(b.ready, lineResult{line: string(b.buf)})
	b.buf = b.buf[:0]
}

func (b *lineBuffer) pop() (lineResult, bool) {
	if len(b.ready) == 0 {
		return lineResult{}, false
	}
	res := b.ready[0]
	b.ready = b.ready[1:]

	return res, true
}

// fail records a terminal read error. A pending partial line is still delivered first.
func (b *lineBuffer) fail(err error) {
	b.terminate()
	b.err = err
}

// readLine pulls chunks from read until a complete line is buffered. A read returning
// no data and no error (a serial read timeout) just re-checks ctx.
func readLine(ctx context.Context, b *lineBuffer, read func([]byte) (int, error)) (string, error) {
	chunk := make([]byte, 128)
	for {
		if res, ok := b.pop(); ok {
			return res.line, res.err
		}
		if b.err != nil {
			return "", b.err
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := read(chunk)
		if n > 0 {
			b.feed(chunk[:n])
		}
		if err != nil {
			b.fail(err)
		}
	}
}

func writeLine(ctx context.Context, w io.Writer, line string) error {
	return writeFull(ctx, w, []byte(line+lineEnding))
}

func writeFull(ctx context.Context, w io.Writer, buf []byte) error {
	written := 0
	for written < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := w.Write(buf[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		written += n
	}

	return nil
}
