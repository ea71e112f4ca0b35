package transport

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLineBuffer_Terminators(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "crlf", input: "AT\r\nATC+MODE?\r\n", want: []string{"AT", "ATC+MODE?"}},
		{name: "lf", input: "AT\nATC+TZ=3\n", want: []string{"AT", "ATC+TZ=3"}},
		{name: "cr", input: "AT\rAT?\r", want: []string{"AT", "AT?"}},
		{name: "blank lines dropped", input: "\r\n\r\nAT\n\n", want: []string{"AT"}},
		{name: "incomplete", input: "ATC+SENDINT", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b lineBuffer
			b.feed([]byte(tt.input))
			var got []string
			for {
				res, ok := b.pop()
				if !ok {
					break
				}
				if res.err != nil {
					t.Fatalf("unexpected error: %v", res.err)
				}
				got = append(got, res.line)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("unexpected lines: got %q want %q", got, tt.want)
			}
		})
	}
}

func TestLineBuffer_SplitAcrossChunks(t *testing.T) {
	var b lineBuffer
	b.feed([]byte("ATC+SEN"))
	if _, ok := b.pop(); ok {
		t.Fatalf("expected no line before terminator")
	}
	b.feed([]byte("DINT=60\r"))
	b.feed([]byte("\n"))
	res, ok := b.pop()
	if !ok || res.line != "ATC+SENDINT=60" {
		t.Fatalf("unexpected line: %+v ok=%v", res, ok)
	}
	if _, ok := b.pop(); ok {
		t.Fatalf("expected CRLF to produce a single line")
	}
}

func TestLineBuffer_TooLong(t *testing.T) {
	var b lineBuffer
	b.feed([]byte(strings.Repeat("A", MaxLineLength+10) + "\nAT\n"))

	res, ok := b.pop()
	if !ok || !errors.Is(res.err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %+v", res)
	}
	res, ok = b.pop()
	if !ok || res.err != nil || res.line != "AT" {
		t.Fatalf("expected recovery on next line, got %+v", res)
	}
}

func TestLineBuffer_MaxLengthAccepted(t *testing.T) {
	var b lineBuffer
	line := strings.Repeat("A", MaxLineLength)
	b.feed([]byte(line + "\n"))

	res, ok := b.pop()
	if !ok || res.err != nil || res.line != line {
		t.Fatalf("expected line of max length to pass, got err=%v len=%d", res.err, len(res.line))
	}
}

func TestReadLine_DeliversPartialLineBeforeEOF(t *testing.T) {
	var b lineBuffer
	r := strings.NewReader("AT\nATC+MODE?")

	for _, want := range []string{"AT", "ATC+MODE?"} {
		got, err := readLine(context.Background(), &b, r.Read)
		if err != nil {
			t.Fatalf("read line: %v", err)
		}
		if got != want {
			t.Fatalf("unexpected line: got %q want %q", got, want)
		}
	}
	if _, err := readLine(context.Background(), &b, r.Read); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadLine_IdleReadsHonorContext(t *testing.T) {
	var b lineBuffer
	ctx, cancel := context.WithCancel(context.Background())
	reads := 0
	idle := func([]byte) (int, error) {
		reads++
		if reads == 3 {
			cancel()
		}

		return 0, nil
	}

	if _, err := readLine(ctx, &b, idle); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if reads != 3 {
		t.Fatalf("expected 3 idle reads, got %d", reads)
	}
}

func TestCompleteCommand(t *testing.T) {
	candidates := []string{"ATC+MODE", "ATC+MODS", "ATC+SENDINT"}

	got := completeCommand(candidates, "atc+mo")
	if len(got) != 2 || got[0] != "ATC+MODE" || got[1] != "ATC+MODS" {
		t.Fatalf("unexpected completions: %v", got)
	}
	if got := completeCommand(candidates, "ATC+X"); len(got) != 0 {
		t.Fatalf("expected no completions, got %v", got)
	}
}
