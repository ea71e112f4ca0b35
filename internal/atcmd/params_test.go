package atcmd

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestParseUint(t *testing.T) {
	tests := []struct {
		in      string
		limit   uint64
		want    uint64
		wantErr bool
	}{
		{in: "0", limit: 7200, want: 0},
		{in: "7200", limit: 7200, want: 7200},
		{in: "7201", limit: 7200, wantErr: true},
		{in: "", limit: 7200, wantErr: true},
		{in: "-1", limit: 7200, wantErr: true},
		{in: "12a", limit: 7200, wantErr: true},
		{in: " 1", limit: 7200, wantErr: true},
		{in: "99999999999999999999999", limit: 7200, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseUint(tc.in, tc.limit)
			if tc.wantErr {
				if !errors.Is(err, ParamError) {
					t.Fatalf("expected ParamError, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseUint(%q) = %d, %v", tc.in, got, err)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "-11", want: -11},
		{in: "14", want: 14},
		{in: "+3", want: 3},
		{in: "-12", wantErr: true},
		{in: "15", wantErr: true},
		{in: "-", wantErr: true},
		{in: "0x5", wantErr: true},
		{in: "270", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseInt(tc.in, -11, 14)
			if tc.wantErr {
				if Of(err) != ParamError {
					t.Fatalf("expected ParamError, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseInt(%q) = %d, %v", tc.in, got, err)
			}
		})
	}
}

func TestParseHexBytes(t *testing.T) {
	got, err := ParseHexBytes("0aFf", MaxHexChars)
	if err != nil || !slices.Equal(got, []byte{0x0A, 0xFF}) {
		t.Fatalf("unexpected result % X, %v", got, err)
	}

	if _, err := ParseHexBytes(strings.Repeat("ab", 128), MaxHexChars); err != nil {
		t.Fatalf("256 hex characters must be accepted: %v", err)
	}

	for _, bad := range []string{"", "abc", "zz", strings.Repeat("ab", 129)} {
		if _, err := ParseHexBytes(bad, MaxHexChars); !errors.Is(err, ParamError) {
			t.Fatalf("expected ParamError for %q, got %v", bad, err)
		}
	}
}

func TestParseHexUint32(t *testing.T) {
	got, err := ParseHexUint32("deadBEEF")
	if err != nil || got != 0xDEADBEEF {
		t.Fatalf("unexpected result %08X, %v", got, err)
	}
	for _, bad := range []string{"", "123456789", "12g4"} {
		if _, err := ParseHexUint32(bad); !errors.Is(err, ParamError) {
			t.Fatalf("expected ParamError for %q, got %v", bad, err)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	dt, err := ParseDateTime([]string{"2024", "09", "27", "24", "00"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := dt.Time(time.UTC)
	want := time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	bad := [][]string{
		{"2021", "1", "1", "0", "0"},
		{"3001", "1", "1", "0", "0"},
		{"2024", "0", "1", "0", "0"},
		{"2024", "13", "1", "0", "0"},
		{"2024", "1", "32", "0", "0"},
		{"2024", "1", "1", "25", "0"},
		{"2024", "1", "1", "0", "60"},
		{"2024", "1", "1", "0"},
		{"2024", "1", "1", "0", "x"},
	}
	for _, args := range bad {
		if _, err := ParseDateTime(args); !errors.Is(err, ParamError) {
			t.Fatalf("expected ParamError for %v, got %v", args, err)
		}
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line   string
		prefix string
		name   string
		args   []string
		help   bool
	}{
		{line: "ATC+SENDINT=?", prefix: "ATC+", name: "SENDINT", args: []string{"?"}},
		{line: "at+RTC=2024:1:2:3:4\r\n", prefix: "AT+", name: "RTC", args: []string{"2024", "1", "2", "3", "4"}},
		{line: "STATUS", name: "STATUS"},
		{line: "atc+MODE?", prefix: "ATC+", name: "MODE", help: true},
		{line: "ATC+PCKG=", prefix: "ATC+", name: "PCKG", args: []string{""}},
		{line: "ATC+sendint=1", prefix: "ATC+", name: "sendint", args: []string{"1"}},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			inv := ParseLine(tc.line)
			if inv.Prefix != tc.prefix || inv.Name != tc.name || inv.Help != tc.help || !slices.Equal(inv.Args, tc.args) {
				t.Fatalf("unexpected invocation %+v", inv)
			}
		})
	}
}

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatalf("nil must map to OK")
	}
	if Of(errors.New("boom")) != Error {
		t.Fatalf("plain errors must map to Error")
	}
	if _, err := ParseUint("x", 1); Of(err) != ParamError {
		t.Fatalf("wrapped code must be extracted")
	}
}
