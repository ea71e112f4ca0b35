package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/skobkin/fieldtester/internal/config"
)

func TestNewConsoleTransport(t *testing.T) {
	paths := Paths{HistoryFile: "/tmp/history"}
	tests := []struct {
		name     string
		cfg      config.ConnectionConfig
		wantName string
		wantErr  bool
	}{
		{name: "interactive", cfg: config.ConnectionConfig{Console: config.ConsoleInteractive}, wantName: "console"},
		{name: "stdio", cfg: config.ConnectionConfig{Console: config.ConsoleStdio}, wantName: "stdio"},
		{name: "serial", cfg: config.ConnectionConfig{Console: config.ConsoleSerial, SerialPort: "/dev/ttyACM0", SerialBaud: 115200}, wantName: "serial"},
		{name: "tcp", cfg: config.ConnectionConfig{Console: config.ConsoleTCP, Host: "127.0.0.1"}, wantName: "tcp"},
		{name: "unknown", cfg: config.ConnectionConfig{Console: "usb"}, wantErr: true},
	}

	for _, tc := range tests {
		tr, err := NewConsoleTransport(tc.cfg, paths, nil, strings.NewReader(""), &bytes.Buffer{})
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}

			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if tr.Name() != tc.wantName {
			t.Fatalf("%s: expected transport %q, got %q", tc.name, tc.wantName, tr.Name())
		}
	}
}

func TestConsoleTarget(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ConnectionConfig
		want string
	}{
		{name: "serial", cfg: config.ConnectionConfig{Console: config.ConsoleSerial, SerialPort: " /dev/ttyACM0 "}, want: "/dev/ttyACM0"},
		{name: "tcp", cfg: config.ConnectionConfig{Console: config.ConsoleTCP, Host: "bridge.local"}, want: "bridge.local"},
		{name: "stdio", cfg: config.ConnectionConfig{Console: config.ConsoleStdio}, want: "stdio"},
		{name: "unknown", cfg: config.ConnectionConfig{Console: "custom"}, want: ""},
	}

	for _, tc := range tests {
		if got := ConsoleTarget(tc.cfg); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestCommandCompletions(t *testing.T) {
	got := CommandCompletions([]string{"MODE", "TZ"})
	want := []string{"AT", "AT?", "ATC+MODE", "ATC+TZ"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected completions: %v", got)
	}
}
