package main

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/skobkin/fieldtester/internal/config"
)

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg config.AppConfig)
	}{
		{
			name: "no flags keep config",
			args: nil,
			check: func(t *testing.T, cfg config.AppConfig) {
				if cfg.Connection.Console != config.ConsoleInteractive {
					t.Fatalf("expected console kept, got %q", cfg.Connection.Console)
				}
				if cfg.Connection.SerialBaud != config.DefaultSerialBaud {
					t.Fatalf("expected default baud kept, got %d", cfg.Connection.SerialBaud)
				}
			},
		},
		{
			name: "serial console",
			args: []string{"--console", " Serial ", "-p", "/dev/ttyACM0", "--baud", "9600"},
			check: func(t *testing.T, cfg config.AppConfig) {
				if cfg.Connection.Console != config.ConsoleSerial {
					t.Fatalf("expected serial console, got %q", cfg.Connection.Console)
				}
				if cfg.Connection.SerialPort != "/dev/ttyACM0" || cfg.Connection.SerialBaud != 9600 {
					t.Fatalf("unexpected serial settings: %+v", cfg.Connection)
				}
			},
		},
		{
			name: "tcp console and log level",
			args: []string{"-c", "tcp", "--host", "10.0.0.5", "--port", "4001", "-l", "debug"},
			check: func(t *testing.T, cfg config.AppConfig) {
				if cfg.Connection.Console != config.ConsoleTCP || cfg.Connection.Host != "10.0.0.5" || cfg.Connection.Port != 4001 {
					t.Fatalf("unexpected tcp settings: %+v", cfg.Connection)
				}
				if cfg.Logging.Level != "debug" {
					t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			opts := registerFlags(flags)
			if err := flags.Parse(tc.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}
			cfg := config.Default()
			applyOverrides(&cfg, flags, opts)
			tc.check(t, cfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
		})
	}
}

func TestResolvePaths_DataDir(t *testing.T) {
	dir := t.TempDir()
	paths, err := resolvePaths("  " + dir + "  ")
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	if paths.RootDir != dir {
		t.Fatalf("expected root %q, got %q", dir, paths.RootDir)
	}
}
