package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skobkin/fieldtester/internal/datarate"
	"github.com/skobkin/fieldtester/internal/device"
)

func TestAppConfigFillMissingDefaults(t *testing.T) {
	cfg := AppConfig{}
	cfg.FillMissingDefaults()

	if cfg.Connection.Console != ConsoleInteractive {
		t.Fatalf("expected default console %q, got %q", ConsoleInteractive, cfg.Connection.Console)
	}
	if cfg.Connection.SerialBaud != DefaultSerialBaud {
		t.Fatalf("expected default serial baud %d, got %d", DefaultSerialBaud, cfg.Connection.SerialBaud)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Logging.Level)
	}
	if cfg.Device.Region != "EU868" {
		t.Fatalf("expected default region EU868, got %q", cfg.Device.Region)
	}
	if cfg.Device.NetworkMode != "LoRaWAN" {
		t.Fatalf("expected default network mode LoRaWAN, got %q", cfg.Device.NetworkMode)
	}
	if cfg.Device.HWModel != "rak4630" {
		t.Fatalf("expected default hw model rak4630, got %q", cfg.Device.HWModel)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadPartialDeviceSectionKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
  "connection": {
    "console": "serial",
    "serial_port": "/dev/ttyACM0"
  },
  "device": {
    "region": "us915",
    "has_sd": false
  }
}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Connection.SerialBaud != DefaultSerialBaud {
		t.Fatalf("expected default baud, got %d", cfg.Connection.SerialBaud)
	}
	if cfg.Device.HasSD {
		t.Fatalf("expected explicit has_sd=false to be preserved")
	}
	if !cfg.Device.HasRTC {
		t.Fatalf("expected has_rtc to keep its default")
	}
	if !cfg.Device.Joined {
		t.Fatalf("expected joined to keep its default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	sim, err := cfg.Device.SimConfig()
	if err != nil {
		t.Fatalf("sim config: %v", err)
	}
	if sim.Region != datarate.RegionUS915 {
		t.Fatalf("expected US915, got %v", sim.Region)
	}
	if sim.NetworkMode != device.NetworkLoRaWAN {
		t.Fatalf("expected LoRaWAN, got %v", sim.NetworkMode)
	}
	if sim.HasSD {
		t.Fatalf("expected sim without SD card")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Connection.Console = ConsoleTCP
	cfg.Connection.Host = "192.168.1.10"
	cfg.Connection.Port = 2001
	cfg.Device.Datarate = 5
	cfg.Storage.ResultsDB = "/tmp/results.db"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got != cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Connection.Console = ConsoleSerial

	if err := Save(path, cfg); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file to be written, stat err=%v", err)
	}
}

func TestAppConfigValidate(t *testing.T) {
	withConnection := func(conn ConnectionConfig) AppConfig {
		cfg := Default()
		cfg.Connection = conn

		return cfg
	}
	withDevice := func(mutate func(*DeviceConfig)) AppConfig {
		cfg := Default()
		mutate(&cfg.Device)

		return cfg
	}

	tests := []struct {
		name    string
		cfg     AppConfig
		wantErr bool
	}{
		{name: "defaults", cfg: Default()},
		{name: "stdio", cfg: withConnection(ConnectionConfig{Console: ConsoleStdio})},
		{
			name: "valid serial",
			cfg:  withConnection(ConnectionConfig{Console: ConsoleSerial, SerialPort: "/dev/ttyACM0", SerialBaud: 115200}),
		},
		{
			name:    "invalid serial without port",
			cfg:     withConnection(ConnectionConfig{Console: ConsoleSerial, SerialBaud: 115200}),
			wantErr: true,
		},
		{
			name:    "invalid serial with non-positive baud",
			cfg:     withConnection(ConnectionConfig{Console: ConsoleSerial, SerialPort: "COM3"}),
			wantErr: true,
		},
		{
			name: "valid tcp with default port",
			cfg:  withConnection(ConnectionConfig{Console: ConsoleTCP, Host: "bridge.local"}),
		},
		{
			name:    "invalid tcp without host",
			cfg:     withConnection(ConnectionConfig{Console: ConsoleTCP}),
			wantErr: true,
		},
		{
			name:    "invalid tcp port",
			cfg:     withConnection(ConnectionConfig{Console: ConsoleTCP, Host: "bridge.local", Port: 70000}),
			wantErr: true,
		},
		{
			name:    "unknown console",
			cfg:     withConnection(ConnectionConfig{Console: ConsoleType("usb")}),
			wantErr: true,
		},
		{
			name: "as923-1 alias",
			cfg:  withDevice(func(d *DeviceConfig) { d.Region = "AS923-1" }),
		},
		{
			name:    "unknown region",
			cfg:     withDevice(func(d *DeviceConfig) { d.Region = "XX999" }),
			wantErr: true,
		},
		{
			name:    "datarate out of range",
			cfg:     withDevice(func(d *DeviceConfig) { d.Datarate = 16 }),
			wantErr: true,
		},
		{
			name: "p2p network mode",
			cfg:  withDevice(func(d *DeviceConfig) { d.NetworkMode = "p2p" }),
		},
		{
			name:    "unknown network mode",
			cfg:     withDevice(func(d *DeviceConfig) { d.NetworkMode = "zigbee" }),
			wantErr: true,
		},
	}

	for _, tc := range tests {
		err := tc.cfg.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: expected no error, got %v", tc.name, err)
		}
	}
}
