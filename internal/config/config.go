package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skobkin/fieldtester/internal/datarate"
	"github.com/skobkin/fieldtester/internal/device"
)

// ConsoleType identifies which transport carries the AT console.
type ConsoleType string

const (
	ConsoleInteractive ConsoleType = "console"
	ConsoleStdio       ConsoleType = "stdio"
	ConsoleSerial      ConsoleType = "serial"
	ConsoleTCP         ConsoleType = "tcp"
	DefaultSerialBaud              = 115200

	maxDatarate = 15
)

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	LogToFile bool   `json:"log_to_file"`
}

// ConnectionConfig selects the console transport and its parameters.
type ConnectionConfig struct {
	Console    ConsoleType `json:"console"`
	SerialPort string      `json:"serial_port"`
	SerialBaud int         `json:"serial_baud"`
	Host       string      `json:"host"`
	Port       int         `json:"port"`
}

// DeviceConfig describes the simulated radio module the core drives.
type DeviceConfig struct {
	HWModel     string `json:"hw_model"`
	Region      string `json:"region"`
	Datarate    uint8  `json:"datarate"`
	NetworkMode string `json:"network_mode"`
	Joined      bool   `json:"joined"`
	HasRTC      bool   `json:"has_rtc"`
	HasSD       bool   `json:"has_sd"`
}

// StorageConfig overrides the default data file locations. Empty values use the app data dir.
type StorageConfig struct {
	SettingsFile string `json:"settings_file"`
	ResultsDB    string `json:"results_db"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Connection ConnectionConfig `json:"connection"`
	Logging    LoggingConfig    `json:"logging"`
	Device     DeviceConfig     `json:"device"`
	Storage    StorageConfig    `json:"storage"`
}

func Default() AppConfig {
	return AppConfig{
		Connection: ConnectionConfig{
			Console:    ConsoleInteractive,
			SerialPort: "",
			SerialBaud: DefaultSerialBaud,
		},
		Logging: LoggingConfig{
			Level:     "info",
			LogToFile: false,
		},
		Device: DeviceConfig{
			HWModel:     "rak4630",
			Region:      datarate.RegionEU868.String(),
			Datarate:    3,
			NetworkMode: device.NetworkLoRaWAN.String(),
			Joined:      true,
			HasRTC:      true,
			HasSD:       true,
		},
	}
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config json: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	def := Default()
	if c.Connection.Console == "" {
		c.Connection.Console = ConsoleInteractive
	}
	if c.Connection.SerialBaud <= 0 {
		c.Connection.SerialBaud = DefaultSerialBaud
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Device.HWModel) == "" {
		c.Device.HWModel = def.Device.HWModel
	}
	if strings.TrimSpace(c.Device.Region) == "" {
		c.Device.Region = def.Device.Region
	}
	if strings.TrimSpace(c.Device.NetworkMode) == "" {
		c.Device.NetworkMode = def.Device.NetworkMode
	}
}

func (c AppConfig) Validate() error {
	switch c.Connection.Console {
	case ConsoleInteractive, ConsoleStdio:
	case ConsoleSerial:
		if strings.TrimSpace(c.Connection.SerialPort) == "" {
			return errors.New("serial port is required")
		}
		if c.Connection.SerialBaud <= 0 {
			return errors.New("serial baud must be positive")
		}
	case ConsoleTCP:
		if strings.TrimSpace(c.Connection.Host) == "" {
			return errors.New("tcp host is required")
		}
		if c.Connection.Port < 0 || c.Connection.Port > 65535 {
			return fmt.Errorf("invalid tcp port: %d", c.Connection.Port)
		}
	default:
		return fmt.Errorf("unknown console: %s", c.Connection.Console)
	}

	if _, err := datarate.ParseRegion(c.Device.Region); err != nil {
		return fmt.Errorf("device region: %w", err)
	}
	if c.Device.Datarate > maxDatarate {
		return fmt.Errorf("device datarate out of range: %d", c.Device.Datarate)
	}
	if _, err := device.ParseNetworkMode(c.Device.NetworkMode); err != nil {
		return fmt.Errorf("device network mode: %w", err)
	}

	return nil
}

// SimConfig converts the device section into simulator settings. Call Validate first.
func (c DeviceConfig) SimConfig() (device.SimConfig, error) {
	region, err := datarate.ParseRegion(c.Region)
	if err != nil {
		return device.SimConfig{}, fmt.Errorf("device region: %w", err)
	}
	mode, err := device.ParseNetworkMode(c.NetworkMode)
	if err != nil {
		return device.SimConfig{}, fmt.Errorf("device network mode: %w", err)
	}

	sim := device.DefaultSimConfig()
	sim.HWModel = c.HWModel
	sim.Region = region
	sim.Datarate = c.Datarate
	sim.NetworkMode = mode
	sim.Joined = c.Joined
	sim.HasRTC = c.HasRTC
	sim.HasSD = c.HasSD

	return sim, nil
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
