package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skobkin/fieldtester/internal/config"
)

// Paths stores resolved runtime file locations.
type Paths struct {
	RootDir      string
	ConfigFile   string
	SettingsFile string
	DBFile       string
	LogFile      string
	HistoryFile  string
}

// ResolvePaths places every file in the per-user config directory and creates it.
func ResolvePaths() (Paths, error) {
	cfgRoot, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve config dir: %w", err)
	}

	return PathsIn(filepath.Join(cfgRoot, Name))
}

// PathsIn lays out the runtime files under root and creates it.
func PathsIn(root string) (Paths, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return Paths{}, fmt.Errorf("create app data dir: %w", err)
	}

	return Paths{
		RootDir:      root,
		ConfigFile:   filepath.Join(root, ConfigFilename),
		SettingsFile: filepath.Join(root, SettingsFilename),
		DBFile:       filepath.Join(root, DBFilename),
		LogFile:      filepath.Join(root, LogFilename),
		HistoryFile:  filepath.Join(root, HistoryFilename),
	}, nil
}

// WithStorage applies the storage overrides from the config.
func (p Paths) WithStorage(cfg config.StorageConfig) Paths {
	if v := strings.TrimSpace(cfg.SettingsFile); v != "" {
		p.SettingsFile = filepath.Clean(v)
	}
	if v := strings.TrimSpace(cfg.ResultsDB); v != "" {
		p.DBFile = filepath.Clean(v)
	}

	return p
}
