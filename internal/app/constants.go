package app

import "time"

const (
	Name             = "fieldtester"
	ConfigFilename   = "config.json"
	SettingsFilename = "settings.bin"
	DBFilename       = "results.db"
	LogFilename      = "app.log"
	HistoryFilename  = "console_history"

	// DefaultFirmwareVersion is reported when the build version is not a release version.
	DefaultFirmwareVersion = "2.0.11"

	writerQueueCapacity  = 256
	shutdownFlushTimeout = 2 * time.Second
)
