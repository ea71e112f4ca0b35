package events

const (
	TopicConsoleStatus  = "console.status"
	TopicCommand        = "command.handled"
	TopicSettingsSaved  = "settings.saved"
	TopicStoreFailure   = "settings.store_failure"
	TopicIntegrityReset = "settings.integrity_reset"
	TopicModeChange     = "mode.change"
	TopicRestart        = "device.restart"
	TopicUplinkSent     = "uplink.sent"
	TopicUplinkOversize = "uplink.oversize"
	TopicSetupMode      = "setup.mode"
)
