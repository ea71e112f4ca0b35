package events

import "time"

// ConsoleState describes the command console lifecycle state.
type ConsoleState string

const (
	ConsoleStateDisconnected ConsoleState = "disconnected"
	ConsoleStateConnecting   ConsoleState = "connecting"
	ConsoleStateConnected    ConsoleState = "connected"
	ConsoleStateClosed       ConsoleState = "closed"
)

// ConsoleStatus is a bus event snapshot of the console transport.
type ConsoleStatus struct {
	State         ConsoleState
	Err           string
	TransportName string
	Target        string
	Timestamp     time.Time
}

// CommandHandled is published after every dispatched command line.
type CommandHandled struct {
	Name     string
	Args     []string
	Code     string
	Duration time.Duration
}

// SettingsSaved is published after the settings record was written.
type SettingsSaved struct {
	Reason   string
	Checksum uint32
	At       time.Time
}

// StoreFailure is published when a settings write failed after its retry.
type StoreFailure struct {
	Reason string
	Err    string
}

// IntegrityReset is published when a stored record failed the magic or checksum check
// and was replaced with defaults.
type IntegrityReset struct {
	Cause string
	At    time.Time
}

// ModeChange describes an accepted test mode transition.
type ModeChange struct {
	From string
	To   string
}

// RestartNotice announces an upcoming device restart.
type RestartNotice struct {
	Reason string
	Delay  time.Duration
}

// UplinkSent is published after a packet was handed to the radio.
type UplinkSent struct {
	Size     int
	Datarate uint8
}

// OversizeNotice is the user-visible notice for a packet the current datarate cannot carry.
type OversizeNotice struct {
	Size     int
	Required uint8
	Current  uint8
	Lines    []string
}

// SetupMode is published when setup mode is toggled.
type SetupMode struct {
	Active bool
}
