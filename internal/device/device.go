// Package device declares the hardware collaborators the control core talks to
// and provides an in-memory simulation of them.
package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skobkin/fieldtester/internal/datarate"
)

type NetworkMode uint8

const (
	NetworkP2P NetworkMode = iota
	NetworkLoRaWAN
	NetworkFSK
)

var networkModeNames = [...]string{"P2P", "LoRaWAN", "FSK"}

func (m NetworkMode) String() string {
	if int(m) < len(networkModeNames) {
		return networkModeNames[m]
	}

	return fmt.Sprintf("unknown(%d)", uint8(m))
}

func ParseNetworkMode(raw string) (NetworkMode, error) {
	for idx, name := range networkModeNames {
		if strings.EqualFold(strings.TrimSpace(raw), name) {
			return NetworkMode(idx), nil
		}
	}

	return 0, fmt.Errorf("unknown network mode: %q", raw)
}

// Keys holds the LoRaWAN credentials reported by STATUS.
type Keys struct {
	DevEUI  [8]byte
	AppEUI  [8]byte
	AppKey  [16]byte
	AppSKey [16]byte
	NwkSKey [16]byte
	DevAddr [4]byte
}

type P2PParams struct {
	FrequencyHz  uint32
	SF           uint8
	BandwidthKHz uint16
	CR           uint8
	Preamble     uint16
	TXPower      int8
}

type FSKParams struct {
	FrequencyHz uint32
	Bitrate     uint32
	Deviation   uint32
}

// RadioStatus is a snapshot of the radio configuration.
type RadioStatus struct {
	HWModel     string
	NetworkMode NetworkMode
	Joined      bool
	Region      datarate.Region
	Datarate    uint8
	OTAA        bool
	Keys        Keys
	P2P         P2PParams
	FSK         FSKParams
}

// LinkReport is the network's answer to the last test uplink. Distances are in meters
// and DemodMargin is in dB above the demodulation floor.
type LinkReport struct {
	Gateways    int
	MinRSSI     int
	MaxRSSI     int
	MaxSNR      int
	RxRSSI      int
	RxSNR       int
	MinDistance int
	MaxDistance int
	DemodMargin int
	Lost        int
}

// Position is a GNSS fix in decimal degrees.
type Position struct {
	Lat float64
	Lng float64
}

// Radio executes radio configuration and transmissions on behalf of the core.
type Radio interface {
	Status() RadioStatus
	EnableLinkCheck() error
	EnterP2P() error
	EnterFieldTester() error
	// SetContinuousReceive toggles P2P continuous receive.
	SetContinuousReceive(on bool) error
	Region() datarate.Region
	Datarate() uint8
	Send(ctx context.Context, payload []byte) error
	// LastLink returns the answer to the last uplink; ok is false until one arrived.
	LastLink() (LinkReport, bool)
}

// Locator reports the current GNSS position, if there is a fix.
type Locator interface {
	Position() (Position, bool)
}

// SendTimer drives the periodic test transmission.
type SendTimer interface {
	Start(interval time.Duration)
	Stop()
}

type RTC interface {
	Now() time.Time
	Set(t time.Time) error
	// RequestTimeSync asks for a network time sync on the next uplink.
	RequestTimeSync()
}

// Modules reports optional hardware detected at boot.
type Modules interface {
	HasRTC() bool
	HasSD() bool
}

// Readiness reports whether no transmission is in flight.
type Readiness interface {
	ReadyToDump() bool
}
