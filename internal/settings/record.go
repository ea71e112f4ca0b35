package settings

import "fmt"

// Mode is the test mode the instrument runs in.
type Mode uint8

const (
	ModeLinkCheck Mode = iota
	ModeP2P
	ModeFieldTester
	ModeFieldTesterV2
	ModeMeshtastic
	// ModeInvalid is the first out-of-range value; it is never stored.
	ModeInvalid
)

var modeNames = [...]string{"LinkCheck", "LoRa P2P", "FieldTester", "FieldTester V2", "Meshtastic"}

func (m Mode) Valid() bool {
	return m < ModeInvalid
}

func (m Mode) String() string {
	if m.Valid() {
		return modeNames[m]
	}

	return fmt.Sprintf("invalid(%d)", uint8(m))
}

const (
	// ValidFlag marks an initialized record; erased flash reads back as 0xFF.
	ValidFlag uint8 = 0xAA

	MaxSendIntervalMs   uint32 = 7_200_000
	MaxCustomPacketLen         = 128
	MinTimezoneOffset   int8   = -12
	MaxTimezoneOffset   int8   = 14
	defaultSendInterval uint32 = 30_000
	defaultTimezone     int8   = 8
)

var defaultCustomPacket = []byte{0x01, 0x02, 0x03, 0x04}

// Record is the persisted user configuration of the instrument.
// The checksum is not part of the struct: it is computed over the encoded field block.
type Record struct {
	SendIntervalMs  uint32
	ValidFlag       uint8
	TestMode        Mode
	DisplaySaver    bool
	LocationEnabled bool
	CustomPacket    []byte
	DRSweepEnabled  bool
	TimezoneOffset  int8
	MeshCheckNode   uint32
}

// Defaults returns the compiled-in record written on first boot or after an integrity reset.
func Defaults() Record {
	return Record{
		SendIntervalMs:  defaultSendInterval,
		ValidFlag:       ValidFlag,
		TestMode:        ModeLinkCheck,
		DisplaySaver:    false,
		LocationEnabled: false,
		CustomPacket:    DefaultCustomPacket(),
		DRSweepEnabled:  false,
		TimezoneOffset:  defaultTimezone,
		MeshCheckNode:   0,
	}
}

// DefaultCustomPacket is the payload used when no custom packet is configured.
func DefaultCustomPacket() []byte {
	return append([]byte(nil), defaultCustomPacket...)
}

// Clone returns a deep copy so callers never share the packet slice with the store.
func (r Record) Clone() Record {
	out := r
	out.CustomPacket = append([]byte(nil), r.CustomPacket...)

	return out
}

// Equal compares two records field by field.
func (r Record) Equal(other Record) bool {
	if len(r.CustomPacket) != len(other.CustomPacket) {
		return false
	}
	for i := range r.CustomPacket {
		if r.CustomPacket[i] != other.CustomPacket[i] {
			return false
		}
	}

	return r.SendIntervalMs == other.SendIntervalMs &&
		r.ValidFlag == other.ValidFlag &&
		r.TestMode == other.TestMode &&
		r.DisplaySaver == other.DisplaySaver &&
		r.LocationEnabled == other.LocationEnabled &&
		r.DRSweepEnabled == other.DRSweepEnabled &&
		r.TimezoneOffset == other.TimezoneOffset &&
		r.MeshCheckNode == other.MeshCheckNode
}
