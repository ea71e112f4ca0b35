package settings

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Record layout, little endian. The CRC covers everything after itself.
//
//	crc(4) | send_interval(4) | valid_flag(1) | layout(1) | test_mode(1) | display_saver(1) |
//	location_on(1) | custom_packet(128) | custom_packet_len(2) | dr_sweep_on(1) | timezone(1) | mesh_node(4)
const (
	LayoutVersion uint8 = 1

	crcSize        = 4
	offInterval    = crcSize
	offValidFlag   = offInterval + 4
	offLayout      = offValidFlag + 1
	offTestMode    = offLayout + 1
	offDisplay     = offTestMode + 1
	offLocation    = offDisplay + 1
	offPacket      = offLocation + 1
	offPacketLen   = offPacket + MaxCustomPacketLen
	offDRSweep     = offPacketLen + 2
	offTimezone    = offDRSweep + 1
	offMeshNode    = offTimezone + 1
	RecordSize     = offMeshNode + 4
	fieldBlockSize = RecordSize - crcSize
)

var (
	ErrShortRecord = errors.New("settings record too short")
	ErrBadMagic    = errors.New("settings valid flag mismatch")
	ErrBadLayout   = errors.New("settings layout version mismatch")
	ErrChecksum    = errors.New("settings checksum mismatch")
)

// rawRecord mirrors the stored bytes before any sanitization.
type rawRecord struct {
	storedCRC    uint32
	computedCRC  uint32
	sendInterval uint32
	validFlag    uint8
	layout       uint8
	testMode     uint8
	displaySaver uint8
	locationOn   uint8
	packet       [MaxCustomPacketLen]byte
	packetLen    uint16
	drSweep      uint8
	timezone     int8
	meshNode     uint32
}

// Header describes the integrity fields of an encoded record.
type Header struct {
	StoredCRC   uint32
	ComputedCRC uint32
	ValidFlag   uint8
	Layout      uint8
}

// Checksum computes the CRC32 (IEEE) of a field block.
func Checksum(block []byte) uint32 {
	return crc32.ChecksumIEEE(block)
}

// Encode serializes r and prepends the checksum of the field block.
func Encode(r Record) ([]byte, error) {
	if len(r.CustomPacket) > MaxCustomPacketLen {
		return nil, fmt.Errorf("custom packet too long: %d bytes", len(r.CustomPacket))
	}

	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(buf[offInterval:], r.SendIntervalMs)
	buf[offValidFlag] = r.ValidFlag
	buf[offLayout] = LayoutVersion
	buf[offTestMode] = uint8(r.TestMode)
	buf[offDisplay] = boolByte(r.DisplaySaver)
	buf[offLocation] = boolByte(r.LocationEnabled)
	copy(buf[offPacket:offPacketLen], r.CustomPacket)
	// #nosec G115 -- length is bounded by MaxCustomPacketLen above.
	binary.LittleEndian.PutUint16(buf[offPacketLen:], uint16(len(r.CustomPacket)))
	buf[offDRSweep] = boolByte(r.DRSweepEnabled)
	buf[offTimezone] = byte(r.TimezoneOffset)
	binary.LittleEndian.PutUint32(buf[offMeshNode:], r.MeshCheckNode)
	binary.LittleEndian.PutUint32(buf[:crcSize], Checksum(buf[crcSize:]))

	return buf, nil
}

// Inspect decodes the integrity header and the fields of data without sanitizing them.
// Booleans are decoded as "non-zero" and the packet is clipped to the buffer.
func Inspect(data []byte) (Header, Record, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return Header{}, Record{}, err
	}

	header := Header{
		StoredCRC:   raw.storedCRC,
		ComputedCRC: raw.computedCRC,
		ValidFlag:   raw.validFlag,
		Layout:      raw.layout,
	}
	packetLen := int(raw.packetLen)
	if packetLen > MaxCustomPacketLen {
		packetLen = MaxCustomPacketLen
	}
	rec := Record{
		SendIntervalMs:  raw.sendInterval,
		ValidFlag:       raw.validFlag,
		TestMode:        Mode(raw.testMode),
		DisplaySaver:    raw.displaySaver != 0,
		LocationEnabled: raw.locationOn != 0,
		CustomPacket:    append([]byte(nil), raw.packet[:packetLen]...),
		DRSweepEnabled:  raw.drSweep != 0,
		TimezoneOffset:  raw.timezone,
		MeshCheckNode:   raw.meshNode,
	}

	return header, rec, raw.integrityErr()
}

func decodeRaw(data []byte) (rawRecord, error) {
	if len(data) < RecordSize {
		return rawRecord{}, fmt.Errorf("%w: %d of %d bytes", ErrShortRecord, len(data), RecordSize)
	}

	var raw rawRecord
	raw.storedCRC = binary.LittleEndian.Uint32(data[:crcSize])
	raw.computedCRC = Checksum(data[crcSize:RecordSize])
	raw.sendInterval = binary.LittleEndian.Uint32(data[offInterval:])
	raw.validFlag = data[offValidFlag]
	raw.layout = data[offLayout]
	raw.testMode = data[offTestMode]
	raw.displaySaver = data[offDisplay]
	raw.locationOn = data[offLocation]
	copy(raw.packet[:], data[offPacket:offPacketLen])
	raw.packetLen = binary.LittleEndian.Uint16(data[offPacketLen:])
	raw.drSweep = data[offDRSweep]
	raw.timezone = int8(data[offTimezone])
	raw.meshNode = binary.LittleEndian.Uint32(data[offMeshNode:])

	return raw, nil
}

// integrityErr checks the magic first: an erased or foreign record has no meaningful checksum.
func (r rawRecord) integrityErr() error {
	if r.validFlag != ValidFlag {
		return fmt.Errorf("%w: got 0x%02X", ErrBadMagic, r.validFlag)
	}
	if r.layout != LayoutVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrBadLayout, r.layout, LayoutVersion)
	}
	if r.storedCRC != r.computedCRC {
		return fmt.Errorf("%w: expected %08X, got %08X", ErrChecksum, r.computedCRC, r.storedCRC)
	}

	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}

	return 0
}
