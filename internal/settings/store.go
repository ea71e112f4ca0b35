package settings

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/skobkin/fieldtester/internal/bus"
	"github.com/skobkin/fieldtester/internal/events"
)

var (
	// ErrStore reports that a record could not be written even after the retry.
	ErrStore = errors.New("settings write failed")
	// ErrIntegrityReset marks a load that discarded the stored record.
	ErrIntegrityReset = errors.New("settings integrity reset")
)

// LoadReport describes what Load had to repair.
type LoadReport struct {
	IntegrityReset bool
	// Cause is the integrity error that forced the reset.
	Cause error
	// Sanitized lists the fields replaced by their defaults.
	Sanitized []string
	// SaveErr is set when the repaired record could not be written back.
	SaveErr error
}

// Err returns ErrIntegrityReset (wrapping the cause) for callers that prefer an error value.
func (r LoadReport) Err() error {
	if !r.IntegrityReset {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrIntegrityReset, r.Cause)
}

// Store owns the single configuration record. Every mutation writes the whole record synchronously.
type Store struct {
	logger  *slog.Logger
	backend Backend
	bus     bus.MessageBus
	now     func() time.Time

	mu      sync.RWMutex
	current Record
}

func NewStore(logger *slog.Logger, backend Backend, b bus.MessageBus) *Store {
	if b == nil {
		b = bus.Nop{}
	}

	return &Store{
		logger:  logger,
		backend: backend,
		bus:     b,
		now:     time.Now,
		current: Defaults(),
	}
}

// Current returns a copy of the in-memory record.
func (s *Store) Current() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Clone()
}

// Load reads the stored record. A missing, foreign or corrupted record is replaced with defaults
// as a whole; a record that passes the integrity check has each field validated on its own.
func (s *Store) Load() (Record, LoadReport, error) {
	var report LoadReport

	data, err := s.backend.Read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("read settings failed, keeping defaults", "error", err)
		s.setCurrent(Defaults())

		return Defaults(), report, fmt.Errorf("load settings: %w", err)
	}

	var raw rawRecord
	integrityErr := os.ErrNotExist
	if err == nil {
		raw, integrityErr = decodeRaw(data)
		if integrityErr == nil {
			integrityErr = raw.integrityErr()
		}
	}

	if integrityErr != nil {
		s.logger.Warn("settings integrity check failed, resetting to defaults", "error", integrityErr)
		rec := Defaults()
		report.IntegrityReset = true
		report.Cause = integrityErr
		report.SaveErr = s.Save("integrity_reset", rec)
		s.bus.Publish(events.TopicIntegrityReset, events.IntegrityReset{Cause: integrityErr.Error(), At: s.now()})

		return rec, report, nil
	}

	rec, sanitized := sanitize(raw)
	report.Sanitized = sanitized
	if len(sanitized) > 0 {
		s.logger.Warn("settings fields out of range, restored defaults", "fields", sanitized)
		report.SaveErr = s.Save("sanitize", rec)
	} else {
		s.setCurrent(rec)
	}
	s.logger.Debug(
		"settings loaded",
		"send_interval_ms", rec.SendIntervalMs,
		"test_mode", rec.TestMode,
		"display_saver", rec.DisplaySaver,
		"location", rec.LocationEnabled,
		"custom_packet_len", len(rec.CustomPacket),
		"timezone", rec.TimezoneOffset,
	)

	return rec, report, nil
}

// Save writes the whole record, retrying once. The in-memory record is updated even when
// both writes fail, in which case the error wraps ErrStore.
func (s *Store) Save(reason string, rec Record) error {
	rec = rec.Clone()
	rec.ValidFlag = ValidFlag
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = rec
	err = s.write(data)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("settings write failed after retry", "reason", reason, "error", err)
		s.bus.Publish(events.TopicStoreFailure, events.StoreFailure{Reason: reason, Err: err.Error()})

		return err
	}

	checksum := binary.LittleEndian.Uint32(data[:crcSize])
	s.logger.Debug("settings saved", "reason", reason, "crc", fmt.Sprintf("%08X", checksum))
	s.bus.Publish(events.TopicSettingsSaved, events.SettingsSaved{Reason: reason, Checksum: checksum, At: s.now()})

	return nil
}

// Update applies mutate to a copy of the current record and saves the result.
func (s *Store) Update(reason string, mutate func(*Record)) error {
	rec := s.Current()
	mutate(&rec)

	return s.Save(reason, rec)
}

// Restore replaces the in-memory record without writing it.
func (s *Store) Restore(rec Record) {
	s.setCurrent(rec)
}

// Erase wipes the stored record. The next Load starts from defaults.
func (s *Store) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Erase(); err != nil {
		return fmt.Errorf("erase settings: %w", err)
	}
	s.current = Defaults()
	s.logger.Info("settings erased")

	return nil
}

func (s *Store) write(data []byte) error {
	err := s.backend.Write(data)
	if err == nil {
		return nil
	}
	s.logger.Warn("settings write failed, retrying", "error", err)
	if err := s.backend.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	return nil
}

func (s *Store) setCurrent(rec Record) {
	s.mu.Lock()
	s.current = rec.Clone()
	s.mu.Unlock()
}

func sanitize(raw rawRecord) (Record, []string) {
	def := Defaults()
	rec := Record{ValidFlag: raw.validFlag, MeshCheckNode: raw.meshNode}
	var fixed []string

	if raw.sendInterval > MaxSendIntervalMs {
		rec.SendIntervalMs = def.SendIntervalMs
		fixed = append(fixed, "send_interval")
	} else {
		rec.SendIntervalMs = raw.sendInterval
	}

	if mode := Mode(raw.testMode); mode.Valid() {
		rec.TestMode = mode
	} else {
		rec.TestMode = def.TestMode
		fixed = append(fixed, "test_mode")
	}

	var ok bool
	if rec.DisplaySaver, ok = boolField(raw.displaySaver); !ok {
		fixed = append(fixed, "display_saver")
	}
	if rec.LocationEnabled, ok = boolField(raw.locationOn); !ok {
		fixed = append(fixed, "location_on")
	}
	if rec.DRSweepEnabled, ok = boolField(raw.drSweep); !ok {
		fixed = append(fixed, "dr_sweep_on")
	}

	if int(raw.packetLen) > MaxCustomPacketLen {
		rec.CustomPacket = []byte{}
		fixed = append(fixed, "custom_packet_len")
	} else {
		rec.CustomPacket = append([]byte{}, raw.packet[:raw.packetLen]...)
	}

	if raw.timezone < MinTimezoneOffset || raw.timezone > MaxTimezoneOffset {
		rec.TimezoneOffset = def.TimezoneOffset
		fixed = append(fixed, "timezone")
	} else {
		rec.TimezoneOffset = raw.timezone
	}

	return rec, fixed
}

// boolField decodes a stored flag; anything but 0 or 1 is corrupt and reads as false.
func boolField(v uint8) (bool, bool) {
	switch v {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}
