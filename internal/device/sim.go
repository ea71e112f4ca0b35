package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skobkin/fieldtester/internal/datarate"
)

var ErrNotJoined = errors.New("network not joined")

var (
	_ Radio     = (*Sim)(nil)
	_ Locator   = (*Sim)(nil)
	_ RTC       = (*Sim)(nil)
	_ Modules   = (*Sim)(nil)
	_ Readiness = (*Sim)(nil)
	_ SendTimer = (*IntervalTimer)(nil)
)

// SimConfig describes the hardware the simulator pretends to be.
type SimConfig struct {
	HWModel     string
	NetworkMode NetworkMode
	Joined      bool
	Region      datarate.Region
	Datarate    uint8
	OTAA        bool
	Keys        Keys
	P2P         P2PParams
	FSK         FSKParams
	HasRTC      bool
	HasSD       bool
	HasGNSS     bool
	Position    Position
	// Gateways hear every uplink. In P2P the first one answers as the peer node.
	Gateways    []SimGateway
}

// SimGateway is a receiver within range of the simulated device.
type SimGateway struct {
	Position Position
	RSSI     int
	SNR      int
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		HWModel:     "rak4630",
		NetworkMode: NetworkLoRaWAN,
		Joined:      true,
		Region:      datarate.RegionEU868,
		Datarate:    3,
		OTAA:        true,
		P2P: P2PParams{
			FrequencyHz:  916_000_000,
			SF:           7,
			BandwidthKHz: 125,
			CR:           1,
			Preamble:     8,
			TXPower:      22,
		},
		FSK: FSKParams{
			FrequencyHz: 916_000_000,
			Bitrate:     50_000,
			Deviation:   25_000,
		},
		HasRTC:   true,
		HasSD:    true,
		HasGNSS:  true,
		Position: Position{Lat: 14.421536, Lng: 121.006819},
		Gateways: []SimGateway{
			{Position: Position{Lat: 14.430600, Lng: 121.014100}, RSSI: -97, SNR: 6},
			{Position: Position{Lat: 14.405000, Lng: 120.989000}, RSSI: -112, SNR: -4},
		},
	}
}

// Sim is an in-memory device implementing Radio, RTC, Modules and Readiness.
type Sim struct {
	logger *slog.Logger

	mu          sync.Mutex
	cfg         SimConfig
	clockOffset time.Duration
	receiving   bool
	reconfigs   []string
	sent        [][]byte
	link        LinkReport
	linkKnown   bool
	lost        int

	syncRequested atomic.Bool
	ready         atomic.Bool
}

func NewSim(logger *slog.Logger, cfg SimConfig) *Sim {
	s := &Sim{logger: logger, cfg: cfg}
	s.ready.Store(true)

	return s
}

func (s *Sim) Status() RadioStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return RadioStatus{
		HWModel:     s.cfg.HWModel,
		NetworkMode: s.cfg.NetworkMode,
		Joined:      s.cfg.Joined,
		Region:      s.cfg.Region,
		Datarate:    s.cfg.Datarate,
		OTAA:        s.cfg.OTAA,
		Keys:        s.cfg.Keys,
		P2P:         s.cfg.P2P,
		FSK:         s.cfg.FSK,
	}
}

func (s *Sim) EnableLinkCheck() error {
	s.reconfigure("link_check", NetworkLoRaWAN)

	return nil
}

func (s *Sim) EnterP2P() error {
	s.reconfigure("p2p", NetworkP2P)

	return nil
}

func (s *Sim) EnterFieldTester() error {
	s.reconfigure("field_tester", NetworkLoRaWAN)

	return nil
}

func (s *Sim) reconfigure(name string, mode NetworkMode) {
	s.mu.Lock()
	s.cfg.NetworkMode = mode
	s.reconfigs = append(s.reconfigs, name)
	s.mu.Unlock()
	s.logger.Info("radio reconfigured", "target", name, "network_mode", mode.String())
}

// Reconfigurations lists the reconfiguration calls in order.
func (s *Sim) Reconfigurations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.reconfigs...)
}

func (s *Sim) SetContinuousReceive(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.NetworkMode != NetworkP2P {
		return fmt.Errorf("continuous receive needs P2P mode, radio is in %s", s.cfg.NetworkMode)
	}
	s.receiving = on
	s.logger.Debug("continuous receive", "enabled", on)

	return nil
}

func (s *Sim) Receiving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.receiving
}

func (s *Sim) Region() datarate.Region {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cfg.Region
}

func (s *Sim) Datarate() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cfg.Datarate
}

// Send records the payload. Readiness drops for the duration of the call.
func (s *Sim) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.ready.Store(false)
	defer s.ready.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.NetworkMode == NetworkLoRaWAN && !s.cfg.Joined {
		s.lost++
		return ErrNotJoined
	}
	s.sent = append(s.sent, append([]byte(nil), payload...))
	s.answer()
	s.logger.Info("packet sent", "size", len(payload), "network_mode", s.cfg.NetworkMode.String(), "dr", s.cfg.Datarate)

	return nil
}

// answer builds the link report for the uplink just sent. Caller holds s.mu.
func (s *Sim) answer() {
	gws := s.cfg.Gateways
	if len(gws) == 0 {
		s.lost++
		s.link = LinkReport{Lost: s.lost}
		s.linkKnown = true

		return
	}
	if s.cfg.NetworkMode != NetworkLoRaWAN {
		s.link = LinkReport{RxRSSI: gws[0].RSSI, RxSNR: gws[0].SNR, Lost: s.lost}
		s.linkKnown = true

		return
	}

	rep := LinkReport{
		Gateways:    len(gws),
		MinRSSI:     math.MaxInt,
		MaxRSSI:     math.MinInt,
		MaxSNR:      math.MinInt,
		MinDistance: math.MaxInt,
		Lost:        s.lost,
	}
	for _, gw := range gws {
		rep.MinRSSI = min(rep.MinRSSI, gw.RSSI)
		if gw.RSSI > rep.MaxRSSI {
			rep.MaxRSSI = gw.RSSI
			rep.RxRSSI = gw.RSSI
			rep.RxSNR = gw.SNR
		}
		rep.MaxSNR = max(rep.MaxSNR, gw.SNR)
		dist := DistanceMeters(s.cfg.Position, gw.Position)
		rep.MinDistance = min(rep.MinDistance, dist)
		rep.MaxDistance = max(rep.MaxDistance, dist)
	}
	rep.DemodMargin = demodMargin(rep.MaxSNR, s.cfg.Datarate)
	s.link = rep
	s.linkKnown = true
}

func (s *Sim) LastLink() (LinkReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.link, s.linkKnown
}

func (s *Sim) Position() (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cfg.Position, s.cfg.HasGNSS
}

// demodMargin is the best SNR above the demodulation floor of the spreading factor
// behind dr, in whole dB. DR0 is SF12 and DR5 is SF7.
func demodMargin(snr int, dr uint8) int {
	sf := 12 - min(int(dr), 5)
	floorTenths := -75 - 25*(sf-7)

	return (snr*10 - floorTenths) / 10
}

const earthRadiusMeters = 6_371_000

// DistanceMeters is the great circle distance between two positions, rounded to meters.
func DistanceMeters(a, b Position) int {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return int(math.Round(2 * earthRadiusMeters * math.Asin(math.Sqrt(h))))
}

// Sent returns copies of every payload passed to Send.
func (s *Sim) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, 0, len(s.sent))
	for _, p := range s.sent {
		out = append(out, append([]byte(nil), p...))
	}

	return out
}

func (s *Sim) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return time.Now().Add(s.clockOffset)
}

func (s *Sim) Set(t time.Time) error {
	s.mu.Lock()
	s.clockOffset = time.Until(t)
	s.mu.Unlock()
	s.logger.Info("rtc set", "time", t.Format(time.DateTime))

	return nil
}

func (s *Sim) RequestTimeSync() {
	s.syncRequested.Store(true)
	s.logger.Debug("time sync requested")
}

// TimeSyncRequested reports and clears a pending time sync request.
func (s *Sim) TimeSyncRequested() bool {
	return s.syncRequested.Swap(false)
}

func (s *Sim) HasRTC() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cfg.HasRTC
}

func (s *Sim) HasSD() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cfg.HasSD
}

func (s *Sim) ReadyToDump() bool {
	return s.ready.Load()
}

// SetReady overrides readiness, e.g. to hold a transmission in flight.
func (s *Sim) SetReady(ready bool) {
	s.ready.Store(ready)
}
