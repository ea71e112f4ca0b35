package atcmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skobkin/fieldtester/internal/events"
	"github.com/skobkin/fieldtester/internal/mode"
	"github.com/skobkin/fieldtester/internal/settings"
)

const (
	MaxSendIntervalSec = settings.MaxSendIntervalMs / 1000
	MinTimezoneWrite   = -11
	MaxTimezoneWrite   = int64(settings.MaxTimezoneOffset)

	dumpReadyTimeout  = 10 * time.Second
	eraseReadyTimeout = 20 * time.Second
	readyPollInterval = time.Second
)

var errNotReady = errors.New("transmission still in flight")

// DefaultCommands lists the console commands in registration order.
func DefaultCommands(env *Env) []Command {
	h := &handlers{env: env}

	return []Command{
		{Name: "SENDINT", Description: "Set/Get the interval sending time values in seconds 0 = off, max 7200 seconds (2 hours)", Handler: h.sendInterval},
		{Name: "MODE", Description: "Set/Get the test mode. 0 = LPWAN LinkCheck, 1 = LoRa P2P, 2 = FieldTester, 3 = FieldTester V2, 4 = Meshtastic", Handler: h.testMode},
		{Name: "PCKG", Description: "Set/Get a custom packet (max 128 bytes)", Handler: h.customPacket},
		{Name: "LOGS", Description: "Dump (?) or erase (e) the result logs", Handler: h.logs},
		{Name: "RTC", Description: "Set/Get time of RTC [yyyy:mm:dd:hh:MM]", Handler: h.rtc},
		{Name: "TZ", Description: "Set/Get the timezone. Format: +14 to -11", Handler: h.timezone},
		{Name: "APPVER", Description: "Get application version", Handler: h.appVersion},
		{Name: "PRD_INFO", Description: "Get device information", Handler: h.productInfo},
		{Name: "MODS", Description: "Get info about available modules, enable location tracking. Format: <location on/off>:<has RTC>:<has SD>", Handler: h.modules},
		{Name: "SETT", Description: "Enable/Disable setup mode, stops testing, 0 = disable, 1 = enable", Handler: h.setupMode},
		{Name: "MESH", Description: "Set Meshtastic Node ID for testing", Handler: h.meshNode},
		{Name: "STATUS", Description: "Get device information", Handler: h.status},
	}
}

// NewDefaultRegistry builds the registry of DefaultCommands.
func NewDefaultRegistry(env *Env) (*Registry, error) {
	return NewRegistry(DefaultCommands(env)...)
}

type handlers struct {
	env *Env
}

func (h *handlers) save(reason string, mutate func(*settings.Record)) Result {
	if err := h.env.Store.Update(reason, mutate); err != nil {
		h.env.Logger.Error("save settings failed", "reason", reason, "error", err)
		return Status(Error)
	}

	return Status(OK)
}

func (h *handlers) sendInterval(_ context.Context, inv Invocation) Result {
	if IsQuery(inv.Args) {
		return Reply(fmt.Sprintf("%s=%d", inv.Command(), h.env.Store.Current().SendIntervalMs/1000))
	}
	if len(inv.Args) != 1 {
		return Status(ParamError)
	}

	seconds, err := ParseUint(inv.Args[0], uint64(MaxSendIntervalSec))
	if err != nil {
		return Fail(err)
	}
	interval := uint32(seconds) * 1000

	h.env.Timer.Stop()
	if interval != 0 {
		h.env.Timer.Start(time.Duration(interval) * time.Millisecond)
	}
	h.env.Logger.Debug("send interval changed", "interval_ms", interval)

	return h.save("send_interval", func(r *settings.Record) {
		r.SendIntervalMs = interval
	})
}

func (h *handlers) testMode(ctx context.Context, inv Invocation) Result {
	if IsQuery(inv.Args) {
		return Reply(fmt.Sprintf("%s=%d", inv.Command(), uint8(h.env.Store.Current().TestMode)))
	}
	if len(inv.Args) != 1 {
		return Status(ParamError)
	}

	value, err := ParseUint(inv.Args[0], uint64(settings.ModeInvalid)-1)
	if err != nil {
		return Fail(err)
	}

	tr, err := h.env.Machine.Request(ctx, settings.Mode(value))
	switch {
	case errors.Is(err, mode.ErrRestartPending):
		return Status(Busy)
	case err != nil:
		return Status(Error)
	case !tr.Changed:
		return Status(OK)
	}

	return Result{Code: OK, Lines: []string{mode.RestartNotice}, Restart: tr.Restart}
}

func (h *handlers) customPacket(_ context.Context, inv Invocation) Result {
	if IsQuery(inv.Args) {
		packet := h.env.Store.Current().CustomPacket
		if len(packet) == 0 {
			packet = settings.DefaultCustomPacket()
		}
		return Reply(fmt.Sprintf("%s=%X", inv.Command(), packet))
	}
	if len(inv.Args) != 1 {
		return Status(ParamError)
	}

	packet, err := ParseHexBytes(inv.Args[0], MaxHexChars)
	if err != nil {
		return Fail(err)
	}

	return h.save("custom_packet", func(r *settings.Record) {
		r.CustomPacket = packet
	})
}

func (h *handlers) timezone(_ context.Context, inv Invocation) Result {
	if IsQuery(inv.Args) {
		return Reply(fmt.Sprintf("%s=%d", inv.Command(), h.env.Store.Current().TimezoneOffset))
	}
	if len(inv.Args) != 1 {
		return Status(ParamError)
	}

	tz, err := ParseInt(inv.Args[0], MinTimezoneWrite, MaxTimezoneWrite)
	if err != nil {
		return Fail(err)
	}
	if int8(tz) == h.env.Store.Current().TimezoneOffset {
		return Status(OK)
	}

	res := h.save("timezone", func(r *settings.Record) {
		r.TimezoneOffset = int8(tz)
	})
	h.env.RTC.RequestTimeSync()

	return res
}

func (h *handlers) modules(_ context.Context, inv Invocation) Result {
	if IsQuery(inv.Args) {
		return Reply(fmt.Sprintf("%s=%d:%d:%d", inv.Command(),
			flag(h.env.Store.Current().LocationEnabled), flag(h.env.Modules.HasRTC()), flag(h.env.Modules.HasSD())))
	}
	if len(inv.Args) != 1 {
		return Status(ParamError)
	}

	enabled, err := ParseFlag(inv.Args[0])
	if err != nil {
		return Fail(err)
	}
	if enabled == h.env.Store.Current().LocationEnabled {
		return Status(OK)
	}

	return h.save("location", func(r *settings.Record) {
		r.LocationEnabled = enabled
	})
}

func (h *handlers) setupMode(_ context.Context, inv Invocation) Result {
	if IsQuery(inv.Args) {
		state := "Inactive"
		if h.env.Session.SetupActive() {
			state = "Active"
		}
		return Reply(fmt.Sprintf("%s=%s", inv.Command(), state))
	}
	if len(inv.Args) != 1 {
		return Status(ParamError)
	}

	active, err := ParseFlag(inv.Args[0])
	if err != nil {
		return Fail(err)
	}

	rec := h.env.Store.Current()
	h.env.Session.SetSetupActive(active)
	h.env.Timer.Stop()
	if !active && rec.SendIntervalMs != 0 {
		h.env.Timer.Start(time.Duration(rec.SendIntervalMs) * time.Millisecond)
	}
	if rec.TestMode == settings.ModeP2P || rec.TestMode == settings.ModeMeshtastic {
		if err := h.env.Radio.SetContinuousReceive(!active); err != nil {
			h.env.Logger.Warn("toggle continuous receive failed", "error", err)
		}
	}
	h.env.Logger.Info("setup mode changed", "active", active)
	h.env.publish(events.TopicSetupMode, events.SetupMode{Active: active})

	return Status(OK)
}

func (h *handlers) meshNode(_ context.Context, inv Invocation) Result {
	if IsQuery(inv.Args) {
		return Reply(fmt.Sprintf("%s=%08X", inv.Command(), h.env.Store.Current().MeshCheckNode))
	}
	if len(inv.Args) != 1 {
		return Status(ParamError)
	}

	id, err := ParseHexUint32(inv.Args[0])
	if err != nil {
		return Fail(err)
	}
	if id == h.env.Store.Current().MeshCheckNode {
		return Status(OK)
	}

	return h.save("mesh_node", func(r *settings.Record) {
		r.MeshCheckNode = id
	})
}

func (h *handlers) logs(ctx context.Context, inv Invocation) Result {
	if h.env.Logs == nil || !h.env.Modules.HasSD() {
		h.env.Logger.Debug("no result log storage")
		return Status(ParamError)
	}
	if h.env.Session.ProductInfoRequested() {
		return Status(OK)
	}

	var erase bool
	switch {
	case IsQuery(inv.Args):
	case len(inv.Args) == 1 && inv.Args[0] == "e":
		erase = true
	default:
		return Status(ParamError)
	}

	timeout := dumpReadyTimeout
	if erase {
		timeout = eraseReadyTimeout
	}

	h.env.Session.SetSettingsUI(true)
	h.env.Timer.Stop()
	if err := h.waitReady(ctx, timeout); err != nil {
		h.env.Logger.Warn("timeout waiting for TX finished", "error", err)
		h.resumeAfterLogs()
		return Status(Busy)
	}

	if erase {
		if err := h.env.Logs.Clear(ctx); err != nil {
			h.env.Logger.Error("erase result log failed", "error", err)
			h.resumeAfterLogs()
			return Status(Error)
		}
		return Result{Code: OK, Restart: &mode.RestartRequest{Reason: "logs_erase"}}
	}

	lines, err := h.env.Logs.Dump(ctx)
	if err != nil {
		h.env.Logger.Error("dump result log failed", "error", err)
		h.resumeAfterLogs()
		return Status(Error)
	}
	out := make([]string, 0, len(lines)+2)
	out = append(out, "")
	out = append(out, lines...)
	out = append(out, "")

	return Result{Code: OK, Lines: out, Restart: &mode.RestartRequest{Reason: "logs_dump"}}
}

// waitReady polls readiness once per interval and gives up once more than timeout has passed.
func (h *handlers) waitReady(ctx context.Context, timeout time.Duration) error {
	var waited time.Duration
	for !h.env.Readiness.ReadyToDump() {
		if err := h.env.sleep(ctx, readyPollInterval); err != nil {
			return err
		}
		waited += readyPollInterval
		if waited > timeout {
			return errNotReady
		}
	}

	return nil
}

func (h *handlers) resumeAfterLogs() {
	h.env.Session.SetSettingsUI(false)
	rec := h.env.Store.Current()
	if rec.SendIntervalMs != 0 && !h.env.Session.SetupActive() {
		h.env.Timer.Start(time.Duration(rec.SendIntervalMs) * time.Millisecond)
	}
}

func (h *handlers) rtc(_ context.Context, inv Invocation) Result {
	if !h.env.Modules.HasRTC() {
		return Status(ParamError)
	}
	if IsQuery(inv.Args) {
		now := h.env.RTC.Now()
		return Reply(fmt.Sprintf("%s=%d:%d:%d:%d:%d:%d", inv.Command(),
			now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute(), now.Second()))
	}

	dt, err := ParseDateTime(inv.Args)
	if err != nil {
		return Fail(err)
	}
	if err := h.env.RTC.Set(dt.Time(time.Local)); err != nil {
		h.env.Logger.Error("set rtc failed", "error", err)
		return Status(Error)
	}

	return Status(OK)
}

func (h *handlers) appVersion(_ context.Context, inv Invocation) Result {
	if !IsQuery(inv.Args) {
		return Status(Error)
	}

	return Reply(fmt.Sprintf("%s=Signal Meter V%s", inv.Command(), h.env.Version))
}

// productInfo is reserved: it only marks the request, which turns LOGS into a no-op.
func (h *handlers) productInfo(_ context.Context, _ Invocation) Result {
	h.env.Session.productInfo.Store(true)

	return Status(NotFound)
}

func flag(v bool) int {
	if v {
		return 1
	}

	return 0
}
