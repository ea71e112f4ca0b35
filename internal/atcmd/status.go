package atcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/skobkin/fieldtester/internal/device"
)

func (h *handlers) status(_ context.Context, inv Invocation) Result {
	if len(inv.Args) != 0 && !IsQuery(inv.Args) {
		return Status(ParamError)
	}

	rec := h.env.Store.Current()
	radio := h.env.Radio.Status()
	lines := []string{
		"Device Status:",
		"Test Mode: " + rec.TestMode.String(),
		"Module: " + strings.ToUpper(radio.HWModel),
		"Version: " + h.env.Version,
		fmt.Sprintf("Send time: %d s", rec.SendIntervalMs/1000),
		"Network mode " + radio.NetworkMode.String(),
	}

	switch radio.NetworkMode {
	case device.NetworkLoRaWAN:
		joined := "not joined"
		if radio.Joined {
			joined = "joined"
		}
		lines = append(lines,
			"Network "+joined,
			fmt.Sprintf("Region: %d", uint16(radio.Region)),
			"Region: "+radio.Region.String(),
		)
		keys := radio.Keys
		if radio.OTAA {
			lines = append(lines,
				"OTAA mode",
				fmt.Sprintf("DevEUI=%X", keys.DevEUI[:]),
				fmt.Sprintf("AppEUI=%X", keys.AppEUI[:]),
				fmt.Sprintf("AppKey=%X", keys.AppKey[:]),
			)
		} else {
			lines = append(lines,
				"ABP mode",
				fmt.Sprintf("AppsKey=%X", keys.AppSKey[:]),
				fmt.Sprintf("NwksKey=%X", keys.NwkSKey[:]),
				fmt.Sprintf("DevAddr=%X", keys.DevAddr[:]),
			)
		}
	case device.NetworkP2P:
		p := radio.P2P
		lines = append(lines,
			fmt.Sprintf("Frequency = %d", p.FrequencyHz),
			fmt.Sprintf("SF = %d", p.SF),
			fmt.Sprintf("BW = %d", p.BandwidthKHz),
			fmt.Sprintf("CR = %d", p.CR),
			fmt.Sprintf("Preamble length = %d", p.Preamble),
			fmt.Sprintf("TX power = %d", p.TXPower),
		)
	default:
		f := radio.FSK
		lines = append(lines,
			fmt.Sprintf("Frequency = %d", f.FrequencyHz),
			fmt.Sprintf("Bitrate = %d", f.Bitrate),
			fmt.Sprintf("Deviation = %d", f.Deviation),
		)
	}

	saver := "Off"
	if rec.DisplaySaver {
		saver = "On"
	}
	lines = append(lines,
		"Custom settings",
		fmt.Sprintf("Testmode = %d", uint8(rec.TestMode)),
		"Display saver "+saver,
		fmt.Sprintf("Custom Packet = %X", rec.CustomPacket),
	)

	return Reply(lines...)
}
