package datarate

import (
	"fmt"
	"strings"
)

// Region is a LoRaWAN regional band plan index as reported by the radio module.
type Region uint16

const (
	RegionEU433 Region = iota
	RegionCN470
	RegionRU864
	RegionIN865
	RegionEU868
	RegionUS915
	RegionAU915
	RegionKR920
	RegionAS923_1
	RegionAS923_2
	RegionAS923_3
	RegionAS923_4
	RegionLA915
)

var regionNames = [...]string{
	"EU433", "CN470", "RU864", "IN865", "EU868", "US915", "AU915", "KR920",
	"AS923", "AS923-2", "AS923-3", "AS923-4", "LA915",
}

func (r Region) String() string {
	if int(r) < len(regionNames) {
		return regionNames[r]
	}

	return fmt.Sprintf("region(%d)", uint16(r))
}

// ParseRegion accepts region names as printed by STATUS ("AS923" and "AS923-1" both mean AS923-1).
func ParseRegion(raw string) (Region, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "AS923-1" {
		name = "AS923"
	}
	for idx, candidate := range regionNames {
		if candidate == name {
			return Region(idx), nil
		}
	}

	return 0, fmt.Errorf("unknown region: %q", raw)
}
