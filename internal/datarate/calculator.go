package datarate

// Count is the number of datarate indices in a region table.
const Count = 16

// NoDatarate is returned when no datarate of a region can carry the payload.
const NoDatarate uint8 = Count

// Table holds the maximum payload size per datarate index; 0 marks an unusable datarate.
// Tables are not monotonic: regions with two sub-bands restart payload classes at DR8.
type Table [Count]uint16

var (
	tableEU = Table{51, 51, 51, 115, 242, 242, 242, 242, 0, 0, 0, 0, 0, 0, 0, 0}
	tableCN = Table{51, 51, 51, 115, 242, 242, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	tableUS = Table{11, 53, 125, 242, 242, 0, 0, 0, 53, 129, 242, 242, 242, 242, 0, 0}
	tableAU = Table{51, 51, 51, 115, 242, 242, 242, 0, 53, 129, 242, 242, 242, 242, 0, 0}
	tableAS = Table{0, 0, 19, 61, 133, 250, 250, 250, 0, 0, 0, 0, 0, 0, 0, 0}
)

var regionTables = map[Region]*Table{
	RegionEU433:   &tableEU,
	RegionCN470:   &tableCN,
	RegionRU864:   &tableEU,
	RegionIN865:   &tableEU,
	RegionEU868:   &tableEU,
	RegionUS915:   &tableUS,
	RegionAU915:   &tableAU,
	RegionKR920:   &tableCN,
	RegionAS923_1: &tableAS,
	RegionAS923_2: &tableAS,
	RegionAS923_3: &tableAS,
	RegionAS923_4: &tableAS,
}

// TableFor returns a copy of the payload table of a region.
func TableFor(region Region) (Table, bool) {
	table, ok := regionTables[region]
	if !ok {
		return Table{}, false
	}

	return *table, true
}

// Minimum returns the first datarate of the table whose ceiling is larger than payloadSize.
func (t Table) Minimum(payloadSize uint16) uint8 {
	for idx := 0; idx < Count; idx++ {
		if payloadSize < t[idx] {
			return uint8(idx)
		}
	}

	return NoDatarate
}

// MinimumDatarate returns the lowest datarate able to carry payloadSize bytes in region,
// or NoDatarate if none can (including regions without a table).
func MinimumDatarate(region Region, payloadSize uint16) uint8 {
	table, ok := regionTables[region]
	if !ok {
		return NoDatarate
	}

	return table.Minimum(payloadSize)
}

// IsTransmittable reports whether the current datarate is at or above the required one.
// A payload no datarate can carry is never transmittable.
func IsTransmittable(current uint8, payloadSize uint16, region Region) bool {
	required := MinimumDatarate(region, payloadSize)
	if required == NoDatarate {
		return false
	}

	return required <= current
}
