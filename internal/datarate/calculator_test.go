package datarate

import "testing"

func TestMinimumDatarate_Examples(t *testing.T) {
	tests := []struct {
		name    string
		region  Region
		payload uint16
		want    uint8
	}{
		{name: "us915 100 bytes", region: RegionUS915, payload: 100, want: 2},
		{name: "as923 empty payload skips zero ceilings", region: RegionAS923_1, payload: 0, want: 2},
		{name: "eu868 exactly at ceiling needs next dr", region: RegionEU868, payload: 51, want: 3},
		{name: "eu868 largest", region: RegionEU868, payload: 241, want: 4},
		{name: "eu868 too large", region: RegionEU868, payload: 242, want: NoDatarate},
		{name: "us915 10 bytes fit dr0", region: RegionUS915, payload: 10, want: 0},
		{name: "kr920 shares cn470 table", region: RegionKR920, payload: 200, want: 4},
		{name: "as923-4 large", region: RegionAS923_4, payload: 249, want: 5},
		{name: "la915 has no table", region: RegionLA915, payload: 1, want: NoDatarate},
		{name: "out of range region", region: Region(99), payload: 1, want: NoDatarate},
	}

	for _, tc := range tests {
		if got := MinimumDatarate(tc.region, tc.payload); got != tc.want {
			t.Fatalf("%s: expected DR %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestMinimumDatarate_IsFirstIndexAboveSize(t *testing.T) {
	for region := RegionEU433; region <= RegionAS923_4; region++ {
		table, ok := TableFor(region)
		if !ok {
			t.Fatalf("expected table for %s", region)
		}
		for size := 0; size <= 260; size++ {
			want := NoDatarate
			for idx := 0; idx < Count; idx++ {
				if uint16(size) < table[idx] {
					want = uint8(idx)
					break
				}
			}
			if got := MinimumDatarate(region, uint16(size)); got != want {
				t.Fatalf("%s size %d: expected %d, got %d", region, size, want, got)
			}
		}
	}
}

func TestIsTransmittable(t *testing.T) {
	tests := []struct {
		name    string
		current uint8
		payload uint16
		region  Region
		want    bool
	}{
		{name: "current above required", current: 3, payload: 100, region: RegionUS915, want: true},
		{name: "current equals required", current: 2, payload: 100, region: RegionUS915, want: true},
		{name: "current below required", current: 1, payload: 100, region: RegionUS915, want: false},
		{name: "nothing fits fails closed", current: 15, payload: 300, region: RegionUS915, want: false},
		{name: "unknown region fails closed", current: 15, payload: 1, region: RegionLA915, want: false},
	}

	for _, tc := range tests {
		if got := IsTransmittable(tc.current, tc.payload, tc.region); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		raw     string
		want    Region
		wantErr bool
	}{
		{raw: "us915", want: RegionUS915},
		{raw: " EU868 ", want: RegionEU868},
		{raw: "AS923-1", want: RegionAS923_1},
		{raw: "AS923-3", want: RegionAS923_3},
		{raw: "XX000", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseRegion(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.raw, tc.want, got)
		}
	}
}
