package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skobkin/fieldtester/internal/persistence"
	"github.com/skobkin/fieldtester/internal/settings"
)

func TestPrintSettings(t *testing.T) {
	valid, err := settings.Encode(settings.Defaults())
	if err != nil {
		t.Fatalf("encode defaults: %v", err)
	}
	corrupted := append([]byte(nil), valid...)
	corrupted[len(corrupted)-1] ^= 0xFF

	tests := []struct {
		name string
		data []byte
		want []string
	}{
		{
			name: "defaults",
			data: valid,
			want: []string{"integrity:     ok", "send interval: 30000 ms", "test mode:     0 (LinkCheck)", "custom packet: 01020304 (4 bytes)", "timezone:      +8"},
		},
		{
			name: "checksum mismatch",
			data: corrupted,
			want: []string{"integrity:     settings checksum mismatch", "valid flag:    0xAA"},
		},
		{
			name: "short record",
			data: valid[:10],
			want: []string{"(10 bytes)", "integrity: settings record too short"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			printSettings(&out, "settings.bin", tc.data)
			for _, want := range tc.want {
				if !strings.Contains(out.String(), want) {
					t.Fatalf("expected %q in output:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestPrintResults(t *testing.T) {
	ctx := context.Background()
	db, err := persistence.Open(ctx, filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	repo := persistence.NewResultRepo(db)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		if _, err := repo.Insert(ctx, persistence.Result{At: base.Add(time.Duration(i) * time.Minute), TxDatarate: i}); err != nil {
			t.Fatalf("insert result: %v", err)
		}
	}

	var out bytes.Buffer
	if err := printResults(ctx, &out, repo, 2); err != nil {
		t.Fatalf("print results: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", out.String())
	}
	if lines[0] != "results: 2 of 3" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2024-03-01 12:00:00,0,") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
}

func TestPrintPorts(t *testing.T) {
	var out bytes.Buffer
	printPorts(&out, nil)
	if out.String() != "no serial ports found\n" {
		t.Fatalf("unexpected empty output: %q", out.String())
	}

	out.Reset()
	printPorts(&out, []string{"/dev/ttyACM0", "/dev/ttyUSB0"})
	if out.String() != "/dev/ttyACM0\n/dev/ttyUSB0\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
