package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeExtract writes a roll extract with n well-formed records.
func writeExtract(t *testing.T, n int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Parcel,Owner Name,Mail1,Mail2,Mail3,Mail4,Mail5,Zip,Zip4\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "117-05-%03d,DOE JANE,%d N 1ST AVE,TUCSON AZ 85701,,,,85701,\n", i, 100+i)
	}

	path := filepath.Join(t.TempDir(), "roll.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write extract: %v", err)
	}
	return path
}

func TestReadBatchWindowing(t *testing.T) {
	path := writeExtract(t, 10)

	tests := []struct {
		name          string
		batchNumber   int
		batchSize     int
		wantRecords   int
		wantSkipped   int
		wantRemaining int
	}{
		{name: "first batch", batchNumber: 0, batchSize: 4, wantRecords: 4, wantSkipped: 0, wantRemaining: 6},
		{name: "middle batch", batchNumber: 1, batchSize: 4, wantRecords: 4, wantSkipped: 4, wantRemaining: 2},
		{name: "short last batch", batchNumber: 2, batchSize: 4, wantRecords: 2, wantSkipped: 8, wantRemaining: 0},
		{name: "whole extract in one batch", batchNumber: 0, batchSize: 100, wantRecords: 10, wantSkipped: 0, wantRemaining: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, err := readBatch(path, tt.batchNumber, tt.batchSize)
			if err != nil {
				t.Fatalf("readBatch() error: %v", err)
			}

			if len(window.records) != tt.wantRecords {
				t.Errorf("records = %d, want %d", len(window.records), tt.wantRecords)
			}
			if window.skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", window.skipped, tt.wantSkipped)
			}
			if window.remaining != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", window.remaining, tt.wantRemaining)
			}
			if window.total() != 10 {
				t.Errorf("total = %d, want 10", window.total())
			}
		})
	}
}

func TestReadBatchPastEndOfFile(t *testing.T) {
	path := writeExtract(t, 10)

	if window, err := readBatch(path, 3, 4); err == nil {
		t.Fatalf("readBatch() = %+v, want error for a batch past the extract", window)
	}
}

func TestReadBatchCountsBadRows(t *testing.T) {
	content := "Parcel,Owner Name,Mail1,Mail2,Mail3,Mail4,Mail5,Zip,Zip4\n" +
		"117-05-001,DOE JANE,100 N 1ST AVE,TUCSON AZ 85701,,,,85701,\n" +
		",OWNERLESS,1 ELM ST,,,,,85701,\n" +
		"117-05-003,DOE JOHN,102 N 1ST AVE,TUCSON AZ 85701,,,,85701,\n"
	path := filepath.Join(t.TempDir(), "roll.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write extract: %v", err)
	}

	window, err := readBatch(path, 0, 10)
	if err != nil {
		t.Fatalf("readBatch() error: %v", err)
	}
	if len(window.records) != 2 || window.errors != 1 {
		t.Errorf("records = %d, errors = %d, want 2 good and 1 bad", len(window.records), window.errors)
	}
	if window.processed != 3 {
		t.Errorf("processed = %d, want 3 including the bad row", window.processed)
	}
}

func TestWindowProgressArithmetic(t *testing.T) {
	tests := []struct {
		name         string
		window       batchWindow
		batchNumber  int
		wantProgress float64
		wantMore     bool
	}{
		{
			name:         "first of three batches",
			window:       batchWindow{skipped: 0, processed: 4, remaining: 6},
			batchNumber:  0,
			wantProgress: 40,
			wantMore:     true,
		},
		{
			name:         "final batch",
			window:       batchWindow{skipped: 8, processed: 2, remaining: 0},
			batchNumber:  2,
			wantProgress: 100,
			wantMore:     false,
		},
		{
			name:        "empty extract",
			window:      batchWindow{},
			batchNumber: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.window.progress(tt.batchNumber, 4, len(tt.window.records))
			if p.Progress != tt.wantProgress {
				t.Errorf("progress = %.1f, want %.1f", p.Progress, tt.wantProgress)
			}
			if p.HasMoreBatches != tt.wantMore {
				t.Errorf("has more = %v, want %v", p.HasMoreBatches, tt.wantMore)
			}
			if p.BatchNumber != tt.batchNumber || p.BatchSize != 4 {
				t.Errorf("cursor = batch %d size %d, want batch %d size 4", p.BatchNumber, p.BatchSize, tt.batchNumber)
			}
		})
	}
}

func TestMapRollRecord(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		wantErr bool
	}{
		{
			name: "full record",
			raw:  []string{"117-05-001", "DOE JANE", "100 N 1ST AVE", "TUCSON AZ 85701", "", "", "", "85701", "1234"},
		},
		{
			name:    "missing parcel number",
			raw:     []string{"", "DOE JANE", "100 N 1ST AVE", "", "", "", "", "85701", ""},
			wantErr: true,
		},
		{
			name:    "too few columns",
			raw:     []string{"117-05-001", "DOE JANE"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := mapRollRecord(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("mapRollRecord(%v) = %+v, want error", tt.raw, rec)
				}
				return
			}
			if err != nil {
				t.Fatalf("mapRollRecord(%v) error: %v", tt.raw, err)
			}
			if rec.ParcelNumber != "117-05-001" || rec.OwnerName != "DOE JANE" {
				t.Errorf("mapRollRecord(%v) = %+v", tt.raw, rec)
			}
		})
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name            string
		mail            [5]string
		wantCanonical   string
		wantHouseNumber string
	}{
		{
			name:            "address on first line",
			mail:            [5]string{"100 N 1st Avenue", "TUCSON AZ 85701"},
			wantCanonical:   "100 N 1ST AVE",
			wantHouseNumber: "100",
		},
		{
			name:            "owner line precedes address",
			mail:            [5]string{"DOE FAMILY TRUST", "4620 E Speedway Blvd", "TUCSON AZ 85712"},
			wantCanonical:   "4620 E SPEEDWAY BLVD",
			wantHouseNumber: "4620",
		},
		{
			name: "no street address",
			mail: [5]string{"PO BOX 999", "TUCSON AZ 85702"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canonical, houseNumber := canonicalize(&rollRecord{Mail: tt.mail})
			if canonical != tt.wantCanonical || houseNumber != tt.wantHouseNumber {
				t.Errorf("canonicalize() = (%q, %q), want (%q, %q)",
					canonical, houseNumber, tt.wantCanonical, tt.wantHouseNumber)
			}
		})
	}
}
