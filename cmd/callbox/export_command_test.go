package main

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"callbox/internal/api"
)

func TestWriteWorkbook(t *testing.T) {
	transcript := "hello there"
	calls := []api.CallRecord{
		{
			ID:              "call-1",
			Filename:        "intake.mp3",
			UploadTimestamp: "2026-03-01T10:00:00.000Z",
			Status:          "completed",
			Tags:            []string{"inquiry", "complaint"},
			Summary:         "Caller asked about pricing.",
			Transcript:      &transcript,
		},
		{
			ID:       "call-2",
			Filename: "quiet.mp3",
			Status:   "completed",
		},
	}

	path := filepath.Join(t.TempDir(), "calls.xlsx")
	if err := writeWorkbook(path, calls); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Calls")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][6] != "Transcript" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "call-1" || rows[1][4] != "inquiry, complaint" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[2][6] != "(no speech detected)" {
		t.Errorf("missing transcript placeholder: %v", rows[2])
	}
}

func TestWriteWorkbookEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := writeWorkbook(path, nil); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Calls")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
