package report

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	rows := []Row{
		{StudentKey: "id:A", StudentID: "A", Username: "ali", AttemptCount: 2, LastActivityAt: ts("2024-01-02T10:00"), LastExamTitle: "P1 2024"},
		{StudentKey: "id:B", StudentID: "B", AttemptCount: 1, LastExamTitle: "P2 2023"},
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, "Paper 1 rollup", rows); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("sheet has %d rows, want 3 (header + 2)", len(got))
	}
	if got[0][0] != "Student" || got[1][0] != "ali" || got[1][3] != "2" {
		t.Errorf("row 2 = %v, want ali with 2 attempts", got[1])
	}
	if got[1][4] != "2024-01-02T10:00:00Z" {
		t.Errorf("last activity = %q, want 2024-01-02T10:00:00Z", got[1][4])
	}
	if got[2][0] != "B" {
		t.Errorf("row 3 student = %q, want B", got[2][0])
	}
}
