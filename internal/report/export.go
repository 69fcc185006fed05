package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Students"

var exportHeader = []any{"Student", "Student ID", "Email", "Attempts", "Last activity", "Last exam"}

// WriteXLSX writes rows as a single-sheet spreadsheet. Timestamps are written
// in UTC using RFC 3339.
func WriteXLSX(w io.Writer, title string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: title}); err != nil {
			return fmt.Errorf("set doc props: %w", err)
		}
	}

	if err := f.SetSheetRow(sheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		last := ""
		if r.LastActivityAt != nil {
			last = r.LastActivityAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		values := []any{r.DisplayName(), r.StudentID, r.Email, r.AttemptCount, last, r.LastExamTitle}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "F", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
