// Package report generates spreadsheet views of notified requests, either as
// an email attachment (XLSX) or appended to a Google spreadsheet.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/procurelab/reqnotify/internal/requests"
)

// XLSXContentType is the MIME type of a generated workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Requests"

var headers = []string{"Request ID", "Status", "Last Change", "Notified At"}

// BuildXLSX renders the notified requests into an in-memory XLSX workbook:
// a header row followed by one row per request. No cell styling is applied.
func BuildXLSX(rows []requests.Snapshot, sentAt time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("resolving header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("writing header %q: %w", h, err)
		}
	}

	sent := sentAt.Format(time.RFC3339)
	for i, row := range rows {
		values := []string{row.ID, row.StatusID, row.ChangeDateTime, sent}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("resolving cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", i+2, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encoding workbook: %w", err)
	}
	return buf, nil
}

// FileName returns the attachment file name for a scenario's report.
func FileName(scenario string, sentAt time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", scenario, sentAt.Format("2006-01-02"))
}
