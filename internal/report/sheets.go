package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/procurelab/reqnotify/internal/requests"
)

// sheetsScope grants append access to spreadsheets.
const sheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// SheetsExporter appends report rows to a Google spreadsheet after a batch
// is sent, mirroring the spreadsheet the stakeholders already work from.
type SheetsExporter struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetsExporter authenticates with service-account credentials from
// credentialsFile and targets spreadsheetID.
func NewSheetsExporter(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsExporter, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading google credentials: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, sheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsExporter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Export appends one row per notified request to the sheet named after the
// scenario. Rows carry the same columns as the XLSX attachment.
func (e *SheetsExporter) Export(ctx context.Context, scenario string, rows []requests.Snapshot, sentAt time.Time) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, 0, len(rows))
	sent := sentAt.Format(time.RFC3339)
	for _, r := range rows {
		values = append(values, []any{r.ID, r.StatusID, r.ChangeDateTime, sent})
	}

	_, err := e.svc.Spreadsheets.Values.
		Append(e.spreadsheetID, scenario+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending to spreadsheet %q: %w", e.spreadsheetID, err)
	}
	return nil
}
