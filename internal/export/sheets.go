// Package export pushes expense records to a Google Sheets report
// spreadsheet in the background.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"kharcha/internal/storage"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetWriter appends expense rows to the report spreadsheet.
type SheetWriter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetWriter builds a Sheets client from service account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetWriter(ctx context.Context, spreadsheetID, sheetName string) (*SheetWriter, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", spreadsheetID, "sheet", sheetName)

	return &SheetWriter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendRows appends one row per expense at the bottom of the sheet.
func (w *SheetWriter) AppendRows(ctx context.Context, items []storage.ExportItem) error {
	if w.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(items) == 0 {
		return nil
	}

	values := make([][]any, len(items))
	for i, item := range items {
		e := item.Expense
		values[i] = []any{
			e.Date.Format("2006-01-02"),
			e.Name,
			e.Amount.Rupees(),
			string(e.Category),
			string(e.PaymentMethod),
			item.UserID,
			e.ID,
		}
	}

	rng := fmt.Sprintf("%s!A:G", w.sheetName)
	_, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, rng, &gsheet.ValueRange{
		Values: values,
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append rows to sheet: %w", err)
	}
	return nil
}
