package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/anmoldairy/dairy/internal/config"
)

// RowWriter appends rows to a sheet range.
type RowWriter interface {
	WriteRows(ctx context.Context, sheetRange string, rows [][]any) error
}

// GoogleSheetWriter implements RowWriter using the official Google Sheets API.
type GoogleSheetWriter struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetWriter builds a Google Sheets backed writer.
func NewGoogleSheetWriter(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetWriter{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRows appends the provided rows to the supplied sheet range in one call.
func (w *GoogleSheetWriter) WriteRows(ctx context.Context, sheetRange string, rows [][]any) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}
	if len(rows) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: rows}

	call := w.service.Spreadsheets.Values.Append(w.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}

	w.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}
