// Package sheets exports reports and bills to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/domain/payment"
	"github.com/anmoldairy/dairy/internal/service/reporting"
)

const (
	DailyReportsRange = "DailyReports!A:I"
	BillsRange        = "Bills!A:L"
)

// Exporter turns reports and bills into spreadsheet rows.
type Exporter struct {
	writer RowWriter
	loc    *time.Location
	logger *zap.Logger
}

// NewExporter builds an exporter writing through writer. Dates are rendered in loc.
func NewExporter(writer RowWriter, loc *time.Location, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{writer: writer, loc: loc, logger: logger}
}

// DailyReportRow is the single row written for a daily report.
func DailyReportRow(r models.DailyReport, loc *time.Location) []any {
	return []any{
		r.Date.In(loc).Format("2006-01-02"),
		r.Session.Label(),
		r.Entries,
		round2(r.TotalWeight),
		round2(r.AverageFat),
		payment.FormatLessAdd(r.TotalLessAdd),
		round2(r.TotalNetMilk),
		round2(r.TotalAmount),
		r.CreatedAt.In(loc).Format(time.RFC3339),
	}
}

// AppendDailyReport appends one row per daily report.
func (e *Exporter) AppendDailyReport(ctx context.Context, report models.DailyReport) error {
	if err := e.writer.WriteRows(ctx, DailyReportsRange, [][]any{DailyReportRow(report, e.loc)}); err != nil {
		return fmt.Errorf("export daily report: %w", err)
	}
	return nil
}

// BillRows renders a farmer bill: one row per collection followed by a totals row.
func BillRows(bill reporting.Bill, loc *time.Location) [][]any {
	rows := make([][]any, 0, len(bill.Rows)+1)
	for _, r := range bill.Rows {
		snf := ""
		if r.SNF != nil {
			snf = fmt.Sprintf("%.1f", *r.SNF)
		}
		rows = append(rows, []any{
			bill.Farmer.CustomerID,
			bill.Farmer.Name,
			r.Time().In(loc).Format("02/01/2006"),
			r.Session.Label(),
			round2(r.Weight),
			r.Fat,
			snf,
			r.LessAddLabel,
			round2(r.Rate),
			round2(r.Amount),
			"",
			"",
		})
	}
	rows = append(rows, []any{
		bill.Farmer.CustomerID,
		bill.Farmer.Name,
		bill.From.In(loc).Format("02/01/2006") + " - " + bill.To.In(loc).Format("02/01/2006"),
		"TOTAL",
		round2(bill.Summary.Quantity),
		round2(bill.Summary.AverageFat),
		"",
		bill.Summary.LessAddLabel,
		"",
		round2(bill.Summary.Amount),
		round2(bill.Balance),
		fmt.Sprintf("%d entries", bill.Summary.Count),
	})
	return rows
}

// AppendBill appends a farmer bill.
func (e *Exporter) AppendBill(ctx context.Context, bill reporting.Bill) error {
	if err := e.writer.WriteRows(ctx, BillsRange, BillRows(bill, e.loc)); err != nil {
		return fmt.Errorf("export bill of farmer %d: %w", bill.Farmer.CustomerID, err)
	}
	e.logger.Info("bill exported", zap.Int64("farmer_id", bill.Farmer.CustomerID), zap.Int("rows", len(bill.Rows)))
	return nil
}

func round2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
