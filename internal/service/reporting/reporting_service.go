// Package reporting builds session reports, farmer bills, statements and
// receipts from paged backend data.
package reporting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/domain/ledger"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/pagination"
	"github.com/anmoldairy/dairy/internal/repository"
)

const defaultDairyName = "ANMOL DAIRY LIFE"

// Source is the subset of the backend the reports read from.
type Source interface {
	GetFarmer(ctx context.Context, id int64) (models.Farmer, error)
	GetAllFarmers(ctx context.Context) ([]models.Farmer, error)
	GetAllCollectionsForSession(ctx context.Context, session models.Session, page int) ([]models.CollectionEntry, error)
	GetPaginatedCollections(ctx context.Context, farmerID int64, page int) ([]models.CollectionEntry, error)
	GetFarmerBalance(ctx context.Context, farmerID int64) (float64, error)
	GetFarmerTransactions(ctx context.Context, farmerID int64, page int) ([]models.Transaction, error)
	GetAllProductSales(ctx context.Context) ([]models.ProductSale, error)
}

// Options tune how reports page through the backend.
type Options struct {
	PageSize   int
	MaxPages   int
	FetchAhead int
	Location   *time.Location
	DairyName  string
	PortalURL  string
}

// Service exposes report and bill generation.
type Service struct {
	source Source
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(source Source, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = pagination.DefaultPageSize
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DairyName == "" {
		opts.DairyName = defaultDairyName
	}
	return &Service{source: source, opts: opts, logger: logger, now: time.Now}
}

// Location is the time zone days are evaluated in.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

func (s *Service) pageOptions() []pagination.Option {
	return []pagination.Option{
		pagination.WithMaxPages(s.opts.MaxPages),
		pagination.WithFetchAhead(s.opts.FetchAhead),
	}
}

// Report is a priced list of collection entries with totals.
type Report struct {
	Session models.SessionFilter `json:"session"`
	From    *time.Time           `json:"from,omitempty"`
	To      *time.Time           `json:"to,omitempty"`
	Rows    []Row                `json:"rows"`
	Summary Summary              `json:"summary"`
}

// PageReport is one page of the session report screen.
type PageReport struct {
	Report
	Page        int  `json:"page"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// SessionEntries fetches every entry of one session.
func (s *Service) SessionEntries(ctx context.Context, session models.Session) ([]models.CollectionEntry, error) {
	entries, err := pagination.FetchAll(ctx, func(ctx context.Context, page int) ([]models.CollectionEntry, error) {
		return s.source.GetAllCollectionsForSession(ctx, session, page)
	}, s.pageOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load %s collections: %w", session, err)
	}
	return entries, nil
}

// SessionReport prices every entry of the selected sessions, optionally limited
// to a date range. With both sessions, morning entries come first.
func (s *Service) SessionReport(ctx context.Context, filter models.SessionFilter, rng *DateRange) (Report, error) {
	var morning, evening []models.CollectionEntry
	var err error

	if filter.Includes(models.SessionMorning) {
		if morning, err = s.SessionEntries(ctx, models.SessionMorning); err != nil {
			return Report{}, err
		}
	}
	if filter.Includes(models.SessionEvening) {
		if evening, err = s.SessionEntries(ctx, models.SessionEvening); err != nil {
			return Report{}, err
		}
	}

	entries := FilterBySession(morning, evening, filter)
	if rng != nil {
		entries = FilterByDateRange(entries, *rng)
	}

	names, err := s.farmerNames(ctx)
	if err != nil {
		return Report{}, err
	}

	rows, summary := Price(entries, names)
	report := Report{Session: filter, Rows: rows, Summary: summary}
	if rng != nil {
		report.From, report.To = &rng.Start, &rng.End
	}

	s.logger.Debug("session report built",
		zap.String("session", string(filter)),
		zap.Int("rows", len(rows)),
		zap.Float64("amount", summary.Amount))
	return report, nil
}

// SessionReportPage prices one backend page of each selected session,
// optionally keeping only entries of the given day.
func (s *Service) SessionReportPage(ctx context.Context, filter models.SessionFilter, page int, day *time.Time) (PageReport, error) {
	var morning, evening []models.CollectionEntry
	var err error

	if filter.Includes(models.SessionMorning) {
		if morning, err = s.source.GetAllCollectionsForSession(ctx, models.SessionMorning, page); err != nil {
			return PageReport{}, fmt.Errorf("load morning page %d: %w", page, err)
		}
	}
	if filter.Includes(models.SessionEvening) {
		if evening, err = s.source.GetAllCollectionsForSession(ctx, models.SessionEvening, page); err != nil {
			return PageReport{}, fmt.Errorf("load evening page %d: %w", page, err)
		}
	}

	entries := FilterBySession(morning, evening, filter)
	report := Report{Session: filter}
	if day != nil {
		rng := Day(*day, s.opts.Location)
		entries = FilterByDateRange(entries, rng)
		report.From, report.To = &rng.Start, &rng.End
	}

	names, err := s.farmerNames(ctx)
	if err != nil {
		return PageReport{}, err
	}
	report.Rows, report.Summary = Price(entries, names)

	return PageReport{
		Report:      report,
		Page:        page,
		HasNextPage: len(entries) == s.opts.PageSize,
		HasPrevPage: page > 0,
	}, nil
}

// Bill is a farmer's milk collection bill for a period.
type Bill struct {
	DairyName string        `json:"dairyName"`
	Farmer    models.Farmer `json:"farmer"`
	From      time.Time     `json:"from"`
	To        time.Time     `json:"to"`
	Rows      []Row         `json:"rows"`
	Summary   Summary       `json:"summary"`
	Balance   float64       `json:"balance"`
}

// FarmerEntries fetches every collection entry of a farmer.
func (s *Service) FarmerEntries(ctx context.Context, farmerID int64) ([]models.CollectionEntry, error) {
	entries, err := pagination.FetchAll(ctx, func(ctx context.Context, page int) ([]models.CollectionEntry, error) {
		return s.source.GetPaginatedCollections(ctx, farmerID, page)
	}, s.pageOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load collections of farmer %d: %w", farmerID, err)
	}
	return entries, nil
}

// FarmerBill prices every entry of the farmer collected within the range.
func (s *Service) FarmerBill(ctx context.Context, farmerID int64, rng DateRange) (Bill, error) {
	farmer, err := s.source.GetFarmer(ctx, farmerID)
	if err != nil {
		return Bill{}, fmt.Errorf("load farmer %d: %w", farmerID, err)
	}

	entries, err := s.FarmerEntries(ctx, farmerID)
	if err != nil {
		return Bill{}, err
	}

	balance, err := s.source.GetFarmerBalance(ctx, farmerID)
	if err != nil {
		return Bill{}, fmt.Errorf("load balance of farmer %d: %w", farmerID, err)
	}

	rows, summary := Price(FilterByDateRange(entries, rng), nil)
	return Bill{
		DairyName: s.opts.DairyName,
		Farmer:    farmer,
		From:      rng.Start,
		To:        rng.End,
		Rows:      rows,
		Summary:   summary,
		Balance:   balance,
	}, nil
}

// FarmerTransactions fetches the full transaction history of a farmer.
func (s *Service) FarmerTransactions(ctx context.Context, farmerID int64) ([]models.Transaction, error) {
	txns, err := pagination.FetchAll(ctx, func(ctx context.Context, page int) ([]models.Transaction, error) {
		return s.source.GetFarmerTransactions(ctx, farmerID, page)
	}, s.pageOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load transactions of farmer %d: %w", farmerID, err)
	}
	return txns, nil
}

// Statement returns the farmer's full transaction history and current balance.
func (s *Service) Statement(ctx context.Context, farmerID int64) (ledger.Statement, error) {
	farmer, err := s.source.GetFarmer(ctx, farmerID)
	if err != nil {
		return ledger.Statement{}, fmt.Errorf("load farmer %d: %w", farmerID, err)
	}
	balance, err := s.source.GetFarmerBalance(ctx, farmerID)
	if err != nil {
		return ledger.Statement{}, fmt.Errorf("load balance of farmer %d: %w", farmerID, err)
	}
	txns, err := s.FarmerTransactions(ctx, farmerID)
	if err != nil {
		return ledger.Statement{}, err
	}
	return ledger.NewStatement(farmer, balance, txns, s.now()), nil
}

// BalanceMessage is the SMS text summarising a farmer's balance, with the sms: link opening it.
type BalanceMessage struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	URI     string `json:"uri"`
}

// BalanceSMS prepares the balance summary message for a farmer.
func (s *Service) BalanceSMS(ctx context.Context, farmerID int64) (BalanceMessage, error) {
	st, err := s.Statement(ctx, farmerID)
	if err != nil {
		return BalanceMessage{}, err
	}
	msg := ledger.SMSSummary(st.Farmer, st.Balance, st.Transactions, s.opts.PortalURL, s.opts.Location)
	return BalanceMessage{
		Phone:   ledger.CleanPhone(st.Farmer.Phone),
		Message: msg,
		URI:     ledger.SMSURI(st.Farmer.Phone, msg),
	}, nil
}

// SellBill is the receipt printed for a product sale.
type SellBill struct {
	DairyName  string             `json:"dairyName"`
	FarmerName string             `json:"farmerName"`
	Sale       models.ProductSale `json:"sale"`
	Date       string             `json:"date"`
	Time       string             `json:"time"`
}

// SellBill builds the receipt of a sale. Walk-in sales have no farmer name.
func (s *Service) SellBill(ctx context.Context, saleID int64) (SellBill, error) {
	sales, err := s.source.GetAllProductSales(ctx)
	if err != nil {
		return SellBill{}, fmt.Errorf("load sales: %w", err)
	}

	for _, sale := range sales {
		if sale.ID != saleID {
			continue
		}
		at := sale.Time().In(s.opts.Location)
		bill := SellBill{
			DairyName: s.opts.DairyName,
			Sale:      sale,
			Date:      at.Format("02/01/2006"),
			Time:      at.Format("15:04:05"),
		}
		if sale.FarmerID != nil {
			farmer, err := s.source.GetFarmer(ctx, *sale.FarmerID)
			if err != nil {
				return SellBill{}, fmt.Errorf("load farmer %d: %w", *sale.FarmerID, err)
			}
			bill.FarmerName = farmer.Name
		}
		return bill, nil
	}

	return SellBill{}, fmt.Errorf("sale %d: %w", saleID, repository.ErrNotFound)
}

// DailyReport summarises one session of one day.
func (s *Service) DailyReport(ctx context.Context, day time.Time, session models.Session) (models.DailyReport, error) {
	rng := Day(day, s.opts.Location)
	report, err := s.SessionReport(ctx, models.SessionFilter(session), &rng)
	if err != nil {
		return models.DailyReport{}, err
	}

	sum := report.Summary
	return models.DailyReport{
		Date:         rng.Start,
		Session:      session,
		Entries:      sum.Count,
		TotalWeight:  sum.Quantity,
		AverageFat:   sum.AverageFat,
		TotalLessAdd: sum.LessAdd,
		TotalNetMilk: sum.NetMilk,
		TotalAmount:  sum.Amount,
		CreatedAt:    s.now(),
	}, nil
}

// FormatDailyReport renders a report as a short text message.
func FormatDailyReport(r models.DailyReport) string {
	if r.Entries == 0 {
		return fmt.Sprintf("%s collection (%s): no entries.", r.Session.Label(), r.Date.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s collection (%s): %d entries, %.2f kg, avg fat %.2f, net milk %.2f, amount ₹%.2f.",
		r.Session.Label(), r.Date.Format("2006-01-02"), r.Entries, r.TotalWeight, r.AverageFat, r.TotalNetMilk, r.TotalAmount)
}

func (s *Service) farmerNames(ctx context.Context) (map[int64]string, error) {
	farmers, err := s.source.GetAllFarmers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load farmers: %w", err)
	}
	names := make(map[int64]string, len(farmers))
	for _, f := range farmers {
		names[f.CustomerID] = f.Name
	}
	return names, nil
}
