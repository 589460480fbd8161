package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/repository"
	"github.com/anmoldairy/dairy/internal/repository/memory"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func entryAt(id int64, at time.Time) models.CollectionEntry {
	return models.CollectionEntry{ID: id, Date: models.NanosFromTime(at), Weight: 1, Fat: 4, MilkType: models.MilkTypeThekadari}
}

func TestDateRange_InclusiveBounds(t *testing.T) {
	from := time.Date(2026, 5, 1, 13, 0, 0, 0, ist)
	to := time.Date(2026, 5, 3, 8, 0, 0, 0, ist)
	rng, err := NewDateRange(from, to, ist)
	require.NoError(t, err)

	entries := []models.CollectionEntry{
		entryAt(1, time.Date(2026, 4, 30, 23, 59, 59, 999_000_000, ist)),
		entryAt(2, time.Date(2026, 5, 1, 0, 0, 0, 0, ist)),
		entryAt(3, time.Date(2026, 5, 3, 23, 59, 59, 999_000_000, ist)),
		entryAt(4, time.Date(2026, 5, 4, 0, 0, 0, 0, ist)),
	}

	got := FilterByDateRange(entries, rng)

	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestDateRange_Invalid(t *testing.T) {
	_, err := NewDateRange(time.Date(2026, 5, 2, 0, 0, 0, 0, ist), time.Date(2026, 5, 1, 0, 0, 0, 0, ist), ist)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = NewDateRange(time.Date(2026, 5, 2, 18, 0, 0, 0, ist), time.Date(2026, 5, 2, 6, 0, 0, 0, ist), ist)
	assert.NoError(t, err, "same day in any order is valid")
}

func TestFilterBySession_ConcatenatesMorningFirst(t *testing.T) {
	morning := []models.CollectionEntry{entryAt(1, time.Date(2026, 5, 2, 6, 0, 0, 0, ist))}
	evening := []models.CollectionEntry{entryAt(2, time.Date(2026, 5, 1, 18, 0, 0, 0, ist))}

	both := FilterBySession(morning, evening, models.FilterBoth)
	require.Len(t, both, 2)
	assert.Equal(t, int64(1), both[0].ID, "no chronological re-sort")
	assert.Equal(t, int64(2), both[1].ID)

	only := FilterBySession(morning, evening, models.FilterEvening)
	require.Len(t, only, 1)
	assert.Equal(t, int64(2), only[0].ID)
}

func TestTotals_AverageFatIsUnweighted(t *testing.T) {
	entries := []models.CollectionEntry{
		{Weight: 1, Fat: 3.0, MilkType: models.MilkTypeThekadari, Rate: 10},
		{Weight: 50, Fat: 4.0, MilkType: models.MilkTypeThekadari, Rate: 10},
		{Weight: 200, Fat: 5.0, MilkType: models.MilkTypeThekadari, Rate: 10},
	}

	_, sum := Price(entries, nil)

	assert.Equal(t, 3, sum.Count)
	assert.InDelta(t, 4.0, sum.AverageFat, 1e-12)
	assert.InDelta(t, 251.0, sum.Quantity, 1e-12)
	assert.Equal(t, 0.0, Totals{}.AverageFat())
}

func TestTotals_NetMilkFallsBackToWeight(t *testing.T) {
	snf := 8.5
	entries := []models.CollectionEntry{
		{FarmerID: 1, Weight: 10, Fat: 4.0, SNF: &snf, Rate: 50, MilkType: models.MilkTypeVLC},
		{FarmerID: 2, Weight: 20, Fat: 70, Rate: 40, MilkType: models.MilkTypeThekadari},
	}

	rows, sum := Price(entries, map[int64]string{1: "Ramesh"})

	assert.InDelta(t, 31.5, sum.NetMilk, 1e-9)
	assert.InDelta(t, 1.5, sum.LessAdd, 1e-9)
	assert.InDelta(t, 860+37.3504, sum.Amount, 1e-3)
	assert.Equal(t, "Ramesh", rows[0].FarmerName)
	assert.Equal(t, "Unknown", rows[1].FarmerName)
	assert.Nil(t, rows[0].LessAdd)
	assert.Equal(t, "+0.00", rows[0].LessAddLabel)
	assert.Equal(t, "+1.50", rows[1].LessAddLabel)
}

// fixture seeds a memory backend with a clock the test can move.
type fixture struct {
	backend *memory.Memory
	svc     *Service
	clock   time.Time
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	f := &fixture{clock: time.Date(2026, 5, 1, 6, 0, 0, 0, ist)}
	f.backend = memory.New(pageSize, memory.WithClock(func() time.Time { return f.clock }))
	f.svc = NewService(f.backend, Options{PageSize: pageSize, Location: ist, PortalURL: "https://dairy.example"}, nil)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) collect(t *testing.T, at time.Time, farmerID int64, weight, fat float64, snf *float64, rate float64) {
	t.Helper()
	f.clock = at
	require.NoError(t, f.backend.AddCollectionEntry(context.Background(), farmerID, weight, fat, snf, rate, models.SessionAt(at)))
}

func TestSessionReport_FetchesAllPagesAndFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	vlc, _ := f.backend.AddFarmer(ctx, "Ramesh", "98765", models.MilkTypeVLC)
	th, _ := f.backend.AddFarmer(ctx, "Suresh", "98766", models.MilkTypeThekadari)
	snf := 8.5

	for day := 1; day <= 4; day++ {
		f.collect(t, time.Date(2026, 5, day, 6, 0, 0, 0, ist), vlc, 10, 4, &snf, 50)
		f.collect(t, time.Date(2026, 5, day, 7, 0, 0, 0, ist), th, 20, 70, nil, 40)
		f.collect(t, time.Date(2026, 5, day, 18, 0, 0, 0, ist), th, 20, 65, nil, 40)
	}

	all, err := f.svc.SessionReport(ctx, models.FilterBoth, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, all.Summary.Count)
	assert.Equal(t, models.SessionMorning, all.Rows[0].Session)
	assert.Equal(t, models.SessionEvening, all.Rows[11].Session)

	rng, err := NewDateRange(time.Date(2026, 5, 2, 0, 0, 0, 0, ist), time.Date(2026, 5, 3, 0, 0, 0, 0, ist), ist)
	require.NoError(t, err)
	morning, err := f.svc.SessionReport(ctx, models.FilterMorning, &rng)
	require.NoError(t, err)
	assert.Equal(t, 4, morning.Summary.Count)
	assert.InDelta(t, 2*(860+37.3504), morning.Summary.Amount, 1e-2)
	assert.Equal(t, "Suresh", morning.Rows[1].FarmerName)
	require.NotNil(t, morning.From)
}

func TestSessionReport_RatesAreFrozenPerEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50)
	th, _ := f.backend.AddFarmer(ctx, "Suresh", "98766", models.MilkTypeThekadari)
	f.collect(t, time.Date(2026, 5, 1, 6, 0, 0, 0, ist), th, 20, 70, nil, 40)

	before, err := f.svc.SessionReport(ctx, models.FilterBoth, nil)
	require.NoError(t, err)

	require.NoError(t, f.backend.UpdateRates(ctx, 99, 99))

	after, err := f.svc.SessionReport(ctx, models.FilterBoth, nil)
	require.NoError(t, err)
	assert.Equal(t, before.Summary.Amount, after.Summary.Amount)
	assert.InDelta(t, 860, after.Summary.Amount, 1e-9)
}

func TestSessionReportPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	th, _ := f.backend.AddFarmer(ctx, "Suresh", "98766", models.MilkTypeThekadari)
	f.collect(t, time.Date(2026, 5, 1, 6, 0, 0, 0, ist), th, 20, 70, nil, 40)
	f.collect(t, time.Date(2026, 5, 1, 7, 0, 0, 0, ist), th, 20, 70, nil, 40)
	f.collect(t, time.Date(2026, 5, 2, 6, 0, 0, 0, ist), th, 20, 70, nil, 40)

	p0, err := f.svc.SessionReportPage(ctx, models.FilterMorning, 0, nil)
	require.NoError(t, err)
	assert.Len(t, p0.Rows, 2)
	assert.True(t, p0.HasNextPage)
	assert.False(t, p0.HasPrevPage)

	day := time.Date(2026, 5, 2, 0, 0, 0, 0, ist)
	p1, err := f.svc.SessionReportPage(ctx, models.FilterBoth, 1, &day)
	require.NoError(t, err)
	assert.Len(t, p1.Rows, 1)
	assert.False(t, p1.HasNextPage)
	assert.True(t, p1.HasPrevPage)
}

func TestFarmerBill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	vlc, _ := f.backend.AddFarmer(ctx, "Ramesh", "98765", models.MilkTypeVLC)
	snf := 8.5
	for day := 1; day <= 5; day++ {
		f.collect(t, time.Date(2026, 5, day, 6, 0, 0, 0, ist), vlc, 10, 4, &snf, 50)
	}
	_, err := f.backend.AddTransaction(ctx, vlc, "advance", -100)
	require.NoError(t, err)

	rng, _ := NewDateRange(time.Date(2026, 5, 2, 0, 0, 0, 0, ist), time.Date(2026, 5, 4, 0, 0, 0, 0, ist), ist)
	bill, err := f.svc.FarmerBill(ctx, vlc, rng)

	require.NoError(t, err)
	assert.Equal(t, "ANMOL DAIRY LIFE", bill.DairyName)
	assert.Equal(t, "Ramesh", bill.Farmer.Name)
	assert.Len(t, bill.Rows, 3)
	assert.InDelta(t, 3*37.3504, bill.Summary.Amount, 1e-3)
	assert.Equal(t, -100.0, bill.Balance)

	_, err = f.svc.FarmerBill(ctx, 404, rng)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStatementAndSMS(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	id, _ := f.backend.AddFarmer(ctx, "Ramesh", "98765 43210", models.MilkTypeVLC)
	for i, amt := range []float64{-100, 50, -20} {
		f.clock = time.Date(2026, 5, 1+i, 10, 0, 0, 0, ist)
		_, err := f.backend.AddTransaction(ctx, id, "cash", amt)
		require.NoError(t, err)
	}

	st, err := f.svc.Statement(ctx, id)
	require.NoError(t, err)
	assert.Len(t, st.Transactions, 3)
	assert.Equal(t, -70.0, st.Balance)
	assert.Equal(t, "Amount Due", st.BalanceLabel)

	sms, err := f.svc.BalanceSMS(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", sms.Phone)
	assert.Contains(t, sms.Message, "Balance: ₹-70.00")
	assert.Contains(t, sms.Message, "03/05/2026: ₹-20.00\n02/05/2026: ₹50.00\n01/05/2026: ₹-100.00")
	assert.Contains(t, sms.URI, "sms:9876543210?body=")
}

func TestSellBill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50)
	id, _ := f.backend.AddFarmer(ctx, "Ramesh", "98765", models.MilkTypeVLC)
	require.NoError(t, f.backend.AddInventoryEntry(ctx, "Cattle Feed", 10))
	walkIn, err := f.backend.AddProductSale(ctx, nil, "Cattle Feed", 1, 300)
	require.NoError(t, err)
	farmerSale, err := f.backend.AddProductSale(ctx, &id, "Cattle Feed", 2, 300)
	require.NoError(t, err)

	bill, err := f.svc.SellBill(ctx, walkIn)
	require.NoError(t, err)
	assert.Empty(t, bill.FarmerName)
	assert.Equal(t, "01/05/2026", bill.Date)

	bill, err = f.svc.SellBill(ctx, farmerSale)
	require.NoError(t, err)
	assert.Equal(t, "Ramesh", bill.FarmerName)
	assert.Equal(t, 600.0, bill.Sale.TotalAmount)

	_, err = f.svc.SellBill(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDailyReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50)
	th, _ := f.backend.AddFarmer(ctx, "Suresh", "98766", models.MilkTypeThekadari)
	f.collect(t, time.Date(2026, 5, 1, 6, 0, 0, 0, ist), th, 20, 70, nil, 40)
	f.collect(t, time.Date(2026, 5, 1, 19, 0, 0, 0, ist), th, 10, 65, nil, 40)
	f.collect(t, time.Date(2026, 5, 2, 6, 0, 0, 0, ist), th, 10, 65, nil, 40)

	report, err := f.svc.DailyReport(ctx, time.Date(2026, 5, 1, 12, 0, 0, 0, ist), models.SessionMorning)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Entries)
	assert.InDelta(t, 860, report.TotalAmount, 1e-9)
	assert.InDelta(t, 21.5, report.TotalNetMilk, 1e-9)
	assert.Contains(t, FormatDailyReport(report), "Morning collection (2026-05-01): 1 entries")

	empty := models.DailyReport{Session: models.SessionEvening, Date: report.Date}
	assert.Equal(t, "Evening collection (2026-05-01): no entries.", FormatDailyReport(empty))
}

// failingSource fails one page of the morning session.
type failingSource struct {
	*memory.Memory
	failPage int
	err      error
}

func (s failingSource) GetAllCollectionsForSession(ctx context.Context, session models.Session, page int) ([]models.CollectionEntry, error) {
	if session == models.SessionMorning && page == s.failPage {
		return nil, s.err
	}
	return s.Memory.GetAllCollectionsForSession(ctx, session, page)
}

func TestSessionReport_FailsWithoutPartialTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	th, _ := f.backend.AddFarmer(ctx, "Suresh", "98766", models.MilkTypeThekadari)
	for i := 0; i < 3; i++ {
		f.collect(t, time.Date(2026, 5, 1, 6+i, 0, 0, 0, ist), th, 20, 70, nil, 40)
	}

	boom := errors.New("backend unavailable")
	svc := NewService(failingSource{Memory: f.backend, failPage: 2, err: boom}, Options{PageSize: 1, Location: ist}, nil)

	report, err := svc.SessionReport(ctx, models.FilterBoth, nil)

	require.ErrorIs(t, err, boom)
	assert.Empty(t, report.Rows)
	assert.Zero(t, report.Summary.Count)
}

func TestSessionReport_FetchAheadMatchesSequential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	th, _ := f.backend.AddFarmer(ctx, "Suresh", "98766", models.MilkTypeThekadari)
	for i := 0; i < 7; i++ {
		f.collect(t, time.Date(2026, 5, 1, 4+i, 0, 0, 0, ist), th, float64(10+i), 70, nil, 40)
	}

	seq, err := f.svc.SessionReport(ctx, models.FilterMorning, nil)
	require.NoError(t, err)

	ahead := NewService(f.backend, Options{PageSize: 2, FetchAhead: 3, Location: ist}, nil)
	par, err := ahead.SessionReport(ctx, models.FilterMorning, nil)
	require.NoError(t, err)

	require.Len(t, par.Rows, len(seq.Rows))
	for i := range seq.Rows {
		assert.Equal(t, seq.Rows[i].ID, par.Rows[i].ID)
	}
}
