// Package memory provides an in-process implementation of repository.Backend
// used by tests and by BACKEND_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anmoldairy/dairy/internal/domain/ledger"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/pagination"
	"github.com/anmoldairy/dairy/internal/repository"
)

// Memory keeps every record in slices guarded by a single RWMutex.
type Memory struct {
	mu       sync.RWMutex
	pageSize int
	now      func() time.Time

	farmers      []models.Farmer
	collections  []models.CollectionEntry
	transactions []models.Transaction
	inventory    []models.InventoryEntry
	sales        []saleRecord
	rates        models.Rates
	reports      []models.DailyReport

	nextFarmer int64
	nextEntry  int64
	nextTxn    int64
	nextSale   int64
}

type saleRecord struct {
	sale  models.ProductSale
	txnID int64
}

// Option configures a Memory backend.
type Option func(*Memory)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// New creates an empty backend serving pages of pageSize items.
func New(pageSize int, opts ...Option) *Memory {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	m := &Memory{pageSize: pageSize, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) stamp() int64 {
	return models.NanosFromTime(m.now())
}

func page[T any](items []T, page, size int) []T {
	start := page * size
	if page < 0 || start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// --- farmers ---

func (m *Memory) farmerIndex(id int64) int {
	for i, f := range m.farmers {
		if f.CustomerID == id {
			return i
		}
	}
	return -1
}

// GetFarmer returns the farmer with the given customer id.
func (m *Memory) GetFarmer(_ context.Context, id int64) (models.Farmer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.farmerIndex(id)
	if i < 0 {
		return models.Farmer{}, fmt.Errorf("farmer %d: %w", id, repository.ErrNotFound)
	}
	return m.farmers[i], nil
}

// GetAllFarmers returns farmers ordered by customer id.
func (m *Memory) GetAllFarmers(_ context.Context) ([]models.Farmer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]models.Farmer{}, m.farmers...)
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// AddFarmer registers a farmer under the next free customer id.
func (m *Memory) AddFarmer(_ context.Context, name, phone string, milkType models.MilkType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		m.nextFarmer++
		if m.farmerIndex(m.nextFarmer) < 0 {
			break
		}
	}
	m.farmers = append(m.farmers, models.Farmer{CustomerID: m.nextFarmer, Name: name, Phone: phone, MilkType: milkType})
	return m.nextFarmer, nil
}

// UpdateFarmerDetails edits a farmer and re-keys their records when the customer id changes.
func (m *Memory) UpdateFarmerDetails(_ context.Context, id int64, name, phone string, milkType models.MilkType, newID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.farmerIndex(id)
	if i < 0 {
		return fmt.Errorf("farmer %d: %w", id, repository.ErrNotFound)
	}
	if newID != id && m.farmerIndex(newID) >= 0 {
		return fmt.Errorf("farmer %d: %w", newID, repository.ErrDuplicateCustomerID)
	}

	m.farmers[i] = models.Farmer{CustomerID: newID, Name: name, Phone: phone, MilkType: milkType}
	if newID == id {
		return nil
	}
	for j := range m.collections {
		if m.collections[j].FarmerID == id {
			m.collections[j].FarmerID = newID
		}
	}
	for j := range m.transactions {
		if m.transactions[j].FarmerID == id {
			m.transactions[j].FarmerID = newID
		}
	}
	for j := range m.sales {
		if fid := m.sales[j].sale.FarmerID; fid != nil && *fid == id {
			moved := newID
			m.sales[j].sale.FarmerID = &moved
		}
	}
	return nil
}

// --- collections ---

func (m *Memory) filterCollections(keep func(models.CollectionEntry) bool) []models.CollectionEntry {
	var out []models.CollectionEntry
	for _, c := range m.collections {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// GetAllCollectionsForSession returns one page of the session's entries across all farmers.
func (m *Memory) GetAllCollectionsForSession(_ context.Context, session models.Session, p int) ([]models.CollectionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.filterCollections(func(c models.CollectionEntry) bool { return c.Session == session })
	return page(all, p, m.pageSize), nil
}

// GetPaginatedCollections returns one page of a farmer's entries.
func (m *Memory) GetPaginatedCollections(_ context.Context, farmerID int64, p int) ([]models.CollectionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.filterCollections(func(c models.CollectionEntry) bool { return c.FarmerID == farmerID })
	return page(all, p, m.pageSize), nil
}

// AddCollectionEntry stores an entry with the farmer's milk type and the supplied rate.
func (m *Memory) AddCollectionEntry(_ context.Context, farmerID int64, weight, fat float64, snf *float64, rate float64, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.farmerIndex(farmerID)
	if i < 0 {
		return fmt.Errorf("farmer %d: %w", farmerID, repository.ErrNotFound)
	}
	m.nextEntry++
	m.collections = append(m.collections, models.CollectionEntry{
		ID:       m.nextEntry,
		FarmerID: farmerID,
		Weight:   weight,
		Fat:      fat,
		SNF:      copyFloat(snf),
		Rate:     rate,
		Date:     m.stamp(),
		Session:  session,
		MilkType: m.farmers[i].MilkType,
	})
	return nil
}

// UpdateCollectionEntry replaces the measurements of an existing entry. The timestamp is kept.
func (m *Memory) UpdateCollectionEntry(_ context.Context, farmerID, entryID int64, weight, fat float64, snf *float64, rate float64, session models.Session, milkType models.MilkType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.collections {
		if c.ID != entryID || c.FarmerID != farmerID {
			continue
		}
		c.Weight, c.Fat, c.SNF, c.Rate, c.Session, c.MilkType = weight, fat, copyFloat(snf), rate, session, milkType
		m.collections[i] = c
		return nil
	}
	return fmt.Errorf("collection entry %d: %w", entryID, repository.ErrNotFound)
}

// --- transactions ---

func (m *Memory) farmerTransactions(farmerID int64) []models.Transaction {
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.FarmerID == farmerID {
			out = append(out, t)
		}
	}
	return out
}

// GetFarmerBalance sums every transaction of the farmer.
func (m *Memory) GetFarmerBalance(_ context.Context, farmerID int64) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ledger.Balance(m.farmerTransactions(farmerID)), nil
}

// GetFarmerTransactions returns one page of the farmer's transactions, oldest first.
func (m *Memory) GetFarmerTransactions(_ context.Context, farmerID int64, p int) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return page(m.farmerTransactions(farmerID), p, m.pageSize), nil
}

// AddTransaction appends a signed cash movement.
func (m *Memory) AddTransaction(_ context.Context, farmerID int64, description string, amount float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.farmerIndex(farmerID) < 0 {
		return 0, fmt.Errorf("farmer %d: %w", farmerID, repository.ErrNotFound)
	}
	return m.appendTransactionLocked(farmerID, description, amount), nil
}

func (m *Memory) appendTransactionLocked(farmerID int64, description string, amount float64) int64 {
	m.nextTxn++
	m.transactions = append(m.transactions, models.Transaction{
		ID:          m.nextTxn,
		FarmerID:    farmerID,
		Description: description,
		Amount:      amount,
		Timestamp:   m.stamp(),
	})
	return m.nextTxn
}

// UpdateTransaction edits the description and amount of a transaction.
func (m *Memory) UpdateTransaction(_ context.Context, farmerID, transactionID int64, description string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.transactions {
		if t.ID == transactionID && t.FarmerID == farmerID {
			m.transactions[i].Description = description
			m.transactions[i].Amount = amount
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", transactionID, repository.ErrNotFound)
}

// --- inventory ---

func (m *Memory) productIndex(name string) int {
	for i, e := range m.inventory {
		if e.Product.Name == name {
			return i
		}
	}
	return -1
}

// GetAllInventory returns every product with its stock.
func (m *Memory) GetAllInventory(_ context.Context) ([]models.InventoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.InventoryEntry{}, m.inventory...), nil
}

// AddInventoryEntry creates a product with an initial stock.
func (m *Memory) AddInventoryEntry(_ context.Context, productName string, quantity float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.productIndex(productName) >= 0 {
		return fmt.Errorf("product %q: %w", productName, repository.ErrDuplicateProduct)
	}
	m.inventory = append(m.inventory, models.InventoryEntry{Product: models.Product{Name: productName}, QuantityInStock: quantity})
	return nil
}

// UpdateInventory adds a signed delta to the product's stock.
func (m *Memory) UpdateInventory(_ context.Context, productName string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustStockLocked(productName, delta)
}

func (m *Memory) adjustStockLocked(productName string, delta float64) error {
	i := m.productIndex(productName)
	if i < 0 {
		return fmt.Errorf("product %q: %w", productName, repository.ErrNotFound)
	}
	next := ledger.SumAmounts(m.inventory[i].QuantityInStock, delta)
	if next < 0 {
		return fmt.Errorf("product %q: %w", productName, repository.ErrInsufficientStock)
	}
	m.inventory[i].QuantityInStock = next
	return nil
}

// --- sales ---

// GetAllProductSales returns every sale, oldest first.
func (m *Memory) GetAllProductSales(_ context.Context) ([]models.ProductSale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ProductSale, 0, len(m.sales))
	for _, r := range m.sales {
		out = append(out, r.sale)
	}
	return out, nil
}

// AddProductSale records a sale, takes the quantity out of stock and, for a
// farmer, debits their ledger with the sale total.
func (m *Memory) AddProductSale(_ context.Context, farmerID *int64, productName string, quantity, pricePerUnit float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if farmerID != nil && m.farmerIndex(*farmerID) < 0 {
		return 0, fmt.Errorf("farmer %d: %w", *farmerID, repository.ErrNotFound)
	}
	if err := m.adjustStockLocked(productName, -quantity); err != nil {
		return 0, err
	}

	m.nextSale++
	sale := models.ProductSale{
		ID:           m.nextSale,
		FarmerID:     copyID(farmerID),
		ProductName:  productName,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		TotalAmount:  ledger.SaleTotal(quantity, pricePerUnit),
		Timestamp:    m.stamp(),
	}
	rec := saleRecord{sale: sale}
	if farmerID != nil {
		rec.txnID = m.appendTransactionLocked(*farmerID, repository.SaleDescription(productName, quantity), -sale.TotalAmount)
	}
	m.sales = append(m.sales, rec)
	return sale.ID, nil
}

// UpdateProductSale edits a sale. Stock taken by the old sale is returned before
// the new quantity is taken; a changed farmer ledger entry is reversed and reposted.
func (m *Memory) UpdateProductSale(_ context.Context, saleID int64, farmerID *int64, productName string, quantity, pricePerUnit float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, r := range m.sales {
		if r.sale.ID == saleID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("sale %d: %w", saleID, repository.ErrNotFound)
	}
	if farmerID != nil && m.farmerIndex(*farmerID) < 0 {
		return fmt.Errorf("farmer %d: %w", *farmerID, repository.ErrNotFound)
	}

	rec := m.sales[idx]
	old := rec.sale
	if err := m.adjustStockLocked(old.ProductName, old.Quantity); err != nil {
		return err
	}
	if err := m.adjustStockLocked(productName, -quantity); err != nil {
		// put the old sale's stock back out
		_ = m.adjustStockLocked(old.ProductName, -old.Quantity)
		return err
	}

	updated := old
	updated.FarmerID = copyID(farmerID)
	updated.ProductName = productName
	updated.Quantity = quantity
	updated.PricePerUnit = pricePerUnit
	updated.TotalAmount = ledger.SaleTotal(quantity, pricePerUnit)

	if repository.SaleLedgerChanged(old, updated) {
		if old.FarmerID != nil && rec.txnID != 0 {
			m.appendTransactionLocked(*old.FarmerID, repository.SaleReversalDescription(old.ProductName, old.Quantity), old.TotalAmount)
		}
		rec.txnID = 0
		if updated.FarmerID != nil {
			rec.txnID = m.appendTransactionLocked(*updated.FarmerID, repository.SaleDescription(productName, quantity), -updated.TotalAmount)
		}
	}

	rec.sale = updated
	m.sales[idx] = rec
	return nil
}

// --- rates ---

// GetRates returns the current global rates.
func (m *Memory) GetRates(_ context.Context) (models.Rates, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rates, nil
}

// UpdateRates replaces the global rates. Stored entries keep their own rate.
func (m *Memory) UpdateRates(_ context.Context, vlcRate, thekadariRate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = models.Rates{VLC: vlcRate, Thekadari: thekadariRate}
	return nil
}

// --- reports ---

// SaveDailyReport keeps a copy of the report.
func (m *Memory) SaveDailyReport(_ context.Context, report models.DailyReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

// DailyReports returns the saved reports.
func (m *Memory) DailyReports() []models.DailyReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.DailyReport{}, m.reports...)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyID(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

var (
	_ repository.Backend     = (*Memory)(nil)
	_ repository.ReportStore = (*Memory)(nil)
)
