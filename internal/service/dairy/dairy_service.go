// Package dairy validates collector input and forwards it to the persistence backend.
package dairy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/domain/ledger"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/domain/payment"
	"github.com/anmoldairy/dairy/internal/repository"
)

// ErrInvalidInput indicates the request failed validation and was not forwarded to the backend.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Service implements the collection center operations on top of a backend.
type Service struct {
	backend repository.Backend
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewService constructs a dairy service. Sessions are derived from the clock in loc.
func NewService(backend repository.Backend, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{backend: backend, loc: loc, logger: logger, now: time.Now}
}

// CurrentSession returns the session of the current time of day.
func (s *Service) CurrentSession() models.Session {
	return models.SessionAt(s.now().In(s.loc))
}

// --- farmers ---

// FarmerInput carries the editable farmer fields.
type FarmerInput struct {
	Name     string          `json:"name" binding:"required"`
	Phone    string          `json:"phone"`
	MilkType models.MilkType `json:"milkType" binding:"required"`
}

func (in FarmerInput) validate() (FarmerInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" {
		return in, invalid("name is required")
	}
	mt, err := models.ParseMilkType(string(in.MilkType))
	if err != nil {
		return in, invalid("%v", err)
	}
	in.MilkType = mt
	return in, nil
}

// AddFarmer registers a farmer and returns their customer id.
func (s *Service) AddFarmer(ctx context.Context, in FarmerInput) (int64, error) {
	in, err := in.validate()
	if err != nil {
		return 0, err
	}
	id, err := s.backend.AddFarmer(ctx, in.Name, in.Phone, in.MilkType)
	if err != nil {
		return 0, fmt.Errorf("add farmer: %w", err)
	}
	s.logger.Info("farmer added", zap.Int64("customer_id", id), zap.String("milk_type", string(in.MilkType)))
	return id, nil
}

// UpdateFarmer edits a farmer; newID may differ from id to change the customer id.
func (s *Service) UpdateFarmer(ctx context.Context, id int64, in FarmerInput, newID int64) error {
	in, err := in.validate()
	if err != nil {
		return err
	}
	if newID <= 0 {
		return invalid("customer id must be a positive number")
	}
	if err := s.backend.UpdateFarmerDetails(ctx, id, in.Name, in.Phone, in.MilkType, newID); err != nil {
		return fmt.Errorf("update farmer %d: %w", id, err)
	}
	return nil
}

// GetFarmer returns one farmer.
func (s *Service) GetFarmer(ctx context.Context, id int64) (models.Farmer, error) {
	farmer, err := s.backend.GetFarmer(ctx, id)
	if err != nil {
		return models.Farmer{}, fmt.Errorf("get farmer %d: %w", id, err)
	}
	return farmer, nil
}

// ListFarmers returns every farmer.
func (s *Service) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	farmers, err := s.backend.GetAllFarmers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list farmers: %w", err)
	}
	return farmers, nil
}

// FindFarmerByPhone returns the farmer whose phone equals phone once both are
// normalized. Partial matches never count.
func (s *Service) FindFarmerByPhone(ctx context.Context, phone string) (models.Farmer, error) {
	want := ledger.NormalizePhone(phone)
	if want == "" {
		return models.Farmer{}, fmt.Errorf("farmer with phone %q: %w", phone, repository.ErrNotFound)
	}
	farmers, err := s.ListFarmers(ctx)
	if err != nil {
		return models.Farmer{}, err
	}
	for _, f := range farmers {
		if ledger.NormalizePhone(f.Phone) == want {
			return f, nil
		}
	}
	return models.Farmer{}, fmt.Errorf("farmer with phone %s: %w", phone, repository.ErrNotFound)
}

// --- collections ---

// CollectionInput is a measurement taken at the collection counter.
// An empty Session is derived from the time of day.
type CollectionInput struct {
	FarmerID int64          `json:"farmerID" binding:"required"`
	Weight   float64        `json:"weight"`
	Fat      float64        `json:"fat"`
	SNF      *float64       `json:"snf,omitempty"`
	Session  models.Session `json:"session,omitempty"`
}

// Preview is a priced measurement, as shown before saving.
type Preview struct {
	Farmer  models.Farmer  `json:"farmer"`
	Weight  float64        `json:"weight"`
	Fat     float64        `json:"fat"`
	SNF     *float64       `json:"snf,omitempty"`
	Rate    float64        `json:"rate"`
	Session models.Session `json:"session"`
	payment.Result
}

func validateMeasurement(milkType models.MilkType, weight, fat float64, snf *float64) (*float64, error) {
	if !positive(weight) {
		return nil, invalid("weight must be greater than zero")
	}
	if !positive(fat) {
		return nil, invalid("fat must be greater than zero")
	}
	if milkType != models.MilkTypeVLC {
		return nil, nil
	}
	if snf == nil || !positive(*snf) {
		return nil, invalid("snf is required for VLC milk")
	}
	return snf, nil
}

func (s *Service) resolveSession(session models.Session) (models.Session, error) {
	if session == "" {
		return s.CurrentSession(), nil
	}
	parsed, err := models.ParseSession(string(session))
	if err != nil {
		return "", invalid("%v", err)
	}
	return parsed, nil
}

// PreviewCollection prices a measurement with the current rate without saving it.
func (s *Service) PreviewCollection(ctx context.Context, in CollectionInput) (Preview, error) {
	farmer, err := s.GetFarmer(ctx, in.FarmerID)
	if err != nil {
		return Preview{}, err
	}
	snf, err := validateMeasurement(farmer.MilkType, in.Weight, in.Fat, in.SNF)
	if err != nil {
		return Preview{}, err
	}
	session, err := s.resolveSession(in.Session)
	if err != nil {
		return Preview{}, err
	}
	rates, err := s.backend.GetRates(ctx)
	if err != nil {
		return Preview{}, fmt.Errorf("get rates: %w", err)
	}
	rate := rates.For(farmer.MilkType)

	return Preview{
		Farmer:  farmer,
		Weight:  in.Weight,
		Fat:     in.Fat,
		SNF:     snf,
		Rate:    rate,
		Session: session,
		Result:  payment.Calculate(farmer.MilkType, in.Weight, in.Fat, snf, rate),
	}, nil
}

// RecordCollection saves a measurement. The current rate is frozen into the entry.
func (s *Service) RecordCollection(ctx context.Context, in CollectionInput) (Preview, error) {
	preview, err := s.PreviewCollection(ctx, in)
	if err != nil {
		return Preview{}, err
	}
	if err := s.backend.AddCollectionEntry(ctx, in.FarmerID, preview.Weight, preview.Fat, preview.SNF, preview.Rate, preview.Session); err != nil {
		return Preview{}, fmt.Errorf("add collection entry: %w", err)
	}
	s.logger.Info("collection recorded",
		zap.Int64("farmer_id", in.FarmerID),
		zap.String("session", string(preview.Session)),
		zap.Float64("weight", preview.Weight),
		zap.Float64("amount", preview.Amount))
	return preview, nil
}

// CollectionUpdate carries the editable fields of a stored entry.
type CollectionUpdate struct {
	Weight   float64         `json:"weight"`
	Fat      float64         `json:"fat"`
	SNF      *float64        `json:"snf,omitempty"`
	Session  models.Session  `json:"session" binding:"required"`
	MilkType models.MilkType `json:"milkType" binding:"required"`
}

// UpdateCollection edits an entry and reprices it with the current rate for its milk type.
func (s *Service) UpdateCollection(ctx context.Context, farmerID, entryID int64, in CollectionUpdate) (payment.Result, error) {
	milkType, err := models.ParseMilkType(string(in.MilkType))
	if err != nil {
		return payment.Result{}, invalid("%v", err)
	}
	snf, err := validateMeasurement(milkType, in.Weight, in.Fat, in.SNF)
	if err != nil {
		return payment.Result{}, err
	}
	session, err := models.ParseSession(string(in.Session))
	if err != nil {
		return payment.Result{}, invalid("%v", err)
	}
	rates, err := s.backend.GetRates(ctx)
	if err != nil {
		return payment.Result{}, fmt.Errorf("get rates: %w", err)
	}
	rate := rates.For(milkType)

	if err := s.backend.UpdateCollectionEntry(ctx, farmerID, entryID, in.Weight, in.Fat, snf, rate, session, milkType); err != nil {
		return payment.Result{}, fmt.Errorf("update collection entry %d: %w", entryID, err)
	}
	return payment.Calculate(milkType, in.Weight, in.Fat, snf, rate), nil
}

// SessionCollections returns one page of a session's entries.
func (s *Service) SessionCollections(ctx context.Context, session models.Session, page int) ([]models.CollectionEntry, error) {
	if !session.Valid() {
		return nil, invalid("unknown session %q", session)
	}
	if page < 0 {
		return nil, invalid("page must not be negative")
	}
	entries, err := s.backend.GetAllCollectionsForSession(ctx, session, page)
	if err != nil {
		return nil, fmt.Errorf("list %s collections: %w", session, err)
	}
	return entries, nil
}

// FarmerCollections returns one page of a farmer's entries.
func (s *Service) FarmerCollections(ctx context.Context, farmerID int64, page int) ([]models.CollectionEntry, error) {
	if page < 0 {
		return nil, invalid("page must not be negative")
	}
	entries, err := s.backend.GetPaginatedCollections(ctx, farmerID, page)
	if err != nil {
		return nil, fmt.Errorf("list collections of farmer %d: %w", farmerID, err)
	}
	return entries, nil
}

// --- cash ---

// CashKind is the direction of a cash movement.
type CashKind string

const (
	CashPay     CashKind = "pay"
	CashReceive CashKind = "receive"
)

// CashInput is a positive amount paid to or received from a farmer.
type CashInput struct {
	Kind        CashKind `json:"type" binding:"required"`
	Amount      float64  `json:"amount"`
	Description string   `json:"description"`
}

func (in CashInput) signed() (float64, string, error) {
	if in.Kind != CashPay && in.Kind != CashReceive {
		return 0, "", invalid("type must be pay or receive")
	}
	if !positive(in.Amount) {
		return 0, "", invalid("amount must be greater than zero")
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = "Cash paid"
		if in.Kind == CashReceive {
			desc = "Cash received"
		}
	}
	return ledger.Signed(in.Amount, in.Kind == CashPay), desc, nil
}

// RecordCash posts a payment to or receipt from a farmer.
func (s *Service) RecordCash(ctx context.Context, farmerID int64, in CashInput) (int64, error) {
	amount, desc, err := in.signed()
	if err != nil {
		return 0, err
	}
	id, err := s.backend.AddTransaction(ctx, farmerID, desc, amount)
	if err != nil {
		return 0, fmt.Errorf("add transaction: %w", err)
	}
	s.logger.Info("cash recorded", zap.Int64("farmer_id", farmerID), zap.Float64("amount", amount))
	return id, nil
}

// UpdateCash edits an existing transaction.
func (s *Service) UpdateCash(ctx context.Context, farmerID, transactionID int64, in CashInput) error {
	amount, desc, err := in.signed()
	if err != nil {
		return err
	}
	if err := s.backend.UpdateTransaction(ctx, farmerID, transactionID, desc, amount); err != nil {
		return fmt.Errorf("update transaction %d: %w", transactionID, err)
	}
	return nil
}

// Balance returns the farmer's current balance.
func (s *Service) Balance(ctx context.Context, farmerID int64) (float64, error) {
	balance, err := s.backend.GetFarmerBalance(ctx, farmerID)
	if err != nil {
		return 0, fmt.Errorf("get balance of farmer %d: %w", farmerID, err)
	}
	return balance, nil
}

// Transactions returns one page of the farmer's transactions.
func (s *Service) Transactions(ctx context.Context, farmerID int64, page int) ([]models.Transaction, error) {
	if page < 0 {
		return nil, invalid("page must not be negative")
	}
	txns, err := s.backend.GetFarmerTransactions(ctx, farmerID, page)
	if err != nil {
		return nil, fmt.Errorf("list transactions of farmer %d: %w", farmerID, err)
	}
	return txns, nil
}

// --- inventory ---

// ListInventory returns every product with its stock.
func (s *Service) ListInventory(ctx context.Context) ([]models.InventoryEntry, error) {
	inv, err := s.backend.GetAllInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return inv, nil
}

// AddProduct creates an inventory entry.
func (s *Service) AddProduct(ctx context.Context, name string, quantity float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("product name is required")
	}
	if quantity < 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return invalid("quantity must not be negative")
	}
	if err := s.backend.AddInventoryEntry(ctx, name, quantity); err != nil {
		return fmt.Errorf("add product %q: %w", name, err)
	}
	return nil
}

// AdjustStock adds a signed delta to a product's stock.
func (s *Service) AdjustStock(ctx context.Context, name string, delta float64) error {
	if delta == 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return invalid("quantity must be a non-zero number")
	}
	if err := s.backend.UpdateInventory(ctx, name, delta); err != nil {
		return fmt.Errorf("adjust stock of %q: %w", name, err)
	}
	return nil
}

// --- sales ---

// SaleInput describes a product sale. FarmerID is nil for walk-in customers.
type SaleInput struct {
	FarmerID     *int64  `json:"farmerID,omitempty"`
	ProductName  string  `json:"productName" binding:"required"`
	Quantity     float64 `json:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit"`
}

func (in SaleInput) validate() (SaleInput, error) {
	in.ProductName = strings.TrimSpace(in.ProductName)
	if in.ProductName == "" {
		return in, invalid("product is required")
	}
	if !positive(in.Quantity) || !positive(in.PricePerUnit) {
		return in, invalid("quantity and price must be greater than zero")
	}
	return in, nil
}

// ListSales returns every product sale.
func (s *Service) ListSales(ctx context.Context) ([]models.ProductSale, error) {
	sales, err := s.backend.GetAllProductSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// RecordSale records a sale and returns its id.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (int64, error) {
	in, err := in.validate()
	if err != nil {
		return 0, err
	}
	id, err := s.backend.AddProductSale(ctx, in.FarmerID, in.ProductName, in.Quantity, in.PricePerUnit)
	if err != nil {
		return 0, fmt.Errorf("add sale: %w", err)
	}
	s.logger.Info("sale recorded",
		zap.Int64("sale_id", id),
		zap.String("product", in.ProductName),
		zap.Float64("total", ledger.SaleTotal(in.Quantity, in.PricePerUnit)))
	return id, nil
}

// UpdateSale edits a sale.
func (s *Service) UpdateSale(ctx context.Context, saleID int64, in SaleInput) error {
	in, err := in.validate()
	if err != nil {
		return err
	}
	if err := s.backend.UpdateProductSale(ctx, saleID, in.FarmerID, in.ProductName, in.Quantity, in.PricePerUnit); err != nil {
		return fmt.Errorf("update sale %d: %w", saleID, err)
	}
	return nil
}

// --- rates ---

// GetRates returns the current rates.
func (s *Service) GetRates(ctx context.Context) (models.Rates, error) {
	rates, err := s.backend.GetRates(ctx)
	if err != nil {
		return models.Rates{}, fmt.Errorf("get rates: %w", err)
	}
	return rates, nil
}

// UpdateRates changes the rates applied to future collections only.
func (s *Service) UpdateRates(ctx context.Context, rates models.Rates) error {
	if rates.VLC < 0 || rates.Thekadari < 0 || math.IsNaN(rates.VLC) || math.IsNaN(rates.Thekadari) {
		return invalid("rates must not be negative")
	}
	if err := s.backend.UpdateRates(ctx, rates.VLC, rates.Thekadari); err != nil {
		return fmt.Errorf("update rates: %w", err)
	}
	s.logger.Info("rates updated", zap.Float64("vlc", rates.VLC), zap.Float64("thekadari", rates.Thekadari))
	return nil
}
