// Package repository defines the persistence collaborator the dairy services depend on.
// Implementations live in the memory and mongodb subpackages and in pkg/clients/backend.
package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/anmoldairy/dairy/internal/domain/models"
)

var (
	// ErrNotFound indicates the referenced farmer, entry, transaction, product or sale does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCustomerID indicates another farmer already uses the requested customer id.
	ErrDuplicateCustomerID = errors.New("customer id already in use")

	// ErrDuplicateProduct indicates the product already has an inventory entry.
	ErrDuplicateProduct = errors.New("product already exists")

	// ErrInsufficientStock indicates a sale or adjustment would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// FarmerStore manages farmer records.
type FarmerStore interface {
	GetFarmer(ctx context.Context, id int64) (models.Farmer, error)
	GetAllFarmers(ctx context.Context) ([]models.Farmer, error)
	AddFarmer(ctx context.Context, name, phone string, milkType models.MilkType) (int64, error)
	UpdateFarmerDetails(ctx context.Context, id int64, name, phone string, milkType models.MilkType, newID int64) error
}

// CollectionStore manages milk collection entries. Pages are zero-based and an
// empty page marks the end of the sequence.
type CollectionStore interface {
	GetAllCollectionsForSession(ctx context.Context, session models.Session, page int) ([]models.CollectionEntry, error)
	GetPaginatedCollections(ctx context.Context, farmerID int64, page int) ([]models.CollectionEntry, error)
	AddCollectionEntry(ctx context.Context, farmerID int64, weight, fat float64, snf *float64, rate float64, session models.Session) error
	UpdateCollectionEntry(ctx context.Context, farmerID, entryID int64, weight, fat float64, snf *float64, rate float64, session models.Session, milkType models.MilkType) error
}

// TransactionStore manages the cash ledger.
type TransactionStore interface {
	GetFarmerBalance(ctx context.Context, farmerID int64) (float64, error)
	GetFarmerTransactions(ctx context.Context, farmerID int64, page int) ([]models.Transaction, error)
	AddTransaction(ctx context.Context, farmerID int64, description string, amount float64) (int64, error)
	UpdateTransaction(ctx context.Context, farmerID, transactionID int64, description string, amount float64) error
}

// InventoryStore manages product stock.
type InventoryStore interface {
	GetAllInventory(ctx context.Context) ([]models.InventoryEntry, error)
	AddInventoryEntry(ctx context.Context, productName string, quantity float64) error
	UpdateInventory(ctx context.Context, productName string, delta float64) error
}

// SaleStore manages product sales.
type SaleStore interface {
	GetAllProductSales(ctx context.Context) ([]models.ProductSale, error)
	AddProductSale(ctx context.Context, farmerID *int64, productName string, quantity, pricePerUnit float64) (int64, error)
	UpdateProductSale(ctx context.Context, saleID int64, farmerID *int64, productName string, quantity, pricePerUnit float64) error
}

// RateStore manages the global per-kg rates.
type RateStore interface {
	GetRates(ctx context.Context) (models.Rates, error)
	UpdateRates(ctx context.Context, vlcRate, thekadariRate float64) error
}

// Backend is the full persistence collaborator.
type Backend interface {
	FarmerStore
	CollectionStore
	TransactionStore
	InventoryStore
	SaleStore
	RateStore
}

// ReportStore persists end-of-session reports.
type ReportStore interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// SaleDescription is the ledger description posted when a farmer buys a product.
func SaleDescription(productName string, quantity float64) string {
	return "Sale: " + productName + " x " + strconv.FormatFloat(quantity, 'f', -1, 64)
}

// SaleReversalDescription is the ledger description posted when a sale is re-assigned or changed.
func SaleReversalDescription(productName string, quantity float64) string {
	return "Reversal: " + SaleDescription(productName, quantity)
}

// SaleLedgerChanged reports whether an edited sale needs its farmer posting reversed and reposted.
func SaleLedgerChanged(old, updated models.ProductSale) bool {
	sameFarmer := (old.FarmerID == nil && updated.FarmerID == nil) ||
		(old.FarmerID != nil && updated.FarmerID != nil && *old.FarmerID == *updated.FarmerID)
	return !sameFarmer || old.TotalAmount != updated.TotalAmount ||
		old.ProductName != updated.ProductName || old.Quantity != updated.Quantity
}
