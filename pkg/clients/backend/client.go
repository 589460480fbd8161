// Package backend reaches a remote dairy record service over HTTP.
//
// Every collaborator operation is a POST to /<operation> with a JSON object of
// named arguments. Successful calls answer {"result": ...}; failures answer a
// non-2xx status with {"error": "...", "code": "..."}.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/config"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/repository"
)

// ErrRemote wraps failures reported by, or while reaching, the remote service.
var ErrRemote = errors.New("remote backend error")

// Error codes understood by the client.
const (
	CodeNotFound          = "not_found"
	CodeDuplicateCustomer = "duplicate_customer_id"
	CodeDuplicateProduct  = "duplicate_product"
	CodeInsufficientStock = "insufficient_stock"
)

// Client is a resty-backed implementation of repository.Backend.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient builds a remote backend client from configuration.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(shouldRetry)
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &Client{httpClient: restyClient, logger: logger}
}

// shouldRetry allows retries of reads only. A write that reached the backend
// before failing may already be committed, and repeating it would post twice.
func shouldRetry(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || !readOnly(operationOf(resp.Request.URL)) {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

func operationOf(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	return rawURL[strings.LastIndex(rawURL, "/")+1:]
}

func readOnly(operation string) bool {
	return strings.HasPrefix(operation, "get")
}

type envelope struct {
	Result json.RawMessage `json:"result"`
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (e *apiError) sentinel() error {
	switch e.Code {
	case CodeNotFound:
		return repository.ErrNotFound
	case CodeDuplicateCustomer:
		return repository.ErrDuplicateCustomerID
	case CodeDuplicateProduct:
		return repository.ErrDuplicateProduct
	case CodeInsufficientStock:
		return repository.ErrInsufficientStock
	}
	return ErrRemote
}

// call invokes one operation and decodes its result into out when out is non-nil.
func (c *Client) call(ctx context.Context, operation string, args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	result := new(envelope)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(args).
		SetResult(result).
		SetError(apiErr).
		Post("/" + operation)
	if err != nil {
		return fmt.Errorf("call %s: %w: %w", operation, ErrRemote, err)
	}

	if resp.IsError() {
		message := apiErr.Error
		if message == "" {
			message = resp.Status()
		}
		c.logger.Warn("remote backend call failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode()),
			zap.String("code", apiErr.Code))
		return fmt.Errorf("call %s: %s: %w", operation, message, apiErr.sentinel())
	}

	if out == nil || len(result.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", operation, err)
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// --- farmers ---

// GetFarmer returns the farmer with the given customer id.
func (c *Client) GetFarmer(ctx context.Context, id int64) (models.Farmer, error) {
	var farmer models.Farmer
	err := c.call(ctx, "getFarmer", map[string]any{"customerID": id}, &farmer)
	return farmer, err
}

// GetAllFarmers lists every farmer.
func (c *Client) GetAllFarmers(ctx context.Context) ([]models.Farmer, error) {
	var farmers []models.Farmer
	if err := c.call(ctx, "getAllFarmers", nil, &farmers); err != nil {
		return nil, err
	}
	return nonNil(farmers), nil
}

// AddFarmer registers a farmer and returns the assigned customer id.
func (c *Client) AddFarmer(ctx context.Context, name, phone string, milkType models.MilkType) (int64, error) {
	var id int64
	err := c.call(ctx, "addFarmer", map[string]any{"name": name, "phone": phone, "milkType": milkType}, &id)
	return id, err
}

// UpdateFarmerDetails edits a farmer, moving them to newID when it differs.
func (c *Client) UpdateFarmerDetails(ctx context.Context, id int64, name, phone string, milkType models.MilkType, newID int64) error {
	return c.call(ctx, "updateFarmerDetails", map[string]any{
		"customerID": id, "name": name, "phone": phone, "milkType": milkType, "newCustomerID": newID,
	}, nil)
}

// --- collections ---

// GetAllCollectionsForSession returns one page of a session's entries.
func (c *Client) GetAllCollectionsForSession(ctx context.Context, session models.Session, page int) ([]models.CollectionEntry, error) {
	var entries []models.CollectionEntry
	if err := c.call(ctx, "getAllCollectionsForSession", map[string]any{"session": session, "page": page}, &entries); err != nil {
		return nil, err
	}
	return nonNil(entries), nil
}

// GetPaginatedCollections returns one page of a farmer's entries.
func (c *Client) GetPaginatedCollections(ctx context.Context, farmerID int64, page int) ([]models.CollectionEntry, error) {
	var entries []models.CollectionEntry
	if err := c.call(ctx, "getPaginatedCollections", map[string]any{"farmerID": farmerID, "page": page}, &entries); err != nil {
		return nil, err
	}
	return nonNil(entries), nil
}

// AddCollectionEntry stores a collection with its frozen rate.
func (c *Client) AddCollectionEntry(ctx context.Context, farmerID int64, weight, fat float64, snf *float64, rate float64, session models.Session) error {
	return c.call(ctx, "addCollectionEntry", map[string]any{
		"farmerID": farmerID, "weight": weight, "fat": fat, "snf": snf, "rate": rate, "session": session,
	}, nil)
}

// UpdateCollectionEntry replaces the measured values of an entry.
func (c *Client) UpdateCollectionEntry(ctx context.Context, farmerID, entryID int64, weight, fat float64, snf *float64, rate float64, session models.Session, milkType models.MilkType) error {
	return c.call(ctx, "updateCollectionEntry", map[string]any{
		"farmerID": farmerID, "entryID": entryID, "weight": weight, "fat": fat, "snf": snf,
		"rate": rate, "session": session, "milkType": milkType,
	}, nil)
}

// --- transactions ---

// GetFarmerBalance returns the sum of the farmer's transactions.
func (c *Client) GetFarmerBalance(ctx context.Context, farmerID int64) (float64, error) {
	var balance float64
	err := c.call(ctx, "getFarmerBalance", map[string]any{"farmerID": farmerID}, &balance)
	return balance, err
}

// GetFarmerTransactions returns one page of the farmer's transactions.
func (c *Client) GetFarmerTransactions(ctx context.Context, farmerID int64, page int) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := c.call(ctx, "getFarmerTransactions", map[string]any{"farmerID": farmerID, "page": page}, &txns); err != nil {
		return nil, err
	}
	return nonNil(txns), nil
}

// AddTransaction posts a signed amount and returns its id.
func (c *Client) AddTransaction(ctx context.Context, farmerID int64, description string, amount float64) (int64, error) {
	var id int64
	err := c.call(ctx, "addTransaction", map[string]any{"farmerID": farmerID, "description": description, "amount": amount}, &id)
	return id, err
}

// UpdateTransaction edits a posted transaction.
func (c *Client) UpdateTransaction(ctx context.Context, farmerID, transactionID int64, description string, amount float64) error {
	return c.call(ctx, "updateTransaction", map[string]any{
		"farmerID": farmerID, "transactionID": transactionID, "description": description, "amount": amount,
	}, nil)
}

// --- inventory ---

// GetAllInventory lists every product with its stock.
func (c *Client) GetAllInventory(ctx context.Context) ([]models.InventoryEntry, error) {
	var inv []models.InventoryEntry
	if err := c.call(ctx, "getAllInventory", nil, &inv); err != nil {
		return nil, err
	}
	return nonNil(inv), nil
}

// AddInventoryEntry creates a product.
func (c *Client) AddInventoryEntry(ctx context.Context, productName string, quantity float64) error {
	return c.call(ctx, "addInventoryEntry", map[string]any{"productName": productName, "quantity": quantity}, nil)
}

// UpdateInventory adds a signed delta to a product's stock.
func (c *Client) UpdateInventory(ctx context.Context, productName string, delta float64) error {
	return c.call(ctx, "updateInventory", map[string]any{"productName": productName, "quantity": delta}, nil)
}

// --- sales ---

// GetAllProductSales lists every sale.
func (c *Client) GetAllProductSales(ctx context.Context) ([]models.ProductSale, error) {
	var sales []models.ProductSale
	if err := c.call(ctx, "getAllProductSales", nil, &sales); err != nil {
		return nil, err
	}
	return nonNil(sales), nil
}

// AddProductSale records a sale and returns its id.
func (c *Client) AddProductSale(ctx context.Context, farmerID *int64, productName string, quantity, pricePerUnit float64) (int64, error) {
	var id int64
	err := c.call(ctx, "addProductSale", map[string]any{
		"farmerID": farmerID, "productName": productName, "quantity": quantity, "pricePerUnit": pricePerUnit,
	}, &id)
	return id, err
}

// UpdateProductSale edits a sale.
func (c *Client) UpdateProductSale(ctx context.Context, saleID int64, farmerID *int64, productName string, quantity, pricePerUnit float64) error {
	return c.call(ctx, "updateProductSale", map[string]any{
		"saleID": saleID, "farmerID": farmerID, "productName": productName, "quantity": quantity, "pricePerUnit": pricePerUnit,
	}, nil)
}

// --- rates ---

// GetRates returns the current rates.
func (c *Client) GetRates(ctx context.Context) (models.Rates, error) {
	var rates models.Rates
	err := c.call(ctx, "getRates", nil, &rates)
	return rates, err
}

// UpdateRates replaces the current rates.
func (c *Client) UpdateRates(ctx context.Context, vlcRate, thekadariRate float64) error {
	return c.call(ctx, "updateRates", map[string]any{"vlcRate": vlcRate, "thekadariRate": thekadariRate}, nil)
}

var _ repository.Backend = (*Client)(nil)
