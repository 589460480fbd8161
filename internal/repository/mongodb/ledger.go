package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anmoldairy/dairy/internal/domain/ledger"
	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/repository"
)

var transactionOrder = bson.D{{Key: "timestamp", Value: 1}, {Key: "txn_id", Value: 1}}

// saleDocument keeps the id of the ledger posting made for a farmer sale.
type saleDocument struct {
	models.ProductSale `bson:",inline"`
	TxnID              int64 `bson:"posting_txn_id,omitempty"`
}

// --- transactions ---

// GetFarmerBalance sums every transaction of the farmer.
func (r *Repository) GetFarmerBalance(ctx context.Context, farmerID int64) (float64, error) {
	txns, err := findAll[models.Transaction](ctx, r.db.Collection(collTransactions),
		bson.M{"farmer_id": farmerID}, options.Find().SetProjection(bson.M{"amount": 1}))
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions of farmer %d: %w", farmerID, err)
	}
	return ledger.Balance(txns), nil
}

// GetFarmerTransactions returns one page of the farmer's transactions, oldest first.
func (r *Repository) GetFarmerTransactions(ctx context.Context, farmerID int64, page int) ([]models.Transaction, error) {
	txns, err := findAll[models.Transaction](ctx, r.db.Collection(collTransactions),
		bson.M{"farmer_id": farmerID}, r.pageOptions(page, transactionOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of farmer %d page %d: %w", farmerID, page, err)
	}
	return txns, nil
}

// AddTransaction inserts a signed cash movement.
func (r *Repository) AddTransaction(ctx context.Context, farmerID int64, description string, amount float64) (int64, error) {
	if _, err := r.GetFarmer(ctx, farmerID); err != nil {
		return 0, err
	}
	return r.insertTransaction(ctx, farmerID, description, amount)
}

func (r *Repository) insertTransaction(ctx context.Context, farmerID int64, description string, amount float64) (int64, error) {
	id, err := r.nextSeq(ctx, collTransactions)
	if err != nil {
		return 0, err
	}
	txn := models.Transaction{ID: id, FarmerID: farmerID, Description: description, Amount: amount, Timestamp: r.stamp()}
	if _, err := r.db.Collection(collTransactions).InsertOne(ctx, txn); err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return id, nil
}

// UpdateTransaction edits the description and amount of a transaction.
func (r *Repository) UpdateTransaction(ctx context.Context, farmerID, transactionID int64, description string, amount float64) error {
	res, err := r.db.Collection(collTransactions).UpdateOne(ctx,
		bson.M{"txn_id": transactionID, "farmer_id": farmerID},
		bson.M{"$set": bson.M{"description": description, "amount": amount}},
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", transactionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("transaction %d: %w", transactionID, repository.ErrNotFound)
	}
	return nil
}

// --- inventory ---

// GetAllInventory returns every product with its stock.
func (r *Repository) GetAllInventory(ctx context.Context) ([]models.InventoryEntry, error) {
	inv, err := findAll[models.InventoryEntry](ctx, r.db.Collection(collInventory), bson.M{},
		options.Find().SetSort(bson.D{{Key: "product.name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return inv, nil
}

// AddInventoryEntry creates a product with an initial stock.
func (r *Repository) AddInventoryEntry(ctx context.Context, productName string, quantity float64) error {
	entry := models.InventoryEntry{Product: models.Product{Name: productName}, QuantityInStock: quantity}
	_, err := r.db.Collection(collInventory).InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("product %q: %w", productName, repository.ErrDuplicateProduct)
	}
	if err != nil {
		return fmt.Errorf("failed to insert product %q: %w", productName, err)
	}
	return nil
}

// UpdateInventory adds a signed delta to the product's stock.
func (r *Repository) UpdateInventory(ctx context.Context, productName string, delta float64) error {
	return r.adjustStock(ctx, productName, delta)
}

// adjustStock applies delta only when the resulting stock stays non-negative.
func (r *Repository) adjustStock(ctx context.Context, productName string, delta float64) error {
	filter := bson.M{"product.name": productName}
	if delta < 0 {
		filter["quantity_in_stock"] = bson.M{"$gte": -delta}
	}
	res, err := r.db.Collection(collInventory).UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"quantity_in_stock": delta}})
	if err != nil {
		return fmt.Errorf("failed to adjust stock of %q: %w", productName, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	count, err := r.db.Collection(collInventory).CountDocuments(ctx, bson.M{"product.name": productName})
	if err != nil {
		return fmt.Errorf("failed to load product %q: %w", productName, err)
	}
	if count == 0 {
		return fmt.Errorf("product %q: %w", productName, repository.ErrNotFound)
	}
	return fmt.Errorf("product %q: %w", productName, repository.ErrInsufficientStock)
}

// --- sales ---

// GetAllProductSales returns every sale, oldest first.
func (r *Repository) GetAllProductSales(ctx context.Context) ([]models.ProductSale, error) {
	docs, err := findAll[saleDocument](ctx, r.db.Collection(collSales), bson.M{},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "sale_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	sales := make([]models.ProductSale, 0, len(docs))
	for _, d := range docs {
		sales = append(sales, d.ProductSale)
	}
	return sales, nil
}

// compensation collects the undo steps of a multi-document write. Without a
// replica set there are no transactions, so a failed step rolls back the
// earlier ones newest first.
type compensation struct {
	steps []func(context.Context) error
}

func (c *compensation) add(step func(context.Context) error) {
	c.steps = append(c.steps, step)
}

// rollback undoes every recorded step and returns cause joined with any undo failure.
func (c *compensation) rollback(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(c.steps) - 1; i >= 0; i-- {
		if err := c.steps[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("rollback: %w", err))
		}
	}
	c.steps = nil
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}

func (r *Repository) deleteTransaction(ctx context.Context, id int64) error {
	if _, err := r.db.Collection(collTransactions).DeleteOne(ctx, bson.M{"txn_id": id}); err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	return nil
}

// takeStock removes quantity from stock and records how to put it back.
func (r *Repository) takeStock(ctx context.Context, undo *compensation, productName string, quantity float64) error {
	if err := r.adjustStock(ctx, productName, -quantity); err != nil {
		return err
	}
	undo.add(func(ctx context.Context) error { return r.adjustStock(ctx, productName, quantity) })
	return nil
}

// post inserts a ledger entry and records how to remove it.
func (r *Repository) post(ctx context.Context, undo *compensation, farmerID int64, description string, amount float64) (int64, error) {
	id, err := r.insertTransaction(ctx, farmerID, description, amount)
	if err != nil {
		return 0, err
	}
	undo.add(func(ctx context.Context) error { return r.deleteTransaction(ctx, id) })
	return id, nil
}

// AddProductSale records a sale, takes the quantity out of stock and, for a
// farmer, debits their ledger with the sale total. A failure leaves stock and
// ledger as they were.
func (r *Repository) AddProductSale(ctx context.Context, farmerID *int64, productName string, quantity, pricePerUnit float64) (int64, error) {
	if farmerID != nil {
		if _, err := r.GetFarmer(ctx, *farmerID); err != nil {
			return 0, err
		}
	}

	var undo compensation
	if err := r.takeStock(ctx, &undo, productName, quantity); err != nil {
		return 0, err
	}

	id, err := r.nextSeq(ctx, collSales)
	if err != nil {
		return 0, undo.rollback(ctx, err)
	}
	doc := saleDocument{ProductSale: models.ProductSale{
		ID:           id,
		FarmerID:     farmerID,
		ProductName:  productName,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		TotalAmount:  ledger.SaleTotal(quantity, pricePerUnit),
		Timestamp:    r.stamp(),
	}}
	if farmerID != nil {
		txnID, err := r.post(ctx, &undo, *farmerID, repository.SaleDescription(productName, quantity), -doc.TotalAmount)
		if err != nil {
			return 0, undo.rollback(ctx, err)
		}
		doc.TxnID = txnID
	}
	if _, err := r.db.Collection(collSales).InsertOne(ctx, doc); err != nil {
		return 0, undo.rollback(ctx, fmt.Errorf("failed to insert sale: %w", err))
	}
	return id, nil
}

// UpdateProductSale edits a sale. Stock taken by the old sale is returned before
// the new quantity is taken; a changed farmer ledger entry is reversed and reposted.
// A failure leaves stock, ledger and the stored sale as they were.
func (r *Repository) UpdateProductSale(ctx context.Context, saleID int64, farmerID *int64, productName string, quantity, pricePerUnit float64) error {
	var doc saleDocument
	if err := r.db.Collection(collSales).FindOne(ctx, bson.M{"sale_id": saleID}).Decode(&doc); err != nil {
		return notFound(err, fmt.Sprintf("sale %d", saleID))
	}
	if farmerID != nil {
		if _, err := r.GetFarmer(ctx, *farmerID); err != nil {
			return err
		}
	}

	old := doc.ProductSale
	var undo compensation
	if err := r.adjustStock(ctx, old.ProductName, old.Quantity); err != nil {
		return err
	}
	undo.add(func(ctx context.Context) error { return r.adjustStock(ctx, old.ProductName, -old.Quantity) })
	if err := r.takeStock(ctx, &undo, productName, quantity); err != nil {
		return undo.rollback(ctx, err)
	}

	updated := old
	updated.FarmerID = farmerID
	updated.ProductName = productName
	updated.Quantity = quantity
	updated.PricePerUnit = pricePerUnit
	updated.TotalAmount = ledger.SaleTotal(quantity, pricePerUnit)

	txnID := doc.TxnID
	if repository.SaleLedgerChanged(old, updated) {
		if old.FarmerID != nil && doc.TxnID != 0 {
			reversal := repository.SaleReversalDescription(old.ProductName, old.Quantity)
			if _, err := r.post(ctx, &undo, *old.FarmerID, reversal, old.TotalAmount); err != nil {
				return undo.rollback(ctx, err)
			}
		}
		txnID = 0
		if updated.FarmerID != nil {
			id, err := r.post(ctx, &undo, *updated.FarmerID, repository.SaleDescription(productName, quantity), -updated.TotalAmount)
			if err != nil {
				return undo.rollback(ctx, err)
			}
			txnID = id
		}
	}

	_, err := r.db.Collection(collSales).ReplaceOne(ctx, bson.M{"sale_id": saleID}, saleDocument{ProductSale: updated, TxnID: txnID})
	if err != nil {
		return undo.rollback(ctx, fmt.Errorf("failed to update sale %d: %w", saleID, err))
	}
	return nil
}
