package models

import "time"

// Farmer is a milk supplier identified by a customer id they can choose and edit.
type Farmer struct {
	CustomerID int64    `json:"customerID" bson:"customer_id"`
	Name       string   `json:"name" bson:"name"`
	Phone      string   `json:"phone" bson:"phone"`
	MilkType   MilkType `json:"milkType" bson:"milk_type"`
}

// CollectionEntry is a single milk delivery. The payable amount is never stored;
// it is derived from weight, fat, snf, the frozen rate and the milk type.
type CollectionEntry struct {
	ID       int64    `json:"id" bson:"entry_id"`
	FarmerID int64    `json:"farmerID" bson:"farmer_id"`
	Weight   float64  `json:"weight" bson:"weight"`
	Fat      float64  `json:"fat" bson:"fat"`
	SNF      *float64 `json:"snf,omitempty" bson:"snf,omitempty"`
	Rate     float64  `json:"rate" bson:"rate"`
	Date     int64    `json:"date" bson:"date"`
	Session  Session  `json:"session" bson:"session"`
	MilkType MilkType `json:"milkType" bson:"milk_type"`
}

// Time returns the collection timestamp.
func (c CollectionEntry) Time() time.Time {
	return TimeFromNanos(c.Date)
}

// Transaction is a signed cash movement. Negative amounts are payments out to the
// farmer or debits; positive amounts are credits.
type Transaction struct {
	ID          int64   `json:"id" bson:"txn_id"`
	FarmerID    int64   `json:"farmerID" bson:"farmer_id"`
	Description string  `json:"description" bson:"description"`
	Amount      float64 `json:"amount" bson:"amount"`
	Timestamp   int64   `json:"timestamp" bson:"timestamp"`
}

// Time returns the transaction timestamp.
func (t Transaction) Time() time.Time {
	return TimeFromNanos(t.Timestamp)
}

// Product identifies an inventory item by name.
type Product struct {
	Name string `json:"name" bson:"name"`
}

// InventoryEntry is the stock held for one product.
type InventoryEntry struct {
	Product         Product `json:"product" bson:"product"`
	QuantityInStock float64 `json:"quantityInStock" bson:"quantity_in_stock"`
}

// ProductSale records a product sold over the counter. FarmerID is nil for walk-in customers.
type ProductSale struct {
	ID           int64   `json:"id" bson:"sale_id"`
	FarmerID     *int64  `json:"farmerID,omitempty" bson:"farmer_id,omitempty"`
	ProductName  string  `json:"productName" bson:"product_name"`
	Quantity     float64 `json:"quantity" bson:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit" bson:"price_per_unit"`
	TotalAmount  float64 `json:"totalAmount" bson:"total_amount"`
	Timestamp    int64   `json:"timestamp" bson:"timestamp"`
}

// Time returns the sale timestamp.
func (s ProductSale) Time() time.Time {
	return TimeFromNanos(s.Timestamp)
}
