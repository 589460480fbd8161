// Package mongodb implements repository.Backend and repository.ReportStore on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/pagination"
	"github.com/anmoldairy/dairy/internal/repository"
)

const (
	collFarmers      = "farmers"
	collCollections  = "collections"
	collTransactions = "transactions"
	collInventory    = "inventory"
	collSales        = "sales"
	collSettings     = "settings"
	collCounters     = "counters"
	collReports      = "daily_reports"

	ratesDocID = "rates"
)

// Repository stores every dairy record in one MongoDB database.
type Repository struct {
	client   *mongo.Client
	db       *mongo.Database
	pageSize int
	logger   *zap.Logger
	now      func() time.Time
}

// NewRepository connects to MongoDB, verifies the connection and ensures indexes.
func NewRepository(ctx context.Context, uri, dbName string, pageSize int, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &Repository{
		client:   client,
		db:       client.Database(dbName),
		pageSize: pageSize,
		logger:   logger,
		now:      time.Now,
	}
	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		collFarmers: {{Keys: bson.D{{Key: "customer_id", Value: 1}}, Options: unique}},
		collCollections: {
			{Keys: bson.D{{Key: "entry_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "session", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "farmer_id", Value: 1}, {Key: "date", Value: 1}}},
		},
		collTransactions: {
			{Keys: bson.D{{Key: "txn_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "farmer_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		collInventory: {{Keys: bson.D{{Key: "product.name", Value: 1}}, Options: unique}},
		collSales:     {{Keys: bson.D{{Key: "sale_id", Value: 1}}, Options: unique}},
	}
	for name, idx := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *Repository) stamp() int64 {
	return models.NanosFromTime(r.now())
}

// nextSeq increments and returns the named counter.
func (r *Repository) nextSeq(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.db.Collection(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s counter: %w", name, err)
	}
	return doc.Seq, nil
}

func (r *Repository) pageOptions(page int, sort bson.D) *options.FindOptions {
	return options.Find().
		SetSort(sort).
		SetSkip(int64(page) * int64(r.pageSize)).
		SetLimit(int64(r.pageSize))
}

// findAll decodes every document matching filter into a non-nil slice.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// --- farmers ---

// GetFarmer loads one farmer.
func (r *Repository) GetFarmer(ctx context.Context, id int64) (models.Farmer, error) {
	var farmer models.Farmer
	err := r.db.Collection(collFarmers).FindOne(ctx, bson.M{"customer_id": id}).Decode(&farmer)
	if err != nil {
		return models.Farmer{}, notFound(err, fmt.Sprintf("farmer %d", id))
	}
	return farmer, nil
}

// GetAllFarmers returns every farmer ordered by customer id.
func (r *Repository) GetAllFarmers(ctx context.Context) ([]models.Farmer, error) {
	farmers, err := findAll[models.Farmer](ctx, r.db.Collection(collFarmers), bson.M{},
		options.Find().SetSort(bson.D{{Key: "customer_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list farmers: %w", err)
	}
	return farmers, nil
}

// AddFarmer inserts a farmer under the next free customer id. Ids taken by
// manual edits are skipped.
func (r *Repository) AddFarmer(ctx context.Context, name, phone string, milkType models.MilkType) (int64, error) {
	for {
		id, err := r.nextSeq(ctx, collFarmers)
		if err != nil {
			return 0, err
		}
		_, err = r.db.Collection(collFarmers).InsertOne(ctx, models.Farmer{CustomerID: id, Name: name, Phone: phone, MilkType: milkType})
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to insert farmer: %w", err)
		}
		return id, nil
	}
}

// UpdateFarmerDetails edits a farmer and moves their records when the customer id changes.
func (r *Repository) UpdateFarmerDetails(ctx context.Context, id int64, name, phone string, milkType models.MilkType, newID int64) error {
	res, err := r.db.Collection(collFarmers).UpdateOne(ctx,
		bson.M{"customer_id": id},
		bson.M{"$set": bson.M{"customer_id": newID, "name": name, "phone": phone, "milk_type": milkType}},
	)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("farmer %d: %w", newID, repository.ErrDuplicateCustomerID)
	}
	if err != nil {
		return fmt.Errorf("failed to update farmer %d: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("farmer %d: %w", id, repository.ErrNotFound)
	}
	if newID == id {
		return nil
	}

	for _, coll := range []string{collCollections, collTransactions, collSales} {
		if _, err := r.db.Collection(coll).UpdateMany(ctx,
			bson.M{"farmer_id": id},
			bson.M{"$set": bson.M{"farmer_id": newID}},
		); err != nil {
			return fmt.Errorf("failed to move %s of farmer %d: %w", coll, id, err)
		}
	}
	r.logger.Info("farmer re-keyed", zap.Int64("from", id), zap.Int64("to", newID))
	return nil
}
