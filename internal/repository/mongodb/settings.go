package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/repository"
)

// GetRates returns the stored rates, or zero rates before the first update.
func (r *Repository) GetRates(ctx context.Context) (models.Rates, error) {
	var rates models.Rates
	err := r.db.Collection(collSettings).FindOne(ctx, bson.M{"_id": ratesDocID}).Decode(&rates)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Rates{}, nil
	}
	if err != nil {
		return models.Rates{}, fmt.Errorf("failed to load rates: %w", err)
	}
	return rates, nil
}

// UpdateRates replaces the global rates. Stored entries keep their own rate.
func (r *Repository) UpdateRates(ctx context.Context, vlcRate, thekadariRate float64) error {
	_, err := r.db.Collection(collSettings).UpdateOne(ctx,
		bson.M{"_id": ratesDocID},
		bson.M{"$set": models.Rates{VLC: vlcRate, Thekadari: thekadariRate}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update rates: %w", err)
	}
	return nil
}

// SaveDailyReport saves a daily report to the database.
func (r *Repository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := r.db.Collection(collReports).InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert daily report: %w", err)
	}
	return nil
}

var (
	_ repository.Backend     = (*Repository)(nil)
	_ repository.ReportStore = (*Repository)(nil)
)
