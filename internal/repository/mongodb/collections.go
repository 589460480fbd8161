package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/anmoldairy/dairy/internal/domain/models"
	"github.com/anmoldairy/dairy/internal/repository"
)

var collectionOrder = bson.D{{Key: "date", Value: 1}, {Key: "entry_id", Value: 1}}

// GetAllCollectionsForSession returns one page of the session's entries across all farmers.
func (r *Repository) GetAllCollectionsForSession(ctx context.Context, session models.Session, page int) ([]models.CollectionEntry, error) {
	entries, err := findAll[models.CollectionEntry](ctx, r.db.Collection(collCollections),
		bson.M{"session": session}, r.pageOptions(page, collectionOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s collections page %d: %w", session, page, err)
	}
	return entries, nil
}

// GetPaginatedCollections returns one page of a farmer's entries.
func (r *Repository) GetPaginatedCollections(ctx context.Context, farmerID int64, page int) ([]models.CollectionEntry, error) {
	entries, err := findAll[models.CollectionEntry](ctx, r.db.Collection(collCollections),
		bson.M{"farmer_id": farmerID}, r.pageOptions(page, collectionOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to list collections of farmer %d page %d: %w", farmerID, page, err)
	}
	return entries, nil
}

// AddCollectionEntry stores an entry with the farmer's milk type and the supplied rate.
func (r *Repository) AddCollectionEntry(ctx context.Context, farmerID int64, weight, fat float64, snf *float64, rate float64, session models.Session) error {
	farmer, err := r.GetFarmer(ctx, farmerID)
	if err != nil {
		return err
	}
	id, err := r.nextSeq(ctx, collCollections)
	if err != nil {
		return err
	}
	entry := models.CollectionEntry{
		ID:       id,
		FarmerID: farmerID,
		Weight:   weight,
		Fat:      fat,
		SNF:      snf,
		Rate:     rate,
		Date:     r.stamp(),
		Session:  session,
		MilkType: farmer.MilkType,
	}
	if _, err := r.db.Collection(collCollections).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert collection entry: %w", err)
	}
	return nil
}

// UpdateCollectionEntry replaces the measurements of an entry, keeping its date.
func (r *Repository) UpdateCollectionEntry(ctx context.Context, farmerID, entryID int64, weight, fat float64, snf *float64, rate float64, session models.Session, milkType models.MilkType) error {
	set := bson.M{"weight": weight, "fat": fat, "rate": rate, "session": session, "milk_type": milkType}
	update := bson.M{"$set": set}
	if snf != nil {
		set["snf"] = *snf
	} else {
		update["$unset"] = bson.M{"snf": ""}
	}

	res, err := r.db.Collection(collCollections).UpdateOne(ctx, bson.M{"entry_id": entryID, "farmer_id": farmerID}, update)
	if err != nil {
		return fmt.Errorf("failed to update collection entry %d: %w", entryID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("collection entry %d: %w", entryID, repository.ErrNotFound)
	}
	return nil
}
