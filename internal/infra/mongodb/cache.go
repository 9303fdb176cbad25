package mongodb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CacheDAO persists the exclusion cache: per parameter combination,
// the artists already ruled out and why.
type CacheDAO struct {
	collection *mongo.Collection
}

// Cache returns the DAO for the requests_cache collection.
func (db *DB) Cache() *CacheDAO {
	return &CacheDAO{collection: db.database.Collection("requests_cache")}
}

// Ensure returns the cache entry for the parameters, creating an empty
// one when none exists yet.
func (d *CacheDAO) Ensure(ctx context.Context, params CacheParams) (*CacheDoc, error) {
	filter := bson.M{
		"params.language":    params.Language,
		"params.genre":       params.Genre,
		"params.niche_level": params.NicheLevel,
	}

	var doc CacheDoc
	err := d.collection.FindOne(ctx, filter).Decode(&doc)
	if err == nil {
		return &doc, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrap(err, "failed to find cache entry")
	}

	now := time.Now().UTC()
	doc = CacheDoc{Params: params, Excluded: []ExcludedDoc{}, CreatedAt: now, UpdatedAt: now}
	result, err := d.collection.InsertOne(ctx, doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert cache entry")
	}
	doc.ID = result.InsertedID.(primitive.ObjectID)
	return &doc, nil
}

// UpsertExcluded records an exclusion, replacing any existing entry
// for the same artist so the reason and date stay current.
func (d *CacheDAO) UpsertExcluded(ctx context.Context, cacheID primitive.ObjectID, excluded ExcludedDoc) error {
	if excluded.DateExcluded.IsZero() {
		excluded.DateExcluded = time.Now().UTC()
	}

	result, err := d.collection.UpdateOne(ctx,
		bson.M{"_id": cacheID, "excluded.mbid": excluded.MBID},
		bson.M{"$set": bson.M{"excluded.$": excluded, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return errors.Wrap(err, "failed to update exclusion")
	}
	if result.MatchedCount > 0 {
		return nil
	}

	_, err = d.collection.UpdateOne(ctx,
		bson.M{"_id": cacheID},
		bson.M{
			"$push": bson.M{"excluded": excluded},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return errors.Wrap(err, "failed to add exclusion")
}

// RemoveExcluded deletes the exclusion for one artist.
func (d *CacheDAO) RemoveExcluded(ctx context.Context, cacheID primitive.ObjectID, mbid string) error {
	_, err := d.collection.UpdateOne(ctx,
		bson.M{"_id": cacheID},
		bson.M{
			"$pull": bson.M{"excluded": bson.M{"mbid": mbid}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return errors.Wrap(err, "failed to remove exclusion")
}
