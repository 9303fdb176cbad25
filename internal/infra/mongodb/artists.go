package mongodb

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ArtistsDAO reads the pre-scraped artist catalog.
type ArtistsDAO struct {
	collection *mongo.Collection
}

// Artists returns the DAO for the artists collection.
func (db *DB) Artists() *ArtistsDAO {
	return &ArtistsDAO{collection: db.database.Collection("artists")}
}

// InGenre returns all catalogued artists tagged with the genre.
func (d *ArtistsDAO) InGenre(ctx context.Context, genre string) ([]ArtistDoc, error) {
	cursor, err := d.collection.Find(ctx, bson.M{"genres.name": genre})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find artists in genre")
	}
	defer cursor.Close(ctx)

	var docs []ArtistDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "failed to decode artists")
	}
	return docs, nil
}

// CountInGenre counts catalogued artists tagged with the genre.
func (d *ArtistsDAO) CountInGenre(ctx context.Context, genre string) (int64, error) {
	n, err := d.collection.CountDocuments(ctx, bson.M{"genres.name": genre})
	if err != nil {
		return 0, errors.Wrap(err, "failed to count artists in genre")
	}
	return n, nil
}
