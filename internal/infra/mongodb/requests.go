package mongodb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// RequestsDAO persists playlist generation requests.
type RequestsDAO struct {
	collection *mongo.Collection
}

// Requests returns the DAO for the requests collection.
func (db *DB) Requests() *RequestsDAO {
	return &RequestsDAO{collection: db.database.Collection("requests")}
}

// Create inserts a new request and returns its id.
func (d *RequestsDAO) Create(ctx context.Context, doc RequestDoc) (primitive.ObjectID, error) {
	result, err := d.collection.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "failed to insert request")
	}
	return result.InsertedID.(primitive.ObjectID), nil
}

// ByID reads one request.
func (d *RequestsDAO) ByID(ctx context.Context, id primitive.ObjectID) (*RequestDoc, error) {
	var doc RequestDoc
	err := d.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, wrapFindErr(err)
	}
	return &doc, nil
}

// ByGenre returns all requests made for a genre, any niche level.
func (d *RequestsDAO) ByGenre(ctx context.Context, genre string) ([]RequestDoc, error) {
	cursor, err := d.collection.Find(ctx, bson.M{"params.genre": genre})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find requests by genre")
	}
	defer cursor.Close(ctx)

	var docs []RequestDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "failed to decode requests")
	}
	return docs, nil
}

// UpdateStats replaces the running aggregates of a request.
func (d *RequestsDAO) UpdateStats(ctx context.Context, id primitive.ObjectID, stats RequestStats) error {
	_, err := d.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"stats": stats, "updated_at": time.Now().UTC()}},
	)
	return errors.Wrap(err, "failed to update request stats")
}

// SetPlaylist links the generated playlist to its request.
func (d *RequestsDAO) SetPlaylist(ctx context.Context, id, playlistID primitive.ObjectID) error {
	_, err := d.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"playlist_generated": playlistID, "updated_at": time.Now().UTC()}},
	)
	return errors.Wrap(err, "failed to link playlist to request")
}

// ClearPlaylist removes the playlist link from a request.
func (d *RequestsDAO) ClearPlaylist(ctx context.Context, playlistID primitive.ObjectID) error {
	_, err := d.collection.UpdateMany(ctx,
		bson.M{"playlist_generated": playlistID},
		bson.M{
			"$unset": bson.M{"playlist_generated": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return errors.Wrap(err, "failed to clear playlist link")
}
