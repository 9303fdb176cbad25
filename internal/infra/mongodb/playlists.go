package mongodb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PlaylistsDAO persists generated playlist records.
type PlaylistsDAO struct {
	collection *mongo.Collection
}

// Playlists returns the DAO for the playlists collection.
func (db *DB) Playlists() *PlaylistsDAO {
	return &PlaylistsDAO{collection: db.database.Collection("playlists")}
}

// Create inserts a new playlist record and returns its id.
func (d *PlaylistsDAO) Create(ctx context.Context, doc PlaylistDoc) (primitive.ObjectID, error) {
	result, err := d.collection.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "failed to insert playlist")
	}
	return result.InsertedID.(primitive.ObjectID), nil
}

// ByID reads one playlist record.
func (d *PlaylistsDAO) ByID(ctx context.Context, id primitive.ObjectID) (*PlaylistDoc, error) {
	var doc PlaylistDoc
	err := d.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, wrapFindErr(err)
	}
	return &doc, nil
}

// ByUser returns all playlist records belonging to a user.
func (d *PlaylistsDAO) ByUser(ctx context.Context, userID primitive.ObjectID) ([]PlaylistDoc, error) {
	cursor, err := d.collection.Find(ctx, bson.M{"user": userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find playlists by user")
	}
	defer cursor.Close(ctx)

	var docs []PlaylistDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "failed to decode playlists")
	}
	return docs, nil
}

// IncLength adjusts the recorded track count by delta.
func (d *PlaylistsDAO) IncLength(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := d.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"generated_length": delta},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		})
	return errors.Wrap(err, "failed to update playlist length")
}

// Delete removes a playlist record.
func (d *PlaylistsDAO) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := d.collection.DeleteOne(ctx, bson.M{"_id": id})
	return errors.Wrap(err, "failed to delete playlist")
}
