package mongodb

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersDAO persists application users keyed by streaming account id.
type UsersDAO struct {
	collection *mongo.Collection
}

// Users returns the DAO for the users collection.
func (db *DB) Users() *UsersDAO {
	return &UsersDAO{collection: db.database.Collection("users")}
}

// UpsertBySpotifyID creates or refreshes a user record and returns its
// id.
func (d *UsersDAO) UpsertBySpotifyID(ctx context.Context, spotifyID, displayName string) (primitive.ObjectID, error) {
	filter := bson.M{"spotify_id": spotifyID}
	update := bson.M{"$set": bson.M{
		"spotify_id":   spotifyID,
		"display_name": displayName,
	}}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc UserDoc
	err := d.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "failed to upsert user")
	}
	return doc.ID, nil
}

// BySpotifyID reads a user by streaming account id.
func (d *UsersDAO) BySpotifyID(ctx context.Context, spotifyID string) (*UserDoc, error) {
	var doc UserDoc
	err := d.collection.FindOne(ctx, bson.M{"spotify_id": spotifyID}).Decode(&doc)
	if err != nil {
		return nil, wrapFindErr(err)
	}
	return &doc, nil
}
