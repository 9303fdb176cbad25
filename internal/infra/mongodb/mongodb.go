// Package mongodb provides the persistence layer: connection handling
// and data access objects for the artists, requests, playlists, users,
// and requests_cache collections.
package mongodb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/niche-app/niche/internal/infra/svcerror"
)

const serviceName = "mongodb"

// Config represents database configuration.
type Config struct {
	URI      string
	Database string
}

// DB wraps a connected Mongo client and the application database.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb URI is required")
	}
	name := cfg.Database
	if name == "" {
		name = "niche"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "failed to ping mongodb")
	}

	return &DB{
		client:   client,
		database: client.Database(name),
	}, nil
}

// Close disconnects the underlying client.
func (db *DB) Close(ctx context.Context) error {
	return errors.Wrap(db.client.Disconnect(ctx), "failed to disconnect from mongodb")
}

// wrapFindErr maps driver lookup misses onto the adapter taxonomy so
// callers can branch on not-found without importing the driver.
func wrapFindErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return svcerror.New(svcerror.KindNotFound, serviceName, err)
	}
	return svcerror.New(svcerror.KindOther, serviceName, err)
}
