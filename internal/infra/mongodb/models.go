package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenreEntry is one genre attached to a catalogued artist.
type GenreEntry struct {
	Name  string `bson:"name"`
	Count int    `bson:"count,omitempty"`
}

// ArtistDoc is a catalogued artist in the artists collection. The
// collection is populated from a metadata-service dump; the "id" field
// carries the stable metadata id.
type ArtistDoc struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Name   string             `bson:"name"`
	MBID   string             `bson:"id"`
	Genres []GenreEntry       `bson:"genres,omitempty"`
}

// RequestParams are the user-supplied generation parameters.
type RequestParams struct {
	SongsMinYearCreated int    `bson:"songs_min_year_created,omitempty"`
	SongsLengthMinSecs  int    `bson:"songs_length_min_secs"`
	SongsLengthMaxSecs  int    `bson:"songs_length_max_secs"`
	Language            string `bson:"language"`
	Genre               string `bson:"genre"`
	NicheLevel          string `bson:"niche_level"`
	Public              bool   `bson:"public"`
}

// RequestStats are running aggregates maintained while a request's
// playlist is generated.
type RequestStats struct {
	PercentArtistsValid    float64 `bson:"percent_artists_valid,omitempty"`
	AverageArtistFollowers float64 `bson:"average_artist_followers,omitempty"`
}

// RequestDoc is a playlist generation request.
type RequestDoc struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty"`
	User              primitive.ObjectID  `bson:"user,omitempty"`
	Params            RequestParams       `bson:"params"`
	PlaylistGenerated *primitive.ObjectID `bson:"playlist_generated,omitempty"`
	Stats             RequestStats        `bson:"stats,omitempty"`
	CreatedAt         time.Time           `bson:"created_at,omitempty"`
	UpdatedAt         time.Time           `bson:"updated_at,omitempty"`
}

// PlaylistDoc is a generated playlist record.
type PlaylistDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	User               primitive.ObjectID `bson:"user,omitempty"`
	Name               string             `bson:"name"`
	Request            primitive.ObjectID `bson:"request"`
	Link               string             `bson:"link"`
	GeneratedLength    int                `bson:"generated_length"`
	TimeToGenerateMins float64            `bson:"time_to_generate_mins,omitempty"`
	CreatedAt          time.Time          `bson:"created_at,omitempty"`
	UpdatedAt          time.Time          `bson:"updated_at,omitempty"`
}

// CacheParams identify one exclusion cache entry.
type CacheParams struct {
	Language   string `bson:"language"`
	Genre      string `bson:"genre"`
	NicheLevel string `bson:"niche_level"`
}

// ExcludedDoc is one artist exclusion inside a cache entry.
type ExcludedDoc struct {
	Name           string    `bson:"name,omitempty"`
	MBID           string    `bson:"mbid"`
	ReasonExcluded string    `bson:"reason_excluded"`
	DateExcluded   time.Time `bson:"date_excluded"`
}

// CacheDoc is one requests_cache entry: the artists already ruled out
// for a parameter combination.
type CacheDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Params    CacheParams        `bson:"params"`
	Excluded  []ExcludedDoc      `bson:"excluded"`
	CreatedAt time.Time          `bson:"created_at,omitempty"`
	UpdatedAt time.Time          `bson:"updated_at,omitempty"`
}

// UserDoc is an application user keyed by streaming account id.
type UserDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	DisplayName string             `bson:"display_name"`
	SpotifyID   string             `bson:"spotify_id"`
}
