// Package request manages the playlist request lifecycle: parameter
// validation, niche popularity bands, persistence, and the running
// generation statistics.
package request

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/niche-app/niche/internal/app/genre"
	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/infra/mongodb"
)

// ErrValidation marks request parameters outside the permitted domain.
// Nothing is persisted when creation fails with it.
var ErrValidation = errors.New("invalid request parameters")

// Params are the user-supplied generation parameters.
type Params struct {
	MinReleaseYear  int
	MinTrackSeconds int
	MaxTrackSeconds int
	Language        music.Language
	Genre           string
	NicheLevel      music.NicheLevel
	Public          bool
}

// Request is a persisted playlist request together with the derived
// thresholds the pipeline filters against.
type Request struct {
	ID     primitive.ObjectID
	User   primitive.ObjectID
	Params Params

	Bands       music.Bands
	LikenessMin float64
	MinLength   int
	MaxLength   int
}

// BandsFunc resolves the popularity bands for a niche level. The
// config layer provides one that applies operator overrides.
type BandsFunc func(music.NicheLevel) (music.Bands, error)

type store interface {
	Create(ctx context.Context, doc mongodb.RequestDoc) (primitive.ObjectID, error)
	ByID(ctx context.Context, id primitive.ObjectID) (*mongodb.RequestDoc, error)
	ByGenre(ctx context.Context, genre string) ([]mongodb.RequestDoc, error)
	UpdateStats(ctx context.Context, id primitive.ObjectID, stats mongodb.RequestStats) error
}

// Service creates and updates playlist requests.
type Service struct {
	store   store
	catalog *genre.Catalog
	bands   BandsFunc
}

// New creates a request service. bands may be nil, in which case the
// built-in threshold table is used.
func New(s store, catalog *genre.Catalog, bands BandsFunc) *Service {
	if bands == nil {
		bands = func(level music.NicheLevel) (music.Bands, error) {
			return music.BandsFor(level), nil
		}
	}
	return &Service{store: s, catalog: catalog, bands: bands}
}

// Create validates the parameters, persists a request record, and
// returns the handle the pipeline works against.
func (s *Service) Create(ctx context.Context, user primitive.ObjectID, params Params) (*Request, error) {
	if !s.catalog.IsSupported(params.Genre) {
		return nil, errors.Mark(errors.Newf("unsupported genre %q", params.Genre), ErrValidation)
	}
	if params.MinTrackSeconds <= 0 || params.MaxTrackSeconds < params.MinTrackSeconds {
		return nil, errors.Mark(
			errors.Newf("invalid track length bounds [%d, %d]", params.MinTrackSeconds, params.MaxTrackSeconds),
			ErrValidation)
	}
	if _, err := music.ParseLanguage(string(params.Language)); err != nil {
		return nil, errors.Mark(err, ErrValidation)
	}
	if _, err := music.ParseNicheLevel(string(params.NicheLevel)); err != nil {
		return nil, errors.Mark(err, ErrValidation)
	}

	bands, err := s.bands(params.NicheLevel)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id, err := s.store.Create(ctx, mongodb.RequestDoc{
		User: user,
		Params: mongodb.RequestParams{
			SongsMinYearCreated: params.MinReleaseYear,
			SongsLengthMinSecs:  params.MinTrackSeconds,
			SongsLengthMaxSecs:  params.MaxTrackSeconds,
			Language:            string(params.Language),
			Genre:               params.Genre,
			NicheLevel:          string(params.NicheLevel),
			Public:              params.Public,
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	return &Request{
		ID:          id,
		User:        user,
		Params:      params,
		Bands:       bands,
		LikenessMin: music.LikenessMin,
		MinLength:   music.PlaylistMinLength,
		MaxLength:   music.PlaylistMaxLength,
	}, nil
}

// UpdateStats folds a batch of newly selected tracks into the request's
// running aggregates. averageFollowers is the mean follower count of
// the batch; validPercent below zero keeps the stored percentage.
func (s *Service) UpdateStats(ctx context.Context, id primitive.ObjectID, averageFollowers, validPercent float64, batchSize, previousCount int) error {
	if batchSize <= 0 {
		return nil
	}

	curr, err := s.store.ByID(ctx, id)
	if err != nil {
		return err
	}

	currPctScaled := curr.Stats.PercentArtistsValid * float64(previousCount)
	currAvgScaled := curr.Stats.AverageArtistFollowers * float64(previousCount)

	newPctScaled := validPercent * float64(batchSize)
	newAvgScaled := averageFollowers * float64(batchSize)
	if validPercent < 0 {
		newPctScaled = curr.Stats.PercentArtistsValid * float64(batchSize)
	}
	if averageFollowers < 0 {
		newAvgScaled = curr.Stats.AverageArtistFollowers * float64(batchSize)
	}

	total := float64(previousCount + batchSize)
	return s.store.UpdateStats(ctx, id, mongodb.RequestStats{
		PercentArtistsValid:    (currPctScaled + newPctScaled) / total,
		AverageArtistFollowers: (currAvgScaled + newAvgScaled) / total,
	})
}

// HistoricValidPercents returns the recorded valid-artist percentages
// of earlier requests for a genre, skipping unset values.
func (s *Service) HistoricValidPercents(ctx context.Context, genreName string) ([]float64, error) {
	docs, err := s.store.ByGenre(ctx, genreName)
	if err != nil {
		return nil, err
	}

	var pcts []float64
	for _, doc := range docs {
		if doc.Stats.PercentArtistsValid > 0 {
			pcts = append(pcts, doc.Stats.PercentArtistsValid)
		}
	}
	return pcts, nil
}
