// Package finder implements the selection pipeline: sample catalogued
// artists for a genre, validate them against the request, and collect
// playlistable tracks, topping up from streaming recommendations when
// the pool runs thin.
package finder

import (
	"context"
	"math"
	"math/rand"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/niche-app/niche/internal/app/exclusion"
	"github.com/niche-app/niche/internal/app/genre"
	"github.com/niche-app/niche/internal/app/playlist"
	"github.com/niche-app/niche/internal/app/request"
	"github.com/niche-app/niche/internal/app/validator"
	"github.com/niche-app/niche/internal/domain/artist"
	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/domain/track"
	"github.com/niche-app/niche/internal/infra/lastfm"
	"github.com/niche-app/niche/internal/infra/mongodb"
	"github.com/niche-app/niche/internal/infra/spotify"
)

// ErrNotEnoughSongs reports that the pipeline could not collect the
// minimum number of valid tracks. No playlist is created.
var ErrNotEnoughSongs = errors.New("not enough songs")

const (
	chunkSize      = 25
	artistMaxSongs = 1
	topTracksLimit = 10

	// Top-up budget: attempts at the recommender, tracks accepted per
	// attempt, and recommendations requested per call.
	topUpAttempts  = 15
	topUpBatchSize = 6
	recsLimit      = 100

	// Seeds per recommendation call, beyond the genre itself.
	artistSeedCount = music.MinSongsForPlaylistGen - 1
)

// ArtistCatalog reads the pre-scraped artist pool.
type ArtistCatalog interface {
	InGenre(ctx context.Context, genre string) ([]mongodb.ArtistDoc, error)
	CountInGenre(ctx context.Context, genre string) (int64, error)
}

// ScrobbleService is the scrobble-side surface the pipeline needs.
type ScrobbleService interface {
	ArtistInfo(ctx context.Context, mbid, name string) (*lastfm.ArtistInfo, error)
	ArtistTopTracks(ctx context.Context, mbid, name string, limit int) ([]lastfm.TopTrack, error)
}

// MetadataService resolves artist languages.
type MetadataService interface {
	ArtistLanguages(ctx context.Context, mbid string) (map[music.Language]float64, error)
}

// StreamingService is the streaming-side surface the pipeline needs.
type StreamingService interface {
	SearchTrack(ctx context.Context, trackName, artistName string) (*track.Track, error)
	Artist(ctx context.Context, id string) (*artist.StreamingInfo, error)
	Recommendations(ctx context.Context, seeds spotify.RecommendationSeeds, minDurationSec, maxDurationSec, limit int) ([]track.Track, error)
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
	PlaylistTracks(ctx context.Context, playlistID string) ([]track.Track, error)
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

// Finder runs the selection pipeline for playlist requests.
type Finder struct {
	artists    ArtistCatalog
	scrobble   ScrobbleService
	metadata   MetadataService
	streaming  StreamingService
	requests   *request.Service
	cacheStore exclusion.Store
	catalog    *genre.Catalog
	rng        *rand.Rand
}

// Config carries the finder's dependencies.
type Config struct {
	Artists    ArtistCatalog
	Scrobble   ScrobbleService
	Metadata   MetadataService
	Streaming  StreamingService
	Requests   *request.Service
	CacheStore exclusion.Store
	Catalog    *genre.Catalog

	// Rand is the traversal shuffle source; nil uses the global one.
	Rand *rand.Rand
}

// New creates a finder.
func New(cfg Config) *Finder {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Finder{
		artists:    cfg.Artists,
		scrobble:   cfg.Scrobble,
		metadata:   cfg.Metadata,
		streaming:  cfg.Streaming,
		requests:   cfg.Requests,
		cacheStore: cfg.CacheStore,
		catalog:    cfg.Catalog,
		rng:        rng,
	}
}

// FindNicheTracks runs the pipeline for a request and returns the
// selected tracks, or ErrNotEnoughSongs when the genre cannot fill a
// playlist.
func (f *Finder) FindNicheTracks(ctx context.Context, req *request.Request) ([]track.NicheTrack, error) {
	cache, err := exclusion.Load(ctx, f.cacheStore,
		req.Params.Language, req.Params.Genre, req.Params.NicheLevel)
	if err != nil {
		return nil, err
	}
	v := validator.New(req, f.catalog)

	pool, err := f.loadPool(ctx, req.Params.Genre)
	if err != nil {
		return nil, err
	}
	zlog.Info().Msgf("loaded %d catalogued artists for genre %s", len(pool), req.Params.Genre)

	target, err := f.targetSize(ctx, req, len(pool))
	if err != nil {
		return nil, err
	}

	chunks := chunkArtists(pool, chunkSize)
	order := f.rng.Perm(len(chunks))

	var (
		selected        []track.NicheTrack
		songCount       = map[string]int{}
		totalFollowers  int64
		chunksProcessed int
		validPct        float64
	)

	for _, ci := range order {
		if len(selected) >= target {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunksProcessed++
		zlog.Info().Msgf("checking chunk %d of %d, %d tracks selected", ci, len(chunks), len(selected))

		survivors, err := f.validArtists(ctx, cache, v, chunks[ci])
		if err != nil {
			return nil, err
		}

		for _, a := range survivors {
			if len(selected) >= target {
				break
			}

			topTracks, err := f.scrobble.ArtistTopTracks(ctx, a.MBID, a.Name, topTracksLimit)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				zlog.Warn().Err(err).Msgf("could not fetch top tracks for %s", a.Name)
				continue
			}

			for _, tt := range topTracks {
				if len(selected) >= target || songCount[a.MBID] >= artistMaxSongs {
					break
				}

				nicheTrack, skipArtist, err := f.tryTopTrack(ctx, cache, v, req, a, tt)
				if err != nil {
					return nil, err
				}
				if skipArtist {
					break
				}
				if nicheTrack == nil {
					continue
				}

				selected = append(selected, *nicheTrack)
				songCount[a.MBID]++
				totalFollowers += a.Streaming.Followers
				validPct = float64(len(selected)) / float64(chunksProcessed*chunkSize) * 100

				zlog.Info().Msgf("added niche track: %s - %s (%d/%d)",
					a.Name, nicheTrack.TrackName, len(selected), target)
			}
		}
	}

	if len(selected) > 0 {
		avg := float64(totalFollowers) / float64(len(selected))
		if err := f.requests.UpdateStats(ctx, req.ID, avg, validPct, len(selected), 0); err != nil {
			return nil, err
		}
	}

	if len(selected) < music.MinSongsForPlaylistGen {
		return nil, ErrNotEnoughSongs
	}
	if len(selected) < req.MinLength {
		zlog.Info().Msgf("playlist undersized at %d tracks, topping up from recommendations", len(selected))
		selected, err = f.topUp(ctx, req, v, selected)
		if err != nil {
			return nil, err
		}
	}

	return selected, nil
}

// loadPool reads the catalogued artists for the genre's metadata-side
// name and wraps them as domain carriers.
func (f *Finder) loadPool(ctx context.Context, genreName string) ([]*artist.Artist, error) {
	docs, err := f.artists.InGenre(ctx, f.catalog.MetadataName(genreName))
	if err != nil {
		return nil, err
	}

	pool := make([]*artist.Artist, 0, len(docs))
	for _, doc := range docs {
		if doc.Name == "" || doc.MBID == "" {
			continue
		}
		pool = append(pool, artist.New(doc.Name, doc.MBID))
	}
	return pool, nil
}

// targetSize decides how many tracks the catalog traversal should aim
// for. Streaming-seed genres can lean on the recommender for the rest,
// so they use the full minimum; thin genres lower the target based on
// the historically observed valid-artist percentage.
func (f *Finder) targetSize(ctx context.Context, req *request.Request, poolSize int) (int, error) {
	if f.catalog.IsStreamingSeed(req.Params.Genre) {
		return req.MinLength, nil
	}

	pcts, err := f.requests.HistoricValidPercents(ctx, req.Params.Genre)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return req.MinLength, nil
	}

	avg := mean(pcts) / 100
	expectedValid := avg * float64(poolSize)
	scale := math.Min(1, expectedValid/float64(req.MinLength*5))
	target := int(math.Ceil(float64(req.MinLength) * scale))

	if target < music.MinSongsForPlaylistGen {
		target = music.MinSongsForPlaylistGen
	}
	if target > req.MinLength {
		target = req.MinLength
	}
	return target, nil
}

// validArtists applies the cache short-circuit and scrobble-side
// validation to one chunk, persisting exclusions, and returns the
// survivors shuffled.
func (f *Finder) validArtists(ctx context.Context, cache *exclusion.Cache, v *validator.Validator, chunk []*artist.Artist) ([]*artist.Artist, error) {
	var out []*artist.Artist
	for _, a := range chunk {
		if cache.IsExcluded(a.MBID) {
			zlog.Debug().Msgf("artist %s cached as invalid for this request", a.Name)
			continue
		}

		info, err := f.scrobble.ArtistInfo(ctx, a.MBID, a.Name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			zlog.Warn().Err(err).Msgf("could not fetch scrobble info for %s", a.Name)
			continue
		}
		a.Scrobble = &artist.ScrobbleStats{
			Listeners: info.Listeners,
			Playcount: info.Playcount,
			Tags:      info.Tags,
			Bio:       info.Bio,
		}

		reason := v.ScrobbleReason(a)
		switch reason {
		case music.ReasonNone:
			out = append(out, a)
		case music.ReasonOther:
			// Skip without caching: may be transient or ambiguous.
		default:
			if err := cache.Exclude(ctx, a.Name, a.MBID, reason); err != nil {
				return nil, err
			}
		}
	}

	f.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

// tryTopTrack cross-confirms one scrobble top track on the streaming
// service and validates both sides. It returns the selected track, or
// skipArtist=true when the artist failed streaming or language gating
// and the rest of their tracks should not be tried.
func (f *Finder) tryTopTrack(ctx context.Context, cache *exclusion.Cache, v *validator.Validator, req *request.Request, a *artist.Artist, tt lastfm.TopTrack) (*track.NicheTrack, bool, error) {
	found, err := f.streaming.SearchTrack(ctx, tt.Name, a.Name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, err
		}
		zlog.Warn().Err(err).Msgf("streaming search failed for %s - %s", a.Name, tt.Name)
		return nil, false, nil
	}
	if found == nil || len(found.ArtistIDs) == 0 {
		return nil, false, nil
	}
	// Only accept tracks where our artist is the primary credit.
	if !a.SameName(found.ArtistName) {
		return nil, false, nil
	}

	// The streaming artist id comes from the track so identity is
	// cross-confirmed rather than trusted to a name search.
	info, err := f.streaming.Artist(ctx, found.ArtistIDs[0])
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, err
		}
		zlog.Warn().Err(err).Msgf("could not fetch streaming artist for %s", a.Name)
		return nil, false, nil
	}
	a.Streaming = info

	reason := v.StreamingReason(a)
	if reason == music.ReasonNone && req.Params.Language != music.LanguageAny {
		langs, err := f.metadata.ArtistLanguages(ctx, a.MBID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, err
			}
			zlog.Warn().Err(err).Msgf("could not resolve language for %s", a.Name)
			return nil, true, nil
		}
		reason = v.LanguageReason(langs)
	}

	switch reason {
	case music.ReasonNone:
		// Artist is valid; drop any stale exclusion.
		if err := cache.Remove(ctx, a.MBID); err != nil {
			return nil, false, err
		}
	case music.ReasonOther:
		return nil, true, nil
	default:
		if err := cache.Exclude(ctx, a.Name, a.MBID, reason); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	if !v.ValidTrack(found) {
		return nil, false, nil
	}

	return &track.NicheTrack{
		ArtistName:      a.Name,
		SpotifyArtistID: a.Streaming.ID,
		TrackName:       found.Name,
		SpotifyURI:      found.SpotifyURI,
		SpotifyURL:      found.SpotifyURL,
	}, false, nil
}

// topUp supplements an undersized selection from the streaming
// recommender. The current tracks are materialized as a throwaway
// playlist for the duration of the call; it is deleted on every path.
func (f *Finder) topUp(ctx context.Context, req *request.Request, v *validator.Validator, selected []track.NicheTrack) ([]track.NicheTrack, error) {
	needed := req.MinLength - len(selected)
	if needed < 1 {
		return selected, nil
	}
	if room := req.MaxLength - len(selected); needed > room {
		needed = room
	}

	throwawayID, err := f.streaming.CreatePlaylist(ctx,
		playlist.Name(req.Params.Genre), playlist.Description, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create throwaway playlist")
	}
	defer func() {
		if err := f.streaming.UnfollowPlaylist(context.WithoutCancel(ctx), throwawayID); err != nil {
			zlog.Warn().Err(err).Msg("could not delete throwaway playlist")
		}
	}()

	uris := make([]string, 0, len(selected))
	usedURIs := make(map[string]bool, len(selected))
	usedArtists := make(map[string]bool, len(selected))
	for _, t := range selected {
		uris = append(uris, t.SpotifyURI)
		usedURIs[t.SpotifyURI] = true
		usedArtists[t.SpotifyArtistID] = true
	}
	if len(uris) > 0 {
		if err := f.streaming.AddTracksToPlaylist(ctx, throwawayID, uris); err != nil {
			return nil, errors.Wrap(err, "failed to seed throwaway playlist")
		}
	}

	previousCount := len(selected)
	var (
		added          []track.NicheTrack
		totalFollowers int64
	)

	for attempt := 1; attempt <= topUpAttempts && len(added) < needed; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Re-read the throwaway playlist so the dedupe set reflects
		// what actually landed there.
		current, err := f.streaming.PlaylistTracks(ctx, throwawayID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			zlog.Warn().Err(err).Msg("could not read throwaway playlist")
		}
		for i := range current {
			usedURIs[current[i].SpotifyURI] = true
			if len(current[i].ArtistIDs) > 0 {
				usedArtists[current[i].ArtistIDs[0]] = true
			}
		}

		recs, err := f.streaming.Recommendations(ctx, f.recommendationSeeds(selected, req.Params.Genre),
			req.Params.MinTrackSeconds, req.Params.MaxTrackSeconds, recsLimit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			zlog.Warn().Err(err).Msgf("recommendations attempt %d failed", attempt)
			continue
		}
		f.rng.Shuffle(len(recs), func(i, j int) { recs[i], recs[j] = recs[j], recs[i] })

		batchAccepted := 0
		for i := range recs {
			if len(added) >= needed || batchAccepted >= topUpBatchSize {
				break
			}
			rec := &recs[i]
			if !rec.HasSpotify() || len(rec.ArtistIDs) == 0 {
				continue
			}
			if usedURIs[rec.SpotifyURI] || usedArtists[rec.ArtistIDs[0]] {
				continue
			}

			info, err := f.streaming.Artist(ctx, rec.ArtistIDs[0])
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				continue
			}

			// No metadata id is available here, so the language check
			// is disabled on this path.
			carrier := artist.New(rec.ArtistName, "")
			carrier.Streaming = info
			if v.StreamingReason(carrier) != music.ReasonNone {
				continue
			}
			if !v.ValidTrack(rec) {
				continue
			}

			nicheTrack := track.NicheTrack{
				ArtistName:      rec.ArtistName,
				SpotifyArtistID: info.ID,
				TrackName:       rec.Name,
				SpotifyURI:      rec.SpotifyURI,
				SpotifyURL:      rec.SpotifyURL,
			}
			if err := f.streaming.AddTracksToPlaylist(ctx, throwawayID, []string{rec.SpotifyURI}); err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				continue
			}

			added = append(added, nicheTrack)
			selected = append(selected, nicheTrack)
			usedURIs[rec.SpotifyURI] = true
			usedArtists[info.ID] = true
			totalFollowers += info.Followers
			batchAccepted++
			zlog.Info().Msgf("added recommended track %s by %s", rec.Name, rec.ArtistName)
		}
	}

	if len(added) < needed {
		return nil, ErrNotEnoughSongs
	}

	avg := float64(totalFollowers) / float64(len(added))
	if err := f.requests.UpdateStats(ctx, req.ID, avg, -1, len(added), previousCount); err != nil {
		return nil, err
	}
	return selected, nil
}

// recommendationSeeds picks up to three random selected artists plus
// the genre itself when the streaming service recognizes it as a seed.
func (f *Finder) recommendationSeeds(selected []track.NicheTrack, genreName string) spotify.RecommendationSeeds {
	unique := make([]string, 0, len(selected))
	seen := map[string]bool{}
	for _, t := range selected {
		if t.SpotifyArtistID != "" && !seen[t.SpotifyArtistID] {
			seen[t.SpotifyArtistID] = true
			unique = append(unique, t.SpotifyArtistID)
		}
	}
	f.rng.Shuffle(len(unique), func(i, j int) { unique[i], unique[j] = unique[j], unique[i] })
	if len(unique) > artistSeedCount {
		unique = unique[:artistSeedCount]
	}

	seeds := spotify.RecommendationSeeds{ArtistIDs: unique}
	if f.catalog.IsStreamingSeed(genreName) {
		seeds.Genres = []string{genreName}
	}
	return seeds
}

// LikelyUnderCount estimates from historic stats whether the genre's
// artist pool can fill a playlist of the requested size. No history
// means no evidence of a problem.
func (f *Finder) LikelyUnderCount(ctx context.Context, req *request.Request) (bool, error) {
	count, err := f.artists.CountInGenre(ctx, f.catalog.MetadataName(req.Params.Genre))
	if err != nil {
		return false, err
	}

	pcts, err := f.requests.HistoricValidPercents(ctx, req.Params.Genre)
	if err != nil {
		return false, err
	}
	if len(pcts) == 0 {
		return false, nil
	}

	avg := mean(pcts) / 100
	if avg <= 0 {
		return true, nil
	}

	needed := float64(req.MinLength) / avg
	// Shave a tenth off the estimate: a near miss still tops up fine.
	needed -= needed / 10
	return float64(count) < needed, nil
}

func chunkArtists(pool []*artist.Artist, size int) [][]*artist.Artist {
	var chunks [][]*artist.Artist
	for i := 0; i < len(pool); i += size {
		end := i + size
		if end > len(pool) {
			end = len(pool)
		}
		chunks = append(chunks, pool[i:end])
	}
	return chunks
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
