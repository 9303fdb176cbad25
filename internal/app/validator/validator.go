// Package validator holds the pure acceptance checks the pipeline
// applies to artists and tracks.
package validator

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/niche-app/niche/internal/app/genre"
	"github.com/niche-app/niche/internal/app/request"
	"github.com/niche-app/niche/internal/domain/artist"
	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/domain/track"
)

// Validator evaluates artists and tracks against one request.
type Validator struct {
	req     *request.Request
	catalog *genre.Catalog
}

// New creates a validator for a request.
func New(req *request.Request, catalog *genre.Catalog) *Validator {
	return &Validator{req: req, catalog: catalog}
}

// tooPopularScrobble requires both listener and playcount ceilings to
// be breached. The bands intentionally admit artists who are lopsided
// on one counter.
func (v *Validator) tooPopularScrobble(a *artist.Artist) bool {
	return a.Scrobble.Listeners > v.req.Bands.ListenersMax &&
		a.Scrobble.Playcount > v.req.Bands.PlaycountMax
}

func (v *Validator) tooUnknownScrobble(a *artist.Artist) bool {
	return a.Scrobble.Listeners < v.req.Bands.ListenersMin &&
		a.Scrobble.Playcount < v.req.Bands.PlaycountMin
}

func (v *Validator) likenessLow(a *artist.Artist) bool {
	return a.Likeness() < v.req.LikenessMin
}

// ScrobbleReason evaluates the scrobble-side checks in order and
// returns the first matching exclusion reason, or ReasonNone. Artists
// whose biography is a disambiguation page, or who lack the genre tag,
// yield Other: a skip that is never persisted.
func (v *Validator) ScrobbleReason(a *artist.Artist) music.Reason {
	if a.Scrobble == nil {
		return music.ReasonOther
	}

	if v.tooPopularScrobble(a) {
		zlog.Debug().Msgf("artist %s listeners %d and playcount %d too high",
			a.Name, a.Scrobble.Listeners, a.Scrobble.Playcount)
		return music.ReasonTooMany
	}
	if v.tooUnknownScrobble(a) {
		zlog.Debug().Msgf("artist %s listeners %d and playcount %d too low",
			a.Name, a.Scrobble.Listeners, a.Scrobble.Playcount)
		return music.ReasonTooFew
	}
	if v.likenessLow(a) {
		zlog.Debug().Msgf("artist %s likeness %.2f below threshold", a.Name, a.Likeness())
		return music.ReasonNotLikedEnough
	}
	if a.IsConglomeratePage() {
		zlog.Debug().Msgf("artist %s biography is a disambiguation page", a.Name)
		return music.ReasonOther
	}
	if tag := v.catalog.ScrobbleTag(v.req.Params.Genre); tag != "" && !a.HasTag(tag) {
		zlog.Debug().Msgf("artist %s not tagged %s", a.Name, tag)
		return music.ReasonOther
	}
	return music.ReasonNone
}

// StreamingReason evaluates the follower band, requiring streaming
// enrichment.
func (v *Validator) StreamingReason(a *artist.Artist) music.Reason {
	if a.Streaming == nil {
		return music.ReasonOther
	}

	if a.Streaming.Followers > v.req.Bands.FollowersMax {
		zlog.Debug().Msgf("artist %s followers %d too high", a.Name, a.Streaming.Followers)
		return music.ReasonTooMany
	}
	if a.Streaming.Followers < v.req.Bands.FollowersMin {
		zlog.Debug().Msgf("artist %s followers %d too low", a.Name, a.Streaming.Followers)
		return music.ReasonTooFew
	}
	return music.ReasonNone
}

// LanguageReason checks the requested language against the artist's
// dominant languages, the metadata-side shares at fifty percent or
// more. A half and half catalogue carries both entries and satisfies
// either request; an empty map means no work carries a language, which
// passes.
func (v *Validator) LanguageReason(artistLanguages map[music.Language]float64) music.Reason {
	if v.req.Params.Language == music.LanguageAny || len(artistLanguages) == 0 {
		return music.ReasonNone
	}
	if _, ok := artistLanguages[v.req.Params.Language]; !ok {
		return music.ReasonWrongLanguage
	}
	return music.ReasonNone
}

// ValidTrack applies the track-side checks: original studio recording,
// duration bounds, and minimum release year.
func (v *Validator) ValidTrack(t *track.Track) bool {
	if !t.IsOriginalWithLyrics() {
		zlog.Debug().Msgf("track %s is a cover, instrumental, or special version", t.Name)
		return false
	}
	if t.DurationSeconds < v.req.Params.MinTrackSeconds || t.DurationSeconds > v.req.Params.MaxTrackSeconds {
		zlog.Debug().Msgf("track %s duration %ds outside bounds", t.Name, t.DurationSeconds)
		return false
	}
	if v.req.Params.MinReleaseYear > 0 && t.ReleaseYear < v.req.Params.MinReleaseYear {
		zlog.Debug().Msgf("track %s released %d, before minimum year", t.Name, t.ReleaseYear)
		return false
	}
	return true
}
