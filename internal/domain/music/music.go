// Package music provides the shared vocabulary for playlist requests:
// languages, niche levels, exclusion reasons, and popularity bands.
package music

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Language is the coarse language classification used by requests.
type Language string

const (
	LanguageAny     Language = "Any"
	LanguageEnglish Language = "English"
	LanguageOther   Language = "Other"
)

// ParseLanguage parses a persisted language string.
func ParseLanguage(s string) (Language, error) {
	switch s {
	case string(LanguageAny):
		return LanguageAny, nil
	case string(LanguageEnglish):
		return LanguageEnglish, nil
	case string(LanguageOther):
		return LanguageOther, nil
	}
	return "", errors.Newf("unknown language %q", s)
}

// LanguageFromISO639_3 maps an ISO-639-3 work language code to the
// request vocabulary. Any code outside the recognized set is Other.
func LanguageFromISO639_3(code string) Language {
	if code == "eng" {
		return LanguageEnglish
	}
	return LanguageOther
}

// NicheLevel is the coarse popularity band selector.
type NicheLevel string

const (
	NicheVery       NicheLevel = "Very"
	NicheModerately NicheLevel = "Moderately"
	NicheOnlyKinda  NicheLevel = "Only Kinda"
)

// ParseNicheLevel parses a persisted niche level string.
func ParseNicheLevel(s string) (NicheLevel, error) {
	switch s {
	case string(NicheVery):
		return NicheVery, nil
	case string(NicheModerately):
		return NicheModerately, nil
	case string(NicheOnlyKinda):
		return NicheOnlyKinda, nil
	}
	return "", errors.Newf("unknown niche level %q", s)
}

// Reason is the canonical textual form of an exclusion reason, as
// persisted in the requests cache.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonTooMany        Reason = "Too Many Followers / Listeners / Plays"
	ReasonTooFew         Reason = "Too Few Followers / Listeners / Plays"
	ReasonNotLikedEnough Reason = "Ratio of Listeners to Plays Too Small"
	ReasonWrongLanguage  Reason = "Artist Does Not Sing in the Requested Language"
	ReasonOther          Reason = "Other"
)

// Permanent reports whether the reason never expires. Artists that are
// too popular or sing the wrong language do not become valid with time.
func (r Reason) Permanent() bool {
	return r == ReasonTooMany || r == ReasonWrongLanguage
}

// Persistable reports whether the reason may be written to the
// exclusion cache. Other is an in-memory signal only.
func (r Reason) Persistable() bool {
	switch r {
	case ReasonTooMany, ReasonTooFew, ReasonNotLikedEnough, ReasonWrongLanguage:
		return true
	}
	return false
}

// Bands holds the popularity thresholds for a niche level.
type Bands struct {
	ListenersMin int64 `mapstructure:"listeners_min" validate:"gte=0"`
	ListenersMax int64 `mapstructure:"listeners_max" validate:"gtefield=ListenersMin"`
	PlaycountMin int64 `mapstructure:"playcount_min" validate:"gte=0"`
	PlaycountMax int64 `mapstructure:"playcount_max" validate:"gtefield=PlaycountMin"`
	FollowersMin int64 `mapstructure:"followers_min" validate:"gte=0"`
	FollowersMax int64 `mapstructure:"followers_max" validate:"gtefield=FollowersMin"`
}

// BandsFor returns the hard-coded thresholds for a niche level.
func BandsFor(level NicheLevel) Bands {
	switch level {
	case NicheVery:
		return Bands{
			ListenersMin: 1_000, ListenersMax: 50_000,
			PlaycountMin: 10_000, PlaycountMax: 500_000,
			FollowersMin: 100, FollowersMax: 5_000,
		}
	case NicheModerately:
		return Bands{
			ListenersMin: 3_000, ListenersMax: 150_000,
			PlaycountMin: 30_000, PlaycountMax: 1_500_000,
			FollowersMin: 1_000, FollowersMax: 15_000,
		}
	default: // NicheOnlyKinda
		return Bands{
			ListenersMin: 9_000, ListenersMax: 450_000,
			PlaycountMin: 90_000, PlaycountMax: 4_500_000,
			FollowersMin: 10_000, FollowersMax: 45_000,
		}
	}
}

// Hard pipeline defaults.
const (
	LikenessMin            = 3.5
	PlaylistMinLength      = 20
	PlaylistMaxLength      = 60
	MinSongsForPlaylistGen = 4
)

// Likeness computes playcount over listeners, the engagement proxy.
func Likeness(listeners, playcount int64) float64 {
	return float64(playcount) / math.Max(1, float64(listeners))
}
