package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niche-app/niche/internal/app/genre"
	"github.com/niche-app/niche/internal/app/request"
	"github.com/niche-app/niche/internal/domain/artist"
	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/domain/track"
)

func newValidator(t *testing.T, language music.Language) *Validator {
	t.Helper()
	catalog, err := genre.Load()
	require.NoError(t, err)

	req := &request.Request{
		Params: request.Params{
			MinReleaseYear:  2000,
			MinTrackSeconds: 120,
			MaxTrackSeconds: 360,
			Language:        language,
			Genre:           "k-pop",
			NicheLevel:      music.NicheVery,
		},
		Bands:       music.BandsFor(music.NicheVery),
		LikenessMin: music.LikenessMin,
		MinLength:   music.PlaylistMinLength,
		MaxLength:   music.PlaylistMaxLength,
	}
	return New(req, catalog)
}

func scrobbleArtist(listeners, playcount int64, tags ...string) *artist.Artist {
	a := artist.New("Quiet Harbor", "mbid-1")
	if len(tags) == 0 {
		tags = []string{"k-pop"}
	}
	a.Scrobble = &artist.ScrobbleStats{
		Listeners: listeners,
		Playcount: playcount,
		Tags:      tags,
	}
	return a
}

func TestScrobbleReason(t *testing.T) {
	v := newValidator(t, music.LanguageAny)

	tests := []struct {
		name     string
		artist   *artist.Artist
		expected music.Reason
	}{
		{
			name:     "within bands",
			artist:   scrobbleArtist(10_000, 100_000),
			expected: music.ReasonNone,
		},
		{
			name:     "both counters above max",
			artist:   scrobbleArtist(60_000, 600_000),
			expected: music.ReasonTooMany,
		},
		{
			name:     "listeners high but playcount in band stays valid",
			artist:   scrobbleArtist(60_000, 400_000),
			expected: music.ReasonNone,
		},
		{
			name:     "both counters below min",
			artist:   scrobbleArtist(500, 5_000),
			expected: music.ReasonTooFew,
		},
		{
			name:     "playcount low but listeners in band escapes the floor",
			artist:   scrobbleArtist(2_000, 9_000),
			expected: music.ReasonNone,
		},
		{
			name:     "likeness below threshold",
			artist:   scrobbleArtist(50_000, 100_000),
			expected: music.ReasonNotLikedEnough,
		},
		{
			name:     "missing genre tag",
			artist:   scrobbleArtist(10_000, 100_000, "city pop"),
			expected: music.ReasonOther,
		},
		{
			name:     "unenriched artist",
			artist:   artist.New("Quiet Harbor", "mbid-1"),
			expected: music.ReasonOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.ScrobbleReason(tt.artist))
		})
	}
}

func TestScrobbleReasonConglomeratePage(t *testing.T) {
	v := newValidator(t, music.LanguageAny)

	a := scrobbleArtist(10_000, 100_000)
	a.Scrobble.Bio = "There are at least three bands named Quiet Harbor: one from Leeds, ..."

	assert.Equal(t, music.ReasonOther, v.ScrobbleReason(a))
}

func TestStreamingReason(t *testing.T) {
	v := newValidator(t, music.LanguageAny)

	tests := []struct {
		name      string
		followers int64
		expected  music.Reason
	}{
		{"within band", 1_000, music.ReasonNone},
		{"at minimum", 100, music.ReasonNone},
		{"at maximum", 5_000, music.ReasonNone},
		{"too many", 5_001, music.ReasonTooMany},
		{"too few", 99, music.ReasonTooFew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := scrobbleArtist(10_000, 100_000)
			a.Streaming = &artist.StreamingInfo{ID: "sp-1", Followers: tt.followers}
			assert.Equal(t, tt.expected, v.StreamingReason(a))
		})
	}

	t.Run("unenriched artist", func(t *testing.T) {
		assert.Equal(t, music.ReasonOther, v.StreamingReason(scrobbleArtist(10_000, 100_000)))
	})
}

func TestLanguageReason(t *testing.T) {
	tests := []struct {
		name      string
		requested music.Language
		artist    map[music.Language]float64
		expected  music.Reason
	}{
		{"any request passes everything", music.LanguageAny, map[music.Language]float64{music.LanguageOther: 100}, music.ReasonNone},
		{"matching language", music.LanguageEnglish, map[music.Language]float64{music.LanguageEnglish: 100}, music.ReasonNone},
		{"mismatched language", music.LanguageEnglish, map[music.Language]float64{music.LanguageOther: 100}, music.ReasonWrongLanguage},
		{"undetermined artist language passes", music.LanguageEnglish, nil, music.ReasonNone},
		{"half english catalogue satisfies english", music.LanguageEnglish,
			map[music.Language]float64{music.LanguageEnglish: 50, music.LanguageOther: 50}, music.ReasonNone},
		{"half english catalogue satisfies other", music.LanguageOther,
			map[music.Language]float64{music.LanguageEnglish: 50, music.LanguageOther: 50}, music.ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidator(t, tt.requested)
			assert.Equal(t, tt.expected, v.LanguageReason(tt.artist))
		})
	}
}

func TestValidTrack(t *testing.T) {
	v := newValidator(t, music.LanguageAny)

	tests := []struct {
		name     string
		track    track.Track
		expected bool
	}{
		{
			name:     "valid track",
			track:    track.Track{Name: "First Light", DurationSeconds: 200, ReleaseYear: 2015},
			expected: true,
		},
		{
			name:     "too short",
			track:    track.Track{Name: "First Light", DurationSeconds: 90, ReleaseYear: 2015},
			expected: false,
		},
		{
			name:     "too long",
			track:    track.Track{Name: "First Light", DurationSeconds: 400, ReleaseYear: 2015},
			expected: false,
		},
		{
			name:     "released before minimum year",
			track:    track.Track{Name: "First Light", DurationSeconds: 200, ReleaseYear: 1998},
			expected: false,
		},
		{
			name:     "instrumental keyword",
			track:    track.Track{Name: "First Light (Instrumental)", DurationSeconds: 200, ReleaseYear: 2015},
			expected: false,
		},
		{
			name:     "cover keyword",
			track:    track.Track{Name: "First Light - cover", DurationSeconds: 200, ReleaseYear: 2015},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.ValidTrack(&tt.track))
		})
	}
}
