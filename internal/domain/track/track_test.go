package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOriginalWithLyrics(t *testing.T) {
	tests := []struct {
		name      string
		trackName string
		want      bool
	}{
		{"plain name", "Golden Hour", true},
		{"cover", "Golden Hour (Cover)", false},
		{"instrumental", "Golden Hour - Instrumental", false},
		{"abbreviated inst", "Golden Hour (Inst.)", false},
		{"version", "Golden Hour (Acoustic Version)", false},
		{"abbreviated ver", "Golden Hour (Jap. Ver.)", false},
		{"soundtrack", "Golden Hour [Original Soundtrack]", false},
		{"theme", "Main Theme", false},
		{"case insensitive", "golden hour COVER", false},
		{"no vocals", "Golden Hour (No Vocals)", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Track{Name: tt.trackName}
			assert.Equal(t, tt.want, tr.IsOriginalWithLyrics())
		})
	}
}

func TestHasArtistID(t *testing.T) {
	tr := Track{ArtistIDs: []string{"a1", "a2"}}
	assert.True(t, tr.HasArtistID("a2"))
	assert.False(t, tr.HasArtistID("a3"))

	empty := Track{}
	assert.False(t, empty.HasArtistID("a1"))
}

func TestHasSpotify(t *testing.T) {
	assert.False(t, (&Track{}).HasSpotify())
	assert.True(t, (&Track{SpotifyURI: "spotify:track:abc"}).HasSpotify())
}
