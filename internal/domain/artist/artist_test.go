package artist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeness(t *testing.T) {
	a := New("Someone", "mbid-1")
	assert.Zero(t, a.Likeness())

	a.Scrobble = &ScrobbleStats{Listeners: 10_000, Playcount: 50_000}
	assert.InDelta(t, 5.0, a.Likeness(), 0.0001)

	// Zero listeners must not divide by zero.
	a.Scrobble = &ScrobbleStats{Listeners: 0, Playcount: 42}
	assert.InDelta(t, 42.0, a.Likeness(), 0.0001)
}

func TestSameName(t *testing.T) {
	a := New("Boards of Canada", "mbid-2")
	assert.True(t, a.SameName("boards of canada"))
	assert.True(t, a.SameName("  Boards of Canada  "))
	assert.False(t, a.SameName("Boards of Kanada"))
}

func TestHasTag(t *testing.T) {
	a := New("X", "mbid-3")
	assert.False(t, a.HasTag("k-pop"))

	a.Scrobble = &ScrobbleStats{Tags: []string{"K-Pop", "korean"}}
	assert.True(t, a.HasTag("k-pop"))
	assert.False(t, a.HasTag("j-pop"))
}

func TestIsConglomeratePage(t *testing.T) {
	tests := []struct {
		name string
		bio  string
		want bool
	}{
		{"digit count", "There are 3 bands named Midnight.", true},
		{"number word", "There are at least five artists called Nova", true},
		{"multiple", "There are multiple artists named Ghost:", true},
		{"a few with and", "there is a few bands and artists named Echo something else", true},
		{"singular is", "There is a couple groups called Static.", true},
		{"normal bio", "Formed in 2009 in Portland, the band released two albums.", false},
		{"mid-text mention", "Their biography notes there are many bands named similarly.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConglomeratePage(tt.bio))
		})
	}
}
