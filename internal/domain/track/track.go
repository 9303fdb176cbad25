// Package track provides the Track domain entity.
package track

import "strings"

// Track carries per-track data accumulated from the scrobble and
// streaming services. The streaming fields are zero until attached.
type Track struct {
	Name       string // Track name
	ArtistName string // Primary artist name

	// Streaming-service attachment.
	SpotifyURI      string   // spotify:track:...
	SpotifyURL      string   // open.spotify.com link
	DurationSeconds int      // Track length in seconds
	ReleaseYear     int      // Year of the album release date (0 if unknown)
	ArtistIDs       []string // Streaming ids of all credited artists
}

// HasSpotify reports whether streaming info has been attached.
func (t *Track) HasSpotify() bool {
	return t.SpotifyURI != ""
}

// HasArtistID reports whether the given streaming artist id is
// credited on the track.
func (t *Track) HasArtistID(id string) bool {
	for _, a := range t.ArtistIDs {
		if a == id {
			return true
		}
	}
	return false
}

// nonOriginalKeywords mark covers, instrumentals, and special versions.
var nonOriginalKeywords = []string{
	"instrumental", "cover", "inst.", "cov.", "ver.", "version",
	"background music", "no vocals", "alternative version",
	"soundtrack", "theme", "star wars",
}

// IsOriginalWithLyrics reports whether the track name suggests an
// original studio recording with vocals. Purely name-based; this is
// the cheap heuristic for dropping non-studio material without an
// external call.
func (t *Track) IsOriginalWithLyrics() bool {
	name := strings.ToLower(t.Name)
	for _, kw := range nonOriginalKeywords {
		if strings.Contains(name, kw) {
			return false
		}
	}
	return true
}

// NicheTrack is a selected playlist entry.
type NicheTrack struct {
	ArtistName      string
	SpotifyArtistID string
	TrackName       string
	SpotifyURI      string
	SpotifyURL      string
}
