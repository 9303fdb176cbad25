// Package artist provides the Artist domain entity.
package artist

import (
	"strings"

	"github.com/niche-app/niche/internal/domain/music"
)

// ScrobbleStats is the scrobble-service attachment: listener
// statistics, genre tags, and the biography text.
type ScrobbleStats struct {
	Listeners int64
	Playcount int64
	Tags      []string
	Bio       string
}

// StreamingInfo is the streaming-service attachment.
type StreamingInfo struct {
	ID        string
	Followers int64
}

// Artist carries per-artist data accumulated across services. It is
// created from a metadata-service catalog record and enriched as the
// pipeline needs each facet.
type Artist struct {
	Name string
	MBID string // Stable id from the metadata service

	Scrobble  *ScrobbleStats
	Streaming *StreamingInfo
}

// New creates an artist from a metadata catalog record.
func New(name, mbid string) *Artist {
	return &Artist{Name: name, MBID: mbid}
}

// Likeness returns playcount over listeners for the scrobble
// attachment, or 0 when unattached.
func (a *Artist) Likeness() float64 {
	if a.Scrobble == nil {
		return 0
	}
	return music.Likeness(a.Scrobble.Listeners, a.Scrobble.Playcount)
}

// HasTag reports whether the scrobble attachment carries the tag,
// case-insensitively.
func (a *Artist) HasTag(tag string) bool {
	if a.Scrobble == nil {
		return false
	}
	for _, t := range a.Scrobble.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SameName reports whether name refers to this artist, ignoring case
// and surrounding whitespace.
func (a *Artist) SameName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(name))
}
