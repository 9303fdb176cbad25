// Package genre provides the canonical list of supported genres and
// the name mapping between the three external services.
package genre

import (
	_ "embed"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

//go:embed genres.json
var genresJSON []byte

// Service identifies a genre taxonomy.
type Service string

const (
	ServiceSpotify     Service = "spotify"
	ServiceMusicBrainz Service = "musicbrainz"
	ServiceLastFM      Service = "lastfm"
)

// Row is one genre with its per-service names. Spotify may be empty
// when the genre is not a recommendation seed; the other two columns
// are always set.
type Row struct {
	Spotify     string `json:"spotify"`
	MusicBrainz string `json:"musicbrainz"`
	LastFM      string `json:"lastfm"`
}

func (r Row) name(s Service) string {
	switch s {
	case ServiceSpotify:
		return r.Spotify
	case ServiceMusicBrainz:
		return r.MusicBrainz
	default:
		return r.LastFM
	}
}

// Primary returns the canonical name of a row: the Spotify seed name
// when the genre is a seed, the MusicBrainz name otherwise.
func (r Row) Primary() string {
	if r.Spotify != "" {
		return r.Spotify
	}
	return r.MusicBrainz
}

// Catalog is the loaded genre table.
type Catalog struct {
	rows []Row
}

// Load parses the embedded genre table and verifies its invariants:
// every row has a primary name and no name repeats within a column.
func Load() (*Catalog, error) {
	var rows []Row
	if err := json.Unmarshal(genresJSON, &rows); err != nil {
		return nil, errors.Wrap(err, "failed to parse genre table")
	}

	seen := map[Service]map[string]bool{
		ServiceSpotify:     {},
		ServiceMusicBrainz: {},
		ServiceLastFM:      {},
	}
	for i, row := range rows {
		if row.Primary() == "" {
			return nil, errors.Newf("genre row %d has no primary name", i)
		}
		for svc, names := range seen {
			name := row.name(svc)
			if name == "" {
				continue
			}
			if names[name] {
				return nil, errors.Newf("duplicate %s genre name %q", svc, name)
			}
			names[name] = true
		}
	}

	return &Catalog{rows: rows}, nil
}

// IsStreamingSeed reports whether name is usable as a Spotify
// recommendation seed genre.
func (c *Catalog) IsStreamingSeed(name string) bool {
	for _, row := range c.rows {
		if row.Spotify == name {
			return true
		}
	}
	return false
}

// IsSupported reports whether name is a supported genre (primary form).
func (c *Catalog) IsSupported(name string) bool {
	for _, row := range c.rows {
		if row.Primary() == name {
			return true
		}
	}
	return false
}

// Convert translates a genre name between service taxonomies. Returns
// the empty string when the name is unknown in the source taxonomy.
func (c *Catalog) Convert(from, to Service, name string) string {
	for _, row := range c.rows {
		if row.name(from) == name {
			return row.name(to)
		}
	}
	return ""
}

// AllSupported returns the primary name of every row.
func (c *Catalog) AllSupported() []string {
	names := make([]string, 0, len(c.rows))
	for _, row := range c.rows {
		names = append(names, row.Primary())
	}
	return names
}

// ScrobbleTag returns the scrobble-service tag for a primary genre
// name, trying the streaming taxonomy first and the metadata taxonomy
// as fallback. Empty when the genre is unknown.
func (c *Catalog) ScrobbleTag(name string) string {
	if tag := c.Convert(ServiceSpotify, ServiceLastFM, name); tag != "" {
		return tag
	}
	return c.Convert(ServiceMusicBrainz, ServiceLastFM, name)
}

// MetadataName returns the metadata-service name for a primary genre
// name. Genres that are not streaming seeds are already in metadata
// form.
func (c *Catalog) MetadataName(name string) string {
	if converted := c.Convert(ServiceSpotify, ServiceMusicBrainz, name); converted != "" {
		return converted
	}
	return name
}
