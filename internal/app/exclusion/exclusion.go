// Package exclusion maintains the persistent cache of artists already
// ruled out for a (language, genre, niche level) combination.
package exclusion

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/infra/mongodb"
)

// FreshnessWindow is how long a non-permanent exclusion keeps an
// artist out. After it elapses the artist is re-checked: listener
// counts drift, popularity does not.
const FreshnessWindow = 182 * 24 * time.Hour

// Exclusion is one cached artist rejection.
type Exclusion struct {
	Name   string
	MBID   string
	Reason music.Reason
	Date   time.Time
}

// IsFresh reports whether the exclusion still applies at now: the
// reason is permanent, or the rejection is within the freshness
// window.
func (e Exclusion) IsFresh(now time.Time) bool {
	if e.Reason.Permanent() {
		return true
	}
	return now.Sub(e.Date) < FreshnessWindow
}

// Store is the persistence surface the cache writes through.
type Store interface {
	Ensure(ctx context.Context, params mongodb.CacheParams) (*mongodb.CacheDoc, error)
	UpsertExcluded(ctx context.Context, cacheID primitive.ObjectID, excluded mongodb.ExcludedDoc) error
	RemoveExcluded(ctx context.Context, cacheID primitive.ObjectID, mbid string) error
}

// Cache is the exclusion set for one parameter combination, loaded
// into memory for the duration of a request.
type Cache struct {
	store   Store
	cacheID primitive.ObjectID
	entries map[string]Exclusion
}

// Load fetches (or creates) the cache entry for the parameters and
// indexes its exclusions by metadata id.
func Load(ctx context.Context, s Store, language music.Language, genre string, level music.NicheLevel) (*Cache, error) {
	doc, err := s.Ensure(ctx, mongodb.CacheParams{
		Language:   string(language),
		Genre:      genre,
		NicheLevel: string(level),
	})
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Exclusion, len(doc.Excluded))
	for _, e := range doc.Excluded {
		entries[e.MBID] = Exclusion{
			Name:   e.Name,
			MBID:   e.MBID,
			Reason: music.Reason(e.ReasonExcluded),
			Date:   e.DateExcluded,
		}
	}

	return &Cache{store: s, cacheID: doc.ID, entries: entries}, nil
}

// IsExcluded reports whether the artist is under a still-fresh
// exclusion.
func (c *Cache) IsExcluded(mbid string) bool {
	e, ok := c.entries[mbid]
	if !ok {
		return false
	}
	return e.IsFresh(time.Now())
}

// Exclude records a rejection, replacing any earlier entry for the
// artist. Non-persistable reasons (Other) are dropped silently.
func (c *Cache) Exclude(ctx context.Context, name, mbid string, reason music.Reason) error {
	if !reason.Persistable() {
		return nil
	}

	e := Exclusion{Name: name, MBID: mbid, Reason: reason, Date: time.Now().UTC()}
	if err := c.store.UpsertExcluded(ctx, c.cacheID, mongodb.ExcludedDoc{
		Name:           e.Name,
		MBID:           e.MBID,
		ReasonExcluded: string(e.Reason),
		DateExcluded:   e.Date,
	}); err != nil {
		return err
	}

	c.entries[mbid] = e
	return nil
}

// Remove deletes the exclusion for an artist, typically because they
// passed validation this time around. Missing entries are a no-op.
func (c *Cache) Remove(ctx context.Context, mbid string) error {
	if _, ok := c.entries[mbid]; !ok {
		return nil
	}

	if err := c.store.RemoveExcluded(ctx, c.cacheID, mbid); err != nil {
		return err
	}
	delete(c.entries, mbid)
	zlog.Debug().Msgf("removed stale exclusion for artist %s", mbid)
	return nil
}

// Len returns the number of cached exclusions, fresh or not.
func (c *Cache) Len() int {
	return len(c.entries)
}
