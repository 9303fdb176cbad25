package exclusion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/infra/mongodb"
)

type fakeStore struct {
	doc *mongodb.CacheDoc
}

func (f *fakeStore) Ensure(_ context.Context, params mongodb.CacheParams) (*mongodb.CacheDoc, error) {
	if f.doc == nil {
		f.doc = &mongodb.CacheDoc{
			ID:       primitive.NewObjectID(),
			Params:   params,
			Excluded: []mongodb.ExcludedDoc{},
		}
	}
	return f.doc, nil
}

func (f *fakeStore) UpsertExcluded(_ context.Context, _ primitive.ObjectID, excluded mongodb.ExcludedDoc) error {
	for i, e := range f.doc.Excluded {
		if e.MBID == excluded.MBID {
			f.doc.Excluded[i] = excluded
			return nil
		}
	}
	f.doc.Excluded = append(f.doc.Excluded, excluded)
	return nil
}

func (f *fakeStore) RemoveExcluded(_ context.Context, _ primitive.ObjectID, mbid string) error {
	out := f.doc.Excluded[:0]
	for _, e := range f.doc.Excluded {
		if e.MBID != mbid {
			out = append(out, e)
		}
	}
	f.doc.Excluded = out
	return nil
}

func loadCache(t *testing.T, store *fakeStore) *Cache {
	t.Helper()
	cache, err := Load(context.Background(), store, music.LanguageAny, "k-pop", music.NicheVery)
	require.NoError(t, err)
	return cache
}

func TestIsFresh(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		excluded Exclusion
		expected bool
	}{
		{
			name:     "recent freshness-only reason",
			excluded: Exclusion{Reason: music.ReasonTooFew, Date: now.AddDate(0, 0, -30)},
			expected: true,
		},
		{
			name:     "expired freshness-only reason",
			excluded: Exclusion{Reason: music.ReasonTooFew, Date: now.AddDate(0, 0, -200)},
			expected: false,
		},
		{
			name:     "expired likeness reason",
			excluded: Exclusion{Reason: music.ReasonNotLikedEnough, Date: now.AddDate(0, 0, -183)},
			expected: false,
		},
		{
			name:     "too popular never expires",
			excluded: Exclusion{Reason: music.ReasonTooMany, Date: now.AddDate(-3, 0, 0)},
			expected: true,
		},
		{
			name:     "wrong language never expires",
			excluded: Exclusion{Reason: music.ReasonWrongLanguage, Date: now.AddDate(-3, 0, 0)},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.excluded.IsFresh(now))
		})
	}
}

func TestExcludeAndShortCircuit(t *testing.T) {
	store := &fakeStore{}
	cache := loadCache(t, store)

	require.NoError(t, cache.Exclude(context.Background(), "Quiet Harbor", "mbid-1", music.ReasonTooFew))

	assert.True(t, cache.IsExcluded("mbid-1"))
	assert.False(t, cache.IsExcluded("mbid-2"))
	require.Len(t, store.doc.Excluded, 1)
	assert.Equal(t, "Too Few Followers / Listeners / Plays", store.doc.Excluded[0].ReasonExcluded)
	assert.False(t, store.doc.Excluded[0].DateExcluded.IsZero())
}

func TestExcludeUpsertsByMBID(t *testing.T) {
	store := &fakeStore{}
	cache := loadCache(t, store)

	require.NoError(t, cache.Exclude(context.Background(), "Quiet Harbor", "mbid-1", music.ReasonTooFew))
	require.NoError(t, cache.Exclude(context.Background(), "Quiet Harbor", "mbid-1", music.ReasonTooMany))

	require.Len(t, store.doc.Excluded, 1)
	assert.Equal(t, "Too Many Followers / Listeners / Plays", store.doc.Excluded[0].ReasonExcluded)
}

func TestExcludeNeverPersistsOther(t *testing.T) {
	store := &fakeStore{}
	cache := loadCache(t, store)

	require.NoError(t, cache.Exclude(context.Background(), "Quiet Harbor", "mbid-1", music.ReasonOther))

	assert.Empty(t, store.doc.Excluded)
	assert.False(t, cache.IsExcluded("mbid-1"))
}

func TestRemove(t *testing.T) {
	store := &fakeStore{}
	cache := loadCache(t, store)

	require.NoError(t, cache.Exclude(context.Background(), "Quiet Harbor", "mbid-1", music.ReasonTooFew))
	require.NoError(t, cache.Remove(context.Background(), "mbid-1"))

	assert.False(t, cache.IsExcluded("mbid-1"))
	assert.Empty(t, store.doc.Excluded)

	// Removing an artist that was never cached is a no-op.
	require.NoError(t, cache.Remove(context.Background(), "mbid-404"))
}

func TestLoadIndexesExistingEntries(t *testing.T) {
	store := &fakeStore{doc: &mongodb.CacheDoc{
		ID: primitive.NewObjectID(),
		Excluded: []mongodb.ExcludedDoc{
			{MBID: "mbid-old", ReasonExcluded: "Too Many Followers / Listeners / Plays", DateExcluded: time.Now().AddDate(-2, 0, 0)},
			{MBID: "mbid-stale", ReasonExcluded: "Too Few Followers / Listeners / Plays", DateExcluded: time.Now().AddDate(-2, 0, 0)},
		},
	}}
	cache := loadCache(t, store)

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.IsExcluded("mbid-old"), "permanent reason stays fresh")
	assert.False(t, cache.IsExcluded("mbid-stale"), "expired freshness-only reason re-admits the artist")
}
