package lastfm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niche-app/niche/internal/infra/svcerror"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{APIKey: "test-api-key"})
	require.NoError(t, err)
	client.baseURL = server.URL + "/"
	client.retryDelay = time.Millisecond
	return client, server
}

func TestArtistInfo(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "artist.getInfo", r.URL.Query().Get("method"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "mbid-123", r.URL.Query().Get("mbid"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"artist": {
				"name": "Quiet Harbor",
				"mbid": "mbid-123",
				"stats": {"listeners": "12345", "playcount": "678900"},
				"tags": {"tag": [{"name": "dream pop"}, {"name": "shoegaze"}]},
				"bio": {"summary": "A small band from nowhere."}
			}
		}`))
	})

	info, err := client.ArtistInfo(context.Background(), "mbid-123", "Quiet Harbor")
	require.NoError(t, err)

	assert.Equal(t, "Quiet Harbor", info.Name)
	assert.Equal(t, int64(12345), info.Listeners)
	assert.Equal(t, int64(678900), info.Playcount)
	assert.Equal(t, []string{"dream pop", "shoegaze"}, info.Tags)
	assert.Equal(t, "A small band from nowhere.", info.Bio)
}

func TestArtistInfoFallsBackToName(t *testing.T) {
	var calls []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if mbid := r.URL.Query().Get("mbid"); mbid != "" {
			calls = append(calls, "mbid")
			w.Write([]byte(`{"error": 6, "message": "The artist you supplied could not be found"}`))
			return
		}
		calls = append(calls, "name")
		assert.Equal(t, "Quiet Harbor", r.URL.Query().Get("artist"))
		assert.Equal(t, "1", r.URL.Query().Get("autocorrect"))
		w.Write([]byte(`{
			"artist": {
				"name": "Quiet Harbor",
				"stats": {"listeners": "100", "playcount": "900"},
				"tags": {"tag": []},
				"bio": {"summary": ""}
			}
		}`))
	})

	info, err := client.ArtistInfo(context.Background(), "stale-mbid", "Quiet Harbor")
	require.NoError(t, err)

	assert.Equal(t, []string{"mbid", "name"}, calls)
	assert.Equal(t, int64(100), info.Listeners)
}

func TestArtistInfoNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": 6, "message": "The artist you supplied could not be found"}`))
	})

	_, err := client.ArtistInfo(context.Background(), "", "No Such Band")
	require.Error(t, err)
	assert.True(t, svcerror.IsNotFound(err))
}

func TestArtistTopTracks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "artist.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"toptracks": {
				"track": [
					{"name": "First Light", "artist": {"name": "Quiet Harbor"}},
					{"name": "Breakwater", "artist": {"name": "Quiet Harbor"}}
				]
			}
		}`))
	})

	tracks, err := client.ArtistTopTracks(context.Background(), "mbid-123", "Quiet Harbor", 10)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "First Light", tracks[0].Name)
	assert.Equal(t, "Quiet Harbor", tracks[0].Artist)
}

func TestArtistTopTracksClampsLimit(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"toptracks": {"track": []}}`))
	})

	_, err := client.ArtistTopTracks(context.Background(), "mbid-123", "Quiet Harbor", 500)
	require.NoError(t, err)
}

func TestRetriesServerError(t *testing.T) {
	var attempts int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{
			"artist": {
				"name": "Quiet Harbor",
				"stats": {"listeners": "1", "playcount": "1"},
				"tags": {"tag": []},
				"bio": {"summary": ""}
			}
		}`))
	})

	_, err := client.ArtistInfo(context.Background(), "mbid-123", "Quiet Harbor")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRateLimitedAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": 29, "message": "Rate limit exceeded"}`))
	})

	_, err := client.ArtistInfo(context.Background(), "mbid-123", "Quiet Harbor")
	require.Error(t, err)
	assert.Equal(t, svcerror.KindRateLimited, svcerror.KindOf(err))
}
