package musicbrainz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/infra/svcerror"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{AppName: "niche", AppVersion: "0.1", Contact: "ops@niche-app.net"})
	require.NoError(t, err)
	client.baseURL = server.URL + "/"
	client.retryDelay = time.Millisecond
	client.limiter.SetLimit(1000)
	return client
}

func TestArtistLanguages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[music.Language]float64
	}{
		{
			name: "mostly english works",
			body: `{"works": [
				{"language": "eng"},
				{"language": "eng"},
				{"language": "jpn"}
			]}`,
			want: map[music.Language]float64{music.LanguageEnglish: 100.0 * 2 / 3},
		},
		{
			name: "exactly half english keeps both languages",
			body: `{"works": [
				{"language": "eng"},
				{"language": "fra"}
			]}`,
			want: map[music.Language]float64{music.LanguageEnglish: 50, music.LanguageOther: 50},
		},
		{
			name: "mostly other works",
			body: `{"works": [
				{"language": "jpn"},
				{"language": "jpn"},
				{"language": "eng"}
			]}`,
			want: map[music.Language]float64{music.LanguageOther: 100.0 * 2 / 3},
		},
		{
			name: "languages list preferred over single field",
			body: `{"works": [
				{"language": "jpn", "languages": ["eng", "eng", "eng"]}
			]}`,
			want: map[music.Language]float64{music.LanguageEnglish: 100},
		},
		{
			name: "no works",
			body: `{"works": []}`,
			want: map[music.Language]float64{},
		},
		{
			name: "works without language",
			body: `{"works": [{"language": ""}, {"language": ""}]}`,
			want: map[music.Language]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/artist/mbid-123", r.URL.Path)
				assert.Equal(t, "works", r.URL.Query().Get("inc"))
				assert.Equal(t, "json", r.URL.Query().Get("fmt"))
				assert.Contains(t, r.Header.Get("User-Agent"), "niche/0.1")

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})

			langs, err := client.ArtistLanguages(context.Background(), "mbid-123")
			require.NoError(t, err)
			require.Len(t, langs, len(tt.want))
			for lang, pct := range tt.want {
				assert.InDelta(t, pct, langs[lang], 0.001)
			}
		})
	}
}

func TestArtistLanguagesNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.ArtistLanguages(context.Background(), "mbid-missing")
	require.Error(t, err)
	assert.True(t, svcerror.IsNotFound(err))
}

func TestArtistLanguagesRetriesServiceUnavailable(t *testing.T) {
	var attempts int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"works": [{"language": "eng"}]}`))
	})

	langs, err := client.ArtistLanguages(context.Background(), "mbid-123")
	require.NoError(t, err)
	assert.Contains(t, langs, music.LanguageEnglish)
	assert.Equal(t, 2, attempts)
}

func TestArtistLanguagesRequiresID(t *testing.T) {
	client, err := New(Config{AppName: "niche", Contact: "ops@niche-app.net"})
	require.NoError(t, err)

	_, err = client.ArtistLanguages(context.Background(), "")
	require.Error(t, err)
	assert.True(t, svcerror.IsNotFound(err))
}
