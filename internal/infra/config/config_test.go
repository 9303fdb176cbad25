package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niche-app/niche/internal/domain/music"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
mongo:
  uri: mongodb://localhost:27017
spotify:
  client_id: cid
  client_secret: secret
  refresh_token: rtok
lastfm:
  api_key: lfm-key
musicbrainz:
  contact: ops@niche-app.net
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "niche", cfg.Mongo.Database)
	assert.Equal(t, "cid", cfg.Spotify.ClientID)
	assert.Equal(t, "stdout", cfg.Logger.Output)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "niche-app", cfg.MusicBrainz.AppName)
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, `
mongo:
  uri: mongodb://localhost:27017
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("MONGODB_URI", "mongodb://envhost:27017")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Spotify.ClientSecret)
	assert.Equal(t, "mongodb://envhost:27017", cfg.Mongo.URI)
}

func TestBandsForDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	bands, err := cfg.BandsFor(music.NicheVery)
	require.NoError(t, err)
	assert.Equal(t, music.BandsFor(music.NicheVery), bands)
}

func TestBandsForOverride(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig+`
finder:
  bands:
    Very:
      listeners_max: 75000
`))
	require.NoError(t, err)

	bands, err := cfg.BandsFor(music.NicheVery)
	require.NoError(t, err)

	defaults := music.BandsFor(music.NicheVery)
	assert.Equal(t, int64(75000), bands.ListenersMax)
	assert.Equal(t, defaults.ListenersMin, bands.ListenersMin)
	assert.Equal(t, defaults.FollowersMax, bands.FollowersMax)
}

func TestLoadRejectsUnknownBandLevel(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+`
finder:
  bands:
    Extremely:
      listeners_max: 10
`))
	require.Error(t, err)
}
