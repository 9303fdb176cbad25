// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/niche-app/niche/internal/domain/music"
)

// Config represents the application configuration.
type Config struct {
	Logger      LoggerConfig      `yaml:"logger"`
	Mongo       MongoConfig       `yaml:"mongo"`
	Spotify     SpotifyConfig     `yaml:"spotify"`
	LastFM      LastFMConfig      `yaml:"lastfm"`
	MusicBrainz MusicBrainzConfig `yaml:"musicbrainz"`
	Finder      FinderConfig      `yaml:"finder"`
}

// LoggerConfig represents logging configuration.
type LoggerConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
}

// MongoConfig represents database configuration.
type MongoConfig struct {
	URI      string `yaml:"uri" validate:"required"`
	Database string `yaml:"database" default:"niche"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
}

// LastFMConfig represents Last.fm API configuration.
type LastFMConfig struct {
	APIKey string `yaml:"api_key" validate:"required"`
}

// MusicBrainzConfig represents MusicBrainz client configuration.
type MusicBrainzConfig struct {
	AppName    string `yaml:"app_name" default:"niche-app"`
	AppVersion string `yaml:"app_version" default:"1.0"`
	Contact    string `yaml:"contact" validate:"required"`
}

// FinderConfig represents track finder configuration.
type FinderConfig struct {
	CoverImagePath string `yaml:"cover_image_path"`

	// Per niche level overrides of the built-in listener, playcount,
	// and follower bands. Keys are persisted niche level names.
	Bands map[string]map[string]any `yaml:"bands,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.LastFM.APIKey = v
	}
	if v := os.Getenv("MUSICBRAINZ_CONTACT"); v != "" {
		c.MusicBrainz.Contact = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Band overrides must decode and must name known niche levels.
	for level := range c.Finder.Bands {
		if _, err := music.ParseNicheLevel(level); err != nil {
			return errors.Wrapf(err, "finder.bands %q", level)
		}
		if _, err := c.BandsFor(music.NicheLevel(level)); err != nil {
			return err
		}
	}

	return nil
}

// BandsFor returns the listener, playcount, and follower bands for a
// niche level: the built-in table with any configured overrides
// applied on top.
func (c *Config) BandsFor(level music.NicheLevel) (music.Bands, error) {
	bands := music.BandsFor(level)

	settings, ok := c.Finder.Bands[string(level)]
	if !ok {
		return bands, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &bands,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return bands, errors.Wrap(err, "failed to create bands decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return bands, errors.Wrapf(err, "failed to decode finder.bands %q", level)
	}

	if err := validator.New().Struct(bands); err != nil {
		return bands, errors.Wrapf(err, "finder.bands %q validation failed", level)
	}
	return bands, nil
}
