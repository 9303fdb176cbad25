// Package lastfm provides the scrobble-service adapter: per-artist
// listener statistics, genre tags, and top tracks.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/niche-app/niche/internal/infra/svcerror"
)

const serviceName = "lastfm"

// Client is a Last.fm API client. All requests pass through a shared
// rate limiter so the upstream quota is respected process-wide.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int
	retryDelay time.Duration
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey string
}

// ArtistInfo is the artist.getInfo result the pipeline consumes.
type ArtistInfo struct {
	Name      string
	MBID      string
	Listeners int64
	Playcount int64
	Tags      []string
	Bio       string
}

// TopTrack is one entry of an artist's top-track list.
type TopTrack struct {
	Name   string
	Artist string
}

// artistInfoResponse mirrors the artist.getInfo payload. The stats
// counters arrive as strings.
type artistInfoResponse struct {
	Artist struct {
		Name  string `json:"name"`
		MBID  string `json:"mbid"`
		Stats struct {
			Listeners string `json:"listeners"`
			Playcount string `json:"playcount"`
		} `json:"stats"`
		Tags struct {
			Tag []struct {
				Name string `json:"name"`
			} `json:"tag"`
		} `json:"tags"`
		Bio struct {
			Summary string `json:"summary"`
			Content string `json:"content"`
		} `json:"bio"`
	} `json:"artist"`
}

// topTracksResponse mirrors the artist.getTopTracks payload.
type topTracksResponse struct {
	TopTracks struct {
		Track []struct {
			Name   string `json:"name"`
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"track"`
	} `json:"toptracks"`
}

// apiError represents an error envelope from the Last.fm API.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: "https://ws.audioscrobbler.com/2.0/",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		// Scrobble-service guideline: ~5 requests per second.
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		retries:    3,
		retryDelay: time.Second,
	}, nil
}

// ArtistInfo retrieves listener statistics, tags, and biography for an
// artist, querying by metadata id first and falling back to the name.
func (c *Client) ArtistInfo(ctx context.Context, mbid, name string) (*ArtistInfo, error) {
	params := url.Values{}
	params.Set("method", "artist.getInfo")

	body, err := c.getWithFallback(ctx, params, mbid, name)
	if err != nil {
		return nil, err
	}

	var resp artistInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, svcerror.New(svcerror.KindMalformed, serviceName, err)
	}
	if resp.Artist.Name == "" {
		return nil, svcerror.New(svcerror.KindNotFound, serviceName,
			errors.Newf("artist %q not found", name))
	}

	listeners, _ := strconv.ParseInt(resp.Artist.Stats.Listeners, 10, 64)
	playcount, _ := strconv.ParseInt(resp.Artist.Stats.Playcount, 10, 64)

	tags := make([]string, 0, len(resp.Artist.Tags.Tag))
	for _, t := range resp.Artist.Tags.Tag {
		tags = append(tags, t.Name)
	}

	bio := resp.Artist.Bio.Summary
	if bio == "" {
		bio = resp.Artist.Bio.Content
	}

	return &ArtistInfo{
		Name:      resp.Artist.Name,
		MBID:      resp.Artist.MBID,
		Listeners: listeners,
		Playcount: playcount,
		Tags:      tags,
		Bio:       bio,
	}, nil
}

// ArtistTopTracks retrieves an artist's top tracks with the same
// id-first, name-fallback discipline as ArtistInfo.
func (c *Client) ArtistTopTracks(ctx context.Context, mbid, name string, limit int) ([]TopTrack, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("method", "artist.getTopTracks")
	params.Set("limit", fmt.Sprintf("%d", limit))

	body, err := c.getWithFallback(ctx, params, mbid, name)
	if err != nil {
		return nil, err
	}

	var resp topTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, svcerror.New(svcerror.KindMalformed, serviceName, err)
	}

	tracks := make([]TopTrack, 0, len(resp.TopTracks.Track))
	for _, t := range resp.TopTracks.Track {
		tracks = append(tracks, TopTrack{Name: t.Name, Artist: t.Artist.Name})
	}
	return tracks, nil
}

// getWithFallback issues the request by mbid when available and falls
// back to the artist name on a miss.
func (c *Client) getWithFallback(ctx context.Context, base url.Values, mbid, name string) ([]byte, error) {
	if mbid != "" {
		params := cloneValues(base)
		params.Set("mbid", mbid)
		body, err := c.get(ctx, params)
		if err == nil {
			return body, nil
		}
		if !svcerror.IsNotFound(err) {
			return nil, err
		}
		zlog.Debug().Msgf("lastfm miss for mbid %s, retrying by name %q", mbid, name)
	}

	if name == "" {
		return nil, svcerror.New(svcerror.KindNotFound, serviceName,
			errors.New("no artist identifier"))
	}
	params := cloneValues(base)
	params.Set("artist", name)
	params.Set("autocorrect", "1")
	return c.get(ctx, params)
}

// get performs one rate-limited GET with retry on transient failures.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	reqURL := c.baseURL + "?" + params.Encode()

	var body []byte
	err := svcerror.Retry(ctx, c.retries, c.retryDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return errors.Wrap(err, "failed to create request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return svcerror.Classify(serviceName, err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return svcerror.New(svcerror.KindTransient, serviceName, err)
		}

		if resp.StatusCode != http.StatusOK {
			return svcerror.FromStatusCode(serviceName, resp.StatusCode,
				errors.Newf("unexpected status %d", resp.StatusCode))
		}

		// The API reports errors with status 200 and an error envelope.
		var apiErr apiError
		if err := json.Unmarshal(b, &apiErr); err == nil && apiErr.Error != 0 {
			return classifyAPIError(apiErr)
		}

		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// classifyAPIError maps Last.fm error codes onto the adapter taxonomy.
func classifyAPIError(e apiError) error {
	err := errors.Newf("last.fm API error %d: %s", e.Error, e.Message)
	switch e.Error {
	case 6: // invalid parameters: treated as a lookup miss
		return svcerror.New(svcerror.KindNotFound, serviceName, err)
	case 29:
		return svcerror.New(svcerror.KindRateLimited, serviceName, err)
	case 8, 11, 16:
		return svcerror.New(svcerror.KindTransient, serviceName, err)
	case 4, 9, 10, 26:
		return svcerror.New(svcerror.KindUnauthorized, serviceName, err)
	default:
		return svcerror.New(svcerror.KindOther, serviceName, err)
	}
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		for _, val := range vals {
			out.Add(k, val)
		}
	}
	return out
}
