// Package musicbrainz provides the metadata-service adapter used to
// determine the language an artist performs in.
package musicbrainz

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/infra/svcerror"
)

const serviceName = "musicbrainz"

// Client is a MusicBrainz API client. The service enforces one request
// per second per client, so every call waits on a shared limiter.
type Client struct {
	userAgent  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int
	retryDelay time.Duration
}

// Config represents MusicBrainz client configuration. The service
// rejects requests without an identifying user agent.
type Config struct {
	AppName    string
	AppVersion string
	Contact    string
}

type artistWorksResponse struct {
	Works []struct {
		Language  string   `json:"language"`
		Languages []string `json:"languages"`
	} `json:"works"`
}

// New creates a new MusicBrainz client.
func New(cfg Config) (*Client, error) {
	if cfg.AppName == "" || cfg.Contact == "" {
		return nil, errors.New("musicbrainz user agent requires app name and contact")
	}
	version := cfg.AppVersion
	if version == "" {
		version = "1.0"
	}

	return &Client{
		userAgent:  cfg.AppName + "/" + version + " ( " + cfg.Contact + " )",
		baseURL:    "https://musicbrainz.org/ws/2/",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		retries:    3,
		retryDelay: time.Second,
	}, nil
}

// ArtistLanguages reports the share each language holds in an artist's
// catalogued works, keeping only languages at 50 percent or more. An
// exact half English half other catalogue yields both entries; an empty
// map means no work carries a language.
func (c *Client) ArtistLanguages(ctx context.Context, mbid string) (map[music.Language]float64, error) {
	if mbid == "" {
		return nil, svcerror.New(svcerror.KindNotFound, serviceName,
			errors.New("no metadata id"))
	}

	params := url.Values{}
	params.Set("inc", "works")
	params.Set("fmt", "json")
	body, err := c.get(ctx, "artist/"+url.PathEscape(mbid), params)
	if err != nil {
		return nil, err
	}

	var resp artistWorksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, svcerror.New(svcerror.KindMalformed, serviceName, err)
	}

	counts := map[music.Language]int{}
	var known int
	for _, w := range resp.Works {
		codes := w.Languages
		if len(codes) == 0 && w.Language != "" {
			codes = []string{w.Language}
		}
		for _, code := range codes {
			known++
			counts[music.LanguageFromISO639_3(code)]++
		}
	}

	langs := map[music.Language]float64{}
	for lang, count := range counts {
		if count*2 >= known {
			langs[lang] = float64(count) / float64(known) * 100
		}
	}
	return langs, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	var body []byte
	err := svcerror.Retry(ctx, c.retries, c.retryDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return errors.Wrap(err, "failed to create request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

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

		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
