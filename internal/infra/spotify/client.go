// Package spotify provides a client for the Spotify API.
package spotify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/niche-app/niche/internal/domain/artist"
	"github.com/niche-app/niche/internal/domain/track"
	"github.com/niche-app/niche/internal/infra/svcerror"
)

const serviceName = "spotify"

// Client is a Spotify API client acting on behalf of the configured
// account. Calls share a rate limiter and retry transient failures.
type Client struct {
	client     *spotify.Client
	httpClient *http.Client
	apiBaseURL string
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration

	userID      string
	displayName string
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopeImageUpload,
		),
	)

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// HTTP client with auto-refresh capability. Kept for the endpoints
	// the library does not cover (cover image upload).
	httpClient := auth.Client(ctx, token)

	return &Client{
		client:     spotify.New(httpClient),
		httpClient: httpClient,
		apiBaseURL: "https://api.spotify.com/v1/",
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// CurrentUser returns the id and display name of the account the
// client acts as. The result is cached for the lifetime of the client.
func (c *Client) CurrentUser(ctx context.Context) (id, displayName string, err error) {
	if c.userID != "" {
		return c.userID, c.displayName, nil
	}

	var user *spotify.PrivateUser
	err = c.retry(ctx, func() error {
		u, err := c.client.CurrentUser(ctx)
		if err != nil {
			return svcerror.Classify(serviceName, err)
		}
		user = u
		return nil
	})
	if err != nil {
		return "", "", errors.Wrap(err, "failed to get current user")
	}

	c.userID = user.ID
	c.displayName = user.DisplayName
	return c.userID, c.displayName, nil
}

// CurrentUserID returns the id of the account the client acts as.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	id, _, err := c.CurrentUser(ctx)
	return id, err
}

// SearchTrack looks up a track by name and artist using a fielded
// query and returns the first result credited to the artist, or nil
// when nothing matches.
func (c *Client) SearchTrack(ctx context.Context, trackName, artistName string) (*track.Track, error) {
	if trackName == "" || artistName == "" {
		return nil, errors.New("track and artist names are required")
	}

	query := fmt.Sprintf("track:%q artist:%q", trackName, artistName)

	var result *spotify.SearchResult
	err := c.retry(ctx, func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(10))
		if err != nil {
			return svcerror.Classify(serviceName, err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search track")
	}

	if result.Tracks == nil {
		return nil, nil
	}
	for i := range result.Tracks.Tracks {
		t := &result.Tracks.Tracks[i]
		for _, a := range t.Artists {
			if strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(artistName)) {
				return convertFullTrack(t), nil
			}
		}
	}
	return nil, nil
}

// Artist retrieves streaming info for an artist by id.
func (c *Client) Artist(ctx context.Context, id string) (*artist.StreamingInfo, error) {
	var full *spotify.FullArtist
	err := c.retry(ctx, func() error {
		a, err := c.client.GetArtist(ctx, spotify.ID(id))
		if err != nil {
			return svcerror.Classify(serviceName, err)
		}
		full = a
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get artist")
	}

	return &artist.StreamingInfo{
		ID:        string(full.ID),
		Followers: int64(full.Followers.Count),
	}, nil
}

// ArtistTopTracks retrieves an artist's top tracks for the market.
func (c *Client) ArtistTopTracks(ctx context.Context, id, country string) ([]track.Track, error) {
	if country == "" {
		country = "US"
	}

	var full []spotify.FullTrack
	err := c.retry(ctx, func() error {
		ts, err := c.client.GetArtistsTopTracks(ctx, spotify.ID(id), country)
		if err != nil {
			return svcerror.Classify(serviceName, err)
		}
		full = ts
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get artist top tracks")
	}

	tracks := make([]track.Track, 0, len(full))
	for i := range full {
		tracks = append(tracks, *convertFullTrack(&full[i]))
	}
	return tracks, nil
}

// RecommendationSeeds describe the seed entities for Recommendations.
// Spotify accepts at most five seeds across all three lists.
type RecommendationSeeds struct {
	ArtistIDs []string
	TrackIDs  []string
	Genres    []string
}

// Recommendations retrieves recommended tracks for the seeds, bounded
// by track duration in seconds.
func (c *Client) Recommendations(ctx context.Context, seeds RecommendationSeeds, minDurationSec, maxDurationSec, limit int) ([]track.Track, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	s := spotify.Seeds{Genres: seeds.Genres}
	for _, id := range seeds.ArtistIDs {
		s.Artists = append(s.Artists, spotify.ID(id))
	}
	for _, id := range seeds.TrackIDs {
		s.Tracks = append(s.Tracks, spotify.ID(id))
	}

	attrs := spotify.NewTrackAttributes()
	if minDurationSec > 0 {
		attrs = attrs.MinDuration(minDurationSec * 1000)
	}
	if maxDurationSec > 0 {
		attrs = attrs.MaxDuration(maxDurationSec * 1000)
	}

	var recs *spotify.Recommendations
	err := c.retry(ctx, func() error {
		r, err := c.client.GetRecommendations(ctx, s, attrs, spotify.Limit(limit))
		if err != nil {
			return svcerror.Classify(serviceName, err)
		}
		recs = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get recommendations")
	}

	tracks := make([]track.Track, 0, len(recs.Tracks))
	for i := range recs.Tracks {
		tracks = append(tracks, *convertSimpleTrack(&recs.Tracks[i]))
	}
	return tracks, nil
}

// CreatePlaylist creates a playlist on the configured account and
// returns its id.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	userID, err := c.CurrentUserID(ctx)
	if err != nil {
		return "", err
	}

	var playlist *spotify.FullPlaylist
	err = c.retry(ctx, func() error {
		p, err := c.client.CreatePlaylistForUser(ctx, userID, name, description, public, false)
		if err != nil {
			return svcerror.Classify(serviceName, err)
		}
		playlist = p
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create playlist")
	}

	return string(playlist.ID), nil
}

// AddTracksToPlaylist adds tracks to a playlist. Inputs can be track
// IDs, URLs, or URIs; batches of at most 100 per request.
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	pid := spotify.ID(extractPlaylistID(playlistID))
	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(extractTrackID(id))
	}

	for i := 0; i < len(ids); i += 100 {
		end := i + 100
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		err := c.retry(ctx, func() error {
			_, err := c.client.AddTracksToPlaylist(ctx, pid, batch...)
			if err != nil {
				return svcerror.Classify(serviceName, err)
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "failed to add tracks to playlist")
		}
	}

	return nil
}

// RemoveTracksFromPlaylist removes tracks from a playlist.
func (c *Client) RemoveTracksFromPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	pid := spotify.ID(extractPlaylistID(playlistID))
	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(extractTrackID(id))
	}

	for i := 0; i < len(ids); i += 100 {
		end := i + 100
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		err := c.retry(ctx, func() error {
			_, err := c.client.RemoveTracksFromPlaylist(ctx, pid, batch...)
			if err != nil {
				return svcerror.Classify(serviceName, err)
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "failed to remove tracks from playlist")
		}
	}

	return nil
}

// PlaylistTracks retrieves all tracks from a playlist, paging through
// the items endpoint.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]track.Track, error) {
	id := extractPlaylistID(playlistID)
	if id == "" {
		return nil, errors.New("invalid playlist id")
	}

	var tracks []track.Track
	offset := 0
	limit := 100

	for {
		var page *spotify.PlaylistItemPage
		err := c.retry(ctx, func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(id),
				spotify.Limit(limit),
				spotify.Offset(offset),
			)
			if err != nil {
				return svcerror.Classify(serviceName, err)
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			// Episodes have no track payload.
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				tracks = append(tracks, *convertFullTrack(item.Track.Track))
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// UnfollowPlaylist removes the playlist from the configured account.
// Spotify has no delete; unfollowing one's own playlist retires it.
func (c *Client) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	id := extractPlaylistID(playlistID)
	err := c.retry(ctx, func() error {
		if err := c.client.UnfollowPlaylist(ctx, spotify.ID(id)); err != nil {
			return svcerror.Classify(serviceName, err)
		}
		return nil
	})
	return errors.Wrap(err, "failed to unfollow playlist")
}

// UploadCoverImage replaces a playlist's cover with the given JPEG.
// The library does not expose this endpoint, so the request is issued
// directly through the authenticated HTTP client.
func (c *Client) UploadCoverImage(ctx context.Context, playlistID string, jpegBase64 []byte) error {
	id := extractPlaylistID(playlistID)
	reqURL := c.apiBaseURL + "playlists/" + id + "/images"

	return c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(jpegBase64))
		if err != nil {
			return errors.Wrap(err, "failed to create request")
		}
		req.Header.Set("Content-Type", "image/jpeg")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return svcerror.Classify(serviceName, err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
			return svcerror.FromStatusCode(serviceName, resp.StatusCode,
				errors.Newf("unexpected status %d", resp.StatusCode))
		}
		return nil
	})
}

// PlaylistURL returns the public URL for a playlist.
func PlaylistURL(playlistID string) string {
	return fmt.Sprintf("https://open.spotify.com/playlist/%s", playlistID)
}

// TrackURL returns the public URL for a track.
func TrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// retry runs fn through the shared rate limiter with retries on
// transient and rate-limit failures.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	return svcerror.Retry(ctx, c.maxRetries, c.retryDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter wait")
		}
		return fn()
	})
}

// convertFullTrack converts a Spotify FullTrack to a domain Track.
func convertFullTrack(t *spotify.FullTrack) *track.Track {
	out := convertSimpleTrack(&t.SimpleTrack)
	if out.ReleaseYear == 0 {
		out.ReleaseYear = releaseYear(t.Album.ReleaseDate)
	}
	return out
}

// convertSimpleTrack converts a Spotify SimpleTrack to a domain Track.
func convertSimpleTrack(t *spotify.SimpleTrack) *track.Track {
	var primary string
	ids := make([]string, 0, len(t.Artists))
	for i, a := range t.Artists {
		if i == 0 {
			primary = a.Name
		}
		ids = append(ids, string(a.ID))
	}

	return &track.Track{
		Name:            t.Name,
		ArtistName:      primary,
		SpotifyURI:      string(t.URI),
		SpotifyURL:      TrackURL(string(t.ID)),
		DurationSeconds: int(t.Duration / 1000),
		ReleaseYear:     releaseYear(t.Album.ReleaseDate),
		ArtistIDs:       ids,
	}
}

// releaseYear parses the leading year of a release date, which may be
// "2006", "2006-01" or "2006-01-02".
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:playlist:") {
		return strings.TrimPrefix(input, "spotify:playlist:")
	}

	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/playlist/") {
		parts := strings.Split(input, "/playlist/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	return input
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	return input
}
