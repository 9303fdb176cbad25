// Package playlist materializes generated playlists on the streaming
// service and keeps the persisted records in step.
package playlist

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/niche-app/niche/internal/app/request"
	"github.com/niche-app/niche/internal/domain/track"
	"github.com/niche-app/niche/internal/infra/mongodb"
	"github.com/niche-app/niche/internal/infra/spotify"
)

// Description is the public blurb on every generated playlist.
const Description = "Courtesy of the niche app :) (http://niche-app.net)"

// Name returns the public playlist name for a genre.
func Name(genre string) string {
	return "Niche " + genre + " Songs"
}

// StreamingService is the slice of the streaming adapter the playlist
// lifecycle needs.
type StreamingService interface {
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
	RemoveTracksFromPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
	UnfollowPlaylist(ctx context.Context, playlistID string) error
	UploadCoverImage(ctx context.Context, playlistID string, jpegBase64 []byte) error
}

type playlistStore interface {
	Create(ctx context.Context, doc mongodb.PlaylistDoc) (primitive.ObjectID, error)
	ByID(ctx context.Context, id primitive.ObjectID) (*mongodb.PlaylistDoc, error)
	IncLength(ctx context.Context, id primitive.ObjectID, delta int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type requestStore interface {
	SetPlaylist(ctx context.Context, id, playlistID primitive.ObjectID) error
	ClearPlaylist(ctx context.Context, playlistID primitive.ObjectID) error
}

// Playlist is a materialized playlist handle.
type Playlist struct {
	OID       primitive.ObjectID
	SpotifyID string
	URL       string
	Name      string
	Length    int
}

// Service runs the playlist lifecycle.
type Service struct {
	streaming StreamingService
	playlists playlistStore
	requests  requestStore
	cover     []byte
}

// New creates a playlist service. cover is the raw JPEG used as the
// playlist image; nil skips the upload.
func New(streaming StreamingService, playlists playlistStore, requests requestStore, cover []byte) *Service {
	return &Service{
		streaming: streaming,
		playlists: playlists,
		requests:  requests,
		cover:     cover,
	}
}

// Create materializes the tracks as a streaming playlist with the
// request's visibility, persists the record, and links it back to the
// request. The cover upload is best effort: a failure is logged, not
// fatal.
func (s *Service) Create(ctx context.Context, tracks []track.NicheTrack, req *request.Request, minutesToGenerate float64) (*Playlist, error) {
	if len(tracks) == 0 {
		return nil, errors.New("refusing to create an empty playlist")
	}

	name := Name(req.Params.Genre)
	spotifyID, err := s.streaming.CreatePlaylist(ctx, name, Description, req.Params.Public)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create streaming playlist")
	}

	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		uris = append(uris, t.SpotifyURI)
	}
	if err := s.streaming.AddTracksToPlaylist(ctx, spotifyID, uris); err != nil {
		return nil, errors.Wrap(err, "failed to add tracks to playlist")
	}

	if len(s.cover) > 0 {
		encoded := []byte(base64.StdEncoding.EncodeToString(s.cover))
		if err := s.streaming.UploadCoverImage(ctx, spotifyID, encoded); err != nil {
			zlog.Warn().Err(err).Msg("cover image upload failed")
		}
	}

	url := spotify.PlaylistURL(spotifyID)
	now := time.Now().UTC()
	oid, err := s.playlists.Create(ctx, mongodb.PlaylistDoc{
		User:               req.User,
		Name:               name,
		Request:            req.ID,
		Link:               url,
		GeneratedLength:    len(tracks),
		TimeToGenerateMins: minutesToGenerate,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist playlist")
	}

	if err := s.requests.SetPlaylist(ctx, req.ID, oid); err != nil {
		return nil, errors.Wrap(err, "failed to link playlist to request")
	}

	return &Playlist{
		OID:       oid,
		SpotifyID: spotifyID,
		URL:       url,
		Name:      name,
		Length:    len(tracks),
	}, nil
}

// AddTrack appends one track to an existing playlist on the streaming
// side and bumps the recorded length.
func (s *Service) AddTrack(ctx context.Context, oid primitive.ObjectID, uri string) error {
	doc, err := s.playlists.ByID(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.streaming.AddTracksToPlaylist(ctx, doc.Link, []string{uri}); err != nil {
		return errors.Wrap(err, "failed to add track to playlist")
	}
	return s.playlists.IncLength(ctx, oid, 1)
}

// RemoveTrack drops one track from an existing playlist on the
// streaming side and lowers the recorded length.
func (s *Service) RemoveTrack(ctx context.Context, oid primitive.ObjectID, uri string) error {
	doc, err := s.playlists.ByID(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.streaming.RemoveTracksFromPlaylist(ctx, doc.Link, []string{uri}); err != nil {
		return errors.Wrap(err, "failed to remove track from playlist")
	}
	return s.playlists.IncLength(ctx, oid, -1)
}

// Delete retires a playlist: unfollows it on the streaming service,
// clears the request link, and removes the record.
func (s *Service) Delete(ctx context.Context, oid primitive.ObjectID) error {
	doc, err := s.playlists.ByID(ctx, oid)
	if err != nil {
		return err
	}

	if err := s.streaming.UnfollowPlaylist(ctx, doc.Link); err != nil {
		return errors.Wrap(err, "failed to unfollow streaming playlist")
	}
	if err := s.requests.ClearPlaylist(ctx, oid); err != nil {
		return err
	}
	return s.playlists.Delete(ctx, oid)
}
