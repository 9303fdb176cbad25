// Package main provides the niche playlist CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/niche-app/niche/internal/app/finder"
	"github.com/niche-app/niche/internal/app/genre"
	"github.com/niche-app/niche/internal/app/playlist"
	"github.com/niche-app/niche/internal/app/request"
	"github.com/niche-app/niche/internal/domain/music"
	"github.com/niche-app/niche/internal/infra/config"
	"github.com/niche-app/niche/internal/infra/lastfm"
	"github.com/niche-app/niche/internal/infra/logger"
	"github.com/niche-app/niche/internal/infra/mongodb"
	"github.com/niche-app/niche/internal/infra/musicbrainz"
	"github.com/niche-app/niche/internal/infra/spotify"
)

var (
	app        = kingpin.New("nichectl", "Niche playlist generator")
	configPath = app.Flag("config", "Path to config file").Default("config/config.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()

	// generate command
	generateCmd   = app.Command("generate", "Generate a niche playlist")
	genGenre      = generateCmd.Arg("genre", "Genre to generate for").Required().String()
	genLanguage   = generateCmd.Flag("language", "Required singing language (Any, English)").Default("Any").String()
	genNicheLevel = generateCmd.Flag("niche-level", "How obscure the artists should be (Very, Moderately, Only Kinda)").Default("Very").String()
	genMinYear    = generateCmd.Flag("min-year", "Earliest permitted release year (0 disables the check)").Default("0").Int()
	genMinSecs    = generateCmd.Flag("min-seconds", "Shortest permitted track length").Default("120").Int()
	genMaxSecs    = generateCmd.Flag("max-seconds", "Longest permitted track length").Default("360").Int()
	genPublic     = generateCmd.Flag("public", "Make the generated playlist public").Default("true").Bool()
	genForce      = generateCmd.Flag("force", "Skip the artist pool size estimate").Bool()

	// genres command
	genresCmd = app.Command("genres", "List supported genres")

	// count-check command
	countCheckCmd   = app.Command("count-check", "Estimate whether a genre's artist pool can fill a playlist")
	countGenre      = countCheckCmd.Arg("genre", "Genre to check").Required().String()
	countLanguage   = countCheckCmd.Flag("language", "Required singing language").Default("Any").String()
	countNicheLevel = countCheckCmd.Flag("niche-level", "How obscure the artists should be").Default("Very").String()

	// delete-playlist command
	deleteCmd = app.Command("delete-playlist", "Delete a generated playlist and unlink its request")
	deleteID  = deleteCmd.Arg("playlist-id", "Playlist record id (hex)").Required().String()

	// add-track command
	addTrackCmd      = app.Command("add-track", "Append a track to a generated playlist")
	addTrackPlaylist = addTrackCmd.Arg("playlist-id", "Playlist record id (hex)").Required().String()
	addTrackURI      = addTrackCmd.Arg("track", "Track id, URL, or URI").Required().String()

	// remove-track command
	removeTrackCmd      = app.Command("remove-track", "Remove a track from a generated playlist")
	removeTrackPlaylist = removeTrackCmd.Arg("playlist-id", "Playlist record id (hex)").Required().String()
	removeTrackURI      = removeTrackCmd.Arg("track", "Track id, URL, or URI").Required().String()

	// list-playlists command
	listCmd = app.Command("list-playlists", "List the acting account's generated playlists").Alias("list")

	// top-tracks command
	topTracksCmd    = app.Command("top-tracks", "Show an artist's top streaming tracks")
	topTracksArtist = topTracksCmd.Arg("artist-id", "Streaming artist id").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	catalog, err := genre.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// The genres command needs no config or connections.
	if command == genresCmd.FullCommand() {
		printGenres(catalog)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output: cfg.Logger.Output,
		Level:  cfg.Logger.Level,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	if err := run(command, cfg, catalog); err != nil {
		zlog.Error().Msgf("Command failed: %v", err)
		os.Exit(1)
	}
}

// run wires the services and dispatches the command. A separate
// function ensures the deferred database close runs on every path.
func run(command string, cfg *config.Config, catalog *genre.Catalog) error {
	ctx := context.Background()

	db, err := mongodb.New(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return errors.Wrap(err, "failed to connect to mongodb")
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			zlog.Warn().Err(err).Msg("failed to close mongodb connection")
		}
	}()

	spotifyClient, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create spotify client")
	}

	lastfmClient, err := lastfm.New(lastfm.Config{APIKey: cfg.LastFM.APIKey})
	if err != nil {
		return errors.Wrap(err, "failed to create lastfm client")
	}

	mbClient, err := musicbrainz.New(musicbrainz.Config{
		AppName:    cfg.MusicBrainz.AppName,
		AppVersion: cfg.MusicBrainz.AppVersion,
		Contact:    cfg.MusicBrainz.Contact,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create musicbrainz client")
	}

	requests := request.New(db.Requests(), catalog, cfg.BandsFor)

	var cover []byte
	if cfg.Finder.CoverImagePath != "" {
		cover, err = os.ReadFile(cfg.Finder.CoverImagePath)
		if err != nil {
			return errors.Wrap(err, "failed to read cover image")
		}
	}
	playlists := playlist.New(spotifyClient, db.Playlists(), db.Requests(), cover)

	trackFinder := finder.New(finder.Config{
		Artists:    db.Artists(),
		Scrobble:   lastfmClient,
		Metadata:   mbClient,
		Streaming:  spotifyClient,
		Requests:   requests,
		CacheStore: db.Cache(),
		Catalog:    catalog,
	})

	switch command {
	case generateCmd.FullCommand():
		return generate(ctx, db, spotifyClient, requests, trackFinder, playlists)
	case countCheckCmd.FullCommand():
		return countCheck(ctx, db, spotifyClient, requests, trackFinder)
	case deleteCmd.FullCommand():
		return deletePlaylist(ctx, playlists)
	case addTrackCmd.FullCommand():
		return editPlaylist(ctx, playlists.AddTrack, *addTrackPlaylist, *addTrackURI)
	case removeTrackCmd.FullCommand():
		return editPlaylist(ctx, playlists.RemoveTrack, *removeTrackPlaylist, *removeTrackURI)
	case listCmd.FullCommand():
		return listPlaylists(ctx, db, spotifyClient)
	case topTracksCmd.FullCommand():
		return printTopTracks(ctx, spotifyClient)
	}
	return nil
}

// generate runs the full pipeline: resolve the acting user, persist the
// request, find tracks, and materialize the playlist.
func generate(ctx context.Context, db *mongodb.DB, spotifyClient *spotify.Client, requests *request.Service, trackFinder *finder.Finder, playlists *playlist.Service) error {
	started := time.Now()
	runID := uuid.New().String()
	zlog.Info().Str("run_id", runID).Msgf("Generating playlist for genre %q", *genGenre)

	req, err := createRequest(ctx, db, spotifyClient, requests, request.Params{
		MinReleaseYear:  *genMinYear,
		MinTrackSeconds: *genMinSecs,
		MaxTrackSeconds: *genMaxSecs,
		Language:        music.Language(*genLanguage),
		Genre:           *genGenre,
		NicheLevel:      music.NicheLevel(*genNicheLevel),
		Public:          *genPublic,
	})
	if err != nil {
		return err
	}

	if !*genForce {
		under, err := trackFinder.LikelyUnderCount(ctx, req)
		if err != nil {
			return err
		}
		if under {
			return errors.Newf(
				"genre %q likely has too few catalogued artists to fill a playlist (use --force to try anyway)",
				*genGenre)
		}
	}

	tracks, err := trackFinder.FindNicheTracks(ctx, req)
	if err != nil {
		if errors.Is(err, finder.ErrNotEnoughSongs) {
			return errors.Newf("could not find enough valid songs for genre %q", *genGenre)
		}
		return err
	}

	minutes := time.Since(started).Minutes()
	created, err := playlists.Create(ctx, tracks, req, minutes)
	if err != nil {
		return err
	}

	zlog.Info().Msgf("Generated playlist %q with %d tracks in %.1f minutes", created.Name, created.Length, minutes)
	fmt.Printf("\n%s\n  %d tracks\n  %s\n", created.Name, created.Length, created.URL)
	return nil
}

// countCheck reports the pool size estimate without generating.
func countCheck(ctx context.Context, db *mongodb.DB, spotifyClient *spotify.Client, requests *request.Service, trackFinder *finder.Finder) error {
	req, err := createRequest(ctx, db, spotifyClient, requests, request.Params{
		MinTrackSeconds: 120,
		MaxTrackSeconds: 360,
		Language:        music.Language(*countLanguage),
		Genre:           *countGenre,
		NicheLevel:      music.NicheLevel(*countNicheLevel),
	})
	if err != nil {
		return err
	}

	under, err := trackFinder.LikelyUnderCount(ctx, req)
	if err != nil {
		return err
	}
	if under {
		fmt.Printf("Genre %q likely has too few catalogued artists to fill a playlist\n", *countGenre)
	} else {
		fmt.Printf("Genre %q looks viable\n", *countGenre)
	}
	return nil
}

func deletePlaylist(ctx context.Context, playlists *playlist.Service) error {
	oid, err := primitive.ObjectIDFromHex(*deleteID)
	if err != nil {
		return errors.Wrapf(err, "invalid playlist id %q", *deleteID)
	}
	if err := playlists.Delete(ctx, oid); err != nil {
		return err
	}
	fmt.Println("Playlist deleted")
	return nil
}

// createRequest registers the acting Spotify account and persists a
// request for it.
func createRequest(ctx context.Context, db *mongodb.DB, spotifyClient *spotify.Client, requests *request.Service, params request.Params) (*request.Request, error) {
	spotifyID, displayName, err := spotifyClient.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := db.Users().UpsertBySpotifyID(ctx, spotifyID, displayName)
	if err != nil {
		return nil, err
	}

	req, err := requests.Create(ctx, userID, params)
	if err != nil {
		if errors.Is(err, request.ErrValidation) {
			return nil, errors.Wrap(err, "invalid parameters")
		}
		return nil, err
	}
	return req, nil
}

// editPlaylist applies one add or remove operation to a persisted
// playlist record.
func editPlaylist(ctx context.Context, op func(context.Context, primitive.ObjectID, string) error, playlistID, uri string) error {
	oid, err := primitive.ObjectIDFromHex(playlistID)
	if err != nil {
		return errors.Wrapf(err, "invalid playlist id %q", playlistID)
	}
	if err := op(ctx, oid, uri); err != nil {
		return err
	}
	fmt.Println("Playlist updated")
	return nil
}

func listPlaylists(ctx context.Context, db *mongodb.DB, spotifyClient *spotify.Client) error {
	spotifyID, _, err := spotifyClient.CurrentUser(ctx)
	if err != nil {
		return err
	}
	user, err := db.Users().BySpotifyID(ctx, spotifyID)
	if err != nil {
		return errors.Wrap(err, "no playlists generated for this account yet")
	}

	docs, err := db.Playlists().ByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Playlists (%d):\n", len(docs))
	for _, doc := range docs {
		fmt.Printf("  %s  %-30s %3d tracks  %s\n", doc.ID.Hex(), doc.Name, doc.GeneratedLength, doc.Link)
	}
	return nil
}

func printTopTracks(ctx context.Context, spotifyClient *spotify.Client) error {
	tracks, err := spotifyClient.ArtistTopTracks(ctx, *topTracksArtist, "")
	if err != nil {
		return err
	}
	for _, t := range tracks {
		fmt.Printf("  %-40s %3ds  %s\n", t.Name, t.DurationSeconds, t.SpotifyURL)
	}
	return nil
}

func printGenres(catalog *genre.Catalog) {
	fmt.Println("Supported genres:")
	for _, name := range catalog.AllSupported() {
		fmt.Printf("  %s\n", name)
	}
}
