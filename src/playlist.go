package src

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pandatv/src/internal/channelview"
	m3u "pandatv/src/internal/m3u-parser"
	"pandatv/src/internal/playliststore"

	"github.com/avfs/avfs"
	"github.com/avfs/avfs/vfs/osfs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxPlaylistSize caps a downloaded playlist.
const maxPlaylistSize = 64 << 20

// playlistVFS : File system for local playlist sources
var playlistVFS avfs.VFS = osfs.New()

var playlistClient = newPlaylistClient()

// currentPlaylist never returns nil.
func currentPlaylist() *PlaylistSnapshot {
	if p := Data.playlist.Load(); p != nil {
		return p
	}
	return &PlaylistSnapshot{}
}

// setPlaylist publishes p and moves every open session over to it.
func setPlaylist(p *PlaylistSnapshot) {
	Data.playlist.Store(p)
	Data.Sessions.setChannels(p.Channels)
}

func isRemoteSource(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// readPlaylistSource returns the playlist text of a file path or an http(s) URL.
func readPlaylistSource(ctx context.Context, source string) (string, error) {
	if len(source) == 0 {
		return "", errors.New(getErrMsg(4000))
	}

	if !isRemoteSource(source) {
		content, err := playlistVFS.ReadFile(source)
		if fsIsNotExistErr(err) {
			return "", fmt.Errorf("playlist file %s does not exist: %w", source, err)
		}
		return string(content), err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", System.Name+"/"+System.Version)

	resp, err := playlistClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistSize+1))
	if err != nil {
		return "", err
	}
	if len(content) > maxPlaylistSize {
		return "", fmt.Errorf("playlist larger than %d bytes", maxPlaylistSize)
	}

	return string(content), nil
}

// loadPlaylist reads Settings.Playlist, parses it and publishes the result.
//
// A source that cannot be read falls back to the stored copy. Without a stored copy the
// previous playlist of the same source stays active, or an empty one on first load; only then
// an error is returned.
func loadPlaylist(ctx context.Context) (*PlaylistSnapshot, error) {
	var source = Settings.Playlist

	ctx, span := tracer().Start(ctx, "playlist.load", trace.WithAttributes(attribute.String("playlist.source", source)))
	defer span.End()

	var snapshot = &PlaylistSnapshot{Source: source, LoadedAt: time.Now()}

	content, readErr := readPlaylistSource(ctx, source)
	if readErr != nil {
		span.RecordError(readErr)
		showDebug(fmt.Sprintf("Playlist:%s", readErr), 1)

		entry, err := latestStoredPlaylist(ctx, source)
		if err != nil {
			span.SetStatus(codes.Error, readErr.Error())

			var previous = currentPlaylist()
			if previous.Source == source && len(previous.Channels) > 0 {
				kept := *previous
				kept.Err = readErr
				Data.playlist.Store(&kept)
				return &kept, fmt.Errorf("load playlist %s: %w", source, readErr)
			}

			snapshot.Err = readErr
			setPlaylist(snapshot)
			return snapshot, fmt.Errorf("load playlist %s: %w", source, readErr)
		}

		showWarning(4001)
		content = entry.Content
		snapshot.FromStore = true
		snapshot.Err = readErr
		span.SetAttributes(attribute.String("playlist.stored_at", entry.FetchedAt.Format(time.RFC3339)))
	}

	var channels = m3u.Parse(content)
	if len(channels) == 0 {
		showWarning(4003)
	}

	if readErr == nil && len(channels) > 0 && Data.Store != nil {
		if err := Data.Store.Save(ctx, source, content, len(channels)); err != nil {
			ShowError(err, 4004)
		}
	}

	if Data.Artwork != nil {
		var logos = make([]string, len(channels))
		for i := range channels {
			logos[i] = channels[i].Logo
		}
		for i, logo := range Data.Artwork.Resolve(logos) {
			channels[i].Logo = logo
		}
	}

	snapshot.Channels = channels
	snapshot.Categories = channelview.Categories(channels)
	setPlaylist(snapshot)

	span.SetAttributes(
		attribute.Int("playlist.channels", len(channels)),
		attribute.Int("playlist.categories", len(snapshot.Categories)),
		attribute.Bool("playlist.from_store", snapshot.FromStore),
	)

	showInfo(fmt.Sprintf("Channels:%d in %d categories", len(channels), len(snapshot.Categories)))

	if Data.Artwork != nil && Data.Artwork.Queued() > 0 {
		go fetchArtwork(context.WithoutCancel(ctx))
	}

	return snapshot, nil
}

func latestStoredPlaylist(ctx context.Context, source string) (playliststore.Entry, error) {
	if Data.Store == nil {
		return playliststore.Entry{}, playliststore.ErrNotFound
	}
	return Data.Store.Latest(ctx, source)
}

func fetchArtwork(ctx context.Context) {
	ctx, span := tracer().Start(ctx, "artwork.fetch")
	defer span.End()

	fetched, err := Data.Artwork.Fetch(ctx)
	span.SetAttributes(attribute.Int("artwork.fetched", fetched))

	if err != nil {
		span.RecordError(err)
		showDebug(fmt.Sprintf("Artwork:%s", err), 2)
		showWarning(4010)
	}

	if fetched > 0 {
		showInfo(fmt.Sprintf("Artwork:%d images cached", fetched))
	}
}
