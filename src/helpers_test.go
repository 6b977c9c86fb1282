package src

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pandatv/src/internal/artwork"
	"pandatv/src/internal/channelview"
	m3u "pandatv/src/internal/m3u-parser"
	"pandatv/src/internal/playliststore"

	"github.com/avfs/avfs"
	"github.com/avfs/avfs/vfs/memfs"
	"github.com/stretchr/testify/require"
)

// setupTestSystem points the globals at a temporary config folder with an open store and
// restores them when the test ends.
func setupTestSystem(t *testing.T) {
	t.Helper()

	var oldSystem, oldSettings = System, Settings
	var oldVFS = playlistVFS

	var dir = t.TempDir()

	System = SystemStruct{}
	System.Name = "pandatv"
	System.AppName = "pandatv"
	System.Version = "1.2.0"
	System.Build = "7"
	System.APIVersion = "1.0.0"
	System.StartedAt = time.Now()
	System.URLBase = "http://127.0.0.1:34400"
	System.Folder.Config = dir + string(os.PathSeparator)
	System.Folder.ImagesCache = filepath.Join(dir, "cache", "images") + string(os.PathSeparator)
	System.Folder.Store = filepath.Join(dir, "store") + string(os.PathSeparator)
	System.File.Settings = filepath.Join(dir, "settings.json")

	Settings = SettingsStruct{
		Port:          "34400",
		PageSize:      channelview.DefaultPageSize,
		RevealDelayMs: 0,
		LogEntriesRAM: 100,
	}

	store, err := playliststore.Open(System.Folder.Store)
	require.NoError(t, err)
	Data.Store = store

	Data.Artwork, err = artwork.New(memfs.New(), "/cache", "/images/", false, nil)
	require.NoError(t, err)

	Data.playlist.Store(nil)

	t.Cleanup(func() {
		store.Close()
		Data.Store = nil
		Data.Artwork = nil
		Data.playlist.Store(nil)
		System, Settings = oldSystem, oldSettings
		playlistVFS = oldVFS
	})
}

// testChannels returns n channels spread round-robin over Sports, News and Movies. Every third
// stream is HLS.
func testChannels(n int) []m3u.Channel {
	var groups = []string{"Sports", "News", "Movies"}
	var channels = make([]m3u.Channel, 0, n)

	for i := 0; i < n; i++ {
		var url = fmt.Sprintf("http://stream.example/%d.ts", i)
		if i%3 == 1 {
			url = fmt.Sprintf("http://stream.example/%d/index.m3u8", i)
		}

		channels = append(channels, m3u.Channel{
			ID:    fmt.Sprintf("ch%d", i),
			Name:  fmt.Sprintf("Channel %03d", i),
			Logo:  m3u.DefaultLogo,
			Group: groups[i%len(groups)],
			URL:   url,
		})
	}
	return channels
}

// testPlaylist renders n channels the way testChannels describes them as M3U text.
func testPlaylist(n int) string {
	var text = "#EXTM3U\n"
	for _, c := range testChannels(n) {
		text += fmt.Sprintf("#EXTINF:-1 tvg-id=\"%s\" group-title=\"%s\",%s\n%s\n", c.ID, c.Group, c.Name, c.URL)
	}
	return text
}

func publishTestChannels(n int) {
	var channels = testChannels(n)
	setPlaylist(&PlaylistSnapshot{
		Source:     "test.m3u",
		Channels:   channels,
		Categories: channelview.Categories(channels),
		LoadedAt:   time.Now(),
	})
}

// useMemPlaylist swaps the playlist file system for an in-memory one holding path.
func useMemPlaylist(t *testing.T, path, content string) avfs.VFS {
	t.Helper()

	var vfs = memfs.New()
	require.NoError(t, vfs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, vfs.WriteFile(path, []byte(content), 0644))
	playlistVFS = vfs
	return vfs
}
