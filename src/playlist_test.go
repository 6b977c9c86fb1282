package src

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	m3u "pandatv/src/internal/m3u-parser"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlaylistPath = "/playlists/channels.m3u"

func TestLoadPlaylist_File(t *testing.T) {
	setupTestSystem(t)
	useMemPlaylist(t, testPlaylistPath, testPlaylist(120))
	Settings.Playlist = testPlaylistPath

	snapshot, err := loadPlaylist(context.Background())
	require.NoError(t, err)

	assert.Len(t, snapshot.Channels, 120)
	assert.Equal(t, []string{"Movies", "News", "Sports"}, snapshot.Categories)
	assert.False(t, snapshot.FromStore)
	assert.NoError(t, snapshot.Err)
	assert.Same(t, snapshot, currentPlaylist())

	if diff := cmp.Diff(testChannels(120), snapshot.Channels); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}

	entry, err := Data.Store.Latest(context.Background(), testPlaylistPath)
	require.NoError(t, err)
	assert.Equal(t, 120, entry.Channels)
	assert.Equal(t, testPlaylist(120), entry.Content)
}

func TestLoadPlaylist_URL(t *testing.T) {
	setupTestSystem(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pandatv/1.2.0", r.Header.Get("User-Agent"))
		w.Write([]byte(testPlaylist(10)))
	}))
	defer server.Close()

	Settings.Playlist = server.URL + "/list.m3u"

	snapshot, err := loadPlaylist(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Channels, 10)
	assert.Equal(t, Settings.Playlist, snapshot.Source)
}

func TestLoadPlaylist_URLBadStatus(t *testing.T) {
	setupTestSystem(t)

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	Settings.Playlist = server.URL + "/list.m3u"

	snapshot, err := loadPlaylist(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad status")
	assert.Empty(t, snapshot.Channels)
	assert.Error(t, snapshot.Err)
}

func TestLoadPlaylist_FallsBackToStoredCopy(t *testing.T) {
	setupTestSystem(t)
	vfs := useMemPlaylist(t, testPlaylistPath, testPlaylist(30))
	Settings.Playlist = testPlaylistPath

	_, err := loadPlaylist(context.Background())
	require.NoError(t, err)

	// Start over without a loaded playlist, as after a restart.
	Data.playlist.Store(nil)
	require.NoError(t, vfs.Remove(testPlaylistPath))

	snapshot, err := loadPlaylist(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.FromStore)
	assert.Error(t, snapshot.Err)
	assert.Len(t, snapshot.Channels, 30)
}

func TestLoadPlaylist_KeepsPreviousWithoutStoredCopy(t *testing.T) {
	setupTestSystem(t)
	vfs := useMemPlaylist(t, testPlaylistPath, testPlaylist(30))
	Settings.Playlist = testPlaylistPath

	_, err := loadPlaylist(context.Background())
	require.NoError(t, err)

	require.NoError(t, Data.Store.Delete(context.Background(), testPlaylistPath))
	require.NoError(t, vfs.Remove(testPlaylistPath))

	snapshot, err := loadPlaylist(context.Background())
	require.Error(t, err)
	assert.Len(t, snapshot.Channels, 30)
	assert.False(t, snapshot.FromStore)
	assert.Error(t, snapshot.Err)
	assert.Len(t, currentPlaylist().Channels, 30)
}

func TestLoadPlaylist_FirstLoadFails(t *testing.T) {
	setupTestSystem(t)
	useMemPlaylist(t, "/playlists/other.m3u", testPlaylist(3))
	Settings.Playlist = testPlaylistPath

	snapshot, err := loadPlaylist(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Empty(t, snapshot.Channels)
	assert.Empty(t, snapshot.Categories)
	assert.NotNil(t, currentPlaylist())
}

func TestLoadPlaylist_NoChannelsIsNotStored(t *testing.T) {
	setupTestSystem(t)
	useMemPlaylist(t, testPlaylistPath, "#EXTM3U\n# nothing here\n")
	Settings.Playlist = testPlaylistPath

	snapshot, err := loadPlaylist(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.Channels)
	assert.NotNil(t, snapshot.Channels)

	_, err = Data.Store.Latest(context.Background(), testPlaylistPath)
	assert.Error(t, err)
}

func TestLoadPlaylist_WithoutStore(t *testing.T) {
	setupTestSystem(t)
	Data.Store = nil
	useMemPlaylist(t, testPlaylistPath, testPlaylist(5))
	Settings.Playlist = testPlaylistPath

	snapshot, err := loadPlaylist(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Channels, 5)
}

func TestLoadPlaylist_EmptyLogoGetsDefault(t *testing.T) {
	setupTestSystem(t)
	useMemPlaylist(t, testPlaylistPath, "#EXTM3U\n#EXTINF:-1 tvg-id=\"a\" tvg-logo=\"\",A\nhttp://stream/a\n")
	Settings.Playlist = testPlaylistPath

	snapshot, err := loadPlaylist(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Channels, 1)
	assert.Equal(t, m3u.DefaultLogo, snapshot.Channels[0].Logo)
}

func TestIsRemoteSource(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"http://example.com/list.m3u", true},
		{"https://example.com/list.m3u", true},
		{"/home/user/list.m3u", false},
		{"list.m3u", false},
		{"ftp://example.com/list.m3u", false},
		{`C:\lists\tv.m3u`, false},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, isRemoteSource(tt.source))
		})
	}
}

func TestCurrentPlaylist_NeverNil(t *testing.T) {
	setupTestSystem(t)

	var p = currentPlaylist()
	require.NotNil(t, p)
	assert.Empty(t, p.Channels)
}
