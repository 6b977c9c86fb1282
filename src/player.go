package src

import (
	"strings"

	m3u "pandatv/src/internal/m3u-parser"

	"github.com/samber/lo"
)

// Playback kinds. The browser uses its adaptive player for hls and a plain media element
// otherwise.
const (
	PlaybackHLS    = "hls"
	PlaybackDirect = "direct"
)

func playbackKind(streamURL string) string {
	if strings.Contains(streamURL, ".m3u8") || strings.Contains(streamURL, "HLSPlaylist") {
		return PlaybackHLS
	}
	return PlaybackDirect
}

func newPlayback(channel m3u.Channel) PlaybackStruct {
	return PlaybackStruct{
		ID:    channel.ID,
		Name:  channel.Name,
		Group: channel.Group,
		Logo:  channel.Logo,
		URL:   channel.URL,
		Kind:  playbackKind(channel.URL),
	}
}

// findChannel returns the first channel with id. IDs are not guaranteed to be unique.
func findChannel(channels []m3u.Channel, id string) (m3u.Channel, bool) {
	return lo.Find(channels, func(c m3u.Channel) bool {
		return c.ID == id
	})
}
