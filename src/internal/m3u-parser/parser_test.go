package m3u

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="bbc1" tvg-name="BBC One" group-title="News",BBC One
http://stream/bbc1
#EXTINF:-1 CUID="cu-42" tvg-name="Sky Sports" tvg-logo="http://img/sky.png" group-title="Sports" tvg-chno="401",Sky Sports
http://stream/sky
#EXTINF:-1,No Attributes
  http://stream/plain
`

func TestParse(t *testing.T) {
	channels := Parse(samplePlaylist)
	require.Len(t, channels, 3)

	tests := []struct {
		name  string
		index int
		want  Channel
	}{
		{
			name:  "guide id and defaults",
			index: 0,
			want: Channel{
				ID:    "bbc1",
				Name:  "BBC One",
				Logo:  DefaultLogo,
				Group: "News",
				URL:   "http://stream/bbc1",
			},
		},
		{
			name:  "unique content id with every attribute",
			index: 1,
			want: Channel{
				ID:            "cu-42",
				CUID:          "cu-42",
				Name:          "Sky Sports",
				Logo:          "http://img/sky.png",
				Group:         "Sports",
				URL:           "http://stream/sky",
				ChannelNumber: "401",
			},
		},
		{
			name:  "synthetic id from line index and trimmed url",
			index: 2,
			want: Channel{
				ID:    "channel-5",
				Name:  DefaultName,
				Logo:  DefaultLogo,
				Group: DefaultGroup,
				URL:   "http://stream/plain",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, channels[tt.index])
		})
	}
}

func TestParse_IdentifierPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{
			name:   "tvg-id beats CUID",
			input:  "#EXTINF:-1 CUID=\"c1\" tvg-id=\"g1\",X\nhttp://x",
			wantID: "g1",
		},
		{
			name:   "CUID when tvg-id is missing",
			input:  "#EXTINF:-1 CUID=\"c1\",X\nhttp://x",
			wantID: "c1",
		},
		{
			name:   "CUID when tvg-id is empty",
			input:  "#EXTINF:-1 tvg-id=\"\" CUID=\"c1\",X\nhttp://x",
			wantID: "c1",
		},
		{
			name:   "fallback uses the raw line index",
			input:  "#EXTM3U\n\n\n#EXTINF:-1,X\nhttp://x",
			wantID: "channel-3",
		},
		{
			name:   "fallback when both are empty",
			input:  "#EXTINF:-1 tvg-id=\"\" CUID=\"\",X\nhttp://x",
			wantID: "channel-0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channels := Parse(tt.input)
			require.Len(t, channels, 1)
			assert.Equal(t, tt.wantID, channels[0].ID)
		})
	}
}

func TestParse_SkipsIncompleteEntries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantURLs []string
	}{
		{
			name:     "metadata followed by metadata",
			input:    "#EXTINF:-1 tvg-id=\"a\",A\n#EXTINF:-1 tvg-id=\"b\",B\nhttp://x",
			wantURLs: []string{"http://x"},
		},
		{
			name:     "metadata followed by a comment",
			input:    "#EXTINF:-1,A\n#EXTVLCOPT:http-user-agent=foo\nhttp://x\n#EXTINF:-1,B\nhttp://y",
			wantURLs: []string{"http://y"},
		},
		{
			name:     "metadata followed by an indented comment",
			input:    "#EXTINF:-1,A\n  #x\n#EXTINF:-1,B\n\t http://y ",
			wantURLs: []string{"http://y"},
		},
		{
			name:     "metadata on the last line",
			input:    "#EXTINF:-1,A\nhttp://x\n#EXTINF:-1,B",
			wantURLs: []string{"http://x"},
		},
		{
			name:     "metadata followed by a blank line",
			input:    "#EXTINF:-1,A\n\nhttp://x\n#EXTINF:-1,B\n\r\n",
			wantURLs: []string{},
		},
		{
			name:     "garbage between entries",
			input:    "random text\n#EXTINF\n#EXTINF:\u0000\x01\"\"\"\nhttp://garbage\n###\n#EXTINF:-1 tvg-id=\"ok\",OK\nhttp://ok",
			wantURLs: []string{"http://garbage", "http://ok"},
		},
		{
			name:     "windows line endings",
			input:    "#EXTM3U\r\n#EXTINF:-1 tvg-id=\"w\",W\r\nhttp://w\r\n",
			wantURLs: []string{"http://w"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var urls = []string{}
			for _, c := range Parse(tt.input) {
				urls = append(urls, c.URL)
			}
			assert.Equal(t, tt.wantURLs, urls)
		})
	}
}

func TestParse_SecondBlockWins(t *testing.T) {
	channels := Parse("#EXTINF:...\n#EXTINF:...\nhttp://x")
	require.Len(t, channels, 1)
	assert.Equal(t, "channel-1", channels[0].ID)
	assert.Equal(t, "http://x", channels[0].URL)
}

func TestParse_WindowsLineEndingsKeepValuesClean(t *testing.T) {
	channels := Parse("#EXTINF:-1 tvg-id=\"w\" group-title=\"News\",W\r\nhttp://w\r\n")
	require.Len(t, channels, 1)
	assert.Equal(t, "w", channels[0].ID)
	assert.Equal(t, "News", channels[0].Group)
	assert.Equal(t, "http://w", channels[0].URL)
}

func TestParse_EmptyAttributeKeepsEmptyValue(t *testing.T) {
	channels := Parse("#EXTINF:-1 tvg-name=\"\" group-title=\"\" tvg-logo=\"\",X\nhttp://x")
	require.Len(t, channels, 1)
	assert.Equal(t, "", channels[0].Name)
	assert.Equal(t, "", channels[0].Group)
	assert.Equal(t, "", channels[0].Logo)
}

func TestParse_URLIsVerbatim(t *testing.T) {
	channels := Parse("#EXTINF:-1,X\n  rtmp://host/live?a=%20b&c=d  ")
	require.Len(t, channels, 1)
	assert.Equal(t, "rtmp://host/live?a=%20b&c=d", channels[0].URL)
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("#EXTM3U\n"))
	assert.NotNil(t, Parse(""))
}

func TestParse_Idempotent(t *testing.T) {
	assert.Equal(t, Parse(samplePlaylist), Parse(samplePlaylist))
}

func TestParse_ConcurrentUse(t *testing.T) {
	var done = make(chan []Channel)
	for i := 0; i < 8; i++ {
		go func() { done <- Parse(samplePlaylist) }()
	}

	want := Parse(samplePlaylist)
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestParseReader(t *testing.T) {
	channels, err := ParseReader(strings.NewReader(samplePlaylist))
	require.NoError(t, err)
	assert.Equal(t, Parse(samplePlaylist), channels)

	_, err = ParseReader(failingReader{})
	assert.EqualError(t, err, "disk on fire")
}
