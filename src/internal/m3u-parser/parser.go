package m3u

import (
	"io"
	"strconv"
	"strings"
)

// ExtInf marks a metadata line. The line after it carries the stream URL.
const ExtInf = "#EXTINF:"

// Defaults for attributes missing from the metadata line.
const (
	DefaultName  = "Unknown Channel"
	DefaultLogo  = "/app_logo.png"
	DefaultGroup = "Other"
)

// Attribute keys read from an EXTINF line.
const (
	attrCUID    = "CUID"
	attrTvgID   = "tvg-id"
	attrTvgName = "tvg-name"
	attrTvgLogo = "tvg-logo"
	attrGroup   = "group-title"
	attrTvgChno = "tvg-chno"
)

// Channel is one playable playlist entry.
type Channel struct {
	ID            string `json:"id"`
	CUID          string `json:"cuid,omitempty"`
	Name          string `json:"name"`
	Logo          string `json:"logo"`
	Group         string `json:"group"`
	URL           string `json:"url"`
	ChannelNumber string `json:"tvg_chno,omitempty"`
}

// Parse turns playlist text into channels, in playlist order.
//
// An EXTINF line produces a channel only when the next line exists, is not blank and is not a
// comment. Everything else is skipped, so Parse never fails.
func Parse(text string) []Channel {
	var lines = strings.Split(text, "\n")
	var channels = make([]Channel, 0, len(lines)/2)

	for i, line := range lines {
		if !strings.HasPrefix(line, ExtInf) || i+1 >= len(lines) {
			continue
		}

		var url = strings.TrimSpace(lines[i+1])
		if len(url) == 0 || strings.HasPrefix(url, "#") {
			continue
		}

		channels = append(channels, newChannel(strings.TrimRight(line, "\r"), url, i))
	}

	return channels
}

// ParseReader reads r to the end and parses it. The only error is the one returned by r.
func ParseReader(r io.Reader) ([]Channel, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(string(content)), nil
}

func newChannel(info, url string, index int) Channel {
	var attrs = Attributes(info)

	var channel = Channel{
		CUID:          attrs[attrCUID],
		Name:          lookup(attrs, attrTvgName, DefaultName),
		Logo:          lookup(attrs, attrTvgLogo, DefaultLogo),
		Group:         lookup(attrs, attrGroup, DefaultGroup),
		URL:           url,
		ChannelNumber: attrs[attrTvgChno],
	}

	switch {
	case len(attrs[attrTvgID]) > 0:
		channel.ID = attrs[attrTvgID]
	case len(channel.CUID) > 0:
		channel.ID = channel.CUID
	default:
		// Line index, not entry index: blank lines shift it.
		channel.ID = "channel-" + strconv.Itoa(index)
	}

	return channel
}

// lookup returns def only when the key is absent. A present empty value is kept.
func lookup(attrs map[string]string, key, def string) string {
	if v, ok := attrs[key]; ok {
		return v
	}
	return def
}
