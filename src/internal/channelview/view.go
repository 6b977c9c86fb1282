// Package channelview derives the visible channel grid from a parsed playlist: the category list,
// the category and search filter, and the page-by-page window over the result.
package channelview

import (
	"slices"
	"strings"

	m3u "pandatv/src/internal/m3u-parser"

	"github.com/samber/lo"
)

// AllCategory is the pseudo-category that matches every channel.
const AllCategory = "All"

// DefaultPageSize is the number of channels revealed per page.
const DefaultPageSize = 50

// Categories returns the distinct non-empty groups, sorted byte-wise. AllCategory is never
// part of the result, even when a playlist uses it as a group name.
func Categories(channels []m3u.Channel) []string {
	var groups = lo.Uniq(lo.FilterMap(channels, func(c m3u.Channel, _ int) (string, bool) {
		return c.Group, len(c.Group) > 0 && c.Group != AllCategory
	}))

	slices.Sort(groups)
	return groups
}

// Filter keeps the channels in category whose name or group contains query, ignoring case.
// Input order is preserved.
func Filter(channels []m3u.Channel, category, query string) []m3u.Channel {
	var q = strings.ToLower(strings.TrimSpace(query))

	return lo.Filter(channels, func(c m3u.Channel, _ int) bool {
		if category != AllCategory && c.Group != category {
			return false
		}
		if len(q) == 0 {
			return true
		}
		return strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Group), q)
	})
}

// Page returns the first pageSize*pages channels of filtered.
func Page(filtered []m3u.Channel, pageSize, pages int) []m3u.Channel {
	if pageSize <= 0 || pages <= 0 {
		return filtered[:0:0]
	}

	var n = len(filtered)
	// Compare by division so a huge page count cannot overflow.
	if pages <= n/pageSize {
		n = pageSize * pages
	}

	return filtered[:n:n]
}

// HasMore reports whether window leaves part of filtered unrevealed.
func HasMore(filtered, window []m3u.Channel) bool {
	return len(window) < len(filtered)
}
