package channelview

import m3u "pandatv/src/internal/m3u-parser"

// State is the caller-owned browsing position. It is a value: every transition returns a new
// State and leaves the receiver untouched.
type State struct {
	Category string `json:"category"`
	Query    string `json:"query"`
	Pages    int    `json:"pages"`
}

// View is everything the grid needs to draw one frame.
type View struct {
	Categories []string      `json:"categories"`
	Channels   []m3u.Channel `json:"channels"`
	Shown      int           `json:"shown"`
	Total      int           `json:"total"`
	HasMore    bool          `json:"hasMore"`
	Category   string        `json:"category"`
	Query      string        `json:"query"`
	Pages      int           `json:"pages"`
}

// NewState shows the first page of every channel.
func NewState() State {
	return State{Category: AllCategory, Pages: 1}
}

// SelectCategory switches the category. Paging restarts only if the category actually changed.
func (s State) SelectCategory(category string) State {
	if category == s.Category {
		return s
	}
	return State{Category: category, Query: s.Query, Pages: 1}
}

// Search sets the search text. Paging restarts only if the text actually changed.
func (s State) Search(query string) State {
	if query == s.Query {
		return s
	}
	return State{Category: s.Category, Query: query, Pages: 1}
}

// RevealMore adds a page when channels still has unrevealed matches. The bool reports whether
// the state changed.
func (s State) RevealMore(channels []m3u.Channel, pageSize int) (State, bool) {
	var filtered = Filter(channels, s.Category, s.Query)
	if !HasMore(filtered, Page(filtered, pageSize, s.Pages)) {
		return s, false
	}

	s.Pages++
	return s, true
}

// Render computes the view for s.
func Render(channels []m3u.Channel, s State, pageSize int) View {
	var filtered = Filter(channels, s.Category, s.Query)
	var window = Page(filtered, pageSize, s.Pages)

	return View{
		Categories: Categories(channels),
		Channels:   window,
		Shown:      len(window),
		Total:      len(filtered),
		HasMore:    HasMore(filtered, window),
		Category:   s.Category,
		Query:      s.Query,
		Pages:      s.Pages,
	}
}
