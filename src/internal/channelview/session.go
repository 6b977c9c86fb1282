package channelview

import (
	"sync"

	m3u "pandatv/src/internal/m3u-parser"
)

// Ticket identifies an accepted reveal request.
type Ticket struct {
	generation uint64
	reveal     uint64
}

// Session is the State of one connected client, safe for concurrent triggers.
//
// At most one reveal is in flight at a time: BeginReveal accepts a request and FinishReveal
// completes it. A category, search or playlist change in between invalidates the ticket, so a
// late reveal never grows a freshly reset window.
type Session struct {
	mu         sync.Mutex
	channels   []m3u.Channel
	state      State
	pageSize   int
	inFlight   bool
	generation uint64
	reveal     uint64
}

// NewSession starts at the first page of every channel. A pageSize below 1 means DefaultPageSize.
func NewSession(channels []m3u.Channel, pageSize int) *Session {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	return &Session{
		channels: channels,
		state:    NewState(),
		pageSize: pageSize,
	}
}

// View renders the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Render(s.channels, s.state, s.pageSize)
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// SelectCategory applies a category trigger and returns the new view.
func (s *Session) SelectCategory(category string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(s.state.SelectCategory(category))
	return Render(s.channels, s.state, s.pageSize)
}

// Search applies a search trigger and returns the new view.
func (s *Session) Search(query string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(s.state.Search(query))
	return Render(s.channels, s.state, s.pageSize)
}

// SetChannels replaces the channel list, e.g. after a playlist reload. Category and query are
// kept, paging restarts.
func (s *Session) SetChannels(channels []m3u.Channel) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels = channels
	s.state.Pages = 1
	s.generation++

	return Render(s.channels, s.state, s.pageSize)
}

// BeginReveal accepts a reveal trigger. It returns false while another reveal is in flight or
// when every match is already shown.
func (s *Session) BeginReveal() (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return Ticket{}, false
	}

	var filtered = Filter(s.channels, s.state.Category, s.state.Query)
	if !HasMore(filtered, Page(filtered, s.pageSize, s.state.Pages)) {
		return Ticket{}, false
	}

	s.inFlight = true
	s.reveal++
	return Ticket{generation: s.generation, reveal: s.reveal}, true
}

// FinishReveal completes the reveal started with t and returns the resulting view. The page is
// only added if nothing was reset since BeginReveal. A ticket that is not the one in flight
// (replayed, zero or from an earlier reveal) only renders.
func (s *Session) FinishReveal(t Ticket) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inFlight || t.reveal != s.reveal {
		return Render(s.channels, s.state, s.pageSize)
	}

	s.inFlight = false
	if t.generation == s.generation {
		s.state, _ = s.state.RevealMore(s.channels, s.pageSize)
	}

	return Render(s.channels, s.state, s.pageSize)
}

// Pending reports whether a reveal is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inFlight
}

func (s *Session) apply(next State) {
	if next != s.state {
		s.generation++
	}
	s.state = next
}
