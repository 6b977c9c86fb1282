package channelview

import (
	"testing"

	m3u "pandatv/src/internal/m3u-parser"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	assert.Equal(t, State{Category: AllCategory, Query: "", Pages: 1}, NewState())
}

func TestState_Transitions(t *testing.T) {
	var grown = State{Category: "News", Query: "bbc", Pages: 3}

	tests := []struct {
		name string
		got  State
		want State
	}{
		{"new category resets paging", grown.SelectCategory("Sports"), State{"Sports", "bbc", 1}},
		{"same category keeps paging", grown.SelectCategory("News"), grown},
		{"new query resets paging", grown.Search("cnn"), State{"News", "cnn", 1}},
		{"same query keeps paging", grown.Search("bbc"), grown},
		{"whitespace is a different query", grown.Search("bbc "), State{"News", "bbc ", 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, 3, grown.Pages, "transitions must not modify the receiver")
}

func TestState_RevealMore(t *testing.T) {
	var channels = makeChannels(120, "Sports", "News", "Movies")
	var state = NewState()

	view := Render(channels, state, DefaultPageSize)
	assert.Equal(t, 50, view.Shown)
	assert.True(t, view.HasMore)

	state, ok := state.RevealMore(channels, DefaultPageSize)
	require.True(t, ok)
	view = Render(channels, state, DefaultPageSize)
	assert.Equal(t, 100, view.Shown)
	assert.True(t, view.HasMore)

	state, ok = state.RevealMore(channels, DefaultPageSize)
	require.True(t, ok)
	view = Render(channels, state, DefaultPageSize)
	assert.Equal(t, 120, view.Shown)
	assert.False(t, view.HasMore)

	next, ok := state.RevealMore(channels, DefaultPageSize)
	assert.False(t, ok)
	assert.Equal(t, state, next, "reveal without more results must not grow the window")
}

func TestState_RevealMoreWithinCategory(t *testing.T) {
	// 40 per category: a single page already holds everything.
	var channels = makeChannels(120, "Sports", "News", "Movies")
	var state = NewState().SelectCategory("News")

	_, ok := state.RevealMore(channels, DefaultPageSize)
	assert.False(t, ok)

	view := Render(channels, state, DefaultPageSize)
	assert.Equal(t, 40, view.Shown)
	assert.Equal(t, 40, view.Total)
	assert.False(t, view.HasMore)
}

func TestRender(t *testing.T) {
	var state = State{Category: "News", Query: "BBC", Pages: 1}

	want := View{
		Categories: []string{"BBC Extras", "News", "Sports"},
		Channels:   []m3u.Channel{newsChannels[0], newsChannels[3]},
		Shown:      2,
		Total:      2,
		HasMore:    false,
		Category:   "News",
		Query:      "BBC",
		Pages:      1,
	}

	if diff := cmp.Diff(want, Render(newsChannels, state, DefaultPageSize)); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}

	small := Render(newsChannels, state, 1)
	assert.Equal(t, 1, small.Shown)
	assert.Equal(t, 2, small.Total)
	assert.True(t, small.HasMore)
	assert.Equal(t, "bbc1", small.Channels[0].ID)
}

func TestRender_Empty(t *testing.T) {
	view := Render(nil, NewState(), DefaultPageSize)

	assert.Empty(t, view.Categories)
	assert.Empty(t, view.Channels)
	assert.NotNil(t, view.Channels)
	assert.Zero(t, view.Total)
	assert.False(t, view.HasMore)
}
