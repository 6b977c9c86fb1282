package src

import (
	"pandatv/src/internal/channelview"
)

// RequestStruct : Request from the web interface over /data/
type RequestStruct struct {
	Cmd      string `json:"cmd"`
	Category string `json:"category,omitempty"`
	Query    string `json:"query,omitempty"`
	ID       string `json:"id,omitempty"`
}

// ResponseStruct : Response to the web interface
type ResponseStruct struct {
	Status   bool              `json:"status"`
	Error    string            `json:"err,omitempty"`
	Cmd      string            `json:"cmd,omitempty"`
	View     *channelview.View `json:"view,omitempty"`
	Playback *PlaybackStruct   `json:"playback,omitempty"`
	Pending  bool              `json:"pending,omitempty"`
}

// PlaybackStruct : What the browser needs to start a channel
type PlaybackStruct struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
	Logo  string `json:"logo"`
	URL   string `json:"url"`
	Kind  string `json:"kind"`
}

// APIStatusStruct : Response of /api/status
type APIStatusStruct struct {
	Status        bool   `json:"status"`
	Error         string `json:"err,omitempty"`
	Version       string `json:"version"`
	VersionAPI    string `json:"api_version"`
	Playlist      string `json:"playlist"`
	Channels      int    `json:"channels"`
	Categories    int    `json:"categories"`
	LoadedAt      string `json:"loaded_at,omitempty"`
	FromStore     bool   `json:"from_store"`
	PlaylistError string `json:"playlist_error,omitempty"`
	Sessions      int    `json:"sessions"`
	Connections   int64  `json:"connections"`
	Errors        int    `json:"errors"`
	Warnings      int    `json:"warnings"`
	Uptime        string `json:"uptime"`
}
