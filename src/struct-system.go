package src

import (
	"sync"
	"sync/atomic"
	"time"

	"pandatv/src/internal/artwork"
	m3u "pandatv/src/internal/m3u-parser"
	"pandatv/src/internal/playliststore"
)

// SystemStruct : Runtime information, not persisted
type SystemStruct struct {
	AppName    string
	APIVersion string
	Build      string
	DBVersion  string
	Dev        bool
	DeviceID   string
	Hostname   string
	Name       string
	URLBase    string
	Version    string

	IPAddressesV4     []string
	IPAddressesV4Host []string
	IPAddressesV6     []string

	Flag struct {
		Debug    int
		Info     bool
		Playlist string
		Port     string
	}

	Folder struct {
		Config      string
		ImagesCache string
		Store       string
	}

	File struct {
		Settings string
	}

	StartedAt time.Time
}

// SettingsStruct : Content of settings.json
type SettingsStruct struct {
	CacheArtwork    bool   `json:"cacheArtwork"`
	HostIP          string `json:"hostIP"`
	LogEntriesRAM   int    `json:"logEntriesRAM"`
	OtelExporter    string `json:"otelExporter"`
	PageSize        int    `json:"pageSize"`
	Playlist        string `json:"playlist"`
	PlaylistRefresh int    `json:"playlistRefresh"`
	Port            string `json:"port"`
	RevealDelayMs   int    `json:"revealDelayMs"`
	SSDP            bool   `json:"ssdp"`
	UUID            string `json:"uuid"`
	Version         string `json:"version"`
}

// RevealDelay : Settle time before an accepted reveal-more request is answered
func (s SettingsStruct) RevealDelay() time.Duration {
	return time.Duration(s.RevealDelayMs) * time.Millisecond
}

// PlaylistSnapshot : One loaded playlist. Shared read-only, replaced as a whole on reload.
type PlaylistSnapshot struct {
	Source     string
	Channels   []m3u.Channel
	Categories []string
	LoadedAt   time.Time
	FromStore  bool
	Err        error
}

// DataStruct : Shared runtime data
type DataStruct struct {
	playlist atomic.Pointer[PlaylistSnapshot]

	Store   *playliststore.Store
	Artwork *artwork.Cache

	Sessions wsSessions
}

// WebScreenLogStruct : Log entries kept in RAM
type WebScreenLogStruct struct {
	Mu       sync.RWMutex `json:"-"`
	Errors   int          `json:"errors"`
	Log      []string     `json:"log"`
	Warnings int          `json:"warnings"`
}
