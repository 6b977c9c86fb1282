package src

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"pandatv/src/internal/artwork"
	"pandatv/src/internal/playliststore"

	"github.com/avfs/avfs/vfs/osfs"
)

// Version : Program version, the last segment is the build number
const Version = "1.2.0.7"

// System : System information
var System SystemStruct

// Settings : Content of settings.json
var Settings SettingsStruct

// Data : Shared runtime data
var Data DataStruct

// WebScreenLog : Log entries shown in the web interface
var WebScreenLog WebScreenLogStruct

// Init : Prepare folders and load the settings
func Init() (err error) {
	System.AppName = strings.ToLower(System.Name)
	System.StartedAt = time.Now()

	if len(System.Folder.Config) == 0 {
		System.Folder.Config = filepath.Join(GetUserHomeDirectory(), "."+System.AppName)
	}
	System.Folder.Config = filepath.Clean(System.Folder.Config) + string(os.PathSeparator)
	System.Folder.ImagesCache = filepath.Join(System.Folder.Config, "cache", "images") + string(os.PathSeparator)
	System.Folder.Store = filepath.Join(System.Folder.Config, "store") + string(os.PathSeparator)

	if System.Flag.Debug > 0 {
		showInfo(fmt.Sprintf("Debug Level:%d", System.Flag.Debug))
	}

	if err = createSystemFolders(); err != nil {
		return
	}

	if err = createSystemFiles(); err != nil {
		return
	}

	if Settings, err = loadSettings(); err != nil {
		ShowError(err, 2000)
		return
	}

	showDevInfo()

	showInfo(fmt.Sprintf("Version:%s Build: %s", System.Version, System.Build))
	showInfo(fmt.Sprintf("OS:%s (%s)", runtime.GOOS, runtime.GOARCH))
	showInfo(fmt.Sprintf("Config Folder:%s", System.Folder.Config))
	return
}

// StartSystem : Open the stores and load the playlist
func StartSystem(ctx context.Context) (err error) {
	if err = resolveHostIP(); err != nil {
		ShowError(err, 0)
		err = nil
	}
	setURLBase()

	store, err := playliststore.Open(System.Folder.Store)
	if err != nil {
		// The server still works, only without the fallback copy.
		ShowError(err, 4005)
		err = nil
	}
	Data.Store = store
	if store != nil {
		showInfo(fmt.Sprintf("Store Folder:%s", store.Dir()))
	}

	Data.Artwork, err = artwork.New(osfs.New(), System.Folder.ImagesCache, "/images/", Settings.CacheArtwork, newArtworkClient())
	if err != nil {
		return
	}

	if err = initMetrics(); err != nil {
		ShowError(err, 0)
		err = nil
	}

	if len(Settings.Playlist) == 0 {
		showWarning(4000)
		setPlaylist(&PlaylistSnapshot{LoadedAt: time.Now()})
		return
	}

	showInfo(fmt.Sprintf("Playlist:%s", Settings.Playlist))
	if _, err := loadPlaylist(ctx); err != nil {
		ShowError(err, 4002)
	}

	return nil
}

// StopSystem : Release what StartSystem opened
func StopSystem() error {
	Data.Sessions.closeAll()

	if Data.Store != nil {
		return Data.Store.Close()
	}
	return nil
}

// ShowSystemVersion : Print the version
func ShowSystemVersion() {
	fmt.Println("Version:", System.Version)
	fmt.Println("Build:  ", System.Build)
}

// ShowSystemInfo : Print system information
func ShowSystemInfo() {
	fmt.Println("Version:      ", System.Version+" "+System.Build)
	fmt.Println("OS:           ", runtime.GOOS)
	fmt.Println("Arch:         ", runtime.GOARCH)
	fmt.Println("Config folder:", System.Folder.Config)
	fmt.Println("Settings:     ", System.File.Settings)
	fmt.Println("Playlist:     ", Settings.Playlist)
	fmt.Println("Port:         ", Settings.Port)
	fmt.Println("Page size:    ", Settings.PageSize)
	fmt.Println("SSDP:         ", Settings.SSDP)
}
