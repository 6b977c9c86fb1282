package src

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pandatv/src/internal/channelview"
	"pandatv/src/snap"
	"pandatv/src/tracing"
)

// Show Developer Information
func showDevInfo() {
	if System.Dev {
		fmt.Print("\033[31m")
		fmt.Println("* * * * * D E V   M O D E * * * * *")
		fmt.Println("Version: ", System.Version)
		fmt.Println("Build:   ", System.Build)
		fmt.Println("* * * * * * * * * * * * * * * * * *")
		fmt.Print("\033[0m")
		fmt.Println()
	}
}

// Create all System Folders
func createSystemFolders() (err error) {
	for _, folder := range []string{System.Folder.Config, System.Folder.ImagesCache, System.Folder.Store} {
		if err = checkFolder(folder); err != nil {
			return
		}
	}

	return checkFilePermission(System.Folder.Config)
}

// Create all System Files
func createSystemFiles() (err error) {
	var filename = getPlatformFile(filepath.Join(System.Folder.Config, "settings.json"))

	if err = checkFile(filename); err != nil {
		// File does not exist, will be created now
		if err = saveMapToJSONFile(filename, make(map[string]any)); err != nil {
			return
		}
		showDebug(fmt.Sprintf("Create File:%s", filename), 1)
	}

	System.File.Settings = filename
	return
}

// Load Settings and set Default Values
func loadSettings() (settings SettingsStruct, err error) {
	settingsMap, err := loadJSONFileToMap(System.File.Settings)
	if err != nil {
		return
	}

	var defaults = map[string]any{
		"cacheArtwork":    false,
		"hostIP":          "",
		"logEntriesRAM":   500,
		"otelExporter":    "",
		"pageSize":        channelview.DefaultPageSize,
		"playlist":        "",
		"playlistRefresh": 0,
		"port":            "34400",
		"revealDelayMs":   300,
		"ssdp":            true,
		"uuid":            createUUID(),
		"version":         System.DBVersion,
	}

	// Set Default Values
	for key, value := range defaults {
		if _, ok := settingsMap[key]; !ok {
			settingsMap[key] = value
		}
	}

	if err = json.Unmarshal([]byte(mapToJSON(settingsMap)), &settings); err != nil {
		return
	}

	applyOverrides(&settings)

	if err = validateSettings(settings); err != nil {
		return
	}

	if err = saveSettings(settings); err != nil {
		return
	}

	return Settings, nil
}

// applyOverrides : Flags win over snap options / environment variables, which win over settings.json.
// loadSettings saves the result, so a flag value stays in effect for later starts.
func applyOverrides(settings *SettingsStruct) {
	if value := snap.GetOr("PANDATV_PLAYLIST", ""); len(value) > 0 {
		settings.Playlist = value
	}

	if value := snap.GetOr("PANDATV_PORT", ""); len(value) > 0 {
		settings.Port = value
	}

	if value := os.Getenv("OTEL_EXPORTER_TYPE"); len(value) > 0 {
		settings.OtelExporter = value
	} else if value := snap.GetOr("otel-exporter-type", ""); len(value) > 0 {
		settings.OtelExporter = value
	}

	if len(System.Flag.Playlist) > 0 {
		settings.Playlist = System.Flag.Playlist
	}

	if len(System.Flag.Port) > 0 {
		settings.Port = System.Flag.Port
	}
}

// validateSettings : Rejects values the server cannot run with
func validateSettings(settings SettingsStruct) error {
	var errs []error

	if port, err := strconv.Atoi(settings.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("port %q: %s", settings.Port, getErrMsg(1002)))
	}

	if settings.PageSize < 1 {
		errs = append(errs, fmt.Errorf("pageSize %d: %s", settings.PageSize, getErrMsg(2002)))
	}

	if settings.RevealDelayMs < 0 {
		errs = append(errs, fmt.Errorf("revealDelayMs %d: %s", settings.RevealDelayMs, getErrMsg(2003)))
	}

	if _, err := tracing.ParseExporterType(settings.OtelExporter); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s", err, getErrMsg(1030)))
	}

	return errors.Join(errs...)
}

// Save Settings
func saveSettings(settings SettingsStruct) (err error) {
	if settings.LogEntriesRAM < 1 {
		settings.LogEntriesRAM = 500
	}

	if System.Dev {
		settings.UUID = "2026-01-DEV-pandatv!"
	}

	if err = writeByteToFile(System.File.Settings, []byte(mapToJSON(settings))); err != nil {
		return fmt.Errorf("%s: %w", getErrMsg(2001), err)
	}

	Settings = settings

	setDeviceID()
	return
}

// Generate UUID
func createUUID() string {
	return time.Now().Format("2006-01") + "-" + randomString(4) + "-" + randomString(6)
}

// setDeviceID : ID used for the SSDP unique service name
func setDeviceID() {
	System.DeviceID = Settings.UUID
}

// setURLBase : Address the web interface is reachable at
func setURLBase() {
	var host = Settings.HostIP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	System.URLBase = fmt.Sprintf("http://%s:%s", host, Settings.Port)
}
