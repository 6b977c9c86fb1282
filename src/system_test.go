package src

import (
	"os"
	"regexp"
	"testing"
	"time"

	"pandatv/src/internal/channelview"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettingsFile(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, createSystemFiles())
	require.NoError(t, os.WriteFile(System.File.Settings, []byte(content), 0644))
}

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SNAP_NAME", "PANDATV_PLAYLIST", "PANDATV_PORT", "OTEL_EXPORTER_TYPE", "otel-exporter-type"} {
		t.Setenv(key, "")
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	setupTestSystem(t)
	clearOverrides(t)
	require.NoError(t, createSystemFiles())

	settings, err := loadSettings()
	require.NoError(t, err)

	assert.Equal(t, "34400", settings.Port)
	assert.Equal(t, channelview.DefaultPageSize, settings.PageSize)
	assert.Equal(t, 300*time.Millisecond, settings.RevealDelay())
	assert.True(t, settings.SSDP)
	assert.False(t, settings.CacheArtwork)
	assert.Equal(t, 500, settings.LogEntriesRAM)
	assert.NotEmpty(t, settings.UUID)
	assert.Equal(t, settings.UUID, System.DeviceID)
	assert.Equal(t, settings, Settings)

	content, err := os.ReadFile(System.File.Settings)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"revealDelayMs": 300`)
}

func TestLoadSettings_KeepsStoredValues(t *testing.T) {
	setupTestSystem(t)
	clearOverrides(t)
	writeSettingsFile(t, `{"pageSize": 20, "revealDelayMs": 0, "ssdp": false, "uuid": "2026-01-ABCD-EFGHIJ"}`)

	settings, err := loadSettings()
	require.NoError(t, err)

	assert.Equal(t, 20, settings.PageSize)
	assert.Zero(t, settings.RevealDelay())
	assert.False(t, settings.SSDP)
	assert.Equal(t, "2026-01-ABCD-EFGHIJ", settings.UUID)
}

func TestLoadSettings_Overrides(t *testing.T) {
	setupTestSystem(t)
	clearOverrides(t)
	writeSettingsFile(t, `{"playlist": "/stored.m3u", "port": "1000"}`)

	t.Setenv("PANDATV_PLAYLIST", "/from-env.m3u")
	t.Setenv("PANDATV_PORT", "2000")
	t.Setenv("OTEL_EXPORTER_TYPE", "none")

	settings, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "/from-env.m3u", settings.Playlist)
	assert.Equal(t, "2000", settings.Port)
	assert.Equal(t, "none", settings.OtelExporter)

	// Flags win over the environment.
	System.Flag.Port = "3000"
	System.Flag.Playlist = "/from-flag.m3u"

	settings, err = loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "/from-flag.m3u", settings.Playlist)
	assert.Equal(t, "3000", settings.Port)
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"page size", `{"pageSize": 0}`, getErrMsg(2002)},
		{"delay", `{"revealDelayMs": -1}`, getErrMsg(2003)},
		{"port not numeric", `{"port": "abc"}`, getErrMsg(1002)},
		{"port out of range", `{"port": "70000"}`, getErrMsg(1002)},
		{"exporter", `{"otelExporter": "jaeger"}`, getErrMsg(1030)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestSystem(t)
			clearOverrides(t)
			writeSettingsFile(t, tt.content)

			_, err := loadSettings()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettings_ReportsEveryProblem(t *testing.T) {
	err := validateSettings(SettingsStruct{Port: "0", PageSize: 0, RevealDelayMs: -5})
	require.Error(t, err)

	assert.Contains(t, err.Error(), getErrMsg(1002))
	assert.Contains(t, err.Error(), getErrMsg(2002))
	assert.Contains(t, err.Error(), getErrMsg(2003))
}

func TestSetURLBase(t *testing.T) {
	setupTestSystem(t)

	Settings.HostIP = "192.168.1.10"
	Settings.Port = "34400"
	setURLBase()
	assert.Equal(t, "http://192.168.1.10:34400", System.URLBase)

	Settings.HostIP = "fe80::1"
	setURLBase()
	assert.Equal(t, "http://[fe80::1]:34400", System.URLBase)
}

func TestCreateUUID(t *testing.T) {
	var uuid = createUUID()
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-[A-Z0-9]{4}-[A-Z0-9]{6}$`), uuid)
	assert.NotEqual(t, uuid, createUUID())
}

func TestInit(t *testing.T) {
	setupTestSystem(t)
	clearOverrides(t)

	var dir = t.TempDir()
	System.Folder.Config = dir

	require.NoError(t, Init())

	assert.DirExists(t, System.Folder.ImagesCache)
	assert.DirExists(t, System.Folder.Store)
	assert.FileExists(t, System.File.Settings)
	assert.Equal(t, channelview.DefaultPageSize, Settings.PageSize)
}
