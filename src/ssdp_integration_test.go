//go:build ssdp

package src

import (
	"context"
	"testing"
	"time"

	"github.com/koron/go-ssdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a network interface with multicast: go test -tags ssdp
func TestSSDPAdvertisement(t *testing.T) {
	setupTestSystem(t)

	Settings.SSDP = true
	System.DeviceID = "test-device-id"
	System.URLBase = "http://localhost:34400"
	System.AppName = "pandatv-test"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, StartSSDP(ctx))

	// Wait for SSDP to start up
	time.Sleep(1 * time.Second)

	list, err := ssdp.Search(ssdpServiceType, 1, "")
	if err != nil {
		t.Logf("Search error: %v", err)
	}

	found := false
	for _, srv := range list {
		t.Logf("Found Service: Type=%s USN=%s Location=%s", srv.Type, srv.USN, srv.Location)
		if srv.Type == ssdpServiceType && srv.USN == "uuid:test-device-id::"+ssdpServiceType {
			assert.Equal(t, "http://localhost:34400/web/", srv.Location)
			found = true
		}
	}

	assert.True(t, found, "did not find %s via Search", ssdpServiceType)
}
