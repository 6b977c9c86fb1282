package src

import (
	"context"
	"fmt"
	"time"
)

// InitMaintenance : Reload the playlist periodically when playlistRefresh is set
func InitMaintenance(ctx context.Context) (err error) {
	if Settings.PlaylistRefresh <= 0 || len(Settings.Playlist) == 0 {
		return
	}

	var interval = time.Duration(Settings.PlaylistRefresh) * time.Minute
	showInfo(fmt.Sprintf("Playlist refresh:%s", interval))

	go maintenance(ctx, time.NewTicker(interval))
	return
}

func maintenance(ctx context.Context, tick *time.Ticker) {
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			runMaintenance(ctx)
		}
	}
}

func runMaintenance(ctx context.Context) {
	showInfo("Update:" + Settings.Playlist)

	if _, err := loadPlaylist(ctx); err != nil {
		ShowError(err, 4002)
	}

	if Data.Artwork != nil {
		if err := Data.Artwork.Prune(); err != nil {
			ShowError(err, 4011)
		}
	}

	if err := pruneStore(ctx, Settings.Playlist); err != nil {
		ShowError(err, 4006)
	}
}

// pruneStore drops stored copies of sources other than the configured one
func pruneStore(ctx context.Context, keep string) error {
	if Data.Store == nil {
		return nil
	}

	entries, err := Data.Store.List(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.Source == keep {
			continue
		}

		if err := Data.Store.Delete(ctx, entry.Source); err != nil {
			return err
		}
		showDebug("Store:Removed "+entry.Source, 1)
	}

	return nil
}
