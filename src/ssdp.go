package src

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/koron/go-ssdp"
	"go.opentelemetry.io/otel/codes"
)

const (
	ssdpServiceType = "urn:pandatv:service:ChannelBrowser:1"
	ssdpMaxAge      = 1800
	ssdpAlive       = 300 * time.Second
)

// ssdpAdvertise is replaced in tests
var ssdpAdvertise = func(st, usn, location, server string, maxAge int) (ssdpAdvertiser, error) {
	return ssdp.Advertise(st, usn, location, server, maxAge)
}

type ssdpAdvertiser interface {
	Alive() error
	Bye() error
	Close() error
}

// StartSSDP : Announce the web interface on the local network until ctx is canceled
func StartSSDP(ctx context.Context) (err error) {
	if !Settings.SSDP || System.Flag.Info {
		return
	}

	showInfo(fmt.Sprintf("SSDP:%t", Settings.SSDP))

	_, span := tracer().Start(ctx, "SSDP Init")
	defer span.End()

	ad, err := ssdpAdvertise(
		ssdpServiceType, // send as "ST"
		fmt.Sprintf("uuid:%s::%s", System.DeviceID, ssdpServiceType), // send as "USN"
		System.URLBase+"/web/", // send as "LOCATION"
		System.AppName,         // send as "SERVER"
		ssdpMaxAge)             // send as "maxAge" in "CACHE-CONTROL"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ShowError(err, 4100)
		return
	}

	// Debug SSDP
	if System.Flag.Debug == 3 {
		ssdp.Logger = log.New(os.Stderr, "[SSDP] ", log.LstdFlags)
	}

	go advertiseLoop(ctx, ad, time.NewTicker(ssdpAlive))
	return
}

func advertiseLoop(ctx context.Context, ad ssdpAdvertiser, aliveTick *time.Ticker) {
	defer aliveTick.Stop()

	for {
		select {
		case <-aliveTick.C:
			_, spanAlive := tracer().Start(ctx, "SSDP Alive")
			if err := ad.Alive(); err != nil {
				spanAlive.RecordError(err)
				spanAlive.SetStatus(codes.Error, err.Error())
				ShowError(err, 4100)
				spanAlive.End()

				stopSSDP(context.WithoutCancel(ctx), ad)
				return
			}
			spanAlive.End()

		case <-ctx.Done():
			stopSSDP(context.WithoutCancel(ctx), ad)
			return
		}
	}
}

func stopSSDP(ctx context.Context, ad ssdpAdvertiser) {
	_, span := tracer().Start(ctx, "SSDP Bye")
	defer span.End()

	if err := errors.Join(ad.Bye(), ad.Close()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("Error stopping SSDP: %v", err)
	}
}
