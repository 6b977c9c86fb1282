package src

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "pandatv"

var revealCounter metric.Int64Counter = noop.Int64Counter{}

// tracer is looked up on every use so spans follow the provider installed last.
func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// initMetrics registers the instruments of the server with the global meter provider.
func initMetrics() (err error) {
	var meter = otel.Meter(instrumentationName)

	_, err = meter.Int64ObservableGauge("pandatv.playlist.channels",
		metric.WithDescription("Channels in the loaded playlist"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(len(currentPlaylist().Channels)))
			return nil
		}),
	)
	if err != nil {
		return
	}

	_, err = meter.Int64ObservableGauge("pandatv.sessions",
		metric.WithDescription("Open browser sessions"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(Data.Sessions.count()))
			return nil
		}),
	)
	if err != nil {
		return
	}

	revealCounter, err = meter.Int64Counter("pandatv.reveal.requests",
		metric.WithDescription("Reveal-more triggers by outcome"),
	)
	return
}
