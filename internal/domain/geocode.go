package domain

import (
	"context"
	"log/slog"
	"time"
)

// EnrichStats counts the outcomes of one enrichment pass.
type EnrichStats struct {
	Resolved   int // coordinates stored
	Unresolved int // provider had no match
	Failed     int // provider returned an error
	Skipped    int // empty canonical name
}

// EnrichOptions configures EnrichWithGeocoding.
type EnrichOptions struct {
	// Qualifier is appended to every district name, e.g. "Berlin, Germany".
	Qualifier string
	// Timeout bounds each single lookup. Zero means no extra bound.
	Timeout time.Duration
}

// EnrichWithGeocoding looks up coordinates for every district of the table
// that has none yet, one district at a time. Districts the geocoder cannot
// resolve keep empty coordinates and are logged; lookups are not retried.
// A nil geocoder leaves the table untouched.
func EnrichWithGeocoding(ctx context.Context, table *MergedTable, geocoder Geocoder, opts EnrichOptions, logger *slog.Logger) EnrichStats {
	var stats EnrichStats
	if geocoder == nil || table == nil {
		return stats
	}

	for _, name := range table.Unresolved() {
		if ctx.Err() != nil {
			logger.Warn("geocoding interrupted", "error", ctx.Err(), "remaining", len(table.Unresolved()))
			return stats
		}
		if name == "" {
			logger.Warn("skipping district with empty canonical name")
			stats.Skipped++
			continue
		}

		result, err := lookup(ctx, geocoder, geocodeQuery(name, opts.Qualifier), opts.Timeout)
		if err != nil {
			logger.Warn("geocoding failed", "district", name, "error", err)
			stats.Failed++
			continue
		}
		if !result.Found() {
			logger.Warn("district not found", "district", name)
			stats.Unresolved++
			continue
		}

		if err := table.SetLocation(name, Coordinates{Lat: result.Lat, Lon: result.Lon}); err != nil {
			logger.Error("store coordinates", "district", name, "error", err)
			stats.Failed++
			continue
		}
		logger.Info("district located", "district", name, "lon", result.Lon, "lat", result.Lat)
		stats.Resolved++
	}
	return stats
}

func lookup(ctx context.Context, geocoder Geocoder, query string, timeout time.Duration) (GeocodingResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return geocoder.Geocode(ctx, query)
}

func geocodeQuery(name, qualifier string) string {
	if qualifier == "" {
		return name
	}
	return name + ", " + qualifier
}
