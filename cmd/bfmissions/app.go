package main

import (
	"io"
	"log/slog"

	kafkaadapter "github.com/couchcryptid/bf-mission-map/internal/adapter/kafka"
	"github.com/couchcryptid/bf-mission-map/internal/adapter/mapbox"
	"github.com/couchcryptid/bf-mission-map/internal/adapter/nominatim"
	"github.com/couchcryptid/bf-mission-map/internal/adapter/opendata"
	"github.com/couchcryptid/bf-mission-map/internal/adapter/tablefile"
	"github.com/couchcryptid/bf-mission-map/internal/config"
	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/couchcryptid/bf-mission-map/internal/observability"
	"github.com/couchcryptid/bf-mission-map/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// app holds the wired components shared by all subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	pipeline *pipeline.Pipeline
	closers  []io.Closer
}

func (a *app) init(service bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg, service)
	a.metrics = observability.NewMetrics()

	var publisher pipeline.Publisher
	if cfg.PublishEnabled() {
		writer := kafkaadapter.NewWriter(cfg, a.logger)
		a.closers = append(a.closers, writer)
		publisher = writer
		a.logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	a.pipeline = pipeline.New(
		opendata.NewFetcher(cfg, a.logger, a.metrics),
		newGeocoder(cfg, a.metrics, a.logger),
		tablefile.NewStore(cfg.TablePath, a.logger),
		publisher,
		pipeline.Options{
			BaseYear: cfg.BaseYear,
			Geocode: domain.EnrichOptions{
				Qualifier: cfg.GeocodeQualifier,
				Timeout:   cfg.GeocodeTimeout,
			},
		},
		a.logger,
		a.metrics,
	)
	return nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

// newLogger installs the default logger. The long-running server logs to
// stdout through the shared service logger; batch commands log to stderr so
// their stdout stays the report.
func newLogger(cfg *config.Config, service bool) *slog.Logger {
	if service {
		return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger
}

// newGeocoder selects the configured provider. It returns a nil interface
// when geocoding is disabled.
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	switch cfg.Geocoder {
	case config.GeocoderNominatim:
		logger.Info("nominatim geocoding enabled", "url", cfg.NominatimURL, "interval", cfg.NominatimInterval)
		return nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimInterval, cfg.GeocodeTimeout, metrics, logger)
	case config.GeocoderMapbox:
		logger.Info("mapbox geocoding enabled", "timeout", cfg.GeocodeTimeout)
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocodeTimeout, metrics, logger)
	default:
		logger.Info("geocoding disabled")
		return nil
	}
}
