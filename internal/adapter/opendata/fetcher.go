package opendata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/bf-mission-map/internal/config"
	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/couchcryptid/bf-mission-map/internal/observability"
)

// Fetcher downloads the yearly district-area datasets.
// It implements pipeline.Fetcher.
type Fetcher struct {
	urlFor     func(year int) string
	httpClient *http.Client
	maxYears   int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewFetcher creates a Fetcher for the configured URL template.
func NewFetcher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		urlFor: cfg.DatasetURL,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		maxYears: cfg.MaxYears,
		logger:   logger,
		metrics:  metrics,
	}
}

// FetchAll requests consecutive years starting at baseYear and stops at the
// first year that does not answer with a 2xx status. The returned datasets
// cover [baseYear, lastYear]. ErrNoDatasets is returned when baseYear itself
// is unavailable.
func (f *Fetcher) FetchAll(ctx context.Context, baseYear int) ([]domain.YearlyDataset, error) {
	var datasets []domain.YearlyDataset
	for year := baseYear; year < baseYear+f.maxYears; year++ {
		ds, ok, err := f.FetchYear(ctx, year)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		datasets = append(datasets, ds)
	}

	if len(datasets) == 0 {
		return nil, fmt.Errorf("%w: base year %d", domain.ErrNoDatasets, baseYear)
	}
	if len(datasets) == f.maxYears {
		f.logger.Warn("stopped at year limit", "max_years", f.maxYears)
	}
	f.logger.Info("datasets loaded",
		"from", datasets[0].Year,
		"to", datasets[len(datasets)-1].Year,
	)
	return datasets, nil
}

// FetchYear downloads and parses one year. ok is false when the server did not
// answer with a 2xx status, meaning the series has ended.
func (f *Fetcher) FetchYear(ctx context.Context, year int) (ds domain.YearlyDataset, ok bool, err error) {
	u := f.urlFor(year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.YearlyDataset{}, false, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return domain.YearlyDataset{}, false, fmt.Errorf("fetch year %d: %w", year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		f.logger.Info("dataset not available, series ended", "year", year, "status", resp.StatusCode)
		return domain.YearlyDataset{}, false, nil
	}

	ds, err = ParseDataset(year, resp.Body)
	if err != nil {
		return domain.YearlyDataset{}, false, err
	}
	f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	f.metrics.DatasetsFetched.Inc()
	f.logger.Debug("dataset fetched", "year", year, "rows", len(ds.Rows), "url", u)
	return ds, true, nil
}
