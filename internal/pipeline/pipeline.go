package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/couchcryptid/bf-mission-map/internal/observability"
)

// ErrTableNotLoaded is returned while no table has been loaded or built yet.
var ErrTableNotLoaded = errors.New("mission table not loaded")

// Fetcher downloads the yearly datasets starting at baseYear.
type Fetcher interface {
	FetchAll(ctx context.Context, baseYear int) ([]domain.YearlyDataset, error)
}

// Store persists the merged table between runs.
type Store interface {
	Exists() (bool, error)
	Save(table *domain.MergedTable) error
	Load() (*domain.MergedTable, error)
}

// Publisher forwards a finished table to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, table *domain.MergedTable) (int, error)
}

// Options configures a Pipeline.
type Options struct {
	BaseYear   int
	Normalizer *domain.Normalizer // nil means domain.DefaultNormalizer
	Geocode    domain.EnrichOptions
}

// Pipeline orchestrates fetch, aggregate, geocode, persist and publish.
// All steps run sequentially on the calling goroutine.
type Pipeline struct {
	fetcher   Fetcher
	geocoder  domain.Geocoder
	store     Store
	publisher Publisher
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	table     atomic.Pointer[domain.MergedTable]
}

// New creates a Pipeline. geocoder and publisher may be nil to skip
// enrichment and publishing.
func New(f Fetcher, g domain.Geocoder, s Store, pub Publisher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Normalizer == nil {
		opts.Normalizer = domain.DefaultNormalizer()
	}
	return &Pipeline{
		fetcher:   f,
		geocoder:  g,
		store:     s,
		publisher: pub,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// Table returns the current table, or ErrTableNotLoaded.
// The returned table must be treated as read-only.
func (p *Pipeline) Table() (*domain.MergedTable, error) {
	t := p.table.Load()
	if t == nil {
		return nil, ErrTableNotLoaded
	}
	return t, nil
}

// CheckReadiness returns nil once a table is available.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.table.Load() == nil {
		return ErrTableNotLoaded
	}
	return nil
}

// LoadOrBuild returns the persisted table if one exists, and builds it otherwise.
func (p *Pipeline) LoadOrBuild(ctx context.Context) (*domain.MergedTable, error) {
	exists, err := p.store.Exists()
	if err != nil {
		return nil, fmt.Errorf("check persisted table: %w", err)
	}
	if !exists {
		p.logger.Info("no persisted table, building")
		return p.Build(ctx)
	}

	table, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load persisted table: %w", err)
	}
	p.metrics.TableLoads.Inc()
	p.publishTable(table)
	return table, nil
}

// Build fetches every available year, merges, geocodes and persists the
// table, replacing any persisted one.
func (p *Pipeline) Build(ctx context.Context) (*domain.MergedTable, error) {
	start := time.Now()

	datasets, err := p.fetcher.FetchAll(ctx, p.opts.BaseYear)
	if err != nil {
		return nil, fmt.Errorf("fetch datasets: %w", err)
	}

	table, err := domain.Aggregate(datasets, p.opts.Normalizer)
	if err != nil {
		return nil, fmt.Errorf("aggregate datasets: %w", err)
	}
	p.logger.Info("datasets merged", "years", len(table.Years()), "districts", table.Len())

	stats := domain.EnrichWithGeocoding(ctx, table, p.geocoder, p.opts.Geocode, p.logger)
	p.logEnrichment(stats)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build interrupted: %w", err)
	}

	if err := p.store.Save(table); err != nil {
		return nil, fmt.Errorf("save table: %w", err)
	}

	p.metrics.TableBuilds.Inc()
	p.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	p.publishTable(table)
	p.forward(ctx, table)
	return table, nil
}

// Regeocode loads the persisted table, makes one more lookup attempt for
// every district without coordinates and saves the result.
func (p *Pipeline) Regeocode(ctx context.Context) (*domain.MergedTable, domain.EnrichStats, error) {
	table, err := p.store.Load()
	if err != nil {
		return nil, domain.EnrichStats{}, fmt.Errorf("load persisted table: %w", err)
	}
	p.metrics.TableLoads.Inc()

	before := len(table.Unresolved())
	stats := domain.EnrichWithGeocoding(ctx, table, p.geocoder, p.opts.Geocode, p.logger)
	p.logEnrichment(stats)

	if stats.Resolved > 0 {
		if err := p.store.Save(table); err != nil {
			return nil, stats, fmt.Errorf("save table: %w", err)
		}
	}
	p.logger.Info("regeocode finished", "unresolved_before", before, "unresolved_after", len(table.Unresolved()))
	p.publishTable(table)
	return table, stats, nil
}

// publishTable makes table the current one and updates the table gauges.
func (p *Pipeline) publishTable(table *domain.MergedTable) {
	p.table.Store(table)
	p.metrics.TableDistricts.Set(float64(table.Len()))
	p.metrics.TableYears.Set(float64(len(table.Years())))
	p.metrics.TableUnresolved.Set(float64(len(table.Unresolved())))
}

// forward sends the table to the optional publisher. A failure is logged and
// does not fail the build: the table is already persisted.
func (p *Pipeline) forward(ctx context.Context, table *domain.MergedTable) {
	if p.publisher == nil {
		return
	}
	n, err := p.publisher.Publish(ctx, table)
	if err != nil {
		p.logger.Error("publish table failed", "error", err)
		return
	}
	p.metrics.RecordsPublished.Add(float64(n))
}

func (p *Pipeline) logEnrichment(stats domain.EnrichStats) {
	if p.geocoder == nil {
		p.logger.Info("geocoding disabled")
		return
	}
	p.logger.Info("geocoding finished",
		"resolved", stats.Resolved,
		"unresolved", stats.Unresolved,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
}
