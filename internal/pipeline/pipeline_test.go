package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/couchcryptid/bf-mission-map/internal/observability"
	"github.com/couchcryptid/bf-mission-map/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockFetcher struct {
	datasets []domain.YearlyDataset
	err      error
	calls    int
	baseYear int
}

func (m *mockFetcher) FetchAll(_ context.Context, baseYear int) ([]domain.YearlyDataset, error) {
	m.calls++
	m.baseYear = baseYear
	return m.datasets, m.err
}

type mockStore struct {
	table   *domain.MergedTable
	saved   []*domain.MergedTable
	saveErr error
	loadErr error
}

func (m *mockStore) Exists() (bool, error) {
	return m.table != nil, nil
}

func (m *mockStore) Save(t *domain.MergedTable) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, t)
	m.table = t
	return nil
}

func (m *mockStore) Load() (*domain.MergedTable, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.table == nil {
		return nil, errors.New("no such file")
	}
	return m.table, nil
}

type mockGeocoder struct {
	known   map[string]domain.GeocodingResult
	queries []string
}

func (m *mockGeocoder) Geocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	m.queries = append(m.queries, query)
	return m.known[query], nil
}

type mockPublisher struct {
	published []*domain.MergedTable
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, t *domain.MergedTable) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.published = append(m.published, t)
	return t.Len(), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleDatasets() []domain.YearlyDataset {
	return []domain.YearlyDataset{
		{Year: 2018, Rows: []domain.YearlyRow{
			{District: "Pankow Nord", Missions: 5},
			{District: "Pankow Süd", Missions: 7},
			{District: "Nirgendwo", Missions: 2},
		}},
		{Year: 2019, Rows: []domain.YearlyRow{
			{District: "Pankow", Missions: 9},
		}},
	}
}

func berlinGeocoder() *mockGeocoder {
	return &mockGeocoder{known: map[string]domain.GeocodingResult{
		"Pankow, Berlin, Germany": {Lat: 52.5693, Lon: 13.4016},
	}}
}

func testOptions() pipeline.Options {
	return pipeline.Options{
		BaseYear: 2018,
		Geocode:  domain.EnrichOptions{Qualifier: "Berlin, Germany", Timeout: time.Second},
	}
}

// --- tests ---

func TestPipeline_LoadOrBuild_BuildsWhenMissing(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	fetcher := &mockFetcher{datasets: sampleDatasets()}
	store := &mockStore{}
	geo := berlinGeocoder()
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(fetcher, geo, store, pub, testOptions(), discardLogger(), metrics)

	_, err := p.Table()
	require.ErrorIs(t, err, pipeline.ErrTableNotLoaded)
	require.ErrorIs(t, p.CheckReadiness(context.Background()), pipeline.ErrTableNotLoaded)

	table, err := p.LoadOrBuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 2018, fetcher.baseYear)
	assert.Equal(t, []int{2018, 2019}, table.Years())
	assert.Equal(t, fakeClock.Now(), table.BuiltAt)

	pankow, ok := table.Lookup("Pankow")
	require.True(t, ok)
	assert.Equal(t, map[int]int{2018: 12, 2019: 9}, pankow.Missions)
	require.NotNil(t, pankow.Location)
	assert.InDelta(t, 52.5693, pankow.Location.Lat, 1e-9)

	nirgendwo, ok := table.Lookup("Nirgendwo")
	require.True(t, ok)
	assert.Nil(t, nirgendwo.Location)
	assert.Equal(t, map[int]int{2018: 2, 2019: 0}, nirgendwo.Missions)

	assert.ElementsMatch(t, []string{"Nirgendwo, Berlin, Germany", "Pankow, Berlin, Germany"}, geo.queries)
	require.Len(t, store.saved, 1)
	require.Len(t, pub.published, 1)

	current, err := p.Table()
	require.NoError(t, err)
	assert.Same(t, table, current)
	assert.NoError(t, p.CheckReadiness(context.Background()))

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TableBuilds), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.TableDistricts), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TableUnresolved), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestPipeline_LoadOrBuild_LoadsPersisted(t *testing.T) {
	persisted, err := domain.NewMergedTable([]int{2018}, []domain.DistrictRecord{
		{Name: "Spandau", Missions: map[int]int{2018: 10}},
	})
	require.NoError(t, err)

	fetcher := &mockFetcher{}
	store := &mockStore{table: persisted}
	geo := berlinGeocoder()
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(fetcher, geo, store, nil, testOptions(), discardLogger(), metrics)

	table, err := p.LoadOrBuild(context.Background())
	require.NoError(t, err)
	assert.Same(t, persisted, table)
	assert.Zero(t, fetcher.calls, "persisted table must not trigger a fetch")
	assert.Empty(t, geo.queries, "persisted table must not trigger geocoding")
	assert.Empty(t, store.saved)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TableLoads), 0)
}

func TestPipeline_Build_FetchError(t *testing.T) {
	fetcher := &mockFetcher{err: domain.ErrNoDatasets}
	store := &mockStore{}
	p := pipeline.New(fetcher, nil, store, nil, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	_, err := p.Build(context.Background())
	require.ErrorIs(t, err, domain.ErrNoDatasets)
	assert.Empty(t, store.saved)
	assert.ErrorIs(t, p.CheckReadiness(context.Background()), pipeline.ErrTableNotLoaded)
}

func TestPipeline_Build_SaveError(t *testing.T) {
	fetcher := &mockFetcher{datasets: sampleDatasets()}
	store := &mockStore{saveErr: errors.New("disk full")}
	pub := &mockPublisher{}
	p := pipeline.New(fetcher, nil, store, pub, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	_, err := p.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, pub.published)
}

func TestPipeline_Build_PublishErrorDoesNotFail(t *testing.T) {
	fetcher := &mockFetcher{datasets: sampleDatasets()}
	store := &mockStore{}
	pub := &mockPublisher{err: errors.New("broker down")}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fetcher, nil, store, pub, testOptions(), discardLogger(), metrics)

	table, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	require.Len(t, store.saved, 1)
	assert.Zero(t, testutil.ToFloat64(metrics.RecordsPublished))
}

func TestPipeline_Build_WithoutGeocoder(t *testing.T) {
	fetcher := &mockFetcher{datasets: sampleDatasets()}
	store := &mockStore{}
	p := pipeline.New(fetcher, nil, store, nil, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	table, err := p.Build(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Nirgendwo", "Pankow"}, table.Unresolved())
}

func TestPipeline_Build_Cancelled(t *testing.T) {
	fetcher := &mockFetcher{datasets: sampleDatasets()}
	store := &mockStore{}
	p := pipeline.New(fetcher, berlinGeocoder(), store, nil, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.saved, "an interrupted build must not overwrite the persisted table")
}

func TestPipeline_Regeocode(t *testing.T) {
	persisted, err := domain.NewMergedTable([]int{2018}, []domain.DistrictRecord{
		{Name: "Pankow", Missions: map[int]int{2018: 12}},
		{Name: "Spandau", Missions: map[int]int{2018: 10}, Location: &domain.Coordinates{Lat: 52.53, Lon: 13.19}},
		{Name: "Nirgendwo", Missions: map[int]int{2018: 2}},
	})
	require.NoError(t, err)

	store := &mockStore{table: persisted}
	geo := berlinGeocoder()
	p := pipeline.New(&mockFetcher{}, geo, store, nil, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	table, stats, err := p.Regeocode(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.EnrichStats{Resolved: 1, Unresolved: 1}, stats)
	assert.ElementsMatch(t, []string{"Nirgendwo, Berlin, Germany", "Pankow, Berlin, Germany"}, geo.queries,
		"located districts are not looked up again")
	assert.Equal(t, []string{"Nirgendwo"}, table.Unresolved())
	require.Len(t, store.saved, 1)
}

func TestPipeline_Regeocode_NothingResolvedSkipsSave(t *testing.T) {
	persisted, err := domain.NewMergedTable([]int{2018}, []domain.DistrictRecord{
		{Name: "Nirgendwo", Missions: map[int]int{2018: 2}},
	})
	require.NoError(t, err)

	store := &mockStore{table: persisted}
	p := pipeline.New(&mockFetcher{}, berlinGeocoder(), store, nil, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	_, stats, err := p.Regeocode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unresolved)
	assert.Empty(t, store.saved)
}

func TestPipeline_Regeocode_NoTable(t *testing.T) {
	p := pipeline.New(&mockFetcher{}, berlinGeocoder(), &mockStore{}, nil, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	_, _, err := p.Regeocode(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load persisted table")
}
