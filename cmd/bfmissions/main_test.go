package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/bf-mission-map/internal/adapter/mapbox"
	"github.com/couchcryptid/bf-mission-map/internal/adapter/nominatim"
	"github.com/couchcryptid/bf-mission-map/internal/config"
	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/couchcryptid/bf-mission-map/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *domain.MergedTable {
	t.Helper()
	table, err := domain.NewMergedTable([]int{2018, 2019}, []domain.DistrictRecord{
		{Name: "Pankow", Missions: map[int]int{2018: 12, 2019: 9}, Location: &domain.Coordinates{Lat: 52.5693, Lon: 13.4016}},
		{Name: "Nirgendwo", Missions: map[int]int{2018: 2}},
	})
	require.NoError(t, err)
	return table
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd(&app{})

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "geocode", "render", "export", "serve"}, names)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, sampleTable(t)))

	assert.Equal(t, "2 districts, 2 years, 1 without coordinates\n"+
		"  2018        14\n"+
		"  2019         9\n", buf.String())
}

func TestRenderFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	files, err := renderFiles(dir, sampleTable(t), []int{2018, 2019})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "map_2018.png"),
		filepath.Join(dir, "map_2019.png"),
		filepath.Join(dir, "chart.png"),
	}, files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), f)
	}
}

func TestRenderFiles_UnknownYear(t *testing.T) {
	_, err := renderFiles(t.TempDir(), sampleTable(t), []int{1999})
	require.ErrorIs(t, err, domain.ErrUnknownYear)
}

func TestNewGeocoder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	g := newGeocoder(&config.Config{Geocoder: config.GeocoderNominatim, NominatimUserAgent: "test"}, metrics, logger)
	assert.IsType(t, &nominatim.Client{}, g)

	g = newGeocoder(&config.Config{Geocoder: config.GeocoderMapbox, MapboxToken: "tok"}, metrics, logger)
	assert.IsType(t, &mapbox.Client{}, g)

	g = newGeocoder(&config.Config{Geocoder: config.GeocoderNone}, metrics, logger)
	assert.Nil(t, g)
}

func TestNewLogger_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	cfg := &config.Config{LogLevel: "warn", LogFormat: "text"}

	for _, service := range []bool{false, true} {
		logger := newLogger(cfg, service)
		assert.Same(t, logger, slog.Default(), "service=%v", service)
		assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	}
}

func TestRootCommands_ServeIsService(t *testing.T) {
	root := newRootCmd(&app{})
	cmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, serveCommand, cmd.Name())
}
