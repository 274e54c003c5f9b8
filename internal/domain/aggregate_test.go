package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_SumsDuplicateCanonicalNames(t *testing.T) {
	datasets := []YearlyDataset{
		{Year: 2019, Rows: []YearlyRow{
			{District: "District A", Missions: 5},
			{District: "District A", Missions: 7},
		}},
	}

	table, err := Aggregate(datasets, nil)
	require.NoError(t, err)

	rec, ok := table.Lookup("District A")
	require.True(t, ok)
	assert.Equal(t, 12, rec.Missions[2019])
	assert.Equal(t, 1, table.Len())
}

func TestAggregate_MergesSplitSubDistricts(t *testing.T) {
	datasets := []YearlyDataset{
		{Year: 2018, Rows: []YearlyRow{
			{District: "Prenzlauer Berg Nord", Missions: 100},
			{District: "Prenzlauer Berg Süd", Missions: 50},
			{District: "Pankow", Missions: 80},
		}},
		{Year: 2019, Rows: []YearlyRow{
			{District: "Prenzlauer Berg Nord", Missions: 110},
			{District: "Prenzlauer Berg Süd", Missions: 55},
			{District: "Pankow", Missions: 90},
		}},
	}

	table, err := Aggregate(datasets, DefaultNormalizer())
	require.NoError(t, err)

	want := []DistrictRecord{
		{Name: "Pankow", Missions: map[int]int{2018: 80, 2019: 90}},
		{Name: "Prenzlauer Berg", Missions: map[int]int{2018: 150, 2019: 165}},
	}
	if diff := cmp.Diff(want, table.Districts()); diff != "" {
		t.Errorf("districts mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{2018, 2019}, table.Years())
}

func TestAggregate_PreservesYearsAndZeroDistricts(t *testing.T) {
	datasets := []YearlyDataset{
		{Year: 2020, Rows: []YearlyRow{{District: "Buch", Missions: 0}}},
		{Year: 2018, Rows: []YearlyRow{{District: "Buch", Missions: 0}}},
		{Year: 2019, Rows: nil},
	}

	table, err := Aggregate(datasets, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{2018, 2019, 2020}, table.Years())
	rec, ok := table.Lookup("Buch")
	require.True(t, ok, "zero-mission district must be kept")
	assert.Equal(t, map[int]int{2018: 0, 2019: 0, 2020: 0}, rec.Missions)
	assert.Zero(t, rec.Total())
}

func TestAggregate_FillsAbsentYearsWithZero(t *testing.T) {
	datasets := []YearlyDataset{
		{Year: 2018, Rows: []YearlyRow{{District: "Tegel", Missions: 3}}},
		{Year: 2019, Rows: []YearlyRow{{District: "Buckow", Missions: 4}}},
	}

	table, err := Aggregate(datasets, nil)
	require.NoError(t, err)

	tegel, _ := table.Lookup("Tegel")
	buckow, _ := table.Lookup("Buckow")
	assert.Equal(t, map[int]int{2018: 3, 2019: 0}, tegel.Missions)
	assert.Equal(t, map[int]int{2018: 0, 2019: 4}, buckow.Missions)
}

func TestAggregate_DuplicateYear(t *testing.T) {
	_, err := Aggregate([]YearlyDataset{{Year: 2018}, {Year: 2018}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2018")
}

func TestAggregate_NegativeCount(t *testing.T) {
	_, err := Aggregate([]YearlyDataset{
		{Year: 2018, Rows: []YearlyRow{{District: "Tegel", Missions: -1}}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tegel")
}

func TestAggregate_StampsBuildTime(t *testing.T) {
	at := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })

	table, err := Aggregate([]YearlyDataset{{Year: 2018}}, nil)
	require.NoError(t, err)
	assert.Equal(t, at, table.BuiltAt)
}

func TestAggregate_NoDatasets(t *testing.T) {
	table, err := Aggregate(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, table.Len())
	assert.Empty(t, table.Years())
	_, ok := table.LatestYear()
	assert.False(t, ok)
}
