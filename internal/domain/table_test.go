package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *MergedTable {
	t.Helper()
	table, err := NewMergedTable([]int{2019, 2018}, []DistrictRecord{
		{Name: "Spandau", Missions: map[int]int{2018: 10, 2019: 20}, Location: &Coordinates{Lat: 52.53, Lon: 13.19}},
		{Name: "Buch", Missions: map[int]int{2018: 5}},
		{Name: "Pankow", Missions: map[int]int{2018: 7, 2019: 9}, Location: &Coordinates{Lat: 52.56, Lon: 13.40}},
	})
	require.NoError(t, err)
	return table
}

func TestNewMergedTable_SortsAndFills(t *testing.T) {
	table := sampleTable(t)

	assert.Equal(t, []int{2018, 2019}, table.Years())
	names := make([]string, 0, table.Len())
	for _, d := range table.Districts() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Buch", "Pankow", "Spandau"}, names)

	buch, ok := table.Lookup("Buch")
	require.True(t, ok)
	assert.Equal(t, 0, buch.Missions[2019])
}

func TestNewMergedTable_Rejects(t *testing.T) {
	_, err := NewMergedTable([]int{2018, 2018}, nil)
	assert.ErrorContains(t, err, "duplicate year")

	_, err = NewMergedTable([]int{2018}, []DistrictRecord{{Name: "A"}, {Name: "A"}})
	assert.ErrorContains(t, err, "duplicate district")

	_, err = NewMergedTable([]int{2018}, []DistrictRecord{{Name: "A", Missions: map[int]int{2017: 1}}})
	assert.ErrorContains(t, err, "outside table")

	_, err = NewMergedTable([]int{2018}, []DistrictRecord{{Name: "A", Missions: map[int]int{2018: -3}}})
	assert.ErrorContains(t, err, "negative")
}

func TestMergedTable_Snapshot(t *testing.T) {
	table := sampleTable(t)

	snap, err := table.Snapshot(2019)
	require.NoError(t, err)
	assert.Equal(t, []DistrictValue{
		{Name: "Pankow", Location: Coordinates{Lat: 52.56, Lon: 13.40}, Missions: 9},
		{Name: "Spandau", Location: Coordinates{Lat: 52.53, Lon: 13.19}, Missions: 20},
	}, snap)

	_, err = table.Snapshot(2030)
	assert.True(t, errors.Is(err, ErrUnknownYear))
}

func TestMergedTable_YearTotalsAndMax(t *testing.T) {
	table := sampleTable(t)

	assert.Equal(t, []YearTotal{{Year: 2018, Missions: 22}, {Year: 2019, Missions: 29}}, table.YearTotals())
	assert.Equal(t, 20, table.MaxMissions())

	latest, ok := table.LatestYear()
	require.True(t, ok)
	assert.Equal(t, 2019, latest)
	assert.True(t, table.HasYear(2018))
	assert.False(t, table.HasYear(2017))
}

func TestMergedTable_SetLocation(t *testing.T) {
	table := sampleTable(t)
	assert.Equal(t, []string{"Buch"}, table.Unresolved())

	require.NoError(t, table.SetLocation("Buch", Coordinates{Lat: 52.63, Lon: 13.49}))
	assert.Empty(t, table.Unresolved())

	err := table.SetLocation("Atlantis", Coordinates{})
	assert.True(t, errors.Is(err, ErrUnknownDistrict))
}

func TestMergedTable_ReturnsCopies(t *testing.T) {
	table := sampleTable(t)

	rec, _ := table.Lookup("Spandau")
	rec.Missions[2018] = 999
	rec.Location.Lat = 0

	again, _ := table.Lookup("Spandau")
	assert.Equal(t, 10, again.Missions[2018])
	assert.Equal(t, 52.53, again.Location.Lat)

	years := table.Years()
	years[0] = 1900
	assert.Equal(t, []int{2018, 2019}, table.Years())
}
