package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

var (
	// ErrNoDatasets is returned when not even the base year could be fetched.
	ErrNoDatasets = errors.New("no yearly datasets available")
	// ErrUnknownYear is returned for queries on a year the table has no column for.
	ErrUnknownYear = errors.New("unknown year")
	// ErrUnknownDistrict is returned for updates on a district the table has no row for.
	ErrUnknownDistrict = errors.New("unknown district")
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// YearlyRow is one line of a yearly source file.
type YearlyRow struct {
	District string // raw district_area_name
	Missions int    // mission_count_all
}

// YearlyDataset is the raw table of a single year as fetched.
type YearlyDataset struct {
	Year int
	Rows []YearlyRow
}

// DistrictRecord is one row of the merged table.
type DistrictRecord struct {
	Name     string       `json:"name"`
	Missions map[int]int  `json:"missions"`
	Location *Coordinates `json:"location"` // nil until resolved
}

// Total sums the record's missions over all years.
func (r DistrictRecord) Total() int {
	total := 0
	for _, n := range r.Missions {
		total += n
	}
	return total
}

// Resolved reports whether the record has coordinates.
func (r DistrictRecord) Resolved() bool {
	return r.Location != nil
}

func (r DistrictRecord) clone() DistrictRecord {
	out := DistrictRecord{Name: r.Name, Missions: maps.Clone(r.Missions)}
	if r.Location != nil {
		loc := *r.Location
		out.Location = &loc
	}
	return out
}

// DistrictValue is a located district with its count for one year.
type DistrictValue struct {
	Name     string      `json:"name"`
	Location Coordinates `json:"location"`
	Missions int         `json:"missions"`
}

// YearTotal is the sum of all district counts of one year.
type YearTotal struct {
	Year     int `json:"year"`
	Missions int `json:"missions"`
}

// MergedTable holds one row per canonical district and one column per year.
// Rows are sorted by name; years ascend.
type MergedTable struct {
	years   []int
	records []DistrictRecord
	index   map[string]int

	BuiltAt time.Time
}

// NewMergedTable validates and assembles a table. Missing year entries of a
// record are filled with 0; a count for a year outside years is rejected.
func NewMergedTable(years []int, records []DistrictRecord) (*MergedTable, error) {
	ys := slices.Clone(years)
	slices.Sort(ys)
	if i := duplicateAt(ys); i >= 0 {
		return nil, fmt.Errorf("duplicate year %d", ys[i])
	}

	rs := make([]DistrictRecord, 0, len(records))
	for _, rec := range records {
		out := rec.clone()
		if out.Missions == nil {
			out.Missions = make(map[int]int, len(ys))
		}
		for y, n := range out.Missions {
			if _, ok := slices.BinarySearch(ys, y); !ok {
				return nil, fmt.Errorf("district %q: count for year %d outside table", rec.Name, y)
			}
			if n < 0 {
				return nil, fmt.Errorf("district %q: negative count %d for year %d", rec.Name, n, y)
			}
		}
		for _, y := range ys {
			if _, ok := out.Missions[y]; !ok {
				out.Missions[y] = 0
			}
		}
		rs = append(rs, out)
	}
	slices.SortFunc(rs, func(a, b DistrictRecord) int { return strings.Compare(a.Name, b.Name) })

	index := make(map[string]int, len(rs))
	for i, rec := range rs {
		if _, dup := index[rec.Name]; dup {
			return nil, fmt.Errorf("duplicate district %q", rec.Name)
		}
		index[rec.Name] = i
	}

	return &MergedTable{years: ys, records: rs, index: index}, nil
}

func duplicateAt(sorted []int) int {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return i
		}
	}
	return -1
}

// Years returns the year columns in ascending order.
func (t *MergedTable) Years() []int {
	return slices.Clone(t.years)
}

// LatestYear returns the most recent year column.
func (t *MergedTable) LatestYear() (int, bool) {
	if len(t.years) == 0 {
		return 0, false
	}
	return t.years[len(t.years)-1], true
}

// HasYear reports whether the table has a column for year.
func (t *MergedTable) HasYear(year int) bool {
	_, ok := slices.BinarySearch(t.years, year)
	return ok
}

// Len returns the number of districts.
func (t *MergedTable) Len() int {
	return len(t.records)
}

// Districts returns a copy of all rows sorted by name.
func (t *MergedTable) Districts() []DistrictRecord {
	out := make([]DistrictRecord, len(t.records))
	for i, rec := range t.records {
		out[i] = rec.clone()
	}
	return out
}

// Lookup returns a copy of the row for a canonical district name.
func (t *MergedTable) Lookup(name string) (DistrictRecord, bool) {
	i, ok := t.index[name]
	if !ok {
		return DistrictRecord{}, false
	}
	return t.records[i].clone(), true
}

// Unresolved returns the names of districts without coordinates.
func (t *MergedTable) Unresolved() []string {
	var names []string
	for _, rec := range t.records {
		if !rec.Resolved() {
			names = append(names, rec.Name)
		}
	}
	return names
}

// SetLocation stores coordinates for a district.
func (t *MergedTable) SetLocation(name string, c Coordinates) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDistrict, name)
	}
	t.records[i].Location = &c
	return nil
}

// Snapshot returns every located district with its count for year.
// Districts without coordinates are left out.
func (t *MergedTable) Snapshot(year int) ([]DistrictValue, error) {
	if !t.HasYear(year) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownYear, year)
	}
	out := make([]DistrictValue, 0, len(t.records))
	for _, rec := range t.records {
		if rec.Location == nil {
			continue
		}
		out = append(out, DistrictValue{
			Name:     rec.Name,
			Location: *rec.Location,
			Missions: rec.Missions[year],
		})
	}
	return out, nil
}

// YearTotals sums the counts of all districts per year.
func (t *MergedTable) YearTotals() []YearTotal {
	out := make([]YearTotal, len(t.years))
	for i, y := range t.years {
		out[i].Year = y
		for _, rec := range t.records {
			out[i].Missions += rec.Missions[y]
		}
	}
	return out
}

// MaxMissions returns the largest single district count over all years.
func (t *MergedTable) MaxMissions() int {
	maxN := 0
	for _, rec := range t.records {
		for _, n := range rec.Missions {
			maxN = max(maxN, n)
		}
	}
	return maxN
}
