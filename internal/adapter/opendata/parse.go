package opendata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/bf-mission-map/internal/domain"
)

// Source columns of BFw_district_area_data_<year>.csv.
const (
	ColumnDistrict = "district_area_name"
	ColumnMissions = "mission_count_all"
)

// ParseDataset reads a yearly CSV, keeping only the district name and the total
// mission count. A missing column or an unparsable count is an error naming the year.
func ParseDataset(year int, r io.Reader) (domain.YearlyDataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.YearlyDataset{}, fmt.Errorf("year %d: empty dataset", year)
	}
	if err != nil {
		return domain.YearlyDataset{}, fmt.Errorf("year %d: read header: %w", year, err)
	}

	nameIdx, countIdx := -1, -1
	for i, h := range header {
		switch normalizeHeader(h) {
		case ColumnDistrict:
			nameIdx = i
		case ColumnMissions:
			countIdx = i
		}
	}
	if nameIdx < 0 {
		return domain.YearlyDataset{}, fmt.Errorf("year %d: missing column %q", year, ColumnDistrict)
	}
	if countIdx < 0 {
		return domain.YearlyDataset{}, fmt.Errorf("year %d: missing column %q", year, ColumnMissions)
	}

	ds := domain.YearlyDataset{Year: year}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.YearlyDataset{}, fmt.Errorf("year %d: %w", year, err)
		}

		n, err := parseCount(rec[countIdx])
		if err != nil {
			return domain.YearlyDataset{}, fmt.Errorf("year %d line %d: %s %q: %w", year, line, ColumnMissions, rec[countIdx], err)
		}
		ds.Rows = append(ds.Rows, domain.YearlyRow{
			District: strings.TrimSpace(rec[nameIdx]),
			Missions: n,
		})
	}
	return ds, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// parseCount accepts integers and integral floats ("1234.0"), which some
// dataframe exports produce for columns that once held a missing value.
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty count")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, errors.New("negative count")
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, errors.New("not a non-negative integer")
	}
	return int(f), nil
}
