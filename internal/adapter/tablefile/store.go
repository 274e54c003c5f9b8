// Package tablefile persists the merged mission table as a flat CSV file.
//
// The file is a memo of the expensive fetch and geocode run: it is read back
// whenever it exists and never expires. Delete it to force a rebuild.
//
// Layout:
//
//	district_area_name,2018,2019,...,longitude,latitude
//	Pankow,12034,12511,...,13.4016,52.5693
//	Nirgendwo,17,20,...,,
//
// Unresolved coordinates are written as empty cells.
package tablefile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/bf-mission-map/internal/domain"
)

// Column names of the persisted file.
const (
	ColumnDistrict  = "district_area_name"
	ColumnLongitude = "longitude"
	ColumnLatitude  = "latitude"
)

// Store reads and writes the table at a fixed path.
// It implements pipeline.Store.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store for path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a persisted table is present.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", s.path, err)
}

// Save writes the table atomically: to a temporary file in the same
// directory, then renamed over the target.
func (s *Store) Save(table *domain.MergedTable) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := Write(tmp, table); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}
	s.logger.Info("table saved", "path", s.path, "districts", table.Len(), "years", len(table.Years()))
	return nil
}

// Load reads the persisted table. BuiltAt is set to the file's modification time.
func (s *Store) Load() (*domain.MergedTable, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	table, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	if info, err := f.Stat(); err == nil {
		table.BuiltAt = info.ModTime()
	}
	s.logger.Info("table loaded", "path", s.path, "districts", table.Len(), "years", len(table.Years()))
	return table, nil
}

// Write encodes the table as CSV.
func Write(w io.Writer, table *domain.MergedTable) error {
	years := table.Years()
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(years)+3)
	header = append(header, ColumnDistrict)
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}
	header = append(header, ColumnLongitude, ColumnLatitude)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range table.Districts() {
		row[0] = rec.Name
		for i, y := range years {
			row[i+1] = strconv.Itoa(rec.Missions[y])
		}
		lon, lat := "", ""
		if rec.Location != nil {
			lon = formatCoord(rec.Location.Lon)
			lat = formatCoord(rec.Location.Lat)
		}
		row[len(row)-2], row[len(row)-1] = lon, lat
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write district %q: %w", rec.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Read decodes a table written by Write.
func Read(r io.Reader) (*domain.MergedTable, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty table file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	years, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var records []domain.DistrictRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseRow(row, years)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return domain.NewMergedTable(years, records)
}

func parseHeader(header []string) ([]int, error) {
	n := len(header)
	if n < 3 {
		return nil, fmt.Errorf("header has %d columns, want at least 3", n)
	}
	if header[0] != ColumnDistrict {
		return nil, fmt.Errorf("first column is %q, want %q", header[0], ColumnDistrict)
	}
	if header[n-2] != ColumnLongitude || header[n-1] != ColumnLatitude {
		return nil, fmt.Errorf("last columns are %q,%q, want %q,%q", header[n-2], header[n-1], ColumnLongitude, ColumnLatitude)
	}

	years := make([]int, 0, n-3)
	for _, h := range header[1 : n-2] {
		y, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("year column %q is not a year", h)
		}
		years = append(years, y)
	}
	return years, nil
}

func parseRow(row []string, years []int) (domain.DistrictRecord, error) {
	rec := domain.DistrictRecord{
		Name:     row[0],
		Missions: make(map[int]int, len(years)),
	}
	for i, y := range years {
		n, err := strconv.Atoi(row[i+1])
		if err != nil {
			return domain.DistrictRecord{}, fmt.Errorf("district %q year %d: invalid count %q", rec.Name, y, row[i+1])
		}
		rec.Missions[y] = n
	}

	lonStr, latStr := row[len(row)-2], row[len(row)-1]
	if lonStr == "" && latStr == "" {
		return rec, nil
	}
	if lonStr == "" || latStr == "" {
		return domain.DistrictRecord{}, fmt.Errorf("district %q: only one coordinate set", rec.Name)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.DistrictRecord{}, fmt.Errorf("district %q: invalid longitude %q", rec.Name, lonStr)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.DistrictRecord{}, fmt.Errorf("district %q: invalid latitude %q", rec.Name, latStr)
	}
	rec.Location = &domain.Coordinates{Lat: lat, Lon: lon}
	return rec, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
