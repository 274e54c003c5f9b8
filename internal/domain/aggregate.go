package domain

import "fmt"

// Aggregate normalizes the district names of every dataset and merges them into
// one table. Rows sharing a canonical name within a year are summed. Every
// input year becomes a column, and districts with zero missions are kept.
func Aggregate(datasets []YearlyDataset, n *Normalizer) (*MergedTable, error) {
	if n == nil {
		n = defaultNormalizer
	}

	years := make([]int, 0, len(datasets))
	seenYear := make(map[int]bool, len(datasets))
	byName := make(map[string]map[int]int)
	var order []string

	for _, ds := range datasets {
		if seenYear[ds.Year] {
			return nil, fmt.Errorf("aggregate: duplicate dataset for year %d", ds.Year)
		}
		seenYear[ds.Year] = true
		years = append(years, ds.Year)

		for _, row := range ds.Rows {
			if row.Missions < 0 {
				return nil, fmt.Errorf("aggregate: year %d: district %q has negative count %d", ds.Year, row.District, row.Missions)
			}
			name := n.Normalize(row.District)
			counts, ok := byName[name]
			if !ok {
				counts = make(map[int]int)
				byName[name] = counts
				order = append(order, name)
			}
			counts[ds.Year] += row.Missions
		}
	}

	records := make([]DistrictRecord, 0, len(order))
	for _, name := range order {
		records = append(records, DistrictRecord{Name: name, Missions: byName[name]})
	}

	table, err := NewMergedTable(years, records)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	table.BuiltAt = clock.Now()
	return table, nil
}
