// Package domain models the Berliner Feuerwehr district-area mission counts.
//
// # Data Source
//
// The Berlin fire department publishes one CSV per year in its BF-Open-Data
// repository under Datasets/Regional_Data/<year>/BFw_district_area_data_<year>.csv.
// Only two columns are used here:
//
//	district_area_name   free-text name of a district area, e.g. "Prenzlauer Berg Nord"
//	mission_count_all    total dispatches recorded for that area in the year
//
// Every other column is ignored. Years are published contiguously, so the first
// year that cannot be fetched marks the end of the series.
//
// # District Names
//
// Raw area names are finer than the geography a geocoder can resolve. Areas are
// split along compass directions ("Nord", "Südost"), carry administrative
// suffixes ("Zentrum", "FK"), use abbreviations ("MV" for Märkisches Viertel)
// or list two places ("Gesundbrunnen / Wedding"). [Normalizer] rewrites a raw
// name into a canonical name by an ordered list of [NameRule] values; areas whose
// canonical names collide are merged by summing their counts. Examples:
//
//	"Prenzlauer Berg Nord"            → "Prenzlauer Berg"
//	"Prenzlauer Berg Süd"             → "Prenzlauer Berg"
//	"MV"                              → "Märkisches Viertel"
//	"Spandau-Mitte"                   → "Spandau"
//	"Wedding - Gesundbrunnen"         → "Gesundbrunnen"
//	"Alt-Treptow/Plänterwald"         → "Alt-Treptow"
//
// The rules are tuned to Berlin's boundaries and trade precision for geocoder
// hit rate: "Mitte" is dropped as a token, so an area named just "Mitte"
// normalizes to the empty string and stays without coordinates.
//
// # Merged Table
//
// [MergedTable] is the wide result: one row per canonical district, one mission
// count per year and an optional coordinate pair. Rows are sorted by name and
// every row carries a count for every year in the table (0 when the district did
// not appear in that year's file). Coordinates are nil until a [Geocoder]
// resolves them and stay nil when it cannot.
package domain
