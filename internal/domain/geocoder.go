package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
	Confidence  float64 // 0.0–1.0 provider relevance score
}

// Found reports whether the provider matched the query.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves free-text place queries to coordinates.
// A zero result with a nil error means no match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (GeocodingResult, error)
}
