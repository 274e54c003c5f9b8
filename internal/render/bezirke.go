package render

import "github.com/couchcryptid/bf-mission-map/internal/domain"

// Bezirk is a static map label for one of Berlin's twelve boroughs.
type Bezirk struct {
	Label    string
	Position domain.Coordinates
}

// Bezirke are drawn on every map. Long names carry a line break.
var Bezirke = []Bezirk{
	{"Mitte", domain.Coordinates{Lat: 52.5200, Lon: 13.3505}},
	{"Friedrichshain-\nKreuzberg", domain.Coordinates{Lat: 52.5020, Lon: 13.4250}},
	{"Pankow", domain.Coordinates{Lat: 52.6000, Lon: 13.4200}},
	{"Charlottenburg-\nWilmersdorf", domain.Coordinates{Lat: 52.5030, Lon: 13.2200}},
	{"Spandau", domain.Coordinates{Lat: 52.5373, Lon: 13.1975}},
	{"Steglitz-Zehlendorf", domain.Coordinates{Lat: 52.4400, Lon: 13.2000}},
	{"Tempelhof-\nSchöneberg", domain.Coordinates{Lat: 52.4670, Lon: 13.3546}},
	{"Neukölln", domain.Coordinates{Lat: 52.4722, Lon: 13.4258}},
	{"Treptow-Köpenick", domain.Coordinates{Lat: 52.4444, Lon: 13.5725}},
	{"Marzahn-\nHellersdorf", domain.Coordinates{Lat: 52.5300, Lon: 13.5492}},
	{"Lichten-\nberg", domain.Coordinates{Lat: 52.5156, Lon: 13.4800}},
	{"Reinickendorf", domain.Coordinates{Lat: 52.6000, Lon: 13.2500}},
}

// Bounding box of the map in degrees.
const (
	minLon = 13.08
	maxLon = 13.77
	minLat = 52.33
	maxLat = 52.68
)
