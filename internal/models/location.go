package models

import "github.com/ukydev/store-locator/internal/geo"

// GeoPoint is a GeoJSON Point, the shape MongoDB's 2dsphere index expects.
// Coordinates are ordered [lon, lat].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint converts a coordinate to its GeoJSON form.
func NewGeoPoint(c geo.Coordinate) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{c.Lon, c.Lat}}
}

// Coordinate converts back to lat/lon. Malformed points yield the zero value.
func (p GeoPoint) Coordinate() geo.Coordinate {
	if len(p.Coordinates) < 2 {
		return geo.Coordinate{}
	}
	return geo.Coordinate{Lat: p.Coordinates[1], Lon: p.Coordinates[0]}
}
