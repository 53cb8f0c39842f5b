// Package geo holds the coordinate type and the great-circle distance used to
// rank stores against a delivery location.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidInput is matched by every InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a malformed or missing coordinate value.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is lets callers test with errors.Is(err, ErrInvalidInput).
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lon float64 `json:"lon" bson:"lon"`
}

// NewCoordinate returns a validated coordinate.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// ParseCoordinate parses raw lat/lon strings, typically taken from a query string.
func ParseCoordinate(lat, lon string) (Coordinate, error) {
	latVal, err := parseDegrees("lat", lat)
	if err != nil {
		return Coordinate{}, err
	}
	lonVal, err := parseDegrees("lon", lon)
	if err != nil {
		return Coordinate{}, err
	}
	return NewCoordinate(latVal, lonVal)
}

func parseDegrees(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &InvalidInputError{Field: field, Reason: "missing"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &InvalidInputError{Field: field, Value: raw, Reason: "not a number"}
	}
	return v, nil
}

// Validate checks the range invariant. NaN and infinities are rejected.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return &InvalidInputError{Field: "lat", Value: formatDegrees(c.Lat), Reason: "must be within [-90, 90]"}
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return &InvalidInputError{Field: "lon", Value: formatDegrees(c.Lon), Reason: "must be within [-180, 180]"}
	}
	return nil
}

// String renders the coordinate as "lat,lon".
func (c Coordinate) String() string {
	return formatDegrees(c.Lat) + "," + formatDegrees(c.Lon)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
