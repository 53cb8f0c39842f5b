package geo

import "math"

// EarthRadiusMeters is the mean radius used by the spherical model.
const EarthRadiusMeters = 6371000.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Haversine returns the great-circle distance between a and b in meters.
// Accuracy is within 0.5% for delivery-scale distances.
func Haversine(a, b Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push s slightly outside [0, 1] near antipodes
	s = math.Max(0, math.Min(1, s))

	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return EarthRadiusMeters * c
}

// DistanceMeters is Haversine rounded to the nearest whole meter.
func DistanceMeters(a, b Coordinate) int {
	return int(math.Round(Haversine(a, b)))
}
