// Package geo holds the pure distance/time helpers used by the nearby
// grouping path. No state, no I/O.
package geo

import "math"

// earthRadiusM is the mean Earth radius in meters (WGS84 sphere approximation).
const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance in meters between two
// WGS84 coordinates.
func HaversineM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusM * 2 * math.Asin(math.Sqrt(a))
}

// WithinWindow reports whether two Unix-second timestamps are at most
// windowSec apart.
func WithinWindow(a, b, windowSec int64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= windowSec
}

// ValidCoordinates reports whether lat/lng fall inside WGS84 bounds.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
