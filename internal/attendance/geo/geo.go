// Package geo decides geofence containment by great-circle distance on the
// S2 sphere.
package geo

import "github.com/golang/geo/s2"

// EarthRadiusMeters is the mean Earth radius that turns S2 angles into meters.
const EarthRadiusMeters = 6_371_000.0

// Valid reports whether the coordinates are a real position: latitude within
// [-90, 90] and longitude within [-180, 180].
func Valid(lat, lng float64) bool {
	return s2.LatLngFromDegrees(lat, lng).IsValid()
}

// Distance returns the great-circle distance in meters.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return a.Distance(b).Radians() * EarthRadiusMeters
}

// WithinFence reports the distance from the point to the fence center and
// whether it lies inside the radius (boundary inclusive). Callers must only
// invoke it for a configured fence.
func WithinFence(pointLat, pointLng, centerLat, centerLng, radiusMeters float64) (distanceMeters float64, inside bool) {
	d := Distance(pointLat, pointLng, centerLat, centerLng)
	return d, d <= radiusMeters
}
