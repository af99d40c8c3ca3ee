package geo

import "math"

const earthRadiusMeters = 6_371_000.0

const degToRad = math.Pi / 180

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PointToSegmentDist projects P onto segment AB in a local equirectangular
// frame. It returns the distance in meters from P to the projection and the
// projection ratio along AB, clamped to [0, 1].
func PointToSegmentDist(pLat, pLon, aLat, aLon, bLat, bLon float64) (dist float64, ratio float64) {
	cosLat := math.Cos((aLat + bLat) / 2 * degToRad)

	ax, ay := aLon*cosLat, aLat
	bx, by := bLon*cosLat, bLat
	px, py := pLon*cosLat, pLat

	// Exact comparison on the raw coordinates; the projected ones pick up
	// rounding noise from cosLat.
	if aLat == bLat && aLon == bLon {
		return math.Hypot(px-ax, py-ay) * degToRad * earthRadiusMeters, 0
	}

	dx, dy := bx-ax, by-ay
	t := ((px-ax)*dx + (py-ay)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))

	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy)) * degToRad * earthRadiusMeters, t
}

// Interpolate returns the point at ratio t along segment AB.
func Interpolate(aLat, aLon, bLat, bLon, t float64) (lat, lon float64) {
	return aLat + (bLat-aLat)*t, aLon + (bLon-aLon)*t
}
