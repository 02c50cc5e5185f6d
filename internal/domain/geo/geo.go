// Package geo provides great-circle distance and bounding-box helpers.
package geo

import "math"

// EarthRadiusKm is the mean radius of Earth used for haversine distance.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// BoundingBox is a lat/lon rectangle used for coarse rejection before
// exact distance computation.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the great-circle distance in kilometers between two
// points via the haversine formula. Pure and total; inputs are not
// range-validated here, that belongs to the caller.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// InBounds reports whether p lies inside b.
func InBounds(p Point, b BoundingBox) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// BoxAround returns a bounding box covering radiusKm around center.
// One degree of latitude spans ~111 km; longitude degrees shrink with
// the cosine of latitude.
func BoxAround(center Point, radiusKm float64) BoundingBox {
	dLat := radiusKm / 111.0
	cos := math.Cos(center.Lat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	dLon := radiusKm / (111.0 * cos)
	return BoundingBox{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLon: center.Lon - dLon,
		MaxLon: center.Lon + dLon,
	}
}

// Valid checks that latitude is in [-90,90] and longitude in [-180,180].
func Valid(p Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
