package radar

import "math"

// Site is the radar antenna position.
type Site struct {
	Longitude float64
	Latitude  float64
	Height    float64 // m above sea level
}

// Georeferencer maps one polar coordinate (range m, azimuth °, elevation °)
// to longitude, latitude and altitude above sea level.
type Georeferencer interface {
	Georeference(site Site, rng, azimuth, elevation float64) (lon, lat, alt float64)
}

const (
	wgs84A = 6378137.0
	wgs84B = 6356752.314245
)

// EffectiveEarth propagates beams over a sphere of radius K times the local
// earth radius and places them with an azimuthal equidistant inverse around
// the site.
type EffectiveEarth struct {
	K float64
}

// NewEffectiveEarth returns the standard 4/3 refraction model.
func NewEffectiveEarth() EffectiveEarth {
	return EffectiveEarth{K: 4.0 / 3.0}
}

// EarthRadius is the WGS84 geocentric radius at latitude lat (degrees).
func EarthRadius(lat float64) float64 {
	phi := lat * math.Pi / 180
	a2c := wgs84A * wgs84A * math.Cos(phi)
	b2s := wgs84B * wgs84B * math.Sin(phi)
	ac := wgs84A * math.Cos(phi)
	bs := wgs84B * math.Sin(phi)
	return math.Sqrt((a2c*a2c + b2s*b2s) / (ac*ac + bs*bs))
}

func (e EffectiveEarth) Georeference(site Site, rng, azimuth, elevation float64) (float64, float64, float64) {
	re := EarthRadius(site.Latitude)
	reff := e.K * re
	el := elevation * math.Pi / 180

	height := math.Sqrt(rng*rng+reff*reff+2*rng*reff*math.Sin(el)) - reff
	ground := reff * math.Asin(rng*math.Cos(el)/(reff+height))

	lon, lat := destination(site.Longitude, site.Latitude, azimuth, ground/re)
	return lon, lat, height + site.Height
}

// destination walks an angular distance delta (radians) from (lon0, lat0)
// along the given bearing on a sphere.
func destination(lon0, lat0, bearing, delta float64) (float64, float64) {
	phi0 := lat0 * math.Pi / 180
	lam0 := lon0 * math.Pi / 180
	theta := bearing * math.Pi / 180

	sinPhi := math.Sin(phi0)*math.Cos(delta) + math.Cos(phi0)*math.Sin(delta)*math.Cos(theta)
	phi := math.Asin(sinPhi)
	lam := lam0 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi0), math.Cos(delta)-math.Sin(phi0)*sinPhi)

	return lam * 180 / math.Pi, phi * 180 / math.Pi
}
