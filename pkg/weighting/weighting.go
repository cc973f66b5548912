// Package weighting computes edge weights for road segments: travel
// distance from geo.Haversine and travel time from a speed-limit table
// keyed by OSM highway tag, mirroring the original implementation's
// Weighting::time, which derives seconds from a haversine distance and a
// speed limit rather than any measured travel data.
package weighting

import "github.com/dkonyndyk/chroute/pkg/geo"

// DefaultSpeedLimitsKPH maps an OSM "highway" tag value to an assumed
// speed limit in kilometers per hour. It is applied to every way: maxspeed
// tags are not read. Values follow common OSM car-routing defaults.
var DefaultSpeedLimitsKPH = map[string]float64{
	"motorway":       110,
	"motorway_link":  70,
	"trunk":          100,
	"trunk_link":     60,
	"primary":        80,
	"primary_link":   50,
	"secondary":      70,
	"secondary_link": 50,
	"tertiary":       60,
	"tertiary_link":  40,
	"unclassified":   50,
	"residential":    30,
	"living_street":  15,
	"service":        20,
}

// DefaultSpeedLimitKPH is used for highway tags absent from the table.
const DefaultSpeedLimitKPH = 30.0

// SpeedLimitKPH returns the assumed speed limit for an OSM highway tag.
func SpeedLimitKPH(highway string) float64 {
	if kph, ok := DefaultSpeedLimitsKPH[highway]; ok {
		return kph
	}
	return DefaultSpeedLimitKPH
}

// DistanceMeters returns the great-circle distance between two
// coordinates, the distance weight fed into graph.AddEdge.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.Haversine(lat1, lon1, lat2, lon2)
}

// TimeSeconds returns the travel time in seconds between two coordinates
// at the given speed limit, the time weight fed into graph.AddEdge.
func TimeSeconds(lat1, lon1, lat2, lon2, speedLimitKPH float64) float64 {
	if speedLimitKPH <= 0 {
		speedLimitKPH = DefaultSpeedLimitKPH
	}
	distanceKM := DistanceMeters(lat1, lon1, lat2, lon2) / 1000.0
	return 3600 * (distanceKM / speedLimitKPH)
}
