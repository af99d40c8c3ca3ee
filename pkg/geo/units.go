package geo

import "fmt"

// DistanceUnit selects the unit of distances reported to callers.
type DistanceUnit string

const (
	Meters     DistanceUnit = "m"
	Kilometers DistanceUnit = "km"
	Miles      DistanceUnit = "mi"
)

const metersPerMile = 1609.344

// ParseDistanceUnit maps a request value onto a unit. Empty means meters.
func ParseDistanceUnit(s string) (DistanceUnit, error) {
	switch DistanceUnit(s) {
	case "", Meters:
		return Meters, nil
	case Kilometers:
		return Kilometers, nil
	case Miles:
		return Miles, nil
	}
	return "", fmt.Errorf("unknown distance unit %q", s)
}

// FromMeters converts a distance in meters into u.
func (u DistanceUnit) FromMeters(m float64) float64 {
	switch u {
	case Kilometers:
		return m / 1000
	case Miles:
		return m / metersPerMile
	}
	return m
}
