package osm

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
)

// defaultSpeeds are the car speeds in km/h assumed per highway class when a
// way carries no usable maxspeed tag. Urban/rural is unknown, so the lower
// value is used.
var defaultSpeeds = map[string]float64{
	"motorway":       130,
	"motorway_link":  80,
	"trunk":          50,
	"trunk_link":     50,
	"primary":        50,
	"primary_link":   50,
	"secondary":      50,
	"secondary_link": 50,
	"tertiary":       50,
	"tertiary_link":  50,
	"unclassified":   50,
	"residential":    50,
	"living_street":  10,
	"service":        10,
}

// noneSpeed clamps maxspeed=none stretches.
const noneSpeed = 130

// walkSpeed is used for maxspeed=walk.
const walkSpeed = 10

// isCarAccessible reports whether the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	if _, ok := defaultSpeeds[tags.Find("highway")]; !ok {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	switch tags.Find("access") {
	case "no", "private":
		return false
	}
	return tags.Find("motor_vehicle") != "no"
}

// directionFlags returns the access directions relative to the way's node order.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		// time-dependent
		forward, backward = false, false
	}
	return forward, backward
}

// carSpeed returns the speed in km/h used for a way: its maxspeed tag when
// parseable, else the highway class default.
func carSpeed(tags osm.Tags) float64 {
	if tags.Find("motorroad") == "yes" {
		return defaultSpeeds["motorway"]
	}
	if v, ok := parseMaxSpeed(tags.Find("maxspeed")); ok {
		return v
	}
	return defaultSpeeds[tags.Find("highway")]
}

// parseMaxSpeed understands plain km/h values, "<n> mph", "none" and "walk".
// "signals" and other symbolic values are not parseable.
// Multiple values separated by ';' resolve to the first one.
func parseMaxSpeed(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	switch v {
	case "":
		return 0, false
	case "none":
		return noneSpeed, true
	case "walk":
		return walkSpeed, true
	}

	factor := 1.0
	switch {
	case strings.HasSuffix(v, "mph"):
		factor = 1.609344
		v = strings.TrimSpace(strings.TrimSuffix(v, "mph"))
	case strings.HasSuffix(v, "km/h"):
		v = strings.TrimSpace(strings.TrimSuffix(v, "km/h"))
	case strings.HasSuffix(v, "kmh"):
		v = strings.TrimSpace(strings.TrimSuffix(v, "kmh"))
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n * factor, true
}
