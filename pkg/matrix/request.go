package matrix

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"matrix_router/pkg/apperror"
	"matrix_router/pkg/geo"
)

// Request asks for the cost tables between two location lists. A side is
// given either as coordinates or as node ids, not both.
type Request struct {
	Sources          []orb.Point // lon, lat
	Destinations     []orb.Point
	SourceNodes      []int32
	DestinationNodes []int32

	Metrics Metrics
	Units   geo.DistanceUnit
	// Profile is the weighting the caller expects; empty accepts the
	// graph's.
	Profile string
}

// NumSources returns the number of source locations.
func (r *Request) NumSources() int { return max(len(r.Sources), len(r.SourceNodes)) }

// NumDestinations returns the number of destination locations.
func (r *Request) NumDestinations() int { return max(len(r.Destinations), len(r.DestinationNodes)) }

// Validate checks request shape, coordinates, metrics and units.
func (r *Request) Validate() error {
	if err := validateSide("sources", r.Sources, r.SourceNodes); err != nil {
		return err
	}
	if err := validateSide("destinations", r.Destinations, r.DestinationNodes); err != nil {
		return err
	}
	if !r.Metrics.Valid() {
		return apperror.NewWithField(apperror.CodeInvalidInput,
			fmt.Sprintf("metrics mask %d must select duration, distance or weight", r.Metrics), "metrics")
	}
	if _, err := geo.ParseDistanceUnit(string(r.Units)); err != nil {
		return apperror.NewWithField(apperror.CodeInvalidInput, err.Error(), "units")
	}
	return nil
}

func validateSide(field string, points []orb.Point, nodes []int32) error {
	if len(points) > 0 && len(nodes) > 0 {
		return apperror.NewWithField(apperror.CodeInvalidInput,
			"give either coordinates or node ids, not both", field)
	}
	if len(points) == 0 && len(nodes) == 0 {
		return apperror.NewWithField(apperror.CodeInvalidInput, field+" must not be empty", field)
	}
	for i, p := range points {
		lon, lat := p.Lon(), p.Lat()
		if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) ||
			lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return apperror.NewWithField(apperror.CodeInvalidInput,
				fmt.Sprintf("coordinate %d (%v, %v) is out of range", i, lon, lat), field).
				WithDetails("index", i)
		}
	}
	return nil
}

// CacheKey hashes everything that determines the response.
func (r *Request) CacheKey(graphID string) string {
	h := sha256.New()
	var buf [8]byte
	writeF := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	writeI := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	side := func(tag byte, points []orb.Point, nodes []int32) {
		h.Write([]byte{tag})
		writeI(int64(len(points)))
		for _, p := range points {
			writeF(p[0])
			writeF(p[1])
		}
		writeI(int64(len(nodes)))
		for _, n := range nodes {
			writeI(int64(n))
		}
	}

	fmt.Fprintf(h, "%s|%s|%d|%s|", graphID, r.Profile, r.Metrics, r.Units)
	side('s', r.Sources, r.SourceNodes)
	side('d', r.Destinations, r.DestinationNodes)
	return hex.EncodeToString(h.Sum(nil))
}
