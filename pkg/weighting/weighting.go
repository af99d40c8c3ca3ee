package weighting

import (
	"fmt"

	"matrix_router/pkg/encoder"
)

// Weighting turns an edge's distance and flags into the scalar cost that
// contraction and queries minimize.
type Weighting interface {
	Name() string
	CalcWeight(distance float64, flags uint32) float64
}

// Fastest weighs edges by travel time in seconds.
type Fastest struct {
	enc encoder.FlagEncoder
}

func NewFastest(enc encoder.FlagEncoder) *Fastest { return &Fastest{enc: enc} }

func (f *Fastest) Name() string { return "fastest" }

func (f *Fastest) CalcWeight(distance float64, flags uint32) float64 {
	return f.enc.Duration(distance, flags)
}

// Shortest weighs edges by length in meters.
type Shortest struct{}

func (Shortest) Name() string { return "shortest" }

func (Shortest) CalcWeight(distance float64, _ uint32) float64 { return distance }

// New returns the weighting called name for the given encoder.
func New(name string, enc encoder.FlagEncoder) (Weighting, error) {
	switch name {
	case "fastest":
		return NewFastest(enc), nil
	case "shortest":
		return Shortest{}, nil
	}
	return nil, fmt.Errorf("unknown weighting %q", name)
}
