package encoder

import "math"

// Access bits shared by every encoder. Flags are always interpreted in the
// stored base→adj orientation of an edge.
const (
	AccessForward  uint32 = 1 << 0
	AccessBackward uint32 = 1 << 1

	accessMask = AccessForward | AccessBackward
	speedShift = 2
)

// FlagEncoder packs per-edge access and speed into a flags word.
type FlagEncoder interface {
	Name() string
	Encode(forward, backward bool, speedKmh float64) uint32
	IsForward(flags uint32) bool
	IsBackward(flags uint32) bool
	Speed(flags uint32) float64
	// Duration returns seconds needed to travel distance meters on an edge
	// with the given flags.
	Duration(distance float64, flags uint32) float64
}

// Car stores speed in 5 km/h steps, 5 bits wide (max 155 km/h).
type Car struct {
	speedBits   uint
	speedFactor float64
}

// NewCar returns the car encoder.
func NewCar() *Car {
	return &Car{speedBits: 5, speedFactor: 5}
}

func (c *Car) Name() string { return "car" }

func (c *Car) maxSteps() uint32 { return (1 << c.speedBits) - 1 }

// MaxSpeed is the largest speed the encoder can represent, in km/h.
func (c *Car) MaxSpeed() float64 { return float64(c.maxSteps()) * c.speedFactor }

func (c *Car) Encode(forward, backward bool, speedKmh float64) uint32 {
	var flags uint32
	if forward {
		flags |= AccessForward
	}
	if backward {
		flags |= AccessBackward
	}
	steps := uint32(math.Round(speedKmh / c.speedFactor))
	if steps < 1 {
		steps = 1
	}
	if steps > c.maxSteps() {
		steps = c.maxSteps()
	}
	return flags | steps<<speedShift
}

func (c *Car) IsForward(flags uint32) bool  { return flags&AccessForward != 0 }
func (c *Car) IsBackward(flags uint32) bool { return flags&AccessBackward != 0 }

func (c *Car) Speed(flags uint32) float64 {
	return float64((flags>>speedShift)&c.maxSteps()) * c.speedFactor
}

func (c *Car) Duration(distance float64, flags uint32) float64 {
	speed := c.Speed(flags)
	if speed <= 0 {
		return math.Inf(1)
	}
	return distance / (speed / 3.6)
}

// Reverse swaps the access bits so that flags describe the opposite
// orientation of the same edge.
func Reverse(flags uint32) uint32 {
	fwd := flags & AccessForward
	bwd := flags & AccessBackward
	return flags&^accessMask | fwd<<1 | bwd>>1
}

// ByName returns the encoder registered under name.
func ByName(name string) (FlagEncoder, bool) {
	switch name {
	case "car":
		return NewCar(), true
	}
	return nil, false
}
