package layout

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Params tunes the simulation and the engine loop.
type Params struct {
	Width, Height float64

	LinkDistance    float64
	ChargeStrength  float64
	Theta           float64
	CenterStrength  float64
	AlphaMin        float64
	AlphaDecay      float64
	VelocityDecay   float64
	DragAlphaTarget float64

	TickInterval  time.Duration
	FrameInterval time.Duration
	MaxTicks      int

	// Clamp keeps free bodies inside Bounds after every step.
	Clamp bool

	CacheTTL  time.Duration
	CacheSize int

	// Seed fixes the random source; zero seeds from the clock.
	Seed int64
}

func DefaultParams() Params {
	return Params{
		Width:           960,
		Height:          600,
		LinkDistance:    100,
		ChargeStrength:  -300,
		Theta:           0.9,
		CenterStrength:  1,
		AlphaMin:        0.001,
		AlphaDecay:      0.0228,
		VelocityDecay:   0.4,
		DragAlphaTarget: 0.3,
		TickInterval:    16 * time.Millisecond,
		FrameInterval:   50 * time.Millisecond,
		MaxTicks:        600,
		Clamp:           true,
		CacheTTL:        5 * time.Minute,
		CacheSize:       1000,
	}
}

// Bounds is the logical layout area, origin at the top-left corner.
func (p Params) Bounds() r2.Box {
	return r2.Box{Min: r2.Vec{}, Max: r2.Vec{X: p.Width, Y: p.Height}}
}

func center(b r2.Box) r2.Vec {
	return r2.Vec{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

func clampTo(b r2.Box, v r2.Vec) r2.Vec {
	if v.X < b.Min.X {
		v.X = b.Min.X
	} else if v.X > b.Max.X {
		v.X = b.Max.X
	}
	if v.Y < b.Min.Y {
		v.Y = b.Min.Y
	} else if v.Y > b.Max.Y {
		v.Y = b.Max.Y
	}
	return v
}
