// Package viewport holds the camera transform between world (layout)
// coordinates and screen pixels.
package viewport

import (
	"math"
	"sync"

	"github.com/trujjo/neurotome/internal/domain"
	"gonum.org/v1/gonum/spatial/r2"
)

// Transform maps world to screen: screen = world*Scale + (X, Y).
type Transform struct {
	Scale float64 `json:"scale"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func Identity() Transform { return Transform{Scale: 1} }

type Options struct {
	MinScale float64
	MaxScale float64
	// Padding is the fraction of each screen dimension left empty by Fit.
	Padding float64
}

func DefaultOptions() Options {
	return Options{MinScale: 0.1, MaxScale: 4, Padding: 0.05}
}

type State struct {
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Transform Transform `json:"transform"`
}

type Controller struct {
	opts Options

	mu     sync.Mutex
	width  float64
	height float64
	t      Transform
}

func New(width, height float64, opts Options) *Controller {
	if opts.MinScale <= 0 {
		opts.MinScale = 0.1
	}
	if opts.MaxScale < opts.MinScale {
		opts.MaxScale = opts.MinScale
	}
	return &Controller{opts: opts, width: width, height: height, t: Identity()}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Width: c.width, Height: c.height, Transform: c.t}
}

func (c *Controller) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	c.width, c.height = width, height
	c.mu.Unlock()
}

// Set replaces the transform, clamping the scale.
func (c *Controller) Set(t Transform) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	t.Scale = c.clamp(t.Scale)
	c.t = t
	return c.t
}

func (c *Controller) clamp(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 1
	}
	return math.Max(c.opts.MinScale, math.Min(c.opts.MaxScale, s))
}

// Fit centers box in the screen with the configured padding. A model with no
// nodes resets to the identity transform; a zero-area box is limited by the
// scale clamp.
func (c *Controller) Fit(box r2.Box, ok bool) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.t = Identity()
		return c.t
	}
	bw, bh := box.Max.X-box.Min.X, box.Max.Y-box.Min.Y
	availW := c.width * (1 - 2*c.opts.Padding)
	availH := c.height * (1 - 2*c.opts.Padding)
	scale := math.Inf(1)
	if bw > 0 {
		scale = availW / bw
	}
	if bh > 0 {
		scale = math.Min(scale, availH/bh)
	}
	scale = c.clamp(scale)
	cx, cy := (box.Min.X+box.Max.X)/2, (box.Min.Y+box.Max.Y)/2
	c.t = Transform{Scale: scale, X: c.width/2 - cx*scale, Y: c.height/2 - cy*scale}
	return c.t
}

// FitModel fits the bounding box of every node in m.
func (c *Controller) FitModel(m *domain.GraphModel) Transform {
	minX, minY, maxX, maxY, ok := m.Bounds()
	return c.Fit(r2.Box{Min: r2.Vec{X: minX, Y: minY}, Max: r2.Vec{X: maxX, Y: maxY}}, ok)
}

// ZoomTo centers the world point p at the given scale. A non-positive scale
// keeps the current one.
func (c *Controller) ZoomTo(p r2.Vec, scale float64) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	if scale <= 0 {
		scale = c.t.Scale
	}
	scale = c.clamp(scale)
	c.t = Transform{Scale: scale, X: c.width/2 - p.X*scale, Y: c.height/2 - p.Y*scale}
	return c.t
}

// Pan shifts the view by a screen-space delta.
func (c *Controller) Pan(dx, dy float64) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.X += dx
	c.t.Y += dy
	return c.t
}

// ZoomAt multiplies the scale by factor keeping the world point under the
// screen point (sx, sy) fixed.
func (c *Controller) ZoomAt(factor, sx, sy float64) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	if factor <= 0 {
		return c.t
	}
	wx, wy := (sx-c.t.X)/c.t.Scale, (sy-c.t.Y)/c.t.Scale
	scale := c.clamp(c.t.Scale * factor)
	c.t = Transform{Scale: scale, X: sx - wx*scale, Y: sy - wy*scale}
	return c.t
}

func (t Transform) ScreenToWorld(sx, sy float64) r2.Vec {
	return r2.Vec{X: (sx - t.X) / t.Scale, Y: (sy - t.Y) / t.Scale}
}

func (t Transform) WorldToScreen(p r2.Vec) (float64, float64) {
	return p.X*t.Scale + t.X, p.Y*t.Scale + t.Y
}

func (c *Controller) ScreenToWorld(sx, sy float64) r2.Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.ScreenToWorld(sx, sy)
}

// Visible is the world rectangle currently on screen.
func (c *Controller) Visible() r2.Box {
	c.mu.Lock()
	defer c.mu.Unlock()
	return r2.Box{Min: c.t.ScreenToWorld(0, 0), Max: c.t.ScreenToWorld(c.width, c.height)}
}
