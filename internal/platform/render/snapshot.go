package render

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/trujjo/neurotome/internal/domain"
)

const (
	defaultColor = "#666666"
	edgeColor    = "#848484"
	background   = "#ffffff"
	textColor    = "#333333"
)

// labelColors assigns a fill per primary label.
var labelColors = map[string]string{
	"nerve":     "#ff7f0e",
	"bone":      "#2ca02c",
	"neuro":     "#d62728",
	"region":    "#9467bd",
	"viscera":   "#8c564b",
	"muscle":    "#e377c2",
	"sense":     "#7f7f7f",
	"vein":      "#bcbd22",
	"artery":    "#17becf",
	"cv":        "#1f77b4",
	"function":  "#ff9896",
	"sensory":   "#98df8a",
	"gland":     "#c5b0d5",
	"lymph":     "#c49c94",
	"head":      "#f7b6d2",
	"organ":     "#c7c7c7",
	"sensation": "#dbdb8d",
	"skin":      "#9edae5",
}

var radii = map[domain.SizeClass]float64{
	domain.SizeLarge:  10,
	domain.SizeMedium: 7,
	domain.SizeSmall:  5,
}

// NodeColor returns the fill for the first label that has one.
func NodeColor(labels []string) string {
	for _, l := range labels {
		if c, ok := labelColors[l]; ok {
			return c
		}
	}
	return defaultColor
}

func radius(c domain.SizeClass) float64 {
	if r, ok := radii[c]; ok {
		return r
	}
	return radii[domain.SizeSmall]
}

// Projector maps layout coordinates to canvas pixels.
type Projector interface {
	WorldToScreen(p r2.Vec) (float64, float64)
}

type Options struct {
	Width  int
	Height int
	Labels bool
}

// PNG draws the model as seen through t and encodes it to w.
func PNG(w io.Writer, m *domain.GraphModel, t Projector, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("render: invalid canvas %dx%d", opts.Width, opts.Height)
	}
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetHexColor(background)
	dc.Clear()

	if m != nil {
		dc.SetHexColor(edgeColor)
		dc.SetLineWidth(1)
		for _, e := range m.Edges {
			s, okS := m.Node(e.Source)
			d, okD := m.Node(e.Target)
			if !okS || !okD {
				continue
			}
			x1, y1 := t.WorldToScreen(r2.Vec{X: s.X, Y: s.Y})
			x2, y2 := t.WorldToScreen(r2.Vec{X: d.X, Y: d.Y})
			dc.DrawLine(x1, y1, x2, y2)
			dc.Stroke()
		}

		dc.SetFontFace(basicfont.Face7x13)
		for _, n := range m.OrderedNodes() {
			x, y := t.WorldToScreen(r2.Vec{X: n.X, Y: n.Y})
			r := radius(n.SizeClass)
			dc.DrawCircle(x, y, r)
			dc.SetHexColor(NodeColor(n.Labels))
			dc.FillPreserve()
			if n.Pinned {
				dc.SetHexColor(textColor)
				dc.SetLineWidth(2)
			} else {
				dc.SetHexColor(background)
				dc.SetLineWidth(1)
			}
			dc.Stroke()
			if opts.Labels {
				dc.SetHexColor(textColor)
				dc.DrawStringAnchored(n.Name(), x, y+r+2, 0.5, 1)
			}
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
