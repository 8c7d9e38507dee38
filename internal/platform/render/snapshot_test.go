package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/trujjo/neurotome/internal/domain"
	"gonum.org/v1/gonum/spatial/r2"
)

type identity struct{}

func (identity) WorldToScreen(p r2.Vec) (float64, float64) { return p.X, p.Y }

func TestPNGDrawsModel(t *testing.T) {
	m := domain.NewGraphModel()
	m.Add(&domain.Node{Entity: domain.Entity{ID: "a", Labels: []string{"bone"}}, Position: domain.Position{X: 10, Y: 10}, SizeClass: domain.SizeLarge})
	m.Add(&domain.Node{Entity: domain.Entity{ID: "b", Labels: []string{"nerve"}}, Position: domain.Position{X: 50, Y: 40}})
	m.AddEdge(domain.Relationship{Source: "a", Target: "b", Type: "INNERVATES"})

	var buf bytes.Buffer
	if err := PNG(&buf, m, identity{}, Options{Width: 64, Height: 48, Labels: true}); err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("bounds: got=%v", b)
	}
	r, g, _, _ := img.At(10, 10).RGBA()
	if g>>8 < 0x90 || r>>8 > 0x60 {
		t.Fatalf("bone node centre should be green: r=%x g=%x", r>>8, g>>8)
	}
}

func TestPNGRejectsEmptyCanvas(t *testing.T) {
	if err := PNG(&bytes.Buffer{}, nil, identity{}, Options{}); err == nil {
		t.Fatalf("want error for zero canvas")
	}
}

func TestNodeColorFallsBack(t *testing.T) {
	if got := NodeColor([]string{"unknown", "muscle"}); got != "#e377c2" {
		t.Fatalf("want=#e377c2 got=%s", got)
	}
	if got := NodeColor(nil); got != defaultColor {
		t.Fatalf("want=%s got=%s", defaultColor, got)
	}
}
