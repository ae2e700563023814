package glrender

import (
	"image"
	"image/color"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph/gleval"
	"github.com/soypat/sdfgraph/graph"
)

func sphereSDF(t *testing.T, x float32) gleval.SDF3 {
	t.Helper()
	g := graph.New(nil)
	s, _ := g.AddNode("sphere")
	tr, _ := g.AddNode("translate")
	out, _ := g.AddNode("output")
	if err := g.SetParameter(tr, "x", x); err != nil {
		t.Fatal(err)
	}
	for _, c := range [][2]graph.Port{
		{graph.OutPort(s, 0), graph.InPort(tr, 0)},
		{graph.OutPort(tr, 0), graph.InPort(out, 0)},
	} {
		if _, err := g.Connect(c[0], c[1]); err != nil {
			t.Fatal(err)
		}
	}
	order, err := graph.Order(g)
	if err != nil {
		t.Fatal(err)
	}
	bb := ms3.Box{Min: ms3.Vec{X: -2, Y: -2, Z: -2}, Max: ms3.Vec{X: 2, Y: 2, Z: 2}}
	sdf, err := gleval.NewGraphSDF3(g, order, bb)
	if err != nil {
		t.Fatal(err)
	}
	return sdf
}

func TestImageRendererSlice(t *testing.T) {
	sdf := sphereSDF(t, 1)
	ir, err := NewImageRendererSlice(256, nil)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	err = ir.Render(sdf, img, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Each pixel spans 0.1 units. Sphere of radius 1 centered at x=1.
	for _, test := range []struct {
		x, y   int
		inside bool
	}{
		{30, 20, true},  // (1.05, -0.05)
		{25, 15, true},  // (0.55, 0.45)
		{5, 20, false},  // (-1.45, -0.05)
		{30, 2, false},  // (1.05, 1.75)
		{39, 39, false}, // (1.95, -1.95)
	} {
		got := img.GrayAt(test.x, test.y).Y == 0
		if got != test.inside {
			t.Errorf("pixel (%d,%d): want inside=%v", test.x, test.y, test.inside)
		}
	}

	ir.Z = 1.5
	err = ir.Render(sdf, img, nil)
	if err != nil {
		t.Fatal(err)
	}
	if img.GrayAt(30, 20).Y == 0 {
		t.Error("slice above the sphere should be empty")
	}
}

func TestImageRendererSliceErrors(t *testing.T) {
	_, err := NewImageRendererSlice(8, nil)
	if err == nil {
		t.Error("want error for tiny buffer")
	}
	ir, _ := NewImageRendererSlice(100, func(float32) color.Color { return color.White })
	err = ir.Render(sphereSDF(t, 0), image.NewGray(image.Rect(0, 0, 200, 10)), nil)
	if err == nil {
		t.Error("want error for rows larger than buffer")
	}
}
