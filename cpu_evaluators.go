package sdfgraph

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// The functions below mirror the shader library in glbuild/glsllib.

func smoothUnion(a, b, k float32) float32 {
	h := clampf(0.5+0.5*(b-a)/k, 0, 1)
	return mixf(b, a, h) - k*h*(1-h)
}

func smoothDiff(a, b, k float32) float32 {
	h := clampf(0.5-0.5*(b+a)/k, 0, 1)
	return mixf(a, -b, h) + k*h*(1-h)
}

func smoothIntersect(a, b, k float32) float32 {
	h := clampf(0.5-0.5*(b-a)/k, 0, 1)
	return mixf(b, a, h) + k*h*(1-h)
}

func bend(p ms3.Vec, k float32) ms3.Vec {
	s, c := math32.Sincos(k * p.X)
	return ms3.Vec{
		X: c*p.X + s*p.Y,
		Y: -s*p.X + c*p.Y,
		Z: p.Z,
	}
}

// twist rotates XZ about Y. Like its shader counterpart the result has Y and Z swapped.
func twist(p ms3.Vec, k float32) ms3.Vec {
	s, c := math32.Sincos(k * p.Y)
	return ms3.Vec{
		X: c*p.X + s*p.Z,
		Y: -s*p.X + c*p.Z,
		Z: p.Y,
	}
}

func mirror(p, axes ms3.Vec) ms3.Vec {
	if axes.X >= 0.5 {
		p.X = math32.Abs(p.X)
	}
	if axes.Y >= 0.5 {
		p.Y = math32.Abs(p.Y)
	}
	if axes.Z >= 0.5 {
		p.Z = math32.Abs(p.Z)
	}
	return p
}

func minf(a, b float32) float32 {
	return math32.Min(a, b)
}

func maxf(a, b float32) float32 {
	return math32.Max(a, b)
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}

func mixf(x, y, a float32) float32 {
	return x*(1-a) + y*a
}
