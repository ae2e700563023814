package sdfgraph

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph/glbuild/glsllib"
)

const largenum = 1e4

// Every primitive may be fed a point. When unconnected it is sampled at the
// incoming point.
var primitiveInputs = []PortSpec{{Name: "p", Type: Point, Optional: true}}

var distanceOutput = []PortSpec{{Name: "distance", Type: Distance}}

func sphereKind() OperatorKind {
	return OperatorKind{
		ID:       "sphere",
		Category: CategoryPrimitive,
		Inputs:   primitiveInputs,
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "radius", Default: 1, Min: 0, Max: largenum},
		},
		Template: func(p string, in []Input, params []string) string {
			return "length(" + in[0].At(p) + ")-" + paren(params[0])
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			q := in[0].At(p).V
			return Sample{S: ms3.Norm(q) - params[0]}
		},
	}
}

func cubeKind() OperatorKind {
	return OperatorKind{
		ID:       "cube",
		Category: CategoryPrimitive,
		Inputs:   primitiveInputs,
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "x", Default: 0.5, Min: 0, Max: largenum},
			{Name: "y", Default: 0.5, Min: 0, Max: largenum},
			{Name: "z", Default: 0.5, Min: 0, Max: largenum},
			{Name: "round", Default: 0, Min: 0, Max: largenum},
		},
		Library: []glsllib.Func{glsllib.Box3D()},
		Template: func(p string, in []Input, params []string) string {
			return call("sdBox", in[0].At(p), vec3(params[0], params[1], params[2]), params[3])
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			q := in[0].At(p).V
			return Sample{S: boxDist(q, ms3.Vec{X: params[0], Y: params[1], Z: params[2]}, params[3])}
		},
	}
}

func planeKind() OperatorKind {
	return OperatorKind{
		ID:       "plane",
		Category: CategoryPrimitive,
		Inputs:   primitiveInputs,
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "height", Default: 0, Min: -largenum, Max: largenum},
		},
		Template: func(p string, in []Input, params []string) string {
			return swizzle(in[0].At(p), "y") + "-" + paren(params[0])
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			q := in[0].At(p).V
			return Sample{S: q.Y - params[0]}
		},
	}
}

func torusKind() OperatorKind {
	return OperatorKind{
		ID:       "torus",
		Category: CategoryPrimitive,
		Inputs:   primitiveInputs,
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "major", Default: 1, Min: 0, Max: largenum},
			{Name: "minor", Default: 0.25, Min: 0, Max: largenum},
		},
		Library: []glsllib.Func{glsllib.Torus3D()},
		Template: func(p string, in []Input, params []string) string {
			return call("sdTorus", in[0].At(p), call("vec2", params[0], params[1]))
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			q := in[0].At(p).V
			return Sample{S: torusDist(q, params[0], params[1])}
		},
	}
}

func boxDist(p, halfSize ms3.Vec, round float32) float32 {
	q := ms3.AddScalar(round, ms3.Sub(ms3.AbsElem(p), halfSize))
	return ms3.Norm(ms3.MaxElem(q, ms3.Vec{})) + minf(maxf(q.X, maxf(q.Y, q.Z)), 0) - round
}

func torusDist(p ms3.Vec, major, minor float32) float32 {
	qx := math32.Hypot(p.X, p.Z) - major
	return math32.Hypot(qx, p.Y) - minor
}
