package sdfgraph

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph/glbuild/glsllib"
)

func domainInputs(override ...PortSpec) []PortSpec {
	return append([]PortSpec{{Name: "distance", Type: Distance}}, override...)
}

// Translate moves its input by pre-transforming the point: d(p-t).
func translateKind() OperatorKind {
	return OperatorKind{
		ID:       "translate",
		Category: CategoryDomain,
		Inputs:   domainInputs(PortSpec{Name: "offset", Type: Vector3, Optional: true}),
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "x", Default: 0, Min: -largenum, Max: largenum},
			{Name: "y", Default: 0, Min: -largenum, Max: largenum},
			{Name: "z", Default: 0, Min: -largenum, Max: largenum},
		},
		Template: func(p string, in []Input, params []string) string {
			offset := vec3(params[0], params[1], params[2])
			if in[1].Connected {
				offset = in[1].At(p)
			}
			return in[0].At(p + "-" + paren(offset))
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			offset := ms3.Vec{X: params[0], Y: params[1], Z: params[2]}
			if in[1].Connected {
				offset = in[1].At(p).V
			}
			return in[0].At(ms3.Sub(p, offset))
		},
	}
}

// Scale uniformly scales its input: d(p/s)*s.
func scaleKind() OperatorKind {
	return OperatorKind{
		ID:       "scale",
		Category: CategoryDomain,
		Inputs:   domainInputs(PortSpec{Name: "factor", Type: Scalar, Optional: true}),
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "factor", Default: 1, Min: 1e-4, Max: largenum},
		},
		Template: func(p string, in []Input, params []string) string {
			s := paren(overrideScalar(p, in[1], params[0]))
			return paren(in[0].At(paren(p)+"/"+s)) + "*" + s
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			s := overrideScalarEval(p, in[1], params[0])
			d := in[0].At(ms3.Scale(1/s, p)).S
			return Sample{S: d * s}
		},
	}
}

func bendKind() OperatorKind {
	return OperatorKind{
		ID:       "bend",
		Category: CategoryDomain,
		Inputs:   domainInputs(PortSpec{Name: "k", Type: Scalar, Optional: true}),
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "k", Default: 0, Min: -100, Max: 100},
		},
		Library: []glsllib.Func{glsllib.Bend()},
		Template: func(p string, in []Input, params []string) string {
			return in[0].At(call("opBend", p, overrideScalar(p, in[1], params[0])))
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return in[0].At(bend(p, overrideScalarEval(p, in[1], params[0])))
		},
	}
}

func twistKind() OperatorKind {
	return OperatorKind{
		ID:       "twist",
		Category: CategoryDomain,
		Inputs:   domainInputs(PortSpec{Name: "k", Type: Scalar, Optional: true}),
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "k", Default: 0, Min: -100, Max: 100},
		},
		Library: []glsllib.Func{glsllib.Twist()},
		Template: func(p string, in []Input, params []string) string {
			return in[0].At(call("opTwist", p, overrideScalar(p, in[1], params[0])))
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return in[0].At(twist(p, overrideScalarEval(p, in[1], params[0])))
		},
	}
}

// Mirror makes its input symmetric about the planes of the flagged axes.
func mirrorKind() OperatorKind {
	return OperatorKind{
		ID:       "mirror",
		Category: CategoryDomain,
		Inputs:   domainInputs(),
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "x", Default: 1, Min: 0, Max: 1},
			{Name: "y", Default: 0, Min: 0, Max: 1},
			{Name: "z", Default: 0, Min: 0, Max: 1},
		},
		Library: []glsllib.Func{glsllib.Mirror()},
		Template: func(p string, in []Input, params []string) string {
			return in[0].At(call("opMirror", p, vec3(params[0], params[1], params[2])))
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return in[0].At(mirror(p, ms3.Vec{X: params[0], Y: params[1], Z: params[2]}))
		},
	}
}

// Round inflates its input, rounding off edges: d(p)-r.
func roundKind() OperatorKind {
	return OperatorKind{
		ID:       "round",
		Category: CategoryDomain,
		Inputs:   domainInputs(PortSpec{Name: "radius", Type: Scalar, Optional: true}),
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "radius", Default: 0, Min: 0, Max: largenum},
		},
		Template: func(p string, in []Input, params []string) string {
			return in[0].At(p) + "-" + paren(overrideScalar(p, in[1], params[0]))
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return Sample{S: in[0].At(p).S - overrideScalarEval(p, in[1], params[0])}
		},
	}
}

// Shell hollows its input leaving a wall of the given thickness: |d(p)|-t.
func shellKind() OperatorKind {
	return OperatorKind{
		ID:       "shell",
		Category: CategoryDomain,
		Inputs:   domainInputs(PortSpec{Name: "thickness", Type: Scalar, Optional: true}),
		Outputs:  distanceOutput,
		Params: []ParamSpec{
			{Name: "thickness", Default: 0.05, Min: 0, Max: largenum},
		},
		Template: func(p string, in []Input, params []string) string {
			return call("abs", in[0].At(p)) + "-" + paren(overrideScalar(p, in[1], params[0]))
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return Sample{S: math32.Abs(in[0].At(p).S) - overrideScalarEval(p, in[1], params[0])}
		},
	}
}

func overrideScalar(p string, in Input, param string) string {
	if in.Connected {
		return in.At(p)
	}
	return param
}

func overrideScalarEval(p ms3.Vec, in Sampler, param float32) float32 {
	if in.Connected {
		return in.At(p).S
	}
	return param
}

// Combinators take distances a and b, and optionally c and d. Connected
// inputs are folded left to right.
var combinatorInputs = []PortSpec{
	{Name: "a", Type: Distance},
	{Name: "b", Type: Distance},
	{Name: "c", Type: Distance, Optional: true},
	{Name: "d", Type: Distance, Optional: true},
}

var smoothingParam = ParamSpec{Name: "k", Default: 0.25, Min: 1e-4, Max: 100}

func combinator(id string, lib []glsllib.Func, params []ParamSpec, join func(a, b string, params []string) string, eval func(a, b float32, params []float32) float32) OperatorKind {
	return OperatorKind{
		ID:       id,
		Category: CategoryCombinator,
		Inputs:   combinatorInputs,
		Outputs:  distanceOutput,
		Params:   params,
		Library:  lib,
		Template: func(p string, in []Input, params []string) string {
			acc := in[0].At(p)
			for _, input := range in[1:] {
				if input.Connected {
					acc = join(acc, input.At(p), params)
				}
			}
			return acc
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			acc := in[0].At(p).S
			for _, input := range in[1:] {
				if input.Connected {
					acc = eval(acc, input.At(p).S, params)
				}
			}
			return Sample{S: acc}
		},
	}
}

func unionKind() OperatorKind {
	return combinator("union", nil, nil,
		func(a, b string, _ []string) string { return call("min", a, b) },
		func(a, b float32, _ []float32) float32 { return minf(a, b) },
	)
}

func intersectionKind() OperatorKind {
	return combinator("intersection", nil, nil,
		func(a, b string, _ []string) string { return call("max", a, b) },
		func(a, b float32, _ []float32) float32 { return maxf(a, b) },
	)
}

// Difference subtracts b (and c, d) from a.
func differenceKind() OperatorKind {
	return combinator("difference", nil, nil,
		func(a, b string, _ []string) string { return call("max", a, "-"+paren(b)) },
		func(a, b float32, _ []float32) float32 { return maxf(a, -b) },
	)
}

func smoothMinKind() OperatorKind {
	return combinator("smooth-min", []glsllib.Func{glsllib.SmoothUnion()}, []ParamSpec{smoothingParam},
		func(a, b string, params []string) string { return call("opSmoothUnion", a, b, params[0]) },
		func(a, b float32, params []float32) float32 { return smoothUnion(a, b, params[0]) },
	)
}

func smoothIntersectionKind() OperatorKind {
	return combinator("smooth-intersection", []glsllib.Func{glsllib.SmoothIntersect()}, []ParamSpec{smoothingParam},
		func(a, b string, params []string) string { return call("opSmoothIntersect", a, b, params[0]) },
		func(a, b float32, params []float32) float32 { return smoothIntersect(a, b, params[0]) },
	)
}

func smoothDifferenceKind() OperatorKind {
	return combinator("smooth-difference", []glsllib.Func{glsllib.SmoothDiff()}, []ParamSpec{smoothingParam},
		func(a, b string, params []string) string { return call("opSmoothDiff", a, b, params[0]) },
		func(a, b float32, params []float32) float32 { return smoothDiff(a, b, params[0]) },
	)
}

// Output terminates the graph. Its input becomes the final distance function.
func outputKind() OperatorKind {
	return OperatorKind{
		ID:       "output",
		Category: CategoryOutput,
		Inputs:   []PortSpec{{Name: "distance", Type: Distance}},
		Template: func(p string, in []Input, params []string) string {
			return in[0].At(p)
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return in[0].At(p)
		},
	}
}

func scalarKind() OperatorKind {
	return OperatorKind{
		ID:       "scalar",
		Category: CategoryValue,
		Outputs:  []PortSpec{{Name: "value", Type: Scalar}},
		Params: []ParamSpec{
			{Name: "value", Default: 0, Min: -largenum, Max: largenum},
		},
		Template: func(p string, in []Input, params []string) string {
			return params[0]
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return Sample{S: params[0]}
		},
	}
}

func vector3Kind() OperatorKind {
	return OperatorKind{
		ID:       "vector3",
		Category: CategoryValue,
		Outputs:  []PortSpec{{Name: "value", Type: Vector3}},
		Params: []ParamSpec{
			{Name: "x", Default: 0, Min: -largenum, Max: largenum},
			{Name: "y", Default: 0, Min: -largenum, Max: largenum},
			{Name: "z", Default: 0, Min: -largenum, Max: largenum},
		},
		Template: func(p string, in []Input, params []string) string {
			return vec3(params[0], params[1], params[2])
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return Sample{V: ms3.Vec{X: params[0], Y: params[1], Z: params[2]}}
		},
	}
}

// Position outputs the point the node is sampled at.
func positionKind() OperatorKind {
	return OperatorKind{
		ID:       "position",
		Category: CategoryValue,
		Outputs:  []PortSpec{{Name: "point", Type: Point}},
		Template: func(p string, in []Input, params []string) string {
			return p
		},
		Eval: func(p ms3.Vec, in []Sampler, params []float32) Sample {
			return Sample{V: p}
		},
	}
}
