// Package sdfgraph defines the closed set of operator kinds that can be
// instantiated as nodes of an SDF graph. Each kind carries its port layout,
// parameter schema, a GLSL/WGSL code generation template and a CPU evaluator.
package sdfgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph/glbuild/glsllib"
)

// Category groups operator kinds by the role they play in a graph.
type Category uint8

const (
	categoryUndefined Category = iota
	// CategoryPrimitive kinds produce a distance from the point alone.
	CategoryPrimitive
	// CategoryDomain kinds transform the point before their input is sampled,
	// or adjust the distance of their single input.
	CategoryDomain
	// CategoryCombinator kinds merge two or more distances.
	CategoryCombinator
	// CategoryOutput terminates the graph. Its input is the final distance function.
	CategoryOutput
	// CategoryValue kinds produce scalars, vectors or points used to drive
	// parameters of other nodes.
	CategoryValue
)

func (c Category) String() string {
	switch c {
	case CategoryPrimitive:
		return "primitive"
	case CategoryDomain:
		return "domain"
	case CategoryCombinator:
		return "combinator"
	case CategoryOutput:
		return "output"
	case CategoryValue:
		return "value"
	}
	return "undefined"
}

// PortType is the semantic type of a port. Connections require matching types.
type PortType uint8

const (
	portTypeUndefined PortType = iota
	Distance
	Point
	Scalar
	Vector3
)

func (pt PortType) String() string {
	switch pt {
	case Distance:
		return "distance"
	case Point:
		return "point"
	case Scalar:
		return "scalar"
	case Vector3:
		return "vector3"
	}
	return "undefined"
}

// IsVector reports whether values of the type are 3-component vectors in the shader.
func (pt PortType) IsVector() bool { return pt == Point || pt == Vector3 }

// PortSpec describes a fixed input or output port of an [OperatorKind].
type PortSpec struct {
	Name string
	Type PortType
	// Optional inputs may be left unconnected. Unconnected optional Point inputs
	// default to the sampled point, other optional inputs fall back to parameters.
	Optional bool
}

// ParamSpec describes a scalar parameter and its inclusive valid range.
type ParamSpec struct {
	Name     string
	Default  float32
	Min, Max float32
}

// InRange reports whether v is a valid value for the parameter.
func (ps ParamSpec) InRange(v float32) bool {
	return v >= ps.Min && v <= ps.Max // NaN fails both comparisons.
}

// Template generates the output expression of a node sampled at point p.
// in holds one [Input] per input port and params holds one rendered expression
// per parameter (a literal or a uniform read). Templates must be pure.
type Template func(p string, in []Input, params []string) string

// Evaluator computes the output of a node sampled at point p on the CPU.
// It mirrors the node's [Template] numerically.
type Evaluator func(p ms3.Vec, in []Sampler, params []float32) Sample

// OperatorKind is an immutable descriptor of an operator. Kinds are registered
// once in a [Catalog] and never mutated afterwards.
type OperatorKind struct {
	ID       string
	Category Category
	Inputs   []PortSpec
	Outputs  []PortSpec
	Params   []ParamSpec
	// Library lists helper shader functions called by Template.
	Library  []glsllib.Func
	Template Template
	Eval     Evaluator
}

// Param returns the index of the parameter with the given name or -1.
func (k *OperatorKind) Param(name string) int {
	for i := range k.Params {
		if k.Params[i].Name == name {
			return i
		}
	}
	return -1
}

// Input returns the index of the input port with the given name or -1.
func (k *OperatorKind) Input(name string) int {
	for i := range k.Inputs {
		if k.Inputs[i].Name == name {
			return i
		}
	}
	return -1
}

// Output returns the index of the output port with the given name or -1.
func (k *OperatorKind) Output(name string) int {
	for i := range k.Outputs {
		if k.Outputs[i].Name == name {
			return i
		}
	}
	return -1
}

// ResultType returns the type of the value the kind's template generates.
// Output kinds generate the distance of their input.
func (k *OperatorKind) ResultType() PortType {
	if len(k.Outputs) == 0 {
		return Distance
	}
	return k.Outputs[0].Type
}

// DefaultParams returns a new slice with the default value of every parameter.
func (k *OperatorKind) DefaultParams() []float32 {
	params := make([]float32, len(k.Params))
	for i := range k.Params {
		params[i] = k.Params[i].Default
	}
	return params
}

// Validate checks the kind is well formed so the generator can rely on it.
func (k *OperatorKind) Validate() error {
	var errs []error
	errf := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("kind %q: "+format, append([]any{k.ID}, args...)...))
	}
	if k.ID == "" {
		errf("empty ID")
	}
	if k.Category == categoryUndefined || k.Category > CategoryValue {
		errf("undefined category")
	}
	if k.Template == nil {
		errf("nil template")
	}
	if k.Eval == nil {
		errf("nil evaluator")
	}
	switch {
	case k.Category == CategoryOutput && len(k.Outputs) != 0:
		errf("output kinds have no output ports")
	case k.Category != CategoryOutput && len(k.Outputs) != 1:
		errf("want exactly one output port, got %d", len(k.Outputs))
	}
	names := make(map[string]bool)
	for _, ports := range [][]PortSpec{k.Inputs, k.Outputs} {
		// Inputs and outputs live in separate namespaces.
		clear(names)
		for _, port := range ports {
			if port.Name == "" {
				errf("empty port name")
			} else if names[port.Name] {
				errf("duplicate port name %q", port.Name)
			}
			names[port.Name] = true
			if port.Type == portTypeUndefined || port.Type > Vector3 {
				errf("port %q has undefined type", port.Name)
			}
		}
	}
	clear(names)
	for _, param := range k.Params {
		if param.Name == "" {
			errf("empty parameter name")
		} else if names[param.Name] {
			errf("duplicate parameter name %q", param.Name)
		}
		names[param.Name] = true
		if param.Min > param.Max {
			errf("parameter %q has empty range", param.Name)
		} else if !param.InRange(param.Default) {
			errf("parameter %q default %v outside [%v, %v]", param.Name, param.Default, param.Min, param.Max)
		}
	}
	for _, fn := range k.Library {
		if err := fn.Validate(); err != nil {
			errf("%w", err)
		}
	}
	return errors.Join(errs...)
}

// Input is a node input as seen by a [Template].
type Input struct {
	Type      PortType
	Connected bool
	at        func(p string) string
}

// NewInput returns a connected input which resolves its upstream expression with at.
func NewInput(typ PortType, at func(p string) string) Input {
	return Input{Type: typ, Connected: true, at: at}
}

// At returns the input's expression sampled at point p. Unconnected Point
// inputs are the identity and return p itself. Other unconnected inputs return
// an empty string; templates fall back to parameters for them.
func (in Input) At(p string) string {
	if in.Connected {
		return in.at(p)
	} else if in.Type == Point {
		return p
	}
	return ""
}

// Sample is the result of evaluating a node on the CPU. Distance and Scalar
// results are stored in S, Point and Vector3 results in V.
type Sample struct {
	S float32
	V ms3.Vec
}

// Sampler is a node input as seen by an [Evaluator].
type Sampler struct {
	Type      PortType
	Connected bool
	at        func(p ms3.Vec) Sample
}

// NewSampler returns a connected sampler which evaluates its upstream node with at.
func NewSampler(typ PortType, at func(p ms3.Vec) Sample) Sampler {
	return Sampler{Type: typ, Connected: true, at: at}
}

// At evaluates the input at p. Unconnected Point inputs return p itself.
func (s Sampler) At(p ms3.Vec) Sample {
	if s.Connected {
		return s.at(p)
	} else if s.Type == Point {
		return Sample{V: p}
	}
	return Sample{}
}

// paren wraps expr in parentheses unless it is an atom: an identifier,
// literal, indexed/swizzled identifier or a single function call.
func paren(expr string) string {
	if isAtom(expr) {
		return expr
	}
	return "(" + expr + ")"
}

func isAtom(expr string) bool {
	if expr == "" {
		return false
	}
	depth := 0
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
			if depth == 0 && c == ')' && i != len(expr)-1 {
				// Closing call parenthesis must end the expression unless followed by a swizzle.
				return isSwizzle(expr[i+1:])
			}
		case depth > 0:
			// Anything goes inside calls and indexing.
		case c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
		default:
			return false
		}
	}
	return depth == 0
}

func isSwizzle(s string) bool {
	if len(s) < 2 || s[0] != '.' {
		return false
	}
	return strings.Trim(s[1:], "xyzw") == ""
}

// swizzle appends a component selection to a vector expression.
func swizzle(vec, components string) string {
	return paren(vec) + "." + components
}

func call(fn string, args ...string) string {
	return fn + "(" + strings.Join(args, ",") + ")"
}

func vec3(x, y, z string) string { return call("vec3", x, y, z) }
