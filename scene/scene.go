// Package scene reads node graphs from HCL scene files:
//
//	node "ball" {
//	  kind     = "sphere"
//	  radius   = 1.5
//	  position = [0, 120] # editor position, ignored by compilation
//	}
//	node "move" {
//	  kind = "translate"
//	  xyz  = [1, 0, 0] # expands to x, y and z
//	}
//	node "out" { kind = "output" }
//	connect {
//	  from = "ball.distance"
//	  to   = "move.distance"
//	}
//	connect {
//	  from = "move.distance"
//	  to   = "out.distance"
//	}
//
// Every other attribute of a node block sets the parameter of the same name.
// Expressions may use the variable pi.
package scene

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/sdfgraph/graph"
	"github.com/soypat/sdfgraph/pipeline"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Scene is a decoded scene file.
type Scene struct {
	Nodes       []Node
	Connections []Connection
}

// Node is a named node declaration.
type Node struct {
	Name     string
	Kind     string
	Position ms2.Vec
	// Params in source order.
	Params []Param
	Range  hcl.Range
}

// Param is a parameter assignment.
type Param struct {
	Name  string
	Value float32
	Range hcl.Range
}

// Connection connects an output port to an input port by name.
type Connection struct {
	From, To Endpoint
	Range    hcl.Range
}

// Endpoint references a port as "node.port".
type Endpoint struct {
	Node, Port string
}

func (e Endpoint) String() string { return e.Node + "." + e.Port }

type fileRoot struct {
	Nodes    []*nodeBlock    `hcl:"node,block"`
	Connects []*connectBlock `hcl:"connect,block"`
}

type nodeBlock struct {
	Name     string         `hcl:"name,label"`
	Kind     string         `hcl:"kind"`
	Position *hcl.Attribute `hcl:"position,optional"`
	XYZ      *hcl.Attribute `hcl:"xyz,optional"`
	Params   hcl.Body       `hcl:",remain"`
	DefRange hcl.Range      `hcl:",def_range"`
}

type connectBlock struct {
	From     string    `hcl:"from"`
	To       string    `hcl:"to"`
	DefRange hcl.Range `hcl:",def_range"`
}

var evalCtx = &hcl.EvalContext{
	Variables: map[string]cty.Value{
		"pi": cty.NumberFloatVal(math.Pi),
	},
}

// LoadFile reads and parses the scene file at path.
func LoadFile(path string) (*Scene, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(src, path)
}

// Parse parses an HCL scene. filename is used in diagnostics. The returned
// error is an [hcl.Diagnostics] when the source is malformed.
func Parse(src []byte, filename string) (*Scene, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalCtx, &root)
	if diags.HasErrors() {
		return nil, diags
	}
	sc := &Scene{}
	names := make(map[string]bool)
	for _, nb := range root.Nodes {
		if names[nb.Name] {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate node",
				Detail:   fmt.Sprintf("A node named %q was already declared.", nb.Name),
				Subject:  nb.DefRange.Ptr(),
			})
			continue
		}
		names[nb.Name] = true
		node, nodeDiags := decodeNode(nb)
		diags = append(diags, nodeDiags...)
		sc.Nodes = append(sc.Nodes, node)
	}
	for _, cb := range root.Connects {
		from, fromErr := parseEndpoint(cb.From)
		to, toErr := parseEndpoint(cb.To)
		if err := errors.Join(fromErr, toErr); err != nil {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid connection",
				Detail:   err.Error(),
				Subject:  cb.DefRange.Ptr(),
			})
			continue
		}
		for _, e := range []Endpoint{from, to} {
			if !names[e.Node] {
				diags = diags.Append(&hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unknown node",
					Detail:   fmt.Sprintf("Connection references undeclared node %q.", e.Node),
					Subject:  cb.DefRange.Ptr(),
				})
			}
		}
		sc.Connections = append(sc.Connections, Connection{From: from, To: to, Range: cb.DefRange})
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return sc, nil
}

func decodeNode(nb *nodeBlock) (Node, hcl.Diagnostics) {
	node := Node{Name: nb.Name, Kind: nb.Kind, Range: nb.DefRange}
	var diags hcl.Diagnostics
	if nb.Position != nil {
		pos, d := decodeFloats(nb.Position.Expr, 2)
		diags = append(diags, d...)
		if len(pos) == 2 {
			node.Position = ms2.Vec{X: pos[0], Y: pos[1]}
		}
	}
	if nb.XYZ != nil {
		xyz, d := decodeFloats(nb.XYZ.Expr, 3)
		diags = append(diags, d...)
		for i, v := range xyz {
			node.Params = append(node.Params, Param{Name: string("xyz"[i]), Value: v, Range: nb.XYZ.Range})
		}
	}
	attrs, d := nb.Params.JustAttributes()
	diags = append(diags, d...)
	sorted := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		sorted = append(sorted, attr)
	}
	slices.SortFunc(sorted, func(a, b *hcl.Attribute) int { return a.Range.Start.Byte - b.Range.Start.Byte })
	for _, attr := range sorted {
		v, d := decodeFloats(attr.Expr, 1)
		diags = append(diags, d...)
		if len(v) == 1 {
			node.Params = append(node.Params, Param{Name: attr.Name, Value: v[0], Range: attr.Range})
		}
	}
	return node, diags
}

// decodeFloats evaluates expr as a number (n == 1) or a sequence of n numbers.
func decodeFloats(expr hcl.Expression, n int) ([]float32, hcl.Diagnostics) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	bad := func(detail string) ([]float32, hcl.Diagnostics) {
		return nil, diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid value",
			Detail:   detail,
			Subject:  expr.Range().Ptr(),
		})
	}
	if val.IsNull() || !val.IsKnown() {
		return bad("Value must be known and not null.")
	}
	var elems []cty.Value
	if n == 1 {
		elems = []cty.Value{val}
	} else {
		ty := val.Type()
		if !ty.IsTupleType() && !ty.IsListType() || val.LengthInt() != n {
			return bad(fmt.Sprintf("Want a list of %d numbers.", n))
		}
		elems = val.AsValueSlice()
	}
	out := make([]float32, len(elems))
	for i, elem := range elems {
		if err := gocty.FromCtyValue(elem, &out[i]); err != nil {
			return bad(fmt.Sprintf("Want a number: %s.", err))
		}
	}
	return out, diags
}

func parseEndpoint(s string) (Endpoint, error) {
	node, port, ok := strings.Cut(s, ".")
	if !ok || node == "" || port == "" || strings.Contains(port, ".") {
		return Endpoint{}, fmt.Errorf("want \"node.port\", got %q", s)
	}
	return Endpoint{Node: node, Port: port}, nil
}

// Apply adds the scene's nodes and connections to p in source order and
// returns the node id of every named node. It stops at the first rejected command.
func (sc *Scene) Apply(p *pipeline.Pipeline) (map[string]graph.NodeID, error) {
	ids := make(map[string]graph.NodeID, len(sc.Nodes))
	for _, node := range sc.Nodes {
		r := p.Apply(pipeline.AddNode{Kind: node.Kind, Position: node.Position})
		if r.Err != nil {
			return ids, fmt.Errorf("%s: node %q: %w", node.Range, node.Name, r.Err)
		}
		ids[node.Name] = r.Node
		for _, param := range node.Params {
			r = p.Apply(pipeline.SetParameter{Node: ids[node.Name], Name: param.Name, Value: param.Value})
			if r.Err != nil {
				return ids, fmt.Errorf("%s: node %q: %w", param.Range, node.Name, r.Err)
			}
		}
	}
	g := p.Graph()
	for _, conn := range sc.Connections {
		src, err := g.OutputNamed(ids[conn.From.Node], conn.From.Port)
		if err != nil {
			return ids, fmt.Errorf("%s: %s: %w", conn.Range, conn.From, err)
		}
		dst, err := g.InputNamed(ids[conn.To.Node], conn.To.Port)
		if err != nil {
			return ids, fmt.Errorf("%s: %s: %w", conn.Range, conn.To, err)
		}
		r := p.Apply(pipeline.Connect{Src: src, Dst: dst})
		if r.Err != nil {
			return ids, fmt.Errorf("%s: connect %s to %s: %w", conn.Range, conn.From, conn.To, r.Err)
		}
	}
	return ids, nil
}
