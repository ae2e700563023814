// Package glbuild generates shader source code from an SDF node graph.
// Every node reachable from the output becomes one shader function whose name
// is derived from its kind and a hash of its body, so identical subgraphs are
// written once. The output node's input becomes the body of the fixed
// entrypoint
//
//	float sdf(vec3 p)
//
// which is what the visualizer and compute programs call.
package glbuild

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soypat/sdfgraph"
	"github.com/soypat/sdfgraph/glbuild/glsllib"
	"github.com/soypat/sdfgraph/graph"
)

const VersionStr = "#version 430\n"

// SDFName is the name of the generated entrypoint function.
const SDFName = "sdf"

// UniformName is the name of the parameter array in [ParamsUniform] mode.
const UniformName = "uParams"

// ErrNameConflict is returned when two different shader functions generate the same name.
var ErrNameConflict = errors.New("shader function name conflict")

// Dialect is the shading language generated.
type Dialect uint8

const (
	DialectGLSL Dialect = iota // GLSL 4.30
	DialectWGSL                // WebGPU shading language
)

func (d Dialect) String() string {
	switch d {
	case DialectGLSL:
		return "glsl"
	case DialectWGSL:
		return "wgsl"
	}
	return "Dialect(" + strconv.Itoa(int(d)) + ")"
}

// ParamMode selects how node parameters reach the shader.
type ParamMode uint8

const (
	// ParamsInline writes parameters as literals. Any parameter edit changes the source.
	ParamsInline ParamMode = iota
	// ParamsUniform reads parameters from a uniform array of vec4s. Parameter
	// edits only change [CompiledShader.Uniforms] and the program needs no relink.
	ParamsUniform
)

func (m ParamMode) String() string {
	switch m {
	case ParamsInline:
		return "inline"
	case ParamsUniform:
		return "uniform"
	}
	return "ParamMode(" + strconv.Itoa(int(m)) + ")"
}

// NodeExpr is the generated code of one node.
type NodeExpr struct {
	Node graph.NodeID
	Kind string
	// Name of the generated shader function. The output node is named [SDFName].
	Name string
	Type sdfgraph.PortType
	// Body is the expression returned by the node's function in terms of p.
	Body string
	// UniformSlot is the first vec4 of the node's parameters in [ParamsUniform] mode, -1 otherwise.
	UniformSlot int
}

// CompiledShader is an immutable snapshot of a successful generation.
type CompiledShader struct {
	// Generation increases with every shader the [Programmer] generates.
	Generation uint64
	Dialect    Dialect
	ParamMode  ParamMode
	// Nodes holds the generated code per node in evaluation order. The output node is last.
	Nodes []NodeExpr
	// Source contains the library functions, node functions and the sdf entrypoint.
	Source string
	// Expression is the root distance in terms of p with every node inlined
	// into its consumer. Nodes feeding more than one input are not inlined and
	// appear as calls to their function in Source.
	Expression string
	// Uniforms holds the packed vec4 parameter values in [ParamsUniform] mode.
	Uniforms []float32
}

// UniformSlots returns the length of the vec4 uniform array.
func (cs *CompiledShader) UniformSlots() int { return len(cs.Uniforms) / 4 }

// Programmer implements shader generation from graphs. The zero value generates
// GLSL with inlined parameters. A Programmer is not safe for concurrent use.
type Programmer struct {
	ParamMode ParamMode
	Dialect   Dialect

	scratch []byte
	// names maps shader names to body hashes for checking duplicates.
	names map[uint64]uint64
	// Invocations size in X (local group size) to give each compute work group.
	invocX     int
	generation uint64
}

// NewDefaultProgrammer returns a Programmer with reasonable default parameters for use with glgl package on the local machine.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch: make([]byte, 0, 1024),
		names:   make(map[uint64]uint64),
		invocX:  32,
	}
}

// SetComputeInvocations sets the work group local-sizes. x*y*z must be less than maximum number of invocations.
func (p *Programmer) SetComputeInvocations(x, y, z int) {
	if y != 1 || z != 1 {
		panic("unsupported")
	} else if x < 1 {
		panic("zero or negative X invocation size")
	}
	p.invocX = x
}

// ComputeInvocations returns the worker group invocation size in x y and z.
func (p *Programmer) ComputeInvocations() (int, int, int) {
	if p.invocX == 0 {
		return 32, 1, 1
	}
	return p.invocX, 1, 1
}

// Generation returns the generation of the last shader generated.
func (p *Programmer) Generation() uint64 { return p.generation }

// Generate walks order once, resolving every node's inputs from the functions
// generated for upstream nodes, and returns the compiled shader. order must be
// a topological order of nodes of g ending in the output node, as returned by [graph.Order].
// Identical graphs always generate byte-identical sources.
func (p *Programmer) Generate(g *graph.Graph, order []graph.NodeID) (*CompiledShader, error) {
	if len(order) == 0 {
		return nil, errors.New("empty evaluation order")
	}
	if p.names == nil {
		p.names = make(map[uint64]uint64)
	}
	clear(p.names)
	cs := &CompiledShader{
		Dialect:   p.Dialect,
		ParamMode: p.ParamMode,
		Nodes:     make([]NodeExpr, 0, len(order)),
	}
	type generated struct {
		name   string
		inline func(p string) string
	}
	done := make(map[graph.NodeID]generated, len(order))
	uses := consumers(g, order)
	var library []glsllib.Func
	var decls []byte
	for i, id := range order {
		node := g.Node(id)
		if node == nil {
			return nil, fmt.Errorf("node %d in order: %w", id, graph.ErrNodeNotFound)
		}
		kind := node.Kind
		isOutput := kind.Category == sdfgraph.CategoryOutput
		if isOutput != (i == len(order)-1) {
			return nil, fmt.Errorf("order must end in the output node, got %s node %d at position %d", kind.ID, id, i)
		}
		calls := make([]sdfgraph.Input, len(kind.Inputs))
		inlines := make([]sdfgraph.Input, len(kind.Inputs))
		for j, port := range kind.Inputs {
			conn, connected := g.Incoming(graph.InPort(id, j))
			if !connected {
				if !port.Optional {
					return nil, fmt.Errorf("%s node %d input %q: %w", kind.ID, id, port.Name, graph.ErrUnconnectedInput)
				}
				calls[j] = sdfgraph.Input{Type: port.Type}
				inlines[j] = sdfgraph.Input{Type: port.Type}
				continue
			}
			up, ok := done[conn.Src.Node]
			if !ok {
				return nil, fmt.Errorf("%s node %d input %q: upstream node %d not generated before use", kind.ID, id, port.Name, conn.Src.Node)
			}
			calls[j] = sdfgraph.NewInput(port.Type, func(q string) string { return up.name + "(" + q + ")" })
			inlines[j] = sdfgraph.NewInput(port.Type, up.inline)
		}

		slot := -1
		if p.ParamMode == ParamsUniform && len(node.Params) > 0 {
			slot = len(cs.Uniforms) / 4
			cs.Uniforms = appendPadded(cs.Uniforms, node.Params)
		}
		params := p.renderParams(node.Params, slot)
		body := kind.Template("p", calls, params)
		inline := func(q string) string { return kind.Template(q, inlines, params) }

		expr := NodeExpr{
			Node:        id,
			Kind:        kind.ID,
			Type:        kind.ResultType(),
			Body:        body,
			UniformSlot: slot,
		}
		if isOutput {
			expr.Name = SDFName
			cs.Expression = inline("p")
		} else {
			expr.Name = shaderName(kind.ID, body)
		}
		cs.Nodes = append(cs.Nodes, expr)
		if uses[id] > 1 {
			name := expr.Name
			inline = func(q string) string { return name + "(" + q + ")" }
		}
		done[id] = generated{name: expr.Name, inline: inline}

		for _, fn := range kind.Library {
			library = appendFunc(library, fn)
		}
		isNew, err := p.register(expr.Name, body)
		if err != nil {
			return nil, fmt.Errorf("%s node %d: %w", kind.ID, id, err)
		} else if isNew {
			decls = p.appendFuncDecl(decls, expr.Name, expr.Type, body)
		}
	}
	if err := checkLibrary(library); err != nil {
		return nil, err
	}

	src := p.scratch[:0]
	if p.ParamMode == ParamsUniform && len(cs.Uniforms) > 0 {
		src = p.appendUniformDecl(src, len(cs.Uniforms)/4)
	}
	for _, fn := range library {
		if p.Dialect == DialectWGSL {
			src = append(src, fn.WGSL...)
		} else {
			src = append(src, fn.GLSL...)
		}
		src = append(src, "\n\n"...)
	}
	src = append(src, decls...)
	cs.Source = string(src)
	p.scratch = src[:0]
	p.generation++
	cs.Generation = p.generation
	return cs, nil
}

// consumers counts the inputs of nodes in order fed by each node.
func consumers(g *graph.Graph, order []graph.NodeID) map[graph.NodeID]int {
	uses := make(map[graph.NodeID]int, len(order))
	for _, id := range order {
		node := g.Node(id)
		if node == nil {
			continue
		}
		for j := range node.Kind.Inputs {
			if conn, ok := g.Incoming(graph.InPort(id, j)); ok {
				uses[conn.Src.Node]++
			}
		}
	}
	return uses
}

// register records a shader function and reports whether it was not yet written.
func (p *Programmer) register(name, body string) (isNew bool, err error) {
	nameHash := hash([]byte(name), 0)
	bodyHash := hash([]byte(body), nameHash) // Body hash mixes name as well.
	gotBodyHash, nameConflict := p.names[nameHash]
	if !nameConflict {
		p.names[nameHash] = bodyHash
		return true, nil
	} else if gotBodyHash == bodyHash {
		return false, nil // Shader already written and is identical, skip.
	}
	return false, fmt.Errorf("%w: %q w/ body %q", ErrNameConflict, name, body)
}

func (p *Programmer) renderParams(values []float32, slot int) []string {
	params := make([]string, len(values))
	for i, v := range values {
		if slot < 0 {
			params[i] = string(AppendFloat(nil, '-', '.', v))
			continue
		}
		component := "xyzw"[i%4]
		if p.Dialect == DialectWGSL {
			params[i] = fmt.Sprintf("%s.v[%d].%c", UniformName, slot+i/4, component)
		} else {
			params[i] = fmt.Sprintf("%s[%d].%c", UniformName, slot+i/4, component)
		}
	}
	return params
}

func appendPadded(dst, params []float32) []float32 {
	dst = append(dst, params...)
	for len(dst)%4 != 0 {
		dst = append(dst, 0)
	}
	return dst
}

func (p *Programmer) appendUniformDecl(b []byte, slots int) []byte {
	if p.Dialect == DialectWGSL {
		b = fmt.Appendf(b, "struct SDFParams {\n\tv: array<vec4<f32>, %d>,\n}\n\n@group(0) @binding(2) var<uniform> %s: SDFParams;\n\n", slots, UniformName)
	} else {
		b = fmt.Appendf(b, "uniform vec4 %s[%d];\n\n", UniformName, slots)
	}
	return b
}

func (p *Programmer) appendFuncDecl(b []byte, name string, typ sdfgraph.PortType, body string) []byte {
	if p.Dialect == DialectWGSL {
		ret := "f32"
		if typ.IsVector() {
			ret = "vec3<f32>"
		}
		b = append(b, "fn "+name+"(p: vec3<f32>) -> "+ret+" {\n\treturn "...)
	} else {
		ret := "float"
		if typ.IsVector() {
			ret = "vec3"
		}
		b = append(b, ret+" "+name+"(vec3 p) {\n\treturn "...)
	}
	b = append(b, body...)
	b = append(b, ";\n}\n\n"...)
	return b
}

// appendFunc adds fn to the library unless a function with the same name is present.
func appendFunc(library []glsllib.Func, fn glsllib.Func) []glsllib.Func {
	for i := range library {
		if library[i].Name == fn.Name {
			if library[i] != fn {
				// Keep both so checkLibrary reports the conflict.
				return append(library, fn)
			}
			return library
		}
	}
	return append(library, fn)
}

func checkLibrary(library []glsllib.Func) error {
	for i := range library {
		for j := i + 1; j < len(library); j++ {
			if library[i].Name == library[j].Name {
				return fmt.Errorf("%w: distinct library functions named %q", ErrNameConflict, library[i].Name)
			}
		}
	}
	return nil
}

// shaderName returns a valid identifier for a node function. Equal kind and body
// always produce the same name.
func shaderName(kindID, body string) string {
	b := make([]byte, 0, len(kindID)+14)
	for i := 0; i < len(kindID); i++ {
		c := kindID[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			c = '_'
		}
		b = append(b, c)
	}
	b = append(b, '_')
	return string(strconv.AppendUint(b, hash([]byte(body), hash([]byte(kindID), 0)), 32))
}

//go:embed visualizer_footer.tmpl
var visualizerFooter []byte

var defaultComputeHeader = []byte("#shader compute\n" + VersionStr)

// WriteFragVisualizer writes a complete raymarching fragment program for cs.
// The program expects the uniforms declared in the visualizer footer
// (uResolution, uYaw, uPitch, uCamDist, uCharDist, uAA, uShading) and a vertex
// stage providing vTexCoord in [0,1]. Only GLSL shaders are supported.
func (p *Programmer) WriteFragVisualizer(w io.Writer, cs *CompiledShader) (int, error) {
	if cs.Dialect != DialectGLSL {
		return 0, fmt.Errorf("visualizer requires %s shader, got %s", DialectGLSL, cs.Dialect)
	}
	n, err := io.WriteString(w, VersionStr)
	if err != nil {
		return n, err
	}
	ngot, err := io.WriteString(w, cs.Source)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = w.Write(visualizerFooter)
	n += ngot
	return n, err
}

// WriteComputeSDF3 writes the bare bones I/O compute program evaluating the SDF
// of cs over a buffer of positions. GLSL programs read tightly packed vec3
// positions from binding 0 and write distances to binding 1, and carry the
// "#shader compute" tag expected by glgl.ParseCombined. WGSL programs use
// storage buffers at the same bindings of group 0.
func (p *Programmer) WriteComputeSDF3(w io.Writer, cs *CompiledShader) (int, error) {
	invocX, _, _ := p.ComputeInvocations()
	if cs.Dialect == DialectWGSL {
		n, err := io.WriteString(w, cs.Source)
		if err != nil {
			return n, err
		}
		ngot, err := fmt.Fprintf(w, `@group(0) @binding(0) var<storage, read> positions: array<f32>;
@group(0) @binding(1) var<storage, read_write> distances: array<f32>;

@compute @workgroup_size(%d)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
	let idx = gid.x;
	if (idx >= arrayLength(&distances)) {
		return;
	}
	let p = vec3<f32>(positions[3u*idx], positions[3u*idx+1u], positions[3u*idx+2u]);
	distances[idx] = %s(p);
}
`, invocX, SDFName)
		return n + ngot, err
	}
	n, err := w.Write(defaultComputeHeader)
	if err != nil {
		return n, err
	}
	ngot, err := io.WriteString(w, cs.Source)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = fmt.Fprintf(w, `layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

// Input: 3D positions at which to evaluate SDF.
layout(std430, binding = 0) buffer PositionsBuffer {
	float vbo_positions[];
};

// Output: Result of SDF evaluation are the distances. Maps to position buffer.
layout(std430, binding = 1) buffer DistancesBuffer {
	float vbo_distances[];
};

void main() {
	int idx = int( gl_GlobalInvocationID.x );
	if (idx >= vbo_distances.length()) {
		return;
	}
	vec3 p = vec3(vbo_positions[3*idx], vbo_positions[3*idx+1], vbo_positions[3*idx+2]);
	vbo_distances[idx] = %s(p);
}
`, invocX, SDFName)
	n += ngot
	return n, err
}

// AppendFloat appends the shortest decimal representation of v that parses
// back to the same float32. The result always contains a decimal separator
// followed by at least one digit so that it is a float literal in all dialects.
// neg and decimal replace the minus sign and decimal point, which allows
// embedding numbers in identifiers.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', -1, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if idx < 0 {
		b = append(b, decimal, '0')
	} else if decimal != '.' {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	return b
}

// AppendFloats appends s as float literals separated by sep.
func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

// FormatNodes returns a readable listing of the generated node functions, one per line.
func FormatNodes(cs *CompiledShader) string {
	var sb strings.Builder
	for _, n := range cs.Nodes {
		fmt.Fprintf(&sb, "%d\t%s\t%s = %s\n", n.Node, n.Kind, n.Name, n.Body)
	}
	return sb.String()
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
