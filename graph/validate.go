package graph

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/soypat/sdfgraph"
)

// Severity indicates whether a diagnostic blocks compilation or is merely informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks compilation
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic is a single validation finding. Diagnostics are errors that
// unwrap to one of the package's validation sentinels.
type Diagnostic struct {
	Severity Severity
	Node     NodeID // Zero for graph level findings.
	Input    int    // Input port index or -1 when not port specific.
	Err      error  // Sentinel.
	Message  string
}

func (d Diagnostic) Error() string {
	if d.Node == 0 {
		return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("[%s] node %d: %s", d.Severity, d.Node, d.Message)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// Report is the result of [Validate]. Diagnostics are sorted by node, then input port.
type Report struct {
	Diagnostics []Diagnostic
}

// Errors returns the fatal diagnostics.
func (r Report) Errors() []Diagnostic { return r.filter(SeverityError) }

// Warnings returns the informational diagnostics.
func (r Report) Warnings() []Diagnostic { return r.filter(SeverityWarning) }

func (r Report) filter(s Severity) []Diagnostic {
	var diags []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			diags = append(diags, d)
		}
	}
	return diags
}

// Err returns a [*ValidationError] holding the fatal diagnostics, or nil if there are none.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Diagnostics: errs}
}

// Validate checks g is compilable: exactly one output node and every required
// input of the nodes feeding it is connected. Nodes that do not feed the output
// are reported as warnings. Validate never mutates the graph.
func Validate(g *Graph) Report {
	var diags []Diagnostic
	var outputs []NodeID
	for _, id := range g.NodeIDs() {
		if g.nodes[id].Kind.Category == sdfgraph.CategoryOutput {
			outputs = append(outputs, id)
		}
	}
	switch len(outputs) {
	case 0:
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Input:    -1,
			Err:      ErrNoOutput,
			Message:  ErrNoOutput.Error(),
		})
		return Report{Diagnostics: diags}
	case 1:
	default:
		for _, id := range outputs[1:] {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Node:     id,
				Input:    -1,
				Err:      ErrMultipleOutputs,
				Message:  fmt.Sprintf("output node in addition to node %d", outputs[0]),
			})
		}
	}

	reachable := g.upstream(outputs[0])
	for _, id := range g.NodeIDs() {
		node := g.nodes[id]
		if !reachable[id] {
			if node.Kind.Category != sdfgraph.CategoryOutput {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Node:     id,
					Input:    -1,
					Err:      ErrUnreachableNode,
					Message:  fmt.Sprintf("%s node does not feed the output and is ignored", node.Kind.ID),
				})
			}
			continue
		}
		for i, input := range node.Kind.Inputs {
			if input.Optional {
				continue
			}
			if _, connected := g.incoming[InPort(id, i)]; !connected {
				diags = append(diags, Diagnostic{
					Severity: SeverityError,
					Node:     id,
					Input:    i,
					Err:      ErrUnconnectedInput,
					Message:  fmt.Sprintf("%s input %q not connected", node.Kind.ID, input.Name),
				})
			}
		}
	}
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		return cmp.Or(cmp.Compare(a.Node, b.Node), cmp.Compare(a.Input, b.Input))
	})
	return Report{Diagnostics: diags}
}

// upstream returns the set of nodes with a path to root, root included.
func (g *Graph) upstream(root NodeID) map[NodeID]bool {
	visited := map[NodeID]bool{root: true}
	stack := []NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := g.nodes[id]
		for i := range node.Kind.Inputs {
			conn, ok := g.Incoming(InPort(id, i))
			if ok && !visited[conn.Src.Node] {
				visited[conn.Src.Node] = true
				stack = append(stack, conn.Src.Node)
			}
		}
	}
	return visited
}
