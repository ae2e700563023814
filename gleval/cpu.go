package gleval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph"
	"github.com/soypat/sdfgraph/graph"
)

// GraphSDF3 evaluates a node graph on the CPU using the evaluators of its
// node kinds. It is built once from a graph and evaluation order and does not
// observe later edits to the graph.
type GraphSDF3 struct {
	root  func(p ms3.Vec) sdfgraph.Sample
	bb    ms3.Box
	nodes int
}

var _ SDF3 = (*GraphSDF3)(nil)

// NewGraphSDF3 builds a CPU evaluator for g walking order, which must end in the
// output node as returned by [graph.Order]. bb is reported by Bounds since
// graphs carry no bounding information. Nodes feeding several inputs cache
// their last sample so shared subgraphs are evaluated once per position,
// which makes GraphSDF3 unsafe for concurrent use.
func NewGraphSDF3(g *graph.Graph, order []graph.NodeID, bb ms3.Box) (*GraphSDF3, error) {
	if len(order) == 0 {
		return nil, errors.New("empty evaluation order")
	}
	done := make(map[graph.NodeID]func(ms3.Vec) sdfgraph.Sample, len(order))
	uses := make(map[graph.NodeID]int, len(order))
	for _, id := range order {
		if node := g.Node(id); node != nil {
			for j := range node.Kind.Inputs {
				if conn, ok := g.Incoming(graph.InPort(id, j)); ok {
					uses[conn.Src.Node]++
				}
			}
		}
	}
	var root func(ms3.Vec) sdfgraph.Sample
	for i, id := range order {
		node := g.Node(id)
		if node == nil {
			return nil, fmt.Errorf("node %d in order: %w", id, graph.ErrNodeNotFound)
		}
		kind := node.Kind
		samplers := make([]sdfgraph.Sampler, len(kind.Inputs))
		for j, port := range kind.Inputs {
			conn, connected := g.Incoming(graph.InPort(id, j))
			if !connected {
				if !port.Optional {
					return nil, fmt.Errorf("%s node %d input %q: %w", kind.ID, id, port.Name, graph.ErrUnconnectedInput)
				}
				samplers[j] = sdfgraph.Sampler{Type: port.Type}
				continue
			}
			up, ok := done[conn.Src.Node]
			if !ok {
				return nil, fmt.Errorf("%s node %d input %q: upstream node %d not evaluated before use", kind.ID, id, port.Name, conn.Src.Node)
			}
			samplers[j] = sdfgraph.NewSampler(port.Type, up)
		}
		params := append([]float32(nil), node.Params...)
		eval := kind.Eval
		at := func(p ms3.Vec) sdfgraph.Sample { return eval(p, samplers, params) }
		if uses[id] > 1 {
			at = memoized(at)
		}
		done[id] = at
		if i == len(order)-1 {
			if kind.Category != sdfgraph.CategoryOutput {
				return nil, fmt.Errorf("order must end in the output node, got %s node %d", kind.ID, id)
			}
			root = at
		}
	}
	return &GraphSDF3{root: root, bb: bb, nodes: len(order)}, nil
}

// memoized returns at caching the sample of the last point evaluated.
func memoized(at func(ms3.Vec) sdfgraph.Sample) func(ms3.Vec) sdfgraph.Sample {
	var (
		last   ms3.Vec
		sample sdfgraph.Sample
		valid  bool
	)
	return func(p ms3.Vec) sdfgraph.Sample {
		if valid && p == last {
			return sample
		}
		sample = at(p)
		last = p
		valid = true
		return sample
	}
}

// Evaluate implements [SDF3]. userData is unused.
func (s *GraphSDF3) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	for i, p := range pos {
		dist[i] = s.root(p).S
	}
	return nil
}

// Bounds returns the bounding box given at construction.
func (s *GraphSDF3) Bounds() ms3.Box { return s.bb }

// Nodes returns the number of nodes evaluated per position.
func (s *GraphSDF3) Nodes() int { return s.nodes }
