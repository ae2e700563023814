package graph

import (
	"fmt"
	"strconv"
)

// Direction distinguishes input ports from output ports.
type Direction uint8

const (
	dirUndefined Direction = iota
	In
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	}
	return "undefined"
}

// Port is a view into a node's input or output port. The port's name and
// semantic type are resolved through the node's kind, see [Graph.PortSpec].
type Port struct {
	Node  NodeID
	Dir   Direction
	Index int
}

// InPort returns the index'th input port of node.
func InPort(node NodeID, index int) Port { return Port{Node: node, Dir: In, Index: index} }

// OutPort returns the index'th output port of node.
func OutPort(node NodeID, index int) Port { return Port{Node: node, Dir: Out, Index: index} }

func (p Port) String() string {
	return "node " + strconv.Itoa(int(p.Node)) + " " + p.Dir.String() + "[" + strconv.Itoa(p.Index) + "]"
}

// InputNamed returns the input port of node with the given name.
func (g *Graph) InputNamed(node NodeID, name string) (Port, error) {
	return g.portNamed(node, In, name)
}

// OutputNamed returns the output port of node with the given name.
func (g *Graph) OutputNamed(node NodeID, name string) (Port, error) {
	return g.portNamed(node, Out, name)
}

func (g *Graph) portNamed(id NodeID, dir Direction, name string) (Port, error) {
	node, ok := g.nodes[id]
	if !ok {
		return Port{}, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	var idx int
	if dir == In {
		idx = node.Kind.Input(name)
	} else {
		idx = node.Kind.Output(name)
	}
	if idx < 0 {
		return Port{}, fmt.Errorf("%w: %s %q on %s", ErrPortNotFound, dir, name, node.Kind.ID)
	}
	return Port{Node: id, Dir: dir, Index: idx}, nil
}
