// Package graph implements the mutable SDF node graph: an arena of operator
// nodes keyed by [NodeID] and a set of typed connections between their ports.
// Every mutation is validated up front and either fully applied or rejected
// leaving the graph untouched, so the graph is always a DAG with at most one
// connection per input and at most one output node.
package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/sdfgraph"
)

// NodeID identifies a node. IDs are assigned in increasing order starting at 1
// and never reused. The zero value is never a valid ID.
type NodeID int

// ConnID identifies a connection. Same assignment rules as [NodeID].
type ConnID int

// Node is an instance of an operator kind.
type Node struct {
	ID   NodeID
	Kind *sdfgraph.OperatorKind
	// Params holds one value per parameter of Kind, in declaration order.
	Params []float32
	// Position is owned by the editor and ignored by compilation.
	Position ms2.Vec
}

// Param returns the value of the named parameter.
func (n *Node) Param(name string) (float32, bool) {
	idx := n.Kind.Param(name)
	if idx < 0 {
		return 0, false
	}
	return n.Params[idx], true
}

// Connection links an output port of one node to an input port of another.
type Connection struct {
	ID  ConnID
	Src Port
	Dst Port
}

// Graph is the node arena plus connection set. The zero value is not usable, use [New].
// A Graph is not safe for concurrent use.
type Graph struct {
	catalog  *sdfgraph.Catalog
	nodes    map[NodeID]*Node
	conns    map[ConnID]Connection
	incoming map[Port]ConnID
	output   NodeID
	lastNode NodeID
	lastConn ConnID
}

// New returns an empty graph whose nodes are instantiated from catalog.
// If catalog is nil [sdfgraph.DefaultCatalog] is used.
func New(catalog *sdfgraph.Catalog) *Graph {
	if catalog == nil {
		catalog = sdfgraph.DefaultCatalog()
	}
	return &Graph{
		catalog:  catalog,
		nodes:    make(map[NodeID]*Node),
		conns:    make(map[ConnID]Connection),
		incoming: make(map[Port]ConnID),
	}
}

// Catalog returns the catalog nodes are instantiated from.
func (g *Graph) Catalog() *sdfgraph.Catalog { return g.catalog }

// AddNode instantiates a node of the given kind with default parameters.
func (g *Graph) AddNode(kindID string) (NodeID, error) {
	kind, err := g.catalog.Lookup(kindID)
	if err != nil {
		return 0, err
	}
	if kind.Category == sdfgraph.CategoryOutput && g.output != 0 {
		return 0, fmt.Errorf("%w: node %d", ErrOutputExists, g.output)
	}
	g.lastNode++
	id := g.lastNode
	g.nodes[id] = &Node{
		ID:     id,
		Kind:   kind,
		Params: kind.DefaultParams(),
	}
	if kind.Category == sdfgraph.CategoryOutput {
		g.output = id
	}
	return id, nil
}

// RemoveNode deletes a node and every connection incident to it.
// The removed connections are returned sorted by ID.
func (g *Graph) RemoveNode(id NodeID) ([]Connection, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("remove node %d: %w", id, ErrNodeNotFound)
	}
	var removed []Connection
	for _, conn := range g.conns {
		if conn.Src.Node == id || conn.Dst.Node == id {
			removed = append(removed, conn)
		}
	}
	slices.SortFunc(removed, func(a, b Connection) int { return int(a.ID - b.ID) })
	for _, conn := range removed {
		g.removeConn(conn)
	}
	delete(g.nodes, id)
	if g.output == id {
		g.output = 0
	}
	return removed, nil
}

// SetPosition sets the editor position of a node.
func (g *Graph) SetPosition(id NodeID, pos ms2.Vec) error {
	node, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set position of node %d: %w", id, ErrNodeNotFound)
	}
	node.Position = pos
	return nil
}

// SetParameter sets a named parameter of a node. Values outside the
// parameter's range (and NaN) are rejected.
func (g *Graph) SetParameter(id NodeID, name string, value float32) error {
	node, ok := g.nodes[id]
	if !ok {
		return &ParamError{Node: id, Name: name, Value: value, Err: ErrNodeNotFound}
	}
	idx := node.Kind.Param(name)
	if idx < 0 {
		return &ParamError{Node: id, Name: name, Value: value, Err: ErrUnknownParameter, Msg: "kind " + node.Kind.ID}
	}
	spec := node.Kind.Params[idx]
	if !spec.InRange(value) {
		return &ParamError{Node: id, Name: name, Value: value, Err: ErrOutOfRange, Msg: fmt.Sprintf("want [%v, %v]", spec.Min, spec.Max)}
	}
	node.Params[idx] = value
	return nil
}

// Connect links output port src to input port dst. The connection is rejected
// with a [*ConnectionError] if ports are malformed, types differ, the input is
// already connected or the connection would close a cycle.
func (g *Graph) Connect(src, dst Port) (ConnID, error) {
	connErr := func(err error, msg string) (ConnID, error) {
		return 0, &ConnectionError{Src: src, Dst: dst, Err: err, Msg: msg}
	}
	if src.Dir != Out || dst.Dir != In {
		return connErr(ErrPortDirection, "want output to input")
	}
	srcSpec, err := g.PortSpec(src)
	if err != nil {
		return 0, &ConnectionError{Src: src, Dst: dst, Err: err}
	}
	dstSpec, err := g.PortSpec(dst)
	if err != nil {
		return 0, &ConnectionError{Src: src, Dst: dst, Err: err}
	}
	switch {
	case src.Node == dst.Node:
		return connErr(ErrSelfLoop, "")
	case srcSpec.Type != dstSpec.Type:
		return connErr(ErrTypeMismatch, fmt.Sprintf("%s output %q to %s input %q", srcSpec.Type, srcSpec.Name, dstSpec.Type, dstSpec.Name))
	}
	if existing, occupied := g.incoming[dst]; occupied {
		return connErr(ErrInputOccupied, fmt.Sprintf("by connection %d", existing))
	}
	if g.reaches(dst.Node, src.Node) {
		return connErr(ErrWouldCreateCycle, "")
	}
	g.lastConn++
	id := g.lastConn
	g.conns[id] = Connection{ID: id, Src: src, Dst: dst}
	g.incoming[dst] = id
	return id, nil
}

// Disconnect removes a connection.
func (g *Graph) Disconnect(id ConnID) error {
	conn, ok := g.conns[id]
	if !ok {
		return fmt.Errorf("disconnect %d: %w", id, ErrConnNotFound)
	}
	g.removeConn(conn)
	return nil
}

func (g *Graph) removeConn(conn Connection) {
	delete(g.conns, conn.ID)
	delete(g.incoming, conn.Dst)
}

// reaches reports whether there is a path following connections from node from to node to.
func (g *Graph) reaches(from, to NodeID) bool {
	downstream := make(map[NodeID][]NodeID)
	for _, conn := range g.conns {
		downstream[conn.Src.Node] = append(downstream[conn.Src.Node], conn.Dst.Node)
	}
	visited := map[NodeID]bool{from: true}
	stack := []NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		for _, next := range downstream[id] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// PortSpec resolves the specification of a port through its node's kind.
func (g *Graph) PortSpec(p Port) (sdfgraph.PortSpec, error) {
	node, ok := g.nodes[p.Node]
	if !ok {
		return sdfgraph.PortSpec{}, fmt.Errorf("%w: %d", ErrNodeNotFound, p.Node)
	}
	var ports []sdfgraph.PortSpec
	switch p.Dir {
	case In:
		ports = node.Kind.Inputs
	case Out:
		ports = node.Kind.Outputs
	default:
		return sdfgraph.PortSpec{}, fmt.Errorf("%w: %s", ErrPortDirection, p)
	}
	if p.Index < 0 || p.Index >= len(ports) {
		return sdfgraph.PortSpec{}, fmt.Errorf("%w: %s of %s", ErrPortNotFound, p, node.Kind.ID)
	}
	return ports[p.Index], nil
}

// Node returns the node with the given ID or nil if not found.
// The returned node must not be modified, use the Graph's methods instead.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// NodeIDs returns the IDs of all nodes in ascending order.
func (g *Graph) NodeIDs() []NodeID {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Connections returns all connections sorted by ID.
func (g *Graph) Connections() []Connection {
	conns := slices.Collect(maps.Values(g.conns))
	slices.SortFunc(conns, func(a, b Connection) int { return int(a.ID - b.ID) })
	return conns
}

// Connection returns the connection with the given ID.
func (g *Graph) Connection(id ConnID) (Connection, bool) {
	conn, ok := g.conns[id]
	return conn, ok
}

// Incoming returns the connection feeding input port dst, if any.
func (g *Graph) Incoming(dst Port) (Connection, bool) {
	id, ok := g.incoming[dst]
	if !ok {
		return Connection{}, false
	}
	return g.conns[id], true
}

// Outgoing returns all connections leaving node id sorted by ID.
func (g *Graph) Outgoing(id NodeID) []Connection {
	var conns []Connection
	for _, conn := range g.conns {
		if conn.Src.Node == id {
			conns = append(conns, conn)
		}
	}
	slices.SortFunc(conns, func(a, b Connection) int { return int(a.ID - b.ID) })
	return conns
}

// Output returns the ID of the output node if the graph has one.
func (g *Graph) Output() (NodeID, bool) {
	return g.output, g.output != 0
}
