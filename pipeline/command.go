package pipeline

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/sdfgraph/graph"
)

// Command is a graph edit. The set of commands is closed:
// [AddNode], [RemoveNode], [Connect], [Disconnect] and [SetParameter].
type Command interface {
	apply(g *graph.Graph, r *Result) error
	fmt.Stringer
}

// AddNode adds a node of the given kind at an editor position.
type AddNode struct {
	Kind     string
	Position ms2.Vec
}

// RemoveNode removes a node and its connections.
type RemoveNode struct {
	ID graph.NodeID
}

// Connect connects an output port to an input port.
type Connect struct {
	Src, Dst graph.Port
}

// Disconnect removes a connection.
type Disconnect struct {
	ID graph.ConnID
}

// SetParameter sets a node parameter.
type SetParameter struct {
	Node  graph.NodeID
	Name  string
	Value float32
}

var (
	_ Command = AddNode{}
	_ Command = RemoveNode{}
	_ Command = Connect{}
	_ Command = Disconnect{}
	_ Command = SetParameter{}
)

func (c AddNode) apply(g *graph.Graph, r *Result) (err error) {
	r.Node, err = g.AddNode(c.Kind)
	if err != nil {
		return err
	}
	return g.SetPosition(r.Node, c.Position)
}

func (c RemoveNode) apply(g *graph.Graph, r *Result) (err error) {
	r.RemovedConnections, err = g.RemoveNode(c.ID)
	return err
}

func (c Connect) apply(g *graph.Graph, r *Result) (err error) {
	r.Conn, err = g.Connect(c.Src, c.Dst)
	return err
}

func (c Disconnect) apply(g *graph.Graph, r *Result) error {
	return g.Disconnect(c.ID)
}

func (c SetParameter) apply(g *graph.Graph, r *Result) error {
	return g.SetParameter(c.Node, c.Name, c.Value)
}

func (c AddNode) String() string    { return "add " + c.Kind }
func (c RemoveNode) String() string { return fmt.Sprintf("remove node %d", c.ID) }
func (c Connect) String() string    { return fmt.Sprintf("connect %s -> %s", c.Src, c.Dst) }
func (c Disconnect) String() string { return fmt.Sprintf("disconnect %d", c.ID) }
func (c SetParameter) String() string {
	return fmt.Sprintf("set node %d %s=%v", c.Node, c.Name, c.Value)
}
