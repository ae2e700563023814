package graph

import "slices"

// Order returns the nodes feeding the output node in evaluation order: every
// node appears after all nodes connected to its inputs and the output node is
// last. Among nodes ready at the same time the lowest ID goes first, so equal
// graphs always produce equal orders. Nodes that do not feed the output are omitted.
//
// Acyclicity is verified independently of [Graph.Connect]. A cycle among the
// nodes feeding the output is reported as a [*CycleError].
func Order(g *Graph) ([]NodeID, error) {
	root, ok := g.Output()
	if !ok {
		return nil, ErrNoOutput
	}
	reachable := g.upstream(root)
	indegree := make(map[NodeID]int, len(reachable))
	downstream := make(map[NodeID][]NodeID, len(reachable))
	for _, conn := range g.Connections() {
		if !reachable[conn.Dst.Node] {
			continue
		}
		indegree[conn.Dst.Node]++
		downstream[conn.Src.Node] = append(downstream[conn.Src.Node], conn.Dst.Node)
	}
	var ready []NodeID
	for id := range reachable {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	order := make([]NodeID, 0, len(reachable))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, next := range downstream[id] {
			indegree[next]--
			if indegree[next] == 0 {
				i, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, i, next)
			}
		}
	}
	if len(order) != len(reachable) {
		return nil, &CycleError{Path: g.findCycle(reachable, indegree)}
	}
	return order, nil
}

// findCycle returns a cycle among nodes left with positive indegree after Kahn's algorithm.
func (g *Graph) findCycle(reachable map[NodeID]bool, indegree map[NodeID]int) []NodeID {
	var start NodeID
	for _, id := range g.NodeIDs() {
		if reachable[id] && indegree[id] > 0 {
			start = id
			break
		}
	}
	// Every remaining node has an unprocessed predecessor which is itself
	// remaining. Walk predecessors until a node repeats.
	seen := make(map[NodeID]int)
	var path []NodeID
	id := start
	for {
		if at, ok := seen[id]; ok {
			cycle := slices.Clone(path[at:])
			slices.Reverse(cycle)
			return append(cycle, cycle[0])
		}
		seen[id] = len(path)
		path = append(path, id)
		id = g.remainingPredecessor(id, reachable, indegree)
	}
}

func (g *Graph) remainingPredecessor(id NodeID, reachable map[NodeID]bool, indegree map[NodeID]int) NodeID {
	node := g.nodes[id]
	for i := range node.Kind.Inputs {
		conn, ok := g.Incoming(InPort(id, i))
		if ok && reachable[conn.Src.Node] && indegree[conn.Src.Node] > 0 {
			return conn.Src.Node
		}
	}
	panic("unreachable: remaining node without remaining predecessor")
}
