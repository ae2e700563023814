package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	ErrNodeNotFound = errors.New("node not found")
	ErrConnNotFound = errors.New("connection not found")
	ErrPortNotFound = errors.New("port not found")
	// ErrPortDirection indicates a connection source that is not an output or
	// a destination that is not an input.
	ErrPortDirection    = errors.New("wrong port direction")
	ErrSelfLoop         = errors.New("self loop")
	ErrTypeMismatch     = errors.New("port type mismatch")
	ErrInputOccupied    = errors.New("input already connected")
	ErrWouldCreateCycle = errors.New("connection would create cycle")

	ErrOutOfRange       = errors.New("parameter out of range")
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrOutputExists is returned when adding a second output node.
	ErrOutputExists = errors.New("graph already has an output node")

	ErrNoOutput         = errors.New("graph has no output node")
	ErrMultipleOutputs  = errors.New("graph has multiple output nodes")
	ErrUnconnectedInput = errors.New("required input not connected")
	ErrUnreachableNode  = errors.New("node not reachable from output")
	ErrCycle            = errors.New("graph contains cycle")
)

// ConnectionError is returned by [Graph.Connect] when a connection is rejected.
// Wraps one of the connection sentinels for errors.Is() compatibility.
type ConnectionError struct {
	Src, Dst Port
	Err      error // Sentinel describing the rejection.
	Msg      string
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("connect %s -> %s: %s", e.Src, e.Dst, e.Err)
	}
	return fmt.Sprintf("connect %s -> %s: %s: %s", e.Src, e.Dst, e.Err, e.Msg)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ParamError is returned by [Graph.SetParameter] for rejected values.
type ParamError struct {
	Node  NodeID
	Name  string
	Value float32
	Err   error
	Msg   string
}

func (e *ParamError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("node %d parameter %q=%v: %s", e.Node, e.Name, e.Value, e.Err)
	}
	return fmt.Sprintf("node %d parameter %q=%v: %s: %s", e.Node, e.Name, e.Value, e.Err, e.Msg)
}

func (e *ParamError) Unwrap() error { return e.Err }

// CycleError is returned by [Order] when the graph is not acyclic.
// Path lists the nodes of one cycle with the first node repeated at the end.
type CycleError struct {
	Path []NodeID
}

func (e *CycleError) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(ErrCycle.Error())
	for i, id := range e.Path {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString(" -> ")
		}
		fmt.Fprintf(&sb, "%d", id)
	}
	return sb.String()
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// ValidationError holds the fatal diagnostics of a [Report].
// errors.Is() matches against each diagnostic's sentinel.
type ValidationError struct {
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Diagnostics) == 0 {
		return "graph validation failed"
	}
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e.Diagnostics))
	for i := range e.Diagnostics {
		sb.WriteString("\n\t")
		sb.WriteString(e.Diagnostics[i].Error())
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i := range e.Diagnostics {
		errs[i] = e.Diagnostics[i]
	}
	return errs
}
