// Package pipeline owns an SDF node graph and recompiles it into a shader on
// every edit. Edits are applied through [Command] values; the renderer reads
// the last valid [glbuild.CompiledShader] through [Pipeline.CurrentShader].
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/soypat/sdfgraph"
	"github.com/soypat/sdfgraph/glbuild"
	"github.com/soypat/sdfgraph/graph"
)

// State is the compile state of a [Pipeline].
type State uint8

const (
	StateDirty State = iota
	StateCompiling
	StateValid
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateDirty:
		return "dirty"
	case StateCompiling:
		return "compiling"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// InvariantError reports a graph found in a state the editing operations
// should never produce.
type InvariantError struct {
	Err error
}

func (e *InvariantError) Error() string { return "graph invariant violated: " + e.Err.Error() }

func (e *InvariantError) Unwrap() error { return e.Err }

// Config configures a [Pipeline]. The zero value is ready to use.
type Config struct {
	// Logger overrides the package logger set with [SetLogger].
	Logger *slog.Logger
	// Catalog resolves node kinds. Defaults to [sdfgraph.DefaultCatalog].
	Catalog *sdfgraph.Catalog
	// Programmer generates shaders. Defaults to [glbuild.NewDefaultProgrammer].
	Programmer *glbuild.Programmer
	// NoInvariantPanic makes invariant violations leave the pipeline
	// invalid with an [*InvariantError] instead of panicking.
	NoInvariantPanic bool
	// OnCompile is called after every compilation. On failure cs is nil.
	OnCompile func(cs *glbuild.CompiledShader, err error)
}

// Result is the outcome of [Pipeline.Apply].
type Result struct {
	// Node is the node created by [AddNode].
	Node graph.NodeID
	// Conn is the connection created by [Connect].
	Conn graph.ConnID
	// RemovedConnections lists the connections cascaded by [RemoveNode].
	RemovedConnections []graph.Connection
	// Err is non-nil when the command was rejected. The graph and the
	// pipeline state are then unchanged.
	Err error
	// State after the command.
	State State
	// CompileErr is the reason the pipeline is invalid after the command.
	CompileErr error
	// Warnings are the validator warnings of the compiled graph.
	Warnings []graph.Diagnostic
}

// Pipeline keeps a graph and its compiled shader in sync. Methods other than
// [Pipeline.CurrentShader] and [Pipeline.Generation] must be called from a single goroutine.
type Pipeline struct {
	g    *graph.Graph
	prog *glbuild.Programmer
	log  *slog.Logger
	cfg  Config

	state   State
	err     error
	current atomic.Pointer[glbuild.CompiledShader]
	// order computes evaluation order. Replaced in tests.
	order func(*graph.Graph) ([]graph.NodeID, error)
}

// New returns a pipeline with an empty graph in the dirty state.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		g:     graph.New(cfg.Catalog),
		prog:  cfg.Programmer,
		log:   cfg.Logger,
		cfg:   cfg,
		state: StateDirty,
		order: graph.Order,
	}
	if p.prog == nil {
		p.prog = glbuild.NewDefaultProgrammer()
	}
	if p.log == nil {
		p.log = Logger()
	}
	return p
}

// Graph returns the owned graph. It must only be modified through [Pipeline.Apply].
func (p *Pipeline) Graph() *graph.Graph { return p.g }

// State returns the current compile state.
func (p *Pipeline) State() State { return p.state }

// Err returns the reason the pipeline is invalid, or nil.
func (p *Pipeline) Err() error { return p.err }

// CurrentShader returns the last successfully compiled shader, or nil if
// no compilation has succeeded. Safe for concurrent use.
func (p *Pipeline) CurrentShader() *glbuild.CompiledShader { return p.current.Load() }

// Generation returns the generation of [Pipeline.CurrentShader], or 0. Safe for concurrent use.
func (p *Pipeline) Generation() uint64 {
	cs := p.current.Load()
	if cs == nil {
		return 0
	}
	return cs.Generation
}

// Apply applies cmd to the graph and recompiles. A rejected command is
// reported in [Result.Err] and changes nothing.
func (p *Pipeline) Apply(cmd Command) Result {
	var r Result
	if err := cmd.apply(p.g, &r); err != nil {
		p.log.Debug("command rejected", slog.String("cmd", cmd.String()), slog.String("err", err.Error()))
		return Result{Err: err, State: p.state, CompileErr: p.err}
	}
	p.log.Debug("command applied", slog.String("cmd", cmd.String()))
	p.state = StateDirty
	r.Warnings, r.CompileErr = p.compile()
	r.State = p.state
	return r
}

// Compile recompiles the graph without editing it and returns the reason the
// pipeline is invalid, or nil.
func (p *Pipeline) Compile() error {
	p.state = StateDirty
	_, err := p.compile()
	return err
}

func (p *Pipeline) compile() (warnings []graph.Diagnostic, err error) {
	wasInvalid := p.state == StateInvalid || p.err != nil
	p.state = StateCompiling
	report := graph.Validate(p.g)
	warnings = report.Warnings()
	for _, w := range warnings {
		p.log.Warn("graph warning", slog.Int("node", int(w.Node)), slog.String("msg", w.Error()))
	}
	if err = report.Err(); err != nil {
		return warnings, p.fail(wasInvalid, err)
	}
	order, err := p.order(p.g)
	if err != nil {
		if errors.Is(err, graph.ErrCycle) {
			// Connect rejects cycles, so validated graphs must be acyclic.
			err = &InvariantError{Err: err}
			p.log.Error("invariant violation", slog.String("err", err.Error()))
			if !p.cfg.NoInvariantPanic {
				panic(err)
			}
		}
		return warnings, p.fail(wasInvalid, err)
	}
	cs, err := p.prog.Generate(p.g, order)
	if err != nil {
		return warnings, p.fail(wasInvalid, fmt.Errorf("generate: %w", err))
	}
	p.current.Store(cs)
	p.state = StateValid
	p.err = nil
	p.log.Debug("compiled", slog.Uint64("generation", cs.Generation), slog.Int("nodes", len(cs.Nodes)))
	if wasInvalid {
		p.log.Info("shader valid", slog.Uint64("generation", cs.Generation))
	}
	if p.cfg.OnCompile != nil {
		p.cfg.OnCompile(cs, nil)
	}
	return warnings, nil
}

func (p *Pipeline) fail(wasInvalid bool, err error) error {
	p.state = StateInvalid
	p.err = err
	if !wasInvalid {
		p.log.Info("shader invalid", slog.String("err", err.Error()))
	} else {
		p.log.Debug("compile failed", slog.String("err", err.Error()))
	}
	if p.cfg.OnCompile != nil {
		p.cfg.OnCompile(nil, err)
	}
	return err
}
