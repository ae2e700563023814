// Command sdfgraph compiles an HCL scene of SDF nodes into shader source,
// renders slices of it and opens a live raymarching window.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph/glbuild"
	"github.com/soypat/sdfgraph/gleval"
	"github.com/soypat/sdfgraph/graph"
	"github.com/soypat/sdfgraph/pipeline"
	"github.com/soypat/sdfgraph/scene"
	"github.com/soypat/sdfgraph/sdfaux"
	"github.com/soypat/sdfgraph/wgslc"
)

func init() {
	// GLFW must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW, errW io.Writer, args []string) error {
	cfg, shouldExit, err := parse(args, outW)
	if err != nil {
		return err
	} else if shouldExit {
		return nil
	}
	log := newLogger(cfg.LogLevel, cfg.LogFormat, errW)

	prog := glbuild.NewDefaultProgrammer()
	prog.Dialect = cfg.Dialect
	prog.SetComputeInvocations(cfg.InvocX, 1, 1)
	if cfg.Uniforms {
		prog.ParamMode = glbuild.ParamsUniform
	}
	p := pipeline.New(pipeline.Config{Logger: log, Programmer: prog})
	if err := load(p, cfg.ScenePath); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	cs := p.CurrentShader()
	log.Info("compiled scene", slog.String("scene", cfg.ScenePath), slog.Uint64("generation", cs.Generation), slog.Int("nodes", len(cs.Nodes)))

	if !cfg.UI || cfg.Output != "" {
		err = writeShader(outW, cfg, prog, cs)
		if err != nil {
			return err
		}
	}
	if cfg.PNG != "" {
		err = writePNG(p, prog, cfg)
		if err != nil {
			return err
		}
		log.Info("wrote slice", slog.String("file", cfg.PNG), slog.Float64("z", float64(cfg.Z)))
	}
	if cfg.UI {
		uiCfg := sdfaux.UIConfig{CharDist: cfg.Size, Logger: log}
		if cfg.Watch {
			w := &watcher{path: cfg.ScenePath, p: p, log: log}
			w.modTime, _ = modTime(cfg.ScenePath)
			uiCfg.OnFrame = w.poll
		}
		return sdfaux.UI(p, uiCfg)
	}
	return nil
}

// load replaces the graph of p with the scene at path. The pipeline must end
// up valid for load to succeed.
func load(p *pipeline.Pipeline, path string) error {
	sc, err := scene.LoadFile(path)
	if err != nil {
		return err
	}
	for _, id := range p.Graph().NodeIDs() {
		if r := p.Apply(pipeline.RemoveNode{ID: id}); r.Err != nil {
			return r.Err
		}
	}
	_, err = sc.Apply(p)
	if err != nil {
		return err
	}
	if p.State() != pipeline.StateValid {
		return fmt.Errorf("%s: %w", path, p.Err())
	}
	return nil
}

func writeShader(stdout io.Writer, cfg *config, prog *glbuild.Programmer, cs *glbuild.CompiledShader) (err error) {
	w := stdout
	if cfg.Output != "" {
		var fp *os.File
		fp, err = os.Create(cfg.Output)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := fp.Close(); err == nil {
				err = cerr
			}
		}()
		w = fp
	}
	switch cfg.Mode {
	case "frag":
		_, err = prog.WriteFragVisualizer(w, cs)
	case "compute":
		_, err = prog.WriteComputeSDF3(w, cs)
	case "nodes":
		_, err = io.WriteString(w, glbuild.FormatNodes(cs))
	case "spirv":
		var code []uint32
		code, err = wgslc.CompileSPIRV(prog, cs)
		if err == nil {
			err = binary.Write(w, binary.LittleEndian, code)
		}
	default:
		_, err = io.WriteString(w, cs.Source)
	}
	return err
}

// writePNG renders the z=cfg.Z slice of the pipeline's graph, evaluated on
// the CPU or with the compute program of the current shader on the GPU.
func writePNG(p *pipeline.Pipeline, prog *glbuild.Programmer, cfg *config) (err error) {
	half := cfg.Size / 2
	bb := ms3.Box{
		Min: ms3.Vec{X: -half, Y: -half, Z: -half},
		Max: ms3.Vec{X: half, Y: half, Z: half},
	}
	var sdf gleval.SDF3
	if cfg.GPU {
		terminate, err := gleval.Init1x1GLFW()
		if err != nil {
			return fmt.Errorf("starting GPU evaluation: %w", err)
		}
		defer terminate()
		gpu, err := gleval.NewGPUSDF3(prog, p.CurrentShader(), bb)
		if err != nil {
			return err
		}
		defer gpu.Delete()
		sdf = gpu
	} else {
		order, err := graph.Order(p.Graph())
		if err != nil {
			return err
		}
		sdf, err = gleval.NewGraphSDF3(p.Graph(), order, bb)
		if err != nil {
			return err
		}
	}
	fp, err := os.Create(cfg.PNG)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fp.Close(); err == nil {
			err = cerr
		}
	}()
	return sdfaux.RenderSlicePNG(fp, sdf, sdfaux.SliceConfig{Width: 512, Height: 512, Z: cfg.Z})
}

// watcher reloads a scene file into a pipeline when its modification time changes.
type watcher struct {
	path    string
	p       *pipeline.Pipeline
	log     *slog.Logger
	modTime time.Time
	checked time.Time
}

func (w *watcher) poll() {
	if time.Since(w.checked) < 500*time.Millisecond {
		return
	}
	w.checked = time.Now()
	mt, err := modTime(w.path)
	if err != nil || mt.Equal(w.modTime) {
		return
	}
	w.modTime = mt
	if err := load(w.p, w.path); err != nil {
		w.log.Error("reload failed", slog.String("scene", w.path), slog.String("err", err.Error()))
		return
	}
	w.log.Info("reloaded scene", slog.String("scene", w.path), slog.Uint64("generation", w.p.Generation()))
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
