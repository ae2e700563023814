package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/soypat/sdfgraph/glbuild"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// config is the parsed command line.
type config struct {
	ScenePath string
	Output    string
	Dialect   glbuild.Dialect
	Mode      string
	Uniforms  bool
	PNG       string
	Z         float32
	Size      float32
	UI        bool
	GPU       bool
	InvocX    int
	Watch     bool
	LogLevel  string
	LogFormat string
}

// parse processes command-line arguments. It returns the parsed config,
// whether the program should exit cleanly, or an [*ExitError].
func parse(args []string, output io.Writer) (*config, bool, error) {
	flagSet := flag.NewFlagSet("sdfgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
sdfgraph - compiles SDF node graph scenes to raymarching shaders.

Usage:
  sdfgraph [options] SCENE.hcl

Options:
`)
		flagSet.PrintDefaults()
	}

	outFlag := flagSet.String("o", "", "Output file for the shader. Defaults to stdout.")
	targetFlag := flagSet.String("target", "glsl", "Shading language. Options: 'glsl' or 'wgsl'.")
	modeFlag := flagSet.String("mode", "sdf", "Program written. Options: 'sdf' (declarations only), 'frag' (visualizer fragment program), 'compute', 'spirv' (wgsl compute compiled to SPIR-V) or 'nodes' (per-node expression listing).")
	uniformsFlag := flagSet.Bool("uniforms", false, "Read node parameters from a uniform array instead of literals.")
	pngFlag := flagSet.String("png", "", "Write a PNG of the XY slice of the scene evaluated on the CPU to this file.")
	zFlag := flagSet.Float64("z", 0, "Height of the slice written with -png.")
	sizeFlag := flagSet.Float64("size", 4, "Side length of the cube centered at the origin framing the scene.")
	gpuFlag := flagSet.Bool("gpu", false, "Evaluate the -png slice with the compute program on the GPU. Requires glsl target.")
	invocFlag := flagSet.Int("invocations", 32, "Compute work group size used by -mode compute and -gpu.")
	uiFlag := flagSet.Bool("ui", false, "Open an interactive window raymarching the scene. Requires glsl target.")
	watchFlag := flagSet.Bool("watch", false, "Reload the scene file on change while the window is open.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	} else if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "expected a single scene file argument"}
	}

	cfg := &config{
		ScenePath: flagSet.Arg(0),
		Output:    *outFlag,
		Mode:      strings.ToLower(*modeFlag),
		Uniforms:  *uniformsFlag,
		PNG:       *pngFlag,
		Z:         float32(*zFlag),
		Size:      float32(*sizeFlag),
		UI:        *uiFlag,
		GPU:       *gpuFlag,
		InvocX:    *invocFlag,
		Watch:     *watchFlag,
		LogLevel:  strings.ToLower(*logLevelFlag),
		LogFormat: strings.ToLower(*logFormatFlag),
	}
	switch strings.ToLower(*targetFlag) {
	case "glsl":
		cfg.Dialect = glbuild.DialectGLSL
	case "wgsl":
		cfg.Dialect = glbuild.DialectWGSL
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid target: must be 'glsl' or 'wgsl'"}
	}
	switch cfg.Mode {
	case "sdf", "compute", "nodes":
	case "frag":
		if cfg.Dialect != glbuild.DialectGLSL {
			return nil, false, &ExitError{Code: 2, Message: "frag mode requires glsl target"}
		}
	case "spirv":
		if cfg.Dialect != glbuild.DialectWGSL {
			return nil, false, &ExitError{Code: 2, Message: "spirv mode requires wgsl target"}
		}
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid mode: must be 'sdf', 'frag', 'compute', 'spirv' or 'nodes'"}
	}
	if cfg.UI && cfg.Dialect != glbuild.DialectGLSL {
		return nil, false, &ExitError{Code: 2, Message: "ui requires glsl target"}
	}
	if cfg.GPU && (cfg.PNG == "" || cfg.Dialect != glbuild.DialectGLSL) {
		return nil, false, &ExitError{Code: 2, Message: "gpu requires -png and glsl target"}
	}
	if cfg.InvocX < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invocations must be positive"}
	}
	if cfg.Size <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "size must be positive"}
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return cfg, false, nil
}
