package main

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/sdfgraph/pipeline"
)

const sphereScene = `
node "ball" {
  kind   = "sphere"
  radius = 1
}
node "out" { kind = "output" }
connect {
  from = "ball.distance"
  to   = "out.distance"
}
`

const cycleFreeInvalidScene = `
node "ball" { kind = "sphere" }
node "out" { kind = "output" }
`

func writeScene(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.hcl")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		wantExit bool
		wantCode int
	}{
		{name: "no args prints usage", args: nil, wantExit: true},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "defaults", args: []string{"scene.hcl"}},
		{name: "bad target", args: []string{"-target", "hlsl", "scene.hcl"}, wantCode: 2},
		{name: "frag needs glsl", args: []string{"-target", "wgsl", "-mode", "frag", "scene.hcl"}, wantCode: 2},
		{name: "spirv needs wgsl", args: []string{"-mode", "spirv", "scene.hcl"}, wantCode: 2},
		{name: "ui needs glsl", args: []string{"-target", "wgsl", "-ui", "scene.hcl"}, wantCode: 2},
		{name: "bad mode", args: []string{"-mode", "mesh", "scene.hcl"}, wantCode: 2},
		{name: "bad size", args: []string{"-size", "0", "scene.hcl"}, wantCode: 2},
		{name: "bad log level", args: []string{"-log-level", "loud", "scene.hcl"}, wantCode: 2},
		{name: "two scenes", args: []string{"a.hcl", "b.hcl"}, wantCode: 2},
		{name: "unknown flag", args: []string{"-mesh", "scene.hcl"}, wantCode: 2},
		{name: "gpu needs png", args: []string{"-gpu", "scene.hcl"}, wantCode: 2},
		{name: "gpu needs glsl", args: []string{"-gpu", "-png", "a.png", "-target", "wgsl", "scene.hcl"}, wantCode: 2},
		{name: "bad invocations", args: []string{"-invocations", "0", "scene.hcl"}, wantCode: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, shouldExit, err := parse(tc.args, &out)
			if tc.wantCode != 0 {
				var exitErr *ExitError
				if !errors.As(err, &exitErr) || exitErr.Code != tc.wantCode {
					t.Fatalf("want exit code %d, got %v", tc.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if shouldExit != tc.wantExit {
				t.Fatalf("shouldExit=%v, want %v", shouldExit, tc.wantExit)
			}
			if tc.wantExit {
				if !strings.Contains(out.String(), "Usage:") {
					t.Errorf("usage not printed:\n%s", out.String())
				}
				return
			}
			if cfg.Mode != "sdf" || cfg.Size != 4 || cfg.LogLevel != "warn" || cfg.ScenePath != "scene.hcl" || cfg.InvocX != 32 || cfg.GPU {
				t.Errorf("unexpected defaults %+v", cfg)
			}
		})
	}
}

func TestRun(t *testing.T) {
	path := writeScene(t, sphereScene)
	testCases := []struct {
		args []string
		want string
	}{
		{args: []string{path}, want: "float sdf(vec3 p)"},
		{args: []string{"-mode", "frag", path}, want: "void main()"},
		{args: []string{"-mode", "compute", path}, want: "#shader compute"},
		{args: []string{"-target", "wgsl", path}, want: "fn sdf("},
		{args: []string{"-uniforms", path}, want: "uParams"},
		{args: []string{"-mode", "nodes", path}, want: "\tsphere\t"},
		{args: []string{"-mode", "compute", "-invocations", "64", path}, want: "local_size_x = 64"},
	}
	for _, tc := range testCases {
		var stdout, stderr bytes.Buffer
		err := run(&stdout, &stderr, tc.args)
		if err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		if !strings.Contains(stdout.String(), tc.want) {
			t.Errorf("%v: output lacks %q:\n%s", tc.args, tc.want, stdout.String())
		}
	}
}

func TestRunOutputFiles(t *testing.T) {
	path := writeScene(t, sphereScene)
	dir := t.TempDir()
	shaderPath := filepath.Join(dir, "sphere.glsl")
	pngPath := filepath.Join(dir, "sphere.png")
	var stdout, stderr bytes.Buffer
	err := run(&stdout, &stderr, []string{"-o", shaderPath, "-png", pngPath, "-log-level", "info", path})
	if err != nil {
		t.Fatal(err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout not empty:\n%s", stdout.String())
	}
	shader, err := os.ReadFile(shaderPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(shader), "float sdf(vec3 p)") {
		t.Errorf("shader file lacks entrypoint:\n%s", shader)
	}
	fp, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	img, err := png.Decode(fp)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 512 {
		t.Errorf("unexpected image width %d", img.Bounds().Dx())
	}
	if !strings.Contains(stderr.String(), "wrote slice") {
		t.Errorf("missing info log:\n%s", stderr.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(&stdout, &stderr, []string{filepath.Join(t.TempDir(), "missing.hcl")})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("missing scene: want exit code 1, got %v", err)
	}

	path := writeScene(t, cycleFreeInvalidScene)
	err = run(&stdout, &stderr, []string{path})
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("unconnected output: want exit code 1, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("invalid scene wrote shader:\n%s", stdout.String())
	}
}

func TestLoadReplacesGraph(t *testing.T) {
	path := writeScene(t, sphereScene)
	p := pipeline.New(pipeline.Config{})
	if err := load(p, path); err != nil {
		t.Fatal(err)
	}
	first := p.Generation()
	if err := load(p, path); err != nil {
		t.Fatal(err)
	}
	if p.Graph().Len() != 2 {
		t.Errorf("reload kept stale nodes: %d nodes", p.Graph().Len())
	}
	if p.Generation() <= first {
		t.Errorf("generation did not advance: %d <= %d", p.Generation(), first)
	}

	// A broken scene leaves the last valid shader in place.
	err := os.WriteFile(path, []byte(cycleFreeInvalidScene), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	valid := p.CurrentShader()
	if err := load(p, path); err == nil {
		t.Fatal("expected error loading scene without connections")
	}
	if p.CurrentShader() != valid {
		t.Error("current shader replaced by invalid scene")
	}
}
