package scene

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hashicorp/hcl/v2"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/sdfgraph/graph"
	"github.com/soypat/sdfgraph/pipeline"
)

const translatedSphere = `
node "ball" {
  kind     = "sphere"
  radius   = 0.5 * 2
  position = [10, 20]
}
node "move" {
  kind = "translate"
  xyz  = [1, 0, 0]
}
node "out" { kind = "output" }

connect {
  from = "ball.distance"
  to   = "move.distance"
}
connect {
  from = "move.distance"
  to   = "out.distance"
}
`

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(translatedSphere), "test.hcl")
	if err != nil {
		t.Fatal(err)
	}
	want := &Scene{
		Nodes: []Node{
			{Name: "ball", Kind: "sphere", Position: ms2.Vec{X: 10, Y: 20}, Params: []Param{{Name: "radius", Value: 1}}},
			{Name: "move", Kind: "translate", Params: []Param{{Name: "x", Value: 1}, {Name: "y"}, {Name: "z"}}},
			{Name: "out", Kind: "output"},
		},
		Connections: []Connection{
			{From: Endpoint{"ball", "distance"}, To: Endpoint{"move", "distance"}},
			{From: Endpoint{"move", "distance"}, To: Endpoint{"out", "distance"}},
		},
	}
	if diff := cmp.Diff(want, sc, cmpopts.IgnoreTypes(hcl.Range{})); diff != "" {
		t.Errorf("scene mismatch (-want +got):\n%s", diff)
	}
}

func TestApply(t *testing.T) {
	sc, err := Parse([]byte(translatedSphere), "test.hcl")
	if err != nil {
		t.Fatal(err)
	}
	p := pipeline.New(pipeline.Config{})
	ids, err := sc.Apply(p)
	if err != nil {
		t.Fatal(err)
	}
	if p.State() != pipeline.StateValid {
		t.Fatalf("want valid pipeline, got %s: %v", p.State(), p.Err())
	}
	const want = "length(p-vec3(1.0,0.0,0.0))-1.0"
	if got := p.CurrentShader().Expression; got != want {
		t.Errorf("want %s, got %s", want, got)
	}
	if pos := p.Graph().Node(ids["ball"]).Position; pos != (ms2.Vec{X: 10, Y: 20}) {
		t.Errorf("position not applied: %v", pos)
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		name, src, want string
	}{
		{"syntax", `node "a" {`, "Unclosed"},
		{"missing kind", `node "a" {}`, "kind"},
		{"duplicate", `node "a" { kind = "sphere" }
node "a" { kind = "cube" }`, "Duplicate node"},
		{"unknown node", `node "a" { kind = "sphere" }
connect {
  from = "a.distance"
  to   = "b.distance"
}`, "Unknown node"},
		{"bad endpoint", `connect {
  from = "a"
  to   = "b.distance"
}`, "Invalid connection"},
		{"bad param", `node "a" {
  kind   = "sphere"
  radius = "big"
}`, "Want a number"},
		{"bad xyz", `node "a" {
  kind = "translate"
  xyz  = [1, 2]
}`, "list of 3 numbers"},
		{"null xyz", `node "a" {
  kind = "translate"
  xyz  = null
}`, "not null"},
		{"null position", `node "a" {
  kind     = "sphere"
  position = null
}`, "not null"},
	} {
		_, err := Parse([]byte(test.src), "bad.hcl")
		if err == nil {
			t.Errorf("%s: want error", test.name)
			continue
		}
		var diags hcl.Diagnostics
		if !errors.As(err, &diags) {
			t.Errorf("%s: want hcl.Diagnostics, got %T", test.name, err)
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%s: want error containing %q, got %v", test.name, test.want, err)
		}
	}
}

func TestApplyErrors(t *testing.T) {
	for _, test := range []struct {
		name   string
		src    string
		target error
	}{
		{"unknown kind", `node "a" { kind = "blob" }`, nil},
		{"out of range", `node "a" {
  kind   = "sphere"
  radius = -1
}`, graph.ErrOutOfRange},
		{"unknown param", `node "a" {
  kind  = "sphere"
  width = 1
}`, graph.ErrUnknownParameter},
		{"unknown port", `node "a" { kind = "sphere" }
node "o" { kind = "output" }
connect {
  from = "a.nope"
  to   = "o.distance"
}`, graph.ErrPortNotFound},
		{"type mismatch", `node "v" { kind = "scalar" }
node "o" { kind = "output" }
connect {
  from = "v.value"
  to   = "o.distance"
}`, graph.ErrTypeMismatch},
	} {
		sc, err := Parse([]byte(test.src), "apply.hcl")
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		_, err = sc.Apply(pipeline.New(pipeline.Config{}))
		if err == nil {
			t.Errorf("%s: want error", test.name)
		} else if test.target != nil && !errors.Is(err, test.target) {
			t.Errorf("%s: want %v, got %v", test.name, test.target, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.hcl")
	err := os.WriteFile(path, []byte(`node "s" {
  kind   = "sphere"
  radius = pi
}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	sc, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := sc.Nodes[0].Params[0].Value; got < 3.1415 || got > 3.1416 {
		t.Errorf("want pi, got %v", got)
	}
	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.hcl"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want not exist error, got %v", err)
	}
}
