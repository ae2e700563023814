package wgslc

import (
	"strings"
	"testing"

	"github.com/soypat/sdfgraph/glbuild"
	"github.com/soypat/sdfgraph/graph"
)

func compileGraph(t *testing.T, prog *glbuild.Programmer) *glbuild.CompiledShader {
	t.Helper()
	g := graph.New(nil)
	s, _ := g.AddNode("sphere")
	c, _ := g.AddNode("cube")
	u, _ := g.AddNode("smooth-min")
	tw, _ := g.AddNode("twist")
	out, _ := g.AddNode("output")
	for _, conn := range [][2]graph.Port{
		{graph.OutPort(s, 0), graph.InPort(u, 0)},
		{graph.OutPort(c, 0), graph.InPort(u, 1)},
		{graph.OutPort(u, 0), graph.InPort(tw, 0)},
		{graph.OutPort(tw, 0), graph.InPort(out, 0)},
	} {
		if _, err := g.Connect(conn[0], conn[1]); err != nil {
			t.Fatal(err)
		}
	}
	order, err := graph.Order(g)
	if err != nil {
		t.Fatal(err)
	}
	cs, err := prog.Generate(g, order)
	if err != nil {
		t.Fatal(err)
	}
	return cs
}

// skipUnsupported skips tests hitting features naga does not implement yet.
func skipUnsupported(t *testing.T, err error) {
	t.Helper()
	if msg := err.Error(); strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
		t.Skipf("naga feature not yet implemented: %v", err)
	}
}

func TestCompileSPIRV(t *testing.T) {
	for _, mode := range []glbuild.ParamMode{glbuild.ParamsInline, glbuild.ParamsUniform} {
		prog := glbuild.NewDefaultProgrammer()
		prog.Dialect = glbuild.DialectWGSL
		prog.ParamMode = mode
		cs := compileGraph(t, prog)
		code, err := CompileSPIRV(prog, cs)
		if err != nil {
			skipUnsupported(t, err)
			t.Fatalf("%s: %v", mode, err)
		}
		if code[0] != SPIRVMagic {
			t.Errorf("%s: bad magic 0x%08X", mode, code[0])
		}
	}
}

func TestCompileSPIRVDialect(t *testing.T) {
	prog := glbuild.NewDefaultProgrammer()
	cs := compileGraph(t, prog)
	_, err := CompileSPIRV(prog, cs)
	if err == nil {
		t.Error("want error compiling GLSL shader")
	}
	_, err = CompileSPIRV(prog, nil)
	if err == nil {
		t.Error("want error for nil shader")
	}
}

func TestCompileInvalid(t *testing.T) {
	_, err := Compile("fn broken( -> f32 { return 1.0 }")
	if err == nil {
		t.Error("want error for malformed WGSL")
	}
}
