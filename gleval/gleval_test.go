package gleval

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph"
	"github.com/soypat/sdfgraph/graph"
)

type link struct{ from, fromPort, to, toPort string }

func buildSDF(t *testing.T, kinds map[string]string, params map[string]map[string]float32, links []link) *GraphSDF3 {
	t.Helper()
	g := graph.New(nil)
	ids := make(map[string]graph.NodeID)
	for name, kind := range kinds {
		id, err := g.AddNode(kind)
		if err != nil {
			t.Fatal(err)
		}
		ids[name] = id
	}
	for name, set := range params {
		for param, v := range set {
			if err := g.SetParameter(ids[name], param, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	for _, l := range links {
		src, err := g.OutputNamed(ids[l.from], l.fromPort)
		if err != nil {
			t.Fatal(err)
		}
		dst, err := g.InputNamed(ids[l.to], l.toPort)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = g.Connect(src, dst); err != nil {
			t.Fatal(err)
		}
	}
	order, err := graph.Order(g)
	if err != nil {
		t.Fatal(err)
	}
	bb := ms3.Box{Min: ms3.Vec{X: -2, Y: -2, Z: -2}, Max: ms3.Vec{X: 2, Y: 2, Z: 2}}
	sdf, err := NewGraphSDF3(g, order, bb)
	if err != nil {
		t.Fatal(err)
	}
	return sdf
}

func TestGraphSDF3(t *testing.T) {
	const tol = 1e-5
	for _, test := range []struct {
		name   string
		kinds  map[string]string
		params map[string]map[string]float32
		links  []link
		pos    []ms3.Vec
		want   []float32
	}{
		{
			name:  "sphere",
			kinds: map[string]string{"s": "sphere", "out": "output"},
			links: []link{{"s", "distance", "out", "distance"}},
			pos:   []ms3.Vec{{}, {X: 3}, {Y: -1}},
			want:  []float32{-1, 2, 0},
		},
		{
			name:   "translate",
			kinds:  map[string]string{"s": "sphere", "t": "translate", "out": "output"},
			params: map[string]map[string]float32{"t": {"x": 1}},
			links:  []link{{"s", "distance", "t", "distance"}, {"t", "distance", "out", "distance"}},
			pos:    []ms3.Vec{{X: 1}, {}, {X: 3}},
			want:   []float32{-1, 0, 1},
		},
		{
			name:   "union",
			kinds:  map[string]string{"s": "sphere", "c": "cube", "u": "union", "out": "output"},
			params: map[string]map[string]float32{"s": {"radius": 0.25}},
			links: []link{
				{"s", "distance", "u", "a"}, {"c", "distance", "u", "b"},
				{"u", "distance", "out", "distance"},
			},
			pos:  []ms3.Vec{{}, {X: 1}, {Y: 2}},
			want: []float32{-0.5, 0.5, 1.5},
		},
		{
			name:   "difference",
			kinds:  map[string]string{"s": "sphere", "c": "cube", "d": "difference", "out": "output"},
			params: map[string]map[string]float32{"s": {"radius": 0.25}},
			links: []link{
				{"c", "distance", "d", "a"}, {"s", "distance", "d", "b"},
				{"d", "distance", "out", "distance"},
			},
			pos:  []ms3.Vec{{}, {X: 0.4}},
			want: []float32{0.25, -0.1},
		},
		{
			name:   "scale",
			kinds:  map[string]string{"s": "sphere", "sc": "scale", "out": "output"},
			params: map[string]map[string]float32{"sc": {"factor": 2}},
			links:  []link{{"s", "distance", "sc", "distance"}, {"sc", "distance", "out", "distance"}},
			pos:    []ms3.Vec{{}, {Z: 4}},
			want:   []float32{-2, 2},
		},
		{
			name:   "vector offset",
			kinds:  map[string]string{"s": "sphere", "t": "translate", "v": "vector3", "out": "output"},
			params: map[string]map[string]float32{"v": {"z": -2}},
			links: []link{
				{"s", "distance", "t", "distance"}, {"v", "value", "t", "offset"},
				{"t", "distance", "out", "distance"},
			},
			pos:  []ms3.Vec{{Z: -2}},
			want: []float32{-1},
		},
		{
			name:   "shell",
			kinds:  map[string]string{"s": "sphere", "sh": "shell", "out": "output"},
			params: map[string]map[string]float32{"sh": {"thickness": 0.1}},
			links:  []link{{"s", "distance", "sh", "distance"}, {"sh", "distance", "out", "distance"}},
			pos:    []ms3.Vec{{}, {X: 1}},
			want:   []float32{0.9, -0.1},
		},
	} {
		sdf := buildSDF(t, test.kinds, test.params, test.links)
		dist := make([]float32, len(test.pos))
		err := sdf.Evaluate(test.pos, dist, nil)
		if err != nil {
			t.Fatal(test.name, err)
		}
		for i, d := range dist {
			if math32.Abs(d-test.want[i]) > tol {
				t.Errorf("%s: at %v want %v, got %v", test.name, test.pos[i], test.want[i], d)
			}
		}
	}
}

func TestGraphSDF3Errors(t *testing.T) {
	g := graph.New(nil)
	out, _ := g.AddNode("output")
	_, err := NewGraphSDF3(g, []graph.NodeID{out}, ms3.Box{})
	if !errors.Is(err, graph.ErrUnconnectedInput) {
		t.Errorf("want unconnected input error, got %v", err)
	}
	_, err = NewGraphSDF3(g, nil, ms3.Box{})
	if err == nil {
		t.Error("want error for empty order")
	}
	sdf := buildSDF(t, map[string]string{"s": "sphere", "out": "output"}, nil, []link{{"s", "distance", "out", "distance"}})
	if err = sdf.Evaluate(make([]ms3.Vec, 2), make([]float32, 1), nil); err == nil {
		t.Error("want error for mismatched buffers")
	}
	if sdf.Nodes() != 2 {
		t.Errorf("want 2 nodes, got %d", sdf.Nodes())
	}
}

func TestGraphSDF3FanOutChain(t *testing.T) {
	var catalog sdfgraph.Catalog
	for _, kind := range sdfgraph.DefaultCatalog().Kinds() {
		if err := catalog.Register(*kind); err != nil {
			t.Fatal(err)
		}
	}
	sphere, _ := catalog.Lookup("sphere")
	counted := *sphere
	counted.ID = "counted-sphere"
	evals := 0
	counted.Eval = func(p ms3.Vec, in []sdfgraph.Sampler, params []float32) sdfgraph.Sample {
		evals++
		return sphere.Eval(p, in, params)
	}
	if err := catalog.Register(counted); err != nil {
		t.Fatal(err)
	}

	g := graph.New(&catalog)
	connect := func(src graph.NodeID, dst graph.NodeID, input string) {
		t.Helper()
		out, err := g.OutputNamed(src, "distance")
		if err != nil {
			t.Fatal(err)
		}
		in, err := g.InputNamed(dst, input)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = g.Connect(out, in); err != nil {
			t.Fatal(err)
		}
	}
	prev, err := g.AddNode("counted-sphere")
	if err != nil {
		t.Fatal(err)
	}
	const depth = 30
	for i := 1; i < depth; i++ {
		u, err := g.AddNode("union")
		if err != nil {
			t.Fatal(err)
		}
		connect(prev, u, "a")
		connect(prev, u, "b")
		prev = u
	}
	out, err := g.AddNode("output")
	if err != nil {
		t.Fatal(err)
	}
	connect(prev, out, "distance")
	order, err := graph.Order(g)
	if err != nil {
		t.Fatal(err)
	}
	sdf, err := NewGraphSDF3(g, order, ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}})
	if err != nil {
		t.Fatal(err)
	}
	pos := []ms3.Vec{{X: 2}, {Y: 0.5}, {Z: -3}}
	dist := make([]float32, len(pos))
	if err := sdf.Evaluate(pos, dist, nil); err != nil {
		t.Fatal(err)
	}
	want := []float32{1, -0.5, 2}
	for i := range want {
		if math32.Abs(dist[i]-want[i]) > 1e-6 {
			t.Errorf("pos %v: want %v, got %v", pos[i], want[i], dist[i])
		}
	}
	if evals != len(pos) {
		t.Errorf("shared sphere evaluated %d times for %d positions", evals, len(pos))
	}
}

func TestNormalsCentralDiff(t *testing.T) {
	sdf := buildSDF(t, map[string]string{"s": "sphere", "out": "output"}, nil, []link{{"s", "distance", "out", "distance"}})
	var vp VecPool
	pos := []ms3.Vec{{X: 2}, {Y: -2}, {X: 1, Z: 1}}
	normals := make([]ms3.Vec, len(pos))
	err := NormalsCentralDiff(sdf, pos, normals, 1e-3, &vp)
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range normals {
		got := ms3.Unit(n)
		want := ms3.Unit(pos[i])
		if ms3.Norm(ms3.Sub(got, want)) > 1e-2 {
			t.Errorf("normal at %v: want %v, got %v", pos[i], want, got)
		}
	}
	if err := vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	err = NormalsCentralDiff(sdf, pos, normals, 1e-3, nil)
	if err == nil {
		t.Error("want error without VecPool")
	}
}

func TestVecPool(t *testing.T) {
	var vp VecPool
	a := vp.Float.Acquire(8)
	b := vp.Float.Acquire(4)
	if len(a) != 8 || len(b) != 4 {
		t.Fatal("bad lengths")
	}
	if err := vp.AssertAllReleased(); err == nil {
		t.Error("want unreleased error")
	}
	if err := vp.Float.Release(a); err != nil {
		t.Fatal(err)
	}
	if err := vp.Float.Release(a); err == nil {
		t.Error("want double release error")
	}
	c := vp.Float.Acquire(6)
	if &c[0] != &a[0] {
		t.Error("released buffer not reused")
	}
	if err := vp.Float.Release(make([]float32, 3)); err == nil {
		t.Error("want foreign buffer error")
	}
	vp.Float.Release(b)
	vp.Float.Release(c)
	if err := vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
	got, err := GetVecPool(&vp)
	if err != nil || got != &vp {
		t.Error("GetVecPool failed on *VecPool")
	}
}
