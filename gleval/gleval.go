// Package gleval evaluates signed distance fields built from node graphs,
// either on the CPU through each kind's evaluator or on the GPU by running
// the generated compute program.
package gleval

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph/glbuild"
)

// SDF3 implements a 3D signed distance field in vectorized
// form suitable for running on GPU.
type SDF3 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length.  Resulting distances are stored
	// in dist.
	//
	// userData facilitates getting data to the evaluators for use in processing, such as [VecPool].
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms3.Box
}

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
)

// NormalsCentralDiff uses central differences algorithm for normal calculation, which are stored in normals for each position.
// The returned normals are not normalized (converted to unit length).
func NormalsCentralDiff(s SDF3, pos []ms3.Vec, normals []ms3.Vec, step float32, userData any) error {
	step *= 0.5
	if step <= 0 {
		return errors.New("invalid step")
	} else if len(pos) != len(normals) {
		return errors.New("length of position must match length of normals")
	} else if s == nil {
		return errors.New("nil SDF3")
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	vp, err := GetVecPool(userData)
	if err != nil {
		return fmt.Errorf("VecPool required in both GPU and CPU situations for Normal calculation: %s", err)
	}
	d1 := vp.Float.Acquire(len(pos))
	d2 := vp.Float.Acquire(len(pos))
	auxPos := vp.V3.Acquire(len(pos))
	defer vp.Float.Release(d1)
	defer vp.Float.Release(d2)
	defer vp.V3.Release(auxPos)
	var vecs = [3]ms3.Vec{{X: step}, {Y: step}, {Z: step}}
	for dim := 0; dim < 3; dim++ {
		h := vecs[dim]
		for i, p := range pos {
			auxPos[i] = ms3.Add(p, h)
		}
		err = s.Evaluate(auxPos, d1, userData)
		if err != nil {
			return err
		}
		for i, p := range pos {
			auxPos[i] = ms3.Sub(p, h)
		}
		err = s.Evaluate(auxPos, d2, userData)
		if err != nil {
			return err
		}
		for i, d := range d1 {
			switch dim {
			case 0:
				normals[i].X = d - d2[i]
			case 1:
				normals[i].Y = d - d2[i]
			case 2:
				normals[i].Z = d - d2[i]
			}
		}
	}
	return nil
}

// NewGPUSDF3 writes the compute program of cs with prog and compiles it into
// an [SDF3] evaluated on the GPU. cs must be a GLSL shader. A GL context must be
// current on the calling thread, see [Init1x1GLFW].
func NewGPUSDF3(prog *glbuild.Programmer, cs *glbuild.CompiledShader, bb ms3.Box) (*SDF3Compute, error) {
	if cs.Dialect != glbuild.DialectGLSL {
		return nil, fmt.Errorf("GPU evaluation requires %s shader, got %s", glbuild.DialectGLSL, cs.Dialect)
	}
	var buf bytes.Buffer
	_, err := prog.WriteComputeSDF3(&buf, cs)
	if err != nil {
		return nil, err
	}
	invocX, _, _ := prog.ComputeInvocations()
	return NewComputeGPUSDF3(&buf, bb, ComputeConfig{InvocX: invocX})
}

// ComputeConfig configures compute program dispatch.
type ComputeConfig struct {
	// InvocX is the local work group size in X the program was written with.
	InvocX int
}
