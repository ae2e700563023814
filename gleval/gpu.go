//go:build !tinygo && cgo

package gleval

import (
	"errors"
	"fmt"
	"io"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// Init1x1GLFW makes a GL 4.6 context current on the calling thread using a
// hidden 1x1 window. Call terminate once done with GPU evaluation.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// NewComputeGPUSDF3 compiles a combined glgl source holding a compute shader
// that reads positions from SSBO binding 0 and writes distances to binding 1,
// as written by [glbuild.Programmer.WriteComputeSDF3].
func NewComputeGPUSDF3(glglSourceCode io.Reader, bb ms3.Box, cfg ComputeConfig) (*SDF3Compute, error) {
	if cfg.InvocX < 1 {
		return nil, errors.New("zero or negative invocation size")
	}
	src, err := glgl.ParseCombined(glglSourceCode)
	if err != nil {
		return nil, err
	} else if src.Compute == "" {
		return nil, errors.New("source has no compute shader")
	}
	prog, err := glgl.CompileProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compiling compute program: %w\n%s", err, src.Compute)
	}
	return &SDF3Compute{prog: prog, bb: bb, invocX: cfg.InvocX}, nil
}

// SDF3Compute is an [SDF3] evaluated by a compute program. It must be used
// from the thread owning the GL context.
type SDF3Compute struct {
	prog   glgl.Program
	bb     ms3.Box
	invocX int
}

// Bounds returns the bounding box given at construction.
func (sdf *SDF3Compute) Bounds() ms3.Box { return sdf.bb }

// Evaluate implements [SDF3]. userData is unused.
func (sdf *SDF3Compute) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if sdf.prog.ID() == 0 {
		return errors.New("compute program not compiled or already deleted")
	}
	sdf.prog.Bind()
	defer sdf.prog.Unbind()
	return computeEvaluate(pos, dist, sdf.invocX)
}

// Delete releases the compute program.
func (sdf *SDF3Compute) Delete() {
	sdf.prog.Delete()
}
