//go:build !tinygo && cgo

package gleval

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// ssbo is a shader storage buffer attached to a binding index of the bound program.
type ssbo struct {
	id   uint32
	size int // in bytes
}

// newSSBO allocates size bytes, initialized from data when not nil, and
// attaches the buffer to binding.
func newSSBO(binding uint32, size int, data unsafe.Pointer, usage uint32) (ssbo, error) {
	buf := ssbo{size: size}
	gl.GenBuffers(1, &buf.id)
	if buf.id == 0 {
		return buf, glErrOrMessage("GL returned zero SSBO id")
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf.id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, data, usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, binding, buf.id)
	return buf, nil
}

// readInto copies the start of the buffer into dst.
func (buf ssbo) readInto(dst []byte) error {
	if len(dst) > buf.size {
		return fmt.Errorf("read of %d bytes from %d byte SSBO", len(dst), buf.size)
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf.id)
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, 0, len(dst), gl.MAP_READ_BIT)
	if ptr == nil {
		return glErrOrMessage("failed to map SSBO")
	}
	copy(dst, unsafe.Slice((*byte)(ptr), len(dst)))
	gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	return nil
}

func (buf *ssbo) delete() {
	gl.DeleteBuffers(1, &buf.id)
	buf.id = 0
}

// computeEvaluate dispatches the bound compute program over pos. Positions are
// uploaded as three tightly packed floats each, which is the layout of ms3.Vec.
func computeEvaluate(pos []ms3.Vec, dist []float32, invocX int) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(dist) == 0 {
		return errEmptyBuffers
	} else if invocX < 1 {
		return errors.New("zero or negative invocation size")
	}
	const vecSize = int(unsafe.Sizeof(ms3.Vec{}))
	positions, err := newSSBO(0, vecSize*len(pos), unsafe.Pointer(&pos[0]), gl.STATIC_DRAW)
	if err != nil {
		return err
	}
	defer positions.delete()
	distances, err := newSSBO(1, 4*len(dist), nil, gl.DYNAMIC_READ)
	if err != nil {
		return err
	}
	defer distances.delete()

	groups := (len(dist) + invocX - 1) / invocX
	gl.DispatchCompute(uint32(groups), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	err = distances.readInto(unsafe.Slice((*byte)(unsafe.Pointer(&dist[0])), 4*len(dist)))
	if err != nil {
		return err
	}
	return glgl.Err()
}

func glErrOrMessage(msg string) error {
	if err := glgl.Err(); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return errors.New(msg)
}
