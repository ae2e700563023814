package gleval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// VecPool holds reusable scratch buffers for evaluations that need
// intermediate storage, such as [NormalsCentralDiff]. A VecPool is not safe
// for concurrent use.
type VecPool struct {
	V3    bufPool[ms3.Vec]
	Float bufPool[float32]
}

// GetVecPool extracts a [VecPool] from evaluation user data. v may be a
// *VecPool or a type with a VecPool method.
func GetVecPool(v any) (*VecPool, error) {
	switch vp := v.(type) {
	case *VecPool:
		if vp == nil {
			return nil, errors.New("nil VecPool")
		}
		return vp, nil
	case interface{ VecPool() *VecPool }:
		got := vp.VecPool()
		if got == nil {
			return nil, errors.New("VecPool method returned nil")
		}
		return got, nil
	}
	return nil, fmt.Errorf("want *gleval.VecPool in userData, got %T", v)
}

// AssertAllReleased returns an error if any buffer acquired from vp was not released.
func (vp *VecPool) AssertAllReleased() error {
	err := vp.Float.assertAllReleased()
	if err != nil {
		return fmt.Errorf("float pool: %w", err)
	}
	err = vp.V3.assertAllReleased()
	if err != nil {
		return fmt.Errorf("vec3 pool: %w", err)
	}
	return nil
}

type bufPool[T any] struct {
	_ins      [][]T
	_acquired []bool
}

// Acquire returns a buffer of the given length. Its contents are undefined.
func (bp *bufPool[T]) Acquire(length int) []T {
	for i, buf := range bp._ins {
		if !bp._acquired[i] && cap(buf) >= length {
			bp._acquired[i] = true
			return buf[:length]
		}
	}
	buf := make([]T, length)
	bp._ins = append(bp._ins, buf)
	bp._acquired = append(bp._acquired, true)
	return buf
}

// Release returns a buffer obtained with Acquire to the pool.
func (bp *bufPool[T]) Release(buf []T) error {
	if cap(buf) == 0 {
		return errors.New("release of empty buffer")
	}
	for i, got := range bp._ins {
		if cap(got) > 0 && &got[:1][0] == &buf[:1][0] {
			if !bp._acquired[i] {
				return errors.New("release of unacquired buffer")
			}
			bp._acquired[i] = false
			return nil
		}
	}
	return errors.New("release of buffer not in pool")
}

func (bp *bufPool[T]) assertAllReleased() error {
	for i, acquired := range bp._acquired {
		if acquired {
			return fmt.Errorf("buffer %d of length %d not released", i, len(bp._ins[i]))
		}
	}
	return nil
}
