// Package wgslc compiles generated WGSL compute programs to SPIR-V using
// the naga shader compiler. Compiling is also how generated WGSL is checked
// for syntax and type errors.
package wgslc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/soypat/sdfgraph/glbuild"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// CompileSPIRV writes the compute program of cs with prog and compiles it to
// SPIR-V words. cs must be a WGSL shader.
func CompileSPIRV(prog *glbuild.Programmer, cs *glbuild.CompiledShader) ([]uint32, error) {
	if cs == nil {
		return nil, errors.New("nil shader")
	} else if cs.Dialect != glbuild.DialectWGSL {
		return nil, fmt.Errorf("wgslc: want %s shader, got %s", glbuild.DialectWGSL, cs.Dialect)
	}
	var src strings.Builder
	_, err := prog.WriteComputeSDF3(&src, cs)
	if err != nil {
		return nil, err
	}
	return Compile(src.String())
}

// Compile compiles a WGSL module to SPIR-V words.
func Compile(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("wgslc: failed to compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 || len(spirvBytes) < 4 {
		return nil, fmt.Errorf("wgslc: SPIR-V output of %d bytes is not word aligned", len(spirvBytes))
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	if code[0] != SPIRVMagic {
		return nil, fmt.Errorf("wgslc: invalid SPIR-V magic 0x%08X", code[0])
	}
	return code, nil
}
