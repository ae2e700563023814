// Package glsllib contains helper shader functions called by the generated
// node functions. Each function is available in GLSL and WGSL.
package glsllib

import (
	"bytes"
	"errors"
)

// Func is a named shader function with its source in every supported dialect.
// The generator writes each Func at most once per program.
type Func struct {
	Name string
	GLSL string
	WGSL string
}

// Validate checks the function name matches the name declared in both sources.
func (f Func) Validate() error {
	if f.Name == "" {
		return errors.New("empty shader function name")
	} else if f.GLSL == "" || f.WGSL == "" {
		return errors.New("shader function " + f.Name + " missing dialect source")
	}
	glslName, err := parseFuncName([]byte(f.GLSL))
	if err != nil {
		return err
	}
	wgslName, err := parseFuncName([]byte(f.WGSL))
	if err != nil {
		return err
	}
	if glslName != f.Name || wgslName != f.Name {
		return errors.New("shader function name mismatch for " + f.Name + ": got " + glslName + " and " + wgslName)
	}
	return nil
}

// parseFuncName extracts the function name from a declaration such as
// "float name(...)" or "fn name(...)".
func parseFuncName(def []byte) (string, error) {
	def = bytes.TrimSpace(def)
	fnNameEnd := bytes.IndexByte(def, '(')
	fnNameStart := bytes.IndexByte(def, ' ')
	if fnNameEnd < 0 || fnNameStart < 0 || fnNameStart > fnNameEnd {
		return "", errors.New("unable to parse function name")
	}
	name := bytes.TrimSpace(def[fnNameStart:fnNameEnd])
	if len(name) == 0 {
		return "", errors.New("empty function name")
	}
	return string(name), nil
}

func makeFunc(name string, glsl, wgsl []byte) Func {
	return Func{Name: name, GLSL: string(bytes.TrimSpace(glsl)), WGSL: string(bytes.TrimSpace(wgsl))}
}
