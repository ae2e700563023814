//go:build tinygo || !cgo

package sdfaux

import "errors"

func ui(src ShaderSource, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
