package glsllib

import (
	_ "embed"
)

var (
	//go:embed box3D.glsl
	box3DSrc []byte
	//go:embed box3D.wgsl
	box3DWGSL []byte
)

// Box3D is the SDF definition for a 3D box with rounded edges:
//
//	float sdBox(vec3 p, vec3 halfSize, float round)
func Box3D() Func {
	return makeFunc("sdBox", box3DSrc, box3DWGSL)
}

var (
	//go:embed torus3D.glsl
	torus3DSrc []byte
	//go:embed torus3D.wgsl
	torus3DWGSL []byte
)

// Torus3D is the SDF definition for a torus lying on the XZ plane:
//
//	float sdTorus(vec3 p, vec2 majorMinor)
func Torus3D() Func {
	return makeFunc("sdTorus", torus3DSrc, torus3DWGSL)
}
