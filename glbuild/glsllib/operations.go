package glsllib

import (
	_ "embed"
)

var (
	//go:embed bend.glsl
	bendSrc []byte
	//go:embed bend.wgsl
	bendWGSL []byte
	//go:embed twist.glsl
	twistSrc []byte
	//go:embed twist.wgsl
	twistWGSL []byte
	//go:embed mirror.glsl
	mirrorSrc []byte
	//go:embed mirror.wgsl
	mirrorWGSL []byte
)

// Bend rotates the XY plane by an angle proportional to x:
//
//	vec3 opBend(vec3 p, float k)
func Bend() Func { return makeFunc("opBend", bendSrc, bendWGSL) }

// Twist rotates the XZ plane by an angle proportional to y:
//
//	vec3 opTwist(vec3 p, float k)
func Twist() Func { return makeFunc("opTwist", twistSrc, twistWGSL) }

// Mirror folds the axes whose flag is set (>=0.5) onto their positive side:
//
//	vec3 opMirror(vec3 p, vec3 flags)
func Mirror() Func { return makeFunc("opMirror", mirrorSrc, mirrorWGSL) }

var (
	//go:embed smoothunion.glsl
	smoothUnionSrc []byte
	//go:embed smoothunion.wgsl
	smoothUnionWGSL []byte
	//go:embed smoothintersect.glsl
	smoothIntersectSrc []byte
	//go:embed smoothintersect.wgsl
	smoothIntersectWGSL []byte
	//go:embed smoothdiff.glsl
	smoothDiffSrc []byte
	//go:embed smoothdiff.wgsl
	smoothDiffWGSL []byte
)

// SmoothUnion is the polynomial smooth minimum of two distances:
//
//	float opSmoothUnion(float a, float b, float k)
func SmoothUnion() Func { return makeFunc("opSmoothUnion", smoothUnionSrc, smoothUnionWGSL) }

// SmoothIntersect is the polynomial smooth maximum of two distances:
//
//	float opSmoothIntersect(float a, float b, float k)
func SmoothIntersect() Func {
	return makeFunc("opSmoothIntersect", smoothIntersectSrc, smoothIntersectWGSL)
}

// SmoothDiff subtracts b from a with a smoothing blend:
//
//	float opSmoothDiff(float a, float b, float k)
func SmoothDiff() Func { return makeFunc("opSmoothDiff", smoothDiffSrc, smoothDiffWGSL) }
