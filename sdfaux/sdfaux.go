// Package sdfaux provides auxiliary rendering helpers for compiled SDF graphs:
// PNG slices evaluated on the CPU or GPU and an interactive raymarching window.
package sdfaux

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph/glbuild"
	"github.com/soypat/sdfgraph/gleval"
	"github.com/soypat/sdfgraph/glrender"
	"golang.org/x/image/draw"
)

// SliceConfig configures [RenderSlicePNG].
type SliceConfig struct {
	// Width and Height of the evaluated image in pixels. Default 256x256.
	Width, Height int
	// Z is the height of the sliced XY plane.
	Z float32
	// Upscale multiplies the output image size using Catmull-Rom interpolation. Values below 2 disable upscaling.
	Upscale int
	// Conversion maps distances to colors. Defaults to [ColorConversionInigoQuilez]
	// with a characteristic distance of a third of the bounds diagonal.
	Conversion func(float32) color.Color
}

// RenderSlicePNG evaluates the z=cfg.Z slice of sdf over the XY extents of its
// bounds and encodes it as PNG to w.
func RenderSlicePNG(w io.Writer, sdf gleval.SDF3, cfg SliceConfig) error {
	if sdf == nil {
		return errors.New("nil SDF")
	}
	if cfg.Width <= 0 {
		cfg.Width = 256
	}
	if cfg.Height <= 0 {
		cfg.Height = 256
	}
	if cfg.Conversion == nil {
		bb := sdf.Bounds()
		cfg.Conversion = ColorConversionInigoQuilez(ms3.Norm(bb.Size()) / 3)
	}
	renderer, err := glrender.NewImageRendererSlice(max(cfg.Width, 65), cfg.Conversion)
	if err != nil {
		return err
	}
	renderer.Z = cfg.Z
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	var vp gleval.VecPool
	err = renderer.Render(sdf, img, &vp)
	if err != nil {
		return err
	}
	var out image.Image = img
	if cfg.Upscale > 1 {
		big := image.NewRGBA(image.Rect(0, 0, cfg.Width*cfg.Upscale, cfg.Height*cfg.Upscale))
		draw.CatmullRom.Scale(big, big.Bounds(), img, img.Bounds(), draw.Src, nil)
		out = big
	}
	return png.Encode(w, out)
}

// ShaderSource exposes the current shader of a live graph. It is implemented
// by *pipeline.Pipeline.
type ShaderSource interface {
	// CurrentShader returns the last valid shader or nil. Must be safe for concurrent use.
	CurrentShader() *glbuild.CompiledShader
}

// UIConfig configures [UI].
type UIConfig struct {
	// Width and Height of the window. Default 800x600.
	Width, Height int
	// Context cancels the render loop.
	Context context.Context
	// CharDist is the characteristic size of the scene used to set the initial
	// camera distance and ray cutoff. Default 4.
	CharDist float32
	// Programmer writes the fragment program. Defaults to [glbuild.NewDefaultProgrammer].
	Programmer *glbuild.Programmer
	// OnFrame is called on the render thread before every frame.
	OnFrame func()
	// Logger receives link errors. Defaults to discarding.
	Logger *slog.Logger
}

func (cfg *UIConfig) setDefaults() {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	if cfg.CharDist <= 0 {
		cfg.CharDist = 4
	}
	if cfg.Programmer == nil {
		cfg.Programmer = glbuild.NewDefaultProgrammer()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
}

// UI opens a window raymarching the current shader of src. The program is
// relinked whenever the shader source changes; parameter-only changes in
// uniform mode update uniforms. A checkerboard is shown while src has no
// valid shader. Drag to orbit, scroll to zoom and press N to cycle shading
// between lit, normals and march steps. UI must run on the main thread.
func UI(src ShaderSource, cfg UIConfig) error {
	if src == nil {
		return errors.New("nil shader source")
	}
	cfg.setDefaults()
	return ui(src, cfg)
}

const fallbackFragment = `#version 430
in vec2 vTexCoord;
out vec4 fragColor;
uniform vec2 uResolution;

void main() {
	vec2 cell = floor(vTexCoord * uResolution / 32.0);
	float total = cell.x + cell.y;
	float v = mod(total, 2.0) == 0.0 ? 0.2 : 0.3;
	fragColor = vec4(vec3(v), 1.0);
}
`

// posAttrib is the attribute location of the quad vertices.
const posAttrib = 0

const vertexSource = `#version 430
layout(location = 0) in vec2 aPos;
out vec2 vTexCoord;
void main() {
	vTexCoord = aPos * 0.5 + 0.5;
	gl_Position = vec4(aPos, 0.0, 1.0);
}
`
