//go:build !tinygo && cgo

package sdfaux

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/sdfgraph/glbuild"
)

// program is a linked fragment program with the locations of its uniforms.
// Locations of uniforms absent from the program are -1 and ignored by GL.
type program struct {
	prog   glgl.Program
	source string // Shader source the program was linked from. Empty for the fallback.
	aa, charDist, camDist, res, yaw, pitch, shading, params int32
}

func linkProgram(fragSrc, source string) (*program, error) {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertexSource + "\x00",
		Fragment: fragSrc + "\x00",
	})
	if err != nil {
		return nil, fmt.Errorf("%s\n\n%w", fragSrc, err)
	}
	loc := func(name string) int32 {
		l, err := prog.UniformLocation(name + "\x00")
		if err != nil {
			return -1
		}
		return l
	}
	return &program{
		prog:     prog,
		source:   source,
		aa:       loc("uAA"),
		charDist: loc("uCharDist"),
		camDist:  loc("uCamDist"),
		res:      loc("uResolution"),
		yaw:      loc("uYaw"),
		pitch:    loc("uPitch"),
		shading:  loc("uShading"),
		params:   loc(glbuild.UniformName + "[0]"),
	}, nil
}

func ui(src ShaderSource, cfg UIConfig) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()

	fallback, err := linkProgram(fallbackFragment, "")
	if err != nil {
		return err
	}
	defer fallback.prog.Delete()
	current := fallback
	defer func() {
		if current != fallback {
			current.prog.Delete()
		}
	}()
	var lastErrSource string
	// relink swaps the current program when the shader source changed.
	relink := func(cs *glbuild.CompiledShader) {
		if cs == nil || cs.Dialect != glbuild.DialectGLSL || cs.Source == current.source || cs.Source == lastErrSource {
			return
		}
		var frag strings.Builder
		_, err := cfg.Programmer.WriteFragVisualizer(&frag, cs)
		if err == nil {
			var p *program
			p, err = linkProgram(frag.String(), cs.Source)
			if err == nil {
				if current != fallback {
					current.prog.Delete()
				}
				current = p
				cfg.Logger.Debug("linked", slog.Uint64("generation", cs.Generation))
				return
			}
		}
		// Keep showing the last linked program.
		lastErrSource = cs.Source
		cfg.Logger.Error("link failed", slog.Uint64("generation", cs.Generation), slog.String("err", err.Error()))
	}

	// Define a quad covering the screen
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	vertices := []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))

	diag := float64(cfg.CharDist)
	minZoom := diag * 0.00001
	maxZoom := diag * 10
	var (
		yaw              float64
		pitch            float64
		lastMouseX       float64
		lastMouseY       float64
		camDist          = diag // initial camera distance
		firstMouseMove   = true
		isMousePressed   = false
		yawSensitivity   = 0.005
		pitchSensitivity = 0.005
		shading          int32
		aa               int32 = 3
		lastEdit               = time.Now()
	)
	flagEdit := func() {
		lastEdit = time.Now()
		aa = 1
	}
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		flagEdit()
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		yaw += (xpos - lastMouseX) * yawSensitivity
		pitch -= (ypos - lastMouseY) * pitchSensitivity // Invert y-axis
		maxPitch := math.Pi/2 - 0.01
		pitch = math.Max(-maxPitch, math.Min(maxPitch, pitch))
		lastMouseX = xpos
		lastMouseY = ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		flagEdit()
		camDist -= yoff * (camDist*.1 + .01)
		camDist = math.Max(minZoom, math.Min(maxZoom, camDist))
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		flagEdit()
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyN && action == glfw.Press {
			shading = (shading + 1) % 3
		}
	})

	ctx := cfg.Context
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if cfg.OnFrame != nil {
			cfg.OnFrame()
		}
		cs := src.CurrentShader()
		relink(cs)
		if !isMousePressed && time.Since(lastEdit) > 300*time.Millisecond {
			aa = 3
		}

		width, height := window.GetSize()
		gl.ClearColor(0.0, 0.0, 0.0, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		p := current
		p.prog.Bind()
		gl.Uniform2f(p.res, float32(width), float32(height))
		gl.Uniform1i(p.aa, aa)
		gl.Uniform1f(p.camDist, float32(camDist))
		gl.Uniform1f(p.yaw, float32(yaw))
		gl.Uniform1f(p.pitch, float32(pitch))
		gl.Uniform1f(p.charDist, float32(camDist+diag))
		gl.Uniform1i(p.shading, shading)
		if p != fallback && p.params >= 0 && cs != nil && cs.Source == p.source && len(cs.Uniforms) > 0 {
			gl.Uniform4fv(p.params, int32(cs.UniformSlots()), &cs.Uniforms[0])
		}

		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()

		// Limit frame rate.
		time.Sleep(time.Second / 60)
		glfw.PollEvents()
	}
	return nil
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, "sdfgraph visualizer", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
