// Package glrender renders signed distance fields to raster images.
package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfgraph/gleval"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// ImageRendererSlice renders the plane z=Z of a 3D SDF to images. The slice
// spans the XY extents of the SDF's bounds, with +Y pointing up in the image.
type ImageRendererSlice struct {
	// Z is the height of the sliced plane.
	Z    float32
	conv func(f float32) color.Color
	pos  []ms3.Vec
	dist []float32
}

// NewImageRendererSlice instances a new [ImageRendererSlice]. A nil float->color conversion
// function results in a simple black-white color scheme where black is the interior of the SDF (negative distance).
func NewImageRendererSlice(evalBufferSize int, conversion func(float32) color.Color) (*ImageRendererSlice, error) {
	if evalBufferSize <= 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = func(f float32) color.Color {
			switch {
			case math32.IsNaN(f) || math32.IsInf(f, 0):
				return color.RGBA{R: 255, A: 255}
			case f > 0:
				return color.White
			default:
				return color.Black
			}
		}
	}
	ir := &ImageRendererSlice{
		conv: conversion,
		pos:  make([]ms3.Vec, evalBufferSize),
		dist: make([]float32, evalBufferSize),
	}
	return ir, nil
}

// Render maps the SDF slice to the input Image and renders it. It uses userData as an argument to all [gleval.SDF3.Evaluate] calls.
func (ir *ImageRendererSlice) Render(sdf gleval.SDF3, img setImage, userData any) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	dyi := imgBB.Dy()
	if dxi == 0 || dyi == 0 {
		return errors.New("empty image")
	} else if len(ir.dist) < dxi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image rows (%d)", len(ir.dist), dxi)
	}
	bb3 := sdf.Bounds()
	bb := ms2.Box{
		Min: ms2.Vec{X: bb3.Min.X, Y: bb3.Min.Y},
		Max: ms2.Vec{X: bb3.Max.X, Y: bb3.Max.Y},
	}
	sz := bb.Size()
	dx := sz.X / float32(dxi)
	dy := sz.Y / float32(dyi)
	for j := 0; j < dyi; j++ {
		// Offset by half a pixel to sample pixel centers.
		y := bb.Max.Y - (float32(j)+0.5)*dy
		err := ir.renderRow(sdf, j, bb.Min.X+dx/2, y, dx, imgBB, img, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ir *ImageRendererSlice) renderRow(sdf gleval.SDF3, row int, xmin, y, dx float32, imgBB image.Rectangle, img setImage, userData any) error {
	dxi := imgBB.Dx()
	for i := 0; i < dxi; i++ {
		ir.pos[i] = ms3.Vec{X: xmin + float32(i)*dx, Y: y, Z: ir.Z}
	}
	err := sdf.Evaluate(ir.pos[:dxi], ir.dist[:dxi], userData)
	if err != nil {
		return err
	}
	conv := ir.conv
	for i := 0; i < dxi; i++ {
		img.Set(i+imgBB.Min.X, row+imgBB.Min.Y, conv(ir.dist[i]))
	}
	return nil
}
