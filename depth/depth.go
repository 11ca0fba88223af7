// Package depth converts samples between pixel representations: integer
// codes of any supported bit depth and nominal [0, 1] floats.
//
// Integer codes are treated as full range: code v of depth d is the value
// v / (2^d - 1). Conversions to integer codes round to nearest, optionally
// after ordered dithering or with Floyd-Steinberg error diffusion.
package depth

import (
	"fmt"
	"strings"

	"github.com/gogpu/rowpipe"
)

// Dither selects how float values are quantised to integer codes.
type Dither uint8

const (
	// DitherNone rounds to the nearest code.
	DitherNone Dither = iota

	// DitherOrdered adds an 8x8 Bayer threshold before rounding.
	DitherOrdered

	// DitherErrorDiffusion spreads each rounding error to unprocessed
	// neighbours with Floyd-Steinberg weights. Rows must be processed in
	// order and over their full width.
	DitherErrorDiffusion
)

func (d Dither) String() string {
	switch d {
	case DitherNone:
		return "none"
	case DitherOrdered:
		return "ordered"
	case DitherErrorDiffusion:
		return "error_diffusion"
	}
	return fmt.Sprintf("Dither(%d)", uint8(d))
}

// ParseDither parses a dither name as produced by Dither.String.
func ParseDither(s string) (Dither, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return DitherNone, nil
	case "ordered", "bayer":
		return DitherOrdered, nil
	case "error_diffusion", "error-diffusion", "fs":
		return DitherErrorDiffusion, nil
	}
	return DitherNone, fmt.Errorf("depth: unknown dither %q", s)
}

// Params describes a conversion of one plane.
type Params struct {
	Width  int
	Height int

	From rowpipe.PixelType
	To   rowpipe.PixelType

	// FromDepth and ToDepth are the bit depths of integer samples; 0 means
	// the type's maximum. Ignored for float samples.
	FromDepth int
	ToDepth   int

	// Dither applies to integer output only.
	Dither Dither

	// CPU is the capability floor, TierAuto for the richest available.
	CPU rowpipe.Tier

	// Caps describes the hardware; nil uses rowpipe.DetectCapabilities.
	Caps *rowpipe.Capabilities
}

// plan is a validated Params.
type plan struct {
	Params
	scale  float32
	maxVal float32
}

func (p Params) caps() rowpipe.Capabilities {
	if p.Caps != nil {
		return *p.Caps
	}
	return rowpipe.DetectCapabilities()
}

func (p Params) validate() (plan, error) {
	g := rowpipe.Geometry{Width: p.Width, Height: p.Height, Pixel: p.From}
	if err := g.Validate(); err != nil {
		return plan{}, err
	}
	if !p.To.IsValid() {
		return plan{}, fmt.Errorf("%w: %v", rowpipe.ErrUnsupportedPixel, p.To)
	}
	if err := p.CPU.Validate(); err != nil {
		return plan{}, err
	}
	fromDepth, err := p.From.CheckDepth(p.FromDepth)
	if err != nil {
		return plan{}, err
	}
	toDepth, err := p.To.CheckDepth(p.ToDepth)
	if err != nil {
		return plan{}, err
	}
	if p.Dither > DitherErrorDiffusion {
		return plan{}, fmt.Errorf("depth: unknown dither %v", p.Dither)
	}

	pl := plan{Params: p, maxVal: 1}
	pl.FromDepth, pl.ToDepth = fromDepth, toDepth

	scale := 1.0
	if !p.From.IsFloat() {
		scale /= float64(uint32(1)<<uint(fromDepth) - 1)
	}
	if !p.To.IsFloat() {
		pl.maxVal = float32(uint32(1)<<uint(toDepth) - 1)
		scale *= float64(pl.maxVal)
	} else {
		pl.Dither = DitherNone
	}
	pl.scale = float32(scale)
	return pl, nil
}

func (pl *plan) inputGeometry() rowpipe.Geometry {
	return rowpipe.Geometry{Width: pl.Width, Height: pl.Height, Pixel: pl.From}
}

func (pl *plan) outputGeometry() rowpipe.Geometry {
	return rowpipe.Geometry{Width: pl.Width, Height: pl.Height, Pixel: pl.To}
}

// New creates the conversion stage described by p.
func New(p Params) (rowpipe.Stage, error) {
	pl, err := p.validate()
	if err != nil {
		return nil, err
	}
	rowpipe.Logger().Debug("depth: conversion",
		"from", fmt.Sprintf("%v/%d", pl.From, pl.FromDepth),
		"to", fmt.Sprintf("%v/%d", pl.To, pl.ToDepth),
		"dither", pl.Dither.String())

	if pl.Dither == DitherErrorDiffusion {
		return newErrorDiffusion(pl), nil
	}
	return newConvert(pl)
}
