// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package postproc maps remote framebuffer samples to panel intensities.
//
// E-ink panels render mid-tones poorly, so the mapping can steepen the
// contrast around a gray point and push near-white values to pure white. The
// mapping is precomputed into a 256-entry lookup table.
package postproc

import (
	"fmt"
	"math"
)

// Config describes the tone curve.
type Config struct {
	// ContrastExponent is the exponent of the curve. 1.0 disables it.
	ContrastExponent float64
	// GrayPoint is the intensity the curve pivots around, in (0, 255).
	GrayPoint float64
	// WhiteCutoff is the level above which every result becomes 255.
	WhiteCutoff uint8
}

// DefaultConfig is the identity curve with no cutoff.
var DefaultConfig = Config{
	ContrastExponent: 1.0,
	GrayPoint:        224,
	WhiteCutoff:      255,
}

// Validate returns an error if the curve cannot be computed.
func (c *Config) Validate() error {
	if !(c.ContrastExponent > 0) || math.IsInf(c.ContrastExponent, 0) {
		return fmt.Errorf("postproc: contrast exponent must be positive, got %g", c.ContrastExponent)
	}
	if !(c.GrayPoint > 0 && c.GrayPoint < 255) {
		return fmt.Errorf("postproc: gray point must be in (0, 255), got %g", c.GrayPoint)
	}
	return nil
}

// LUT is a precomputed intensity mapping. It is read-only once built.
type LUT [256]byte

// NewLUT builds the table for cfg. cfg must be valid.
func NewLUT(cfg *Config) *LUT {
	var l LUT
	g := cfg.GrayPoint
	e := cfg.ContrastExponent
	for i := range l {
		v := uint8(i)
		if e != 1.0 {
			f := float64(i)
			switch {
			case f < g:
				v = uint8(g * math.Pow(f/g, e))
			case f > g:
				v = uint8(g + (255-g)*math.Pow((f-g)/(255-g), 1/e))
			default:
				v = uint8(g)
			}
		}
		if v > cfg.WhiteCutoff {
			v = 255
		}
		l[i] = v
	}
	return &l
}

// Map returns the mapped value of v.
func (l *LUT) Map(v byte) byte {
	return l[v]
}

// Gray subsamples src by taking every stride-th byte, starting at offset 0,
// maps it through the table and appends the result to dst.
//
// The sampled byte is whatever channel sits at offset 0 of each pixel in the
// negotiated pixel format. It is not a luminance.
func (l *LUT) Gray(dst, src []byte, stride int) []byte {
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(src); i += stride {
		dst = append(dst, l[src[i]])
	}
	return dst
}

// Color maps the first three bytes of every stride-byte pixel of src and
// appends them to dst in source order.
func (l *LUT) Color(dst, src []byte, stride int) []byte {
	if stride < 3 {
		return l.Gray(dst, src, stride)
	}
	for i := 0; i+2 < len(src); i += stride {
		dst = append(dst, l[src[i]], l[src[i+1]], l[src[i+2]])
	}
	return dst
}
