// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"image"
	"image/color"
)

// Mode selects the waveform used to refresh a region of the panel.
type Mode uint8

const (
	// Full refreshes with a complete flash sequence. Slow, removes ghosting.
	Full Mode = iota
	// Partial refreshes only the pixels that changed within the region.
	Partial
	// FastMono is a black/white only waveform meant for small regions.
	FastMono
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "Full"
	case Partial:
		return "Partial"
	case FastMono:
		return "FastMono"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Framebuffer is the pixel memory of an e-ink panel plus its refresh
// primitive.
//
// Implementations are not safe for concurrent use. A single owner writes
// pixels and issues commits.
type Framebuffer interface {
	// Bounds returns the logical panel area after rotation.
	Bounds() image.Rectangle
	// Channels returns 1 for greyscale panels and 3 for color panels.
	Channels() int
	// SetPixel writes a pixel into panel memory. Out of bounds writes are
	// ignored.
	SetPixel(x, y int, c color.Color)
	// Pixel reads back panel memory.
	Pixel(x, y int) color.Color
	// Commit makes the given region visible using the given mode.
	Commit(r image.Rectangle, m Mode) error
	// SetRotation rotates the panel by quarter turns (0 to 3).
	SetRotation(quarterTurns int) error
}

// Rotated returns the size of a panel with the given native size after
// rotating it by quarter turns.
func Rotated(native image.Point, quarterTurns int) image.Point {
	if quarterTurns%2 != 0 {
		return image.Point{X: native.Y, Y: native.X}
	}
	return native
}

// ValidRotation returns an error unless n is between 0 and 3.
func ValidRotation(n int) error {
	if n < 0 || n > 3 {
		return fmt.Errorf("epd: rotation %d out of range [0, 3]", n)
	}
	return nil
}
