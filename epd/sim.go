// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/conn/v3/display"
)

// SimOpts configures a simulated panel.
type SimOpts struct {
	// Width and Height of the panel before rotation.
	Width, Height int
	// Channels is 1 (greyscale, the default) or 3 (color).
	Channels int
	// Sinks receive the visible panel contents after every commit.
	Sinks []display.Drawer
}

// CommitRecord is one refresh issued to a Sim.
type CommitRecord struct {
	Rect image.Rectangle
	Mode Mode
}

// Sim is a software-simulated e-ink panel. Pixels written with SetPixel only
// become visible, and are only forwarded to the sinks, once committed.
type Sim struct {
	native   image.Point
	channels int
	rotation int

	mem     draw.Image
	visible draw.Image
	sinks   []display.Drawer

	// Commits lists every refresh in issue order.
	Commits []CommitRecord
	// CommitErr, when set, is returned by Commit instead of refreshing.
	CommitErr error
}

// NewSim returns a blank (white) simulated panel.
func NewSim(opts *SimOpts) (*Sim, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("epd: invalid simulated panel size %dx%d", opts.Width, opts.Height)
	}
	ch := opts.Channels
	if ch == 0 {
		ch = 1
	}
	if ch != 1 && ch != 3 {
		return nil, fmt.Errorf("epd: unsupported channel count %d", ch)
	}
	s := &Sim{
		native:   image.Pt(opts.Width, opts.Height),
		channels: ch,
		sinks:    opts.Sinks,
	}
	s.alloc()
	return s, nil
}

func (s *Sim) alloc() {
	r := image.Rectangle{Max: Rotated(s.native, s.rotation)}
	if s.channels == 1 {
		s.mem = image.NewGray(r)
		s.visible = image.NewGray(r)
	} else {
		s.mem = image.NewRGBA(r)
		s.visible = image.NewRGBA(r)
	}
	draw.Draw(s.mem, r, image.White, image.Point{}, draw.Src)
	draw.Draw(s.visible, r, image.White, image.Point{}, draw.Src)
}

// String implements fmt.Stringer.
func (s *Sim) String() string {
	return fmt.Sprintf("epd.Sim{%dx%d, channels: %d, rotation: %d}", s.native.X, s.native.Y, s.channels, s.rotation)
}

// Bounds implements Framebuffer.
func (s *Sim) Bounds() image.Rectangle {
	return s.mem.Bounds()
}

// Channels implements Framebuffer.
func (s *Sim) Channels() int {
	return s.channels
}

// SetPixel implements Framebuffer.
func (s *Sim) SetPixel(x, y int, c color.Color) {
	if !image.Pt(x, y).In(s.mem.Bounds()) {
		return
	}
	s.mem.Set(x, y, c)
}

// Pixel implements Framebuffer.
func (s *Sim) Pixel(x, y int) color.Color {
	return s.mem.At(x, y)
}

// Visible returns the committed panel contents at (x, y).
func (s *Sim) Visible(x, y int) color.Color {
	return s.visible.At(x, y)
}

// Commit implements Framebuffer.
func (s *Sim) Commit(r image.Rectangle, m Mode) error {
	if s.CommitErr != nil {
		return s.CommitErr
	}
	r = r.Intersect(s.mem.Bounds())
	s.Commits = append(s.Commits, CommitRecord{Rect: r, Mode: m})
	if r.Empty() {
		return nil
	}
	draw.Draw(s.visible, r, s.mem, r.Min, draw.Src)
	for _, sink := range s.sinks {
		if err := sink.Draw(r, s.visible, r.Min); err != nil {
			return fmt.Errorf("epd: sink %s: %w", sink, err)
		}
	}
	return nil
}

// SetRotation implements Framebuffer. Panel memory is cleared.
func (s *Sim) SetRotation(quarterTurns int) error {
	if err := ValidRotation(quarterTurns); err != nil {
		return err
	}
	s.rotation = quarterTurns
	s.alloc()
	return nil
}

var _ Framebuffer = &Sim{}
var _ fmt.Stringer = &Sim{}
