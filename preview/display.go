// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package preview mirrors a simulated panel over HTTP.
//
// Display is a display.Drawer receiving the committed contents of the panel.
// Its HTTP server offers the current frame as a single image, a never ending
// "MJPEG" stream (https://en.wikipedia.org/wiki/Motion_JPEG) updated on every
// refresh, and the refresh counters as JSON. PNG is the default image format
// since it suits flat e-ink content better; JPEG can be selected with
// Options.Format or the "format" URL parameter.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/GermanBionicSystems/einkvnc/refresh"
	"periph.io/x/conn/v3/display"
)

// Options for preview displays.
type Options struct {
	// Width and height of the image buffer.
	Width, Height int

	// Format specifies the image format to send to clients.
	Format ImageFormat

	// Stats returns the refresh counters served on /stats. Optional.
	Stats func() refresh.Stats
}

// Display holds the last committed frame and the clients watching it.
type Display struct {
	defaultFormat ImageFormat
	stats         func() refresh.Stats

	mu       sync.Mutex
	buffer   *image.RGBA
	clients  map[*client]struct{}
	snapshot map[ImageFormat][]byte
	frames   uint64
}

var _ display.Drawer = (*Display)(nil)

// New creates a white preview display.
func New(opt *Options) *Display {
	buffer := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(buffer, buffer.Bounds(), image.White, image.Point{}, draw.Src)

	return &Display{
		buffer:        buffer,
		clients:       map[*client]struct{}{},
		snapshot:      map[ImageFormat][]byte{},
		defaultFormat: opt.Format,
		stats:         opt.Stats,
	}
}

// String returns the name of the device.
func (d *Display) String() string {
	return "Preview"
}

// Halt implements conn.Resource and ends every running stream
// asynchronously.
func (d *Display) Halt() error {
	d.mu.Lock()
	d.terminateClientsLocked()
	d.mu.Unlock()

	return nil
}

// ColorModel implements display.Drawer.
func (d *Display) ColorModel() color.Model {
	return d.buffer.ColorModel()
}

// Bounds implements display.Drawer.
func (d *Display) Bounds() image.Rectangle {
	return d.buffer.Bounds()
}

// Draw implements display.Drawer.
func (d *Display) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	d.mu.Lock()
	draw.Draw(d.buffer, dstRect, src, srcPts, draw.Src)
	d.frames++
	d.bufferChangedLocked()
	d.mu.Unlock()

	return nil
}

// Frames returns the number of updates received.
func (d *Display) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}
