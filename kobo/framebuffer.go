// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package kobo

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/GermanBionicSystems/einkvnc/epd"
)

// device is the kernel side of the framebuffer.
type device interface {
	screenInfo() (*varScreenInfo, *fixScreenInfo, error)
	setScreenInfo(v *varScreenInfo) error
	mmap(size int) ([]byte, error)
	munmap(b []byte) error
	sendUpdate(d *mxcfbUpdateData) error
	Close() error
}

// Framebuffer is a Kobo e-ink panel.
//
// It implements epd.Framebuffer.
type Framebuffer struct {
	dev    device
	name   string
	mem    []byte
	v      varScreenInfo
	stride int
	bpp    int
	marker uint32
}

func newFramebuffer(dev device, name string) (*Framebuffer, error) {
	f := &Framebuffer{dev: dev, name: name}
	if err := f.load(); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return f, nil
}

// load reads the screen geometry and maps the visible framebuffer memory.
func (f *Framebuffer) load() error {
	if f.mem != nil {
		if err := f.dev.munmap(f.mem); err != nil {
			return fmt.Errorf("kobo: munmap: %w", err)
		}
		f.mem = nil
	}
	v, fix, err := f.dev.screenInfo()
	if err != nil {
		return fmt.Errorf("kobo: screen info: %w", err)
	}
	switch v.BitsPerPixel {
	case 8, 16, 32:
	default:
		return fmt.Errorf("kobo: unsupported pixel depth %d", v.BitsPerPixel)
	}
	bpp := int(v.BitsPerPixel / 8)
	stride := int(fix.LineLength)
	if stride < int(v.XRes)*bpp {
		return fmt.Errorf("kobo: line length %d too short for %d pixels", stride, v.XRes)
	}
	mem, err := f.dev.mmap(stride * int(v.YRes))
	if err != nil {
		return fmt.Errorf("kobo: mmap: %w", err)
	}
	f.mem = mem
	f.v = *v
	f.stride = stride
	f.bpp = bpp
	return nil
}

// String implements fmt.Stringer.
func (f *Framebuffer) String() string {
	return fmt.Sprintf("kobo.Framebuffer{%s, %dx%d, %dbpp, rotation: %d}", f.name, f.v.XRes, f.v.YRes, f.bpp*8, f.v.Rotate)
}

// Bounds implements epd.Framebuffer.
func (f *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(f.v.XRes), int(f.v.YRes))
}

// Channels implements epd.Framebuffer. Kobo panels are greyscale.
func (f *Framebuffer) Channels() int {
	return 1
}

func (f *Framebuffer) offset(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= int(f.v.XRes) || y >= int(f.v.YRes) {
		return 0, false
	}
	return y*f.stride + x*f.bpp, true
}

// SetPixel implements epd.Framebuffer.
func (f *Framebuffer) SetPixel(x, y int, c color.Color) {
	i, ok := f.offset(x, y)
	if !ok {
		return
	}
	p := f.mem[i : i+f.bpp]
	switch f.bpp {
	case 1:
		p[0] = color.GrayModel.Convert(c).(color.Gray).Y
	case 2:
		rgb := color.RGBAModel.Convert(c).(color.RGBA)
		v := uint16(rgb.R>>3)<<11 | uint16(rgb.G>>2)<<5 | uint16(rgb.B>>3)
		p[0] = byte(v)
		p[1] = byte(v >> 8)
	case 4:
		rgb := color.RGBAModel.Convert(c).(color.RGBA)
		p[0], p[1], p[2], p[3] = 0xFF, 0xFF, 0xFF, 0xFF
		p[f.v.Red.Offset/8] = rgb.R
		p[f.v.Green.Offset/8] = rgb.G
		p[f.v.Blue.Offset/8] = rgb.B
	}
}

// Pixel implements epd.Framebuffer.
func (f *Framebuffer) Pixel(x, y int) color.Color {
	i, ok := f.offset(x, y)
	if !ok {
		return color.Gray{}
	}
	p := f.mem[i : i+f.bpp]
	switch f.bpp {
	case 1:
		return color.Gray{Y: p[0]}
	case 2:
		v := uint16(p[0]) | uint16(p[1])<<8
		r, g, b := byte(v>>11)<<3, byte(v>>5&0x3F)<<2, byte(v&0x1F)<<3
		return color.RGBA{R: r | r>>5, G: g | g>>6, B: b | b>>5, A: 0xFF}
	default:
		return color.RGBA{R: p[f.v.Red.Offset/8], G: p[f.v.Green.Offset/8], B: p[f.v.Blue.Offset/8], A: 0xFF}
	}
}

// Commit implements epd.Framebuffer.
func (f *Framebuffer) Commit(r image.Rectangle, m epd.Mode) error {
	r = r.Intersect(f.Bounds())
	if r.Empty() {
		return nil
	}
	f.marker++
	d := updateData(r, m, f.marker)
	if err := f.dev.sendUpdate(&d); err != nil {
		return fmt.Errorf("kobo: %s update of %v: %w", m, r, err)
	}
	return nil
}

// SetRotation implements epd.Framebuffer.
//
// The kernel swaps the screen geometry, so the memory is mapped again.
func (f *Framebuffer) SetRotation(quarterTurns int) error {
	if err := epd.ValidRotation(quarterTurns); err != nil {
		return err
	}
	v := f.v
	v.Rotate = uint32(quarterTurns)
	if err := f.dev.setScreenInfo(&v); err != nil {
		return fmt.Errorf("kobo: set rotation %d: %w", quarterTurns, err)
	}
	return f.load()
}

// Close unmaps the framebuffer and closes the device.
func (f *Framebuffer) Close() error {
	var err error
	if f.mem != nil {
		err = f.dev.munmap(f.mem)
		f.mem = nil
	}
	return errors.Join(err, f.dev.Close())
}

var _ epd.Framebuffer = &Framebuffer{}
var _ fmt.Stringer = &Framebuffer{}
