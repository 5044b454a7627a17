// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package banner draws full screen status messages on an e-ink panel.
//
// It is used while connecting and once the session ended, when there is no
// remote framebuffer to show.
package banner

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GermanBionicSystems/einkvnc/epd"
)

// Opts configures a Banner.
type Opts struct {
	// TTF is a TrueType font. Defaults to Go Regular.
	TTF []byte
}

// Banner renders status screens.
type Banner struct {
	font *truetype.Font
}

// New parses the font.
func New(opts *Opts) (*Banner, error) {
	ttf := goregular.TTF
	if opts != nil && len(opts.TTF) != 0 {
		ttf = opts.TTF
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("banner: %w", err)
	}
	return &Banner{font: f}, nil
}

func (b *Banner) face(size float64) font.Face {
	return truetype.NewFace(b.font, &truetype.Options{Size: size, Hinting: font.HintingFull})
}

// Render returns a black on white image of the given size with a title
// centered above a wrapped detail line.
func (b *Banner) Render(size image.Point, title, detail string) image.Image {
	w, h := float64(size.X), float64(size.Y)
	short := math.Min(w, h)
	pad := math.Max(2, short/40)

	dc := gg.NewContext(size.X, size.Y)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(math.Max(1, pad/2))
	dc.DrawRoundedRectangle(pad, pad, w-2*pad, h-2*pad, 2*pad)
	dc.Stroke()

	titleSize := math.Max(8, short/8)
	dc.SetFontFace(b.face(titleSize))
	dc.DrawStringAnchored(title, w/2, h/2-titleSize/2, 0.5, 0.5)
	if detail != "" {
		detailSize := math.Max(6, short/16)
		dc.SetFontFace(b.face(detailSize))
		dc.DrawStringWrapped(detail, w/2, h/2+detailSize, 0.5, 0, w-8*pad, 1.4, gg.AlignCenter)
	}
	return dc.Image()
}

// Show renders the banner on the whole panel and commits it with a Full
// refresh.
func (b *Banner) Show(fb epd.Framebuffer, title, detail string) error {
	r := fb.Bounds()
	img := b.Render(r.Size(), title, detail)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			fb.SetPixel(r.Min.X+x, r.Min.Y+y, img.At(x, y))
		}
	}
	if err := fb.Commit(r, epd.Full); err != nil {
		return fmt.Errorf("banner: %w", err)
	}
	return nil
}

// Connecting shows the connection attempt to addr.
func (b *Banner) Connecting(fb epd.Framebuffer, addr string) error {
	return b.Show(fb, "Connecting", addr)
}

// Disconnected shows why the session ended. err may be nil.
func (b *Banner) Disconnected(fb epd.Framebuffer, err error) error {
	detail := "The server closed the connection."
	if err != nil {
		detail = err.Error()
	}
	return b.Show(fb, "Disconnected", detail)
}
