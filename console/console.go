// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console implements a display.Drawer that renders a downscaled copy
// of a panel in a terminal using ANSI color codes.
//
// Useful to watch a simulated panel over ssh.
package console

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	// Width and Height of the mirrored panel.
	Width, Height int
	// Cols is the number of terminal columns to use. Defaults to 80.
	Cols int
	// Out defaults to the standard output.
	Out     io.Writer
	Palette *ansi256.Palette
}

// Dev mirrors a panel on the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	img     *image.RGBA
	// cell is the size in pixels covered by one character.
	cell image.Point
	cols int
	rows int

	buf bytes.Buffer
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("console: invalid size %dx%d", opts.Width, opts.Height)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Out
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	cols := opts.Cols
	if cols <= 0 {
		cols = 80
	}
	cols = min(cols, opts.Width)
	cw := (opts.Width + cols - 1) / cols
	// Terminal characters are about twice as high as wide.
	cell := image.Pt(cw, 2*cw)
	d := &Dev{
		w:       w,
		palette: *p,
		img:     image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
		cell:    cell,
		cols:    (opts.Width + cell.X - 1) / cell.X,
		rows:    (opts.Height + cell.Y - 1) / cell.Y,
	}
	draw.Draw(d.img, d.img.Bounds(), image.White, image.Point{}, draw.Src)
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("Console{%dx%d}", d.cols, d.rows)
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.img.Bounds()
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Draw(d.img, r, src, sp, draw.Src)
	return d.refresh()
}

// cellColor averages the pixels covered by the character at (col, row).
func (d *Dev) cellColor(col, row int) color.NRGBA {
	r := image.Rect(col*d.cell.X, row*d.cell.Y, (col+1)*d.cell.X, (row+1)*d.cell.Y).Intersect(d.img.Bounds())
	var sr, sg, sb, n uint32
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := d.img.RGBAAt(x, y)
			sr += uint32(c.R)
			sg += uint32(c.G)
			sb += uint32(c.B)
			n++
		}
	}
	if n == 0 {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{uint8(sr / n), uint8(sg / n), uint8(sb / n), 255}
}

func (d *Dev) refresh() error {
	d.buf.Reset()
	// Cursor home.
	_, _ = d.buf.WriteString("\033[H")
	for row := 0; row < d.rows; row++ {
		for col := 0; col < d.cols; col++ {
			_, _ = io.WriteString(&d.buf, d.palette.Block(d.cellColor(col, row)))
		}
		_, _ = d.buf.WriteString("\033[0m\r\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
