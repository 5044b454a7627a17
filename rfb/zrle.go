// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rfb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	vnc "github.com/mitchellh/go-vnc"
)

const zrleTile = 64

// ZRLEEncoding is the Zlib Run-Length Encoding.
//
// The instance registered with the connection holds the zlib stream, which
// spans every ZRLE rectangle of the session. Read returns a new instance
// carrying the decoded pixels.
type ZRLEEncoding struct {
	// Pixels holds the decoded rectangle in the connection pixel format.
	Pixels []byte

	in   bytes.Buffer
	zr   io.ReadCloser
	tile []byte
	// err is the decoding error that ended the session, if any.
	err error
}

// Type implements vnc.Encoding.
func (*ZRLEEncoding) Type() int32 {
	return 16
}

// Read implements vnc.Encoding.
func (z *ZRLEEncoding) Read(c *vnc.ClientConn, rect *vnc.Rectangle, r io.Reader) (vnc.Encoding, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if _, err := io.CopyN(&z.in, r, int64(n)); err != nil {
		return nil, err
	}
	if z.zr == nil {
		zr, err := zlib.NewReader(&z.in)
		if err != nil {
			z.err = fmt.Errorf("rfb: zrle: %w", err)
			return nil, z.err
		}
		z.zr = zr
	}
	pixels, err := z.decode(&c.PixelFormat, int(rect.Width), int(rect.Height))
	if err != nil {
		z.err = fmt.Errorf("rfb: zrle rectangle %dx%d at (%d,%d): %w", rect.Width, rect.Height, rect.X, rect.Y, err)
		return nil, z.err
	}
	return &ZRLEEncoding{Pixels: pixels}, nil
}

// decode reads the tiles of a w by h rectangle from the zlib stream.
func (z *ZRLEEncoding) decode(pf *vnc.PixelFormat, w, h int) ([]byte, error) {
	bpp := int(pf.BPP) / 8
	csize, coff := cpixelLayout(pf)
	out := make([]byte, w*h*bpp)
	d := zrleTileDecoder{r: z.zr, bpp: bpp, csize: csize, coff: coff}
	for ty := 0; ty < h; ty += zrleTile {
		th := min(zrleTile, h-ty)
		for tx := 0; tx < w; tx += zrleTile {
			tw := min(zrleTile, w-tx)
			if cap(z.tile) < tw*th*bpp {
				z.tile = make([]byte, zrleTile*zrleTile*bpp)
			}
			tile := z.tile[:tw*th*bpp]
			clear(tile)
			if err := d.decode(tile, tw, th); err != nil {
				return nil, err
			}
			for y := 0; y < th; y++ {
				copy(out[((ty+y)*w+tx)*bpp:], tile[y*tw*bpp:(y+1)*tw*bpp])
			}
		}
	}
	return out, nil
}

var errZRLESubencoding = errors.New("invalid subencoding")

type zrleTileDecoder struct {
	r     io.Reader
	bpp   int
	csize int
	coff  int
	buf   [4]byte
}

func (d *zrleTileDecoder) readByte() (byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:1]); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

// cpixel reads one compressed pixel and writes it as a full pixel to dst.
func (d *zrleTileDecoder) cpixel(dst []byte) error {
	if _, err := io.ReadFull(d.r, dst[d.coff:d.coff+d.csize]); err != nil {
		return err
	}
	return nil
}

// runLength reads a run length: a sequence of bytes summed up, ending with
// the first byte that is not 255, plus one.
func (d *zrleTileDecoder) runLength() (int, error) {
	n := 1
	for {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		n += int(b)
		if b != 255 {
			return n, nil
		}
	}
}

func (d *zrleTileDecoder) decode(tile []byte, w, h int) error {
	sub, err := d.readByte()
	if err != nil {
		return err
	}
	bpp := d.bpp
	count := w * h
	switch {
	case sub == 0:
		for i := 0; i < count; i++ {
			if err := d.cpixel(tile[i*bpp:]); err != nil {
				return err
			}
		}
	case sub == 1:
		if err := d.cpixel(tile); err != nil {
			return err
		}
		for i := 1; i < count; i++ {
			copy(tile[i*bpp:(i+1)*bpp], tile[:bpp])
		}
	case sub <= 16:
		palette, err := d.palette(int(sub))
		if err != nil {
			return err
		}
		bits := 4
		switch {
		case sub == 2:
			bits = 1
		case sub <= 4:
			bits = 2
		}
		mask := byte(1<<bits - 1)
		for y := 0; y < h; y++ {
			var cur byte
			left := 0
			for x := 0; x < w; x++ {
				if left == 0 {
					if cur, err = d.readByte(); err != nil {
						return err
					}
					left = 8
				}
				left -= bits
				idx := int(cur >> left & mask)
				if idx >= len(palette) {
					return fmt.Errorf("palette index %d out of %d", idx, len(palette))
				}
				i := y*w + x
				copy(tile[i*bpp:(i+1)*bpp], palette[idx])
			}
		}
	case sub == 128:
		for i := 0; i < count; {
			var px [4]byte
			if err := d.cpixel(px[:]); err != nil {
				return err
			}
			n, err := d.runLength()
			if err != nil {
				return err
			}
			if i+n > count {
				return fmt.Errorf("run of %d overflows tile", n)
			}
			for ; n > 0; n-- {
				copy(tile[i*bpp:(i+1)*bpp], px[:bpp])
				i++
			}
		}
	case sub >= 130:
		palette, err := d.palette(int(sub) - 128)
		if err != nil {
			return err
		}
		for i := 0; i < count; {
			b, err := d.readByte()
			if err != nil {
				return err
			}
			idx := int(b & 0x7F)
			if idx >= len(palette) {
				return fmt.Errorf("palette index %d out of %d", idx, len(palette))
			}
			n := 1
			if b&0x80 != 0 {
				if n, err = d.runLength(); err != nil {
					return err
				}
			}
			if i+n > count {
				return fmt.Errorf("run of %d overflows tile", n)
			}
			for ; n > 0; n-- {
				copy(tile[i*bpp:(i+1)*bpp], palette[idx])
				i++
			}
		}
	default:
		return fmt.Errorf("%w %d", errZRLESubencoding, sub)
	}
	return nil
}

func (d *zrleTileDecoder) palette(n int) ([][]byte, error) {
	p := make([][]byte, n)
	for i := range p {
		p[i] = make([]byte, d.bpp)
		if err := d.cpixel(p[i]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

var _ vnc.Encoding = &ZRLEEncoding{}
