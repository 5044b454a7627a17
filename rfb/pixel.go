// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rfb

import (
	"encoding/binary"

	vnc "github.com/mitchellh/go-vnc"
)

// PixelFormat is requested from every server.
var PixelFormat = vnc.PixelFormat{
	BPP:        32,
	Depth:      24,
	BigEndian:  false,
	TrueColor:  true,
	RedMax:     255,
	GreenMax:   255,
	BlueMax:    255,
	RedShift:   16,
	GreenShift: 8,
	BlueShift:  0,
}

func byteOrder(pf *vnc.PixelFormat) binary.ByteOrder {
	if pf.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// packColors serializes decoded colors back to the wire layout of pf.
//
// go-vnc always decodes raw rectangles into per-channel values.
func packColors(pf *vnc.PixelFormat, colors []vnc.Color) []byte {
	bpp := int(pf.BPP) / 8
	order := byteOrder(pf)
	out := make([]byte, len(colors)*bpp)
	for i, c := range colors {
		v := uint32(c.R&pf.RedMax)<<pf.RedShift |
			uint32(c.G&pf.GreenMax)<<pf.GreenShift |
			uint32(c.B&pf.BlueMax)<<pf.BlueShift
		b := out[i*bpp : (i+1)*bpp]
		switch bpp {
		case 1:
			b[0] = uint8(v)
		case 2:
			order.PutUint16(b, uint16(v))
		case 4:
			order.PutUint32(b, v)
		}
	}
	return out
}

// cpixelLayout returns the size of a compressed pixel, and the offset of its
// bytes within a full pixel.
//
// A 32 bits true color pixel whose channels all fit in the three least or
// most significant bytes is sent as three bytes.
func cpixelLayout(pf *vnc.PixelFormat) (size, offset int) {
	bpp := int(pf.BPP) / 8
	if bpp != 4 || !pf.TrueColor || pf.Depth > 24 {
		return bpp, 0
	}
	mask := uint32(pf.RedMax)<<pf.RedShift |
		uint32(pf.GreenMax)<<pf.GreenShift |
		uint32(pf.BlueMax)<<pf.BlueShift
	switch {
	case mask&0xFF000000 == 0:
		// Least significant bytes.
		if pf.BigEndian {
			return 3, 1
		}
		return 3, 0
	case mask&0x000000FF == 0:
		if pf.BigEndian {
			return 3, 0
		}
		return 3, 1
	}
	return bpp, 0
}
