// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v4

import (
	"bytes"
	"image"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestDrawSpec(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts drawOpts
		want drawSpec
	}{
		{
			name: "empty",
			opts: drawOpts{
				buffer: image1bit.NewVerticalLSB(image.Rectangle{}),
			},
		},
		{
			name: "smaller than display",
			opts: drawOpts{
				devSize: image.Pt(100, 200),
				buffer:  image1bit.NewVerticalLSB(image.Rect(0, 0, 120, 210)),
				dstRect: image.Rect(17, 4, 25, 8),
			},
			want: drawSpec{
				bufferDstRect: image.Rect(17, 4, 25, 8),
				memDstRect:    image.Rect(17, 4, 25, 8),
				memRect:       image.Rect(2, 4, 4, 8),
			},
		},
		{
			name: "larger than display",
			opts: drawOpts{
				devSize: image.Pt(100, 200),
				buffer:  image1bit.NewVerticalLSB(image.Rect(0, 0, 100, 200)),
				dstRect: image.Rect(-20, 50, 125, 300),
			},
			want: drawSpec{
				bufferDstRect: image.Rect(0, 50, 100, 200),
				memDstRect:    image.Rect(0, 50, 100, 200),
				memRect:       image.Rect(0, 50, 13, 200),
			},
		},
		{
			name: "top right",
			opts: drawOpts{
				devSize: image.Pt(250, 122),
				origin:  topRight,
				buffer:  image1bit.NewVerticalLSB(image.Rect(0, 0, 250, 128)),
				dstRect: image.Rect(0, 0, 8, 10),
			},
			want: drawSpec{
				bufferDstOffset: image.Pt(0, 6),
				bufferDstRect:   image.Rect(0, 6, 8, 16),
				memDstRect:      image.Rect(112, 0, 122, 8),
				memRect:         image.Rect(14, 0, 16, 8),
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.opts.spec()

			if diff := cmp.Diff(got, tc.want, cmpopts.EquateEmpty(), cmp.AllowUnexported(drawSpec{})); diff != "" {
				t.Errorf("spec() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestSendImage(t *testing.T) {
	for _, tc := range []struct {
		name string
		cmd  byte
		opts drawOpts
		want []record
	}{
		{
			name: "empty",
			opts: drawOpts{
				buffer: image1bit.NewVerticalLSB(image.Rectangle{}),
			},
		},
		{
			name: "partial",
			cmd:  writeRAMBW,
			opts: drawOpts{
				devSize: image.Pt(64, 64),
				dstRect: image.Rect(16, 20, 32, 40),
				buffer:  image1bit.NewVerticalLSB(image.Rect(0, 0, 64, 64)),
			},
			want: []record{
				{cmd: dataEntryModeSetting, data: []byte{0x3}},
				{cmd: setRAMXAddressStartEndPosition, data: []byte{2, 4 - 1}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{20, 0, 40 - 1, 0}},
				{cmd: setRAMXAddressCounter, data: []byte{2}},
				{cmd: setRAMYAddressCounter, data: []byte{20, 0}},
				{
					cmd:  writeRAMBW,
					data: bytes.Repeat([]byte{0}, 2*(40-20)),
				},
			},
		},
		{
			name: "partial non-aligned",
			cmd:  writeRAMRed,
			opts: drawOpts{
				devSize: image.Pt(100, 64),
				dstRect: image.Rect(17, 4, 41, 8),
				buffer: func() *image1bit.VerticalLSB {
					img := image1bit.NewVerticalLSB(image.Rect(0, 0, 64, 64))
					draw.Src.Draw(img, image.Rect(17, 4, 41, 8), &image.Uniform{image1bit.On}, image.Point{})
					return img
				}(),
			},
			want: []record{
				{cmd: dataEntryModeSetting, data: []byte{0x3}},
				{cmd: setRAMXAddressStartEndPosition, data: []byte{2, 6 - 1}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{4, 0, 8 - 1, 0}},
				{cmd: setRAMXAddressCounter, data: []byte{2}},
				{cmd: setRAMYAddressCounter, data: []byte{4, 0}},
				{
					cmd:  writeRAMRed,
					data: bytes.Repeat([]byte{0x7f, 0xff, 0xff, 0x80}, 4),
				},
			},
		},
		{
			name: "bottom right",
			cmd:  writeRAMBW,
			opts: drawOpts{
				devSize: image.Pt(16, 2),
				origin:  bottomRight,
				dstRect: image.Rect(0, 0, 1, 1),
				buffer: func() *image1bit.VerticalLSB {
					img := image1bit.NewVerticalLSB(image.Rect(0, 0, 16, 2))
					img.SetBit(0, 0, image1bit.On)
					return img
				}(),
			},
			// Logical (0, 0) is the last pixel of the last physical row.
			want: []record{
				{cmd: dataEntryModeSetting, data: []byte{0x3}},
				{cmd: setRAMXAddressStartEndPosition, data: []byte{1, 1}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{1, 0, 1, 0}},
				{cmd: setRAMXAddressCounter, data: []byte{1}},
				{cmd: setRAMYAddressCounter, data: []byte{1, 0}},
				{cmd: writeRAMBW, data: []byte{0x01}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			spec := tc.opts.spec()

			tc.opts.sendImage(&got, tc.cmd, &spec)

			if diff := cmp.Diff([]record(got), tc.want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
				t.Errorf("sendImage() difference (-got +want):\n%s", diff)
			}
		})
	}
}
