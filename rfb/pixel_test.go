// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rfb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	vnc "github.com/mitchellh/go-vnc"
)

func TestPackColors(t *testing.T) {
	colors := []vnc.Color{{R: 0x30, G: 0x20, B: 0x10}, {R: 0xFF, G: 0, B: 0x01}}

	t.Run("negotiated", func(t *testing.T) {
		got := packColors(&PixelFormat, colors)
		want := []byte{0x10, 0x20, 0x30, 0x00, 0x01, 0x00, 0xFF, 0x00}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("packColors() difference (-got +want):\n%s", diff)
		}
	})

	t.Run("16 bits big endian", func(t *testing.T) {
		pf := vnc.PixelFormat{
			BPP: 16, Depth: 16, BigEndian: true, TrueColor: true,
			RedMax: 31, GreenMax: 63, BlueMax: 31,
			RedShift: 11, GreenShift: 5, BlueShift: 0,
		}
		got := packColors(&pf, []vnc.Color{{R: 31, G: 0, B: 1}})
		want := []byte{0xF8, 0x01}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("packColors() difference (-got +want):\n%s", diff)
		}
	})
}

func TestCPixelLayout(t *testing.T) {
	for _, tc := range []struct {
		name         string
		pf           vnc.PixelFormat
		size, offset int
	}{
		{"negotiated", PixelFormat, 3, 0},
		{"big endian low bytes", vnc.PixelFormat{BPP: 32, Depth: 24, BigEndian: true, TrueColor: true, RedMax: 255, GreenMax: 255, BlueMax: 255, RedShift: 16, GreenShift: 8}, 3, 1},
		{"little endian high bytes", vnc.PixelFormat{BPP: 32, Depth: 24, TrueColor: true, RedMax: 255, GreenMax: 255, BlueMax: 255, RedShift: 24, GreenShift: 16, BlueShift: 8}, 3, 1},
		{"depth 32", vnc.PixelFormat{BPP: 32, Depth: 32, TrueColor: true, RedMax: 255, GreenMax: 255, BlueMax: 255, RedShift: 16, GreenShift: 8}, 4, 0},
		{"16 bits", vnc.PixelFormat{BPP: 16, Depth: 16, TrueColor: true, RedMax: 31, GreenMax: 63, BlueMax: 31, RedShift: 11, GreenShift: 5}, 2, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			size, offset := cpixelLayout(&tc.pf)
			if size != tc.size || offset != tc.offset {
				t.Errorf("cpixelLayout() = %d, %d; want %d, %d", size, offset, tc.size, tc.offset)
			}
		})
	}
}
