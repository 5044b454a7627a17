// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v4

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/einkvnc/epd"
)

func newDev(t *testing.T, p spi.Port, dc gpio.PinOut) *Dev {
	opts := EPD2in13v4
	dev, err := New(p, dc, &gpiotest.Pin{}, &gpiotest.Pin{}, &gpiotest.Pin{
		EdgesChan: make(chan gpio.Level, 1),
	}, &opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return dev
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name             string
		rotation         int
		wantString       string
		wantBounds       image.Rectangle
		wantBufferBounds image.Rectangle
	}{
		{
			name:             "portrait",
			wantBounds:       image.Rect(0, 0, 122, 250),
			wantBufferBounds: image.Rect(0, 0, 128, 250),
			wantString:       "waveshare2in13v4.Dev{playback, (0), Width: 122, Height: 250}",
		},
		{
			name:             "quarter turn",
			rotation:         1,
			wantBounds:       image.Rect(0, 0, 250, 122),
			wantBufferBounds: image.Rect(0, 0, 250, 128),
			wantString:       "waveshare2in13v4.Dev{playback, (0), Width: 250, Height: 122}",
		},
		{
			name:             "half turn",
			rotation:         2,
			wantBounds:       image.Rect(0, 0, 122, 250),
			wantBufferBounds: image.Rect(0, 0, 128, 250),
			wantString:       "waveshare2in13v4.Dev{playback, (0), Width: 122, Height: 250}",
		},
		{
			name:             "three quarter turns",
			rotation:         3,
			wantBounds:       image.Rect(0, 0, 250, 122),
			wantBufferBounds: image.Rect(0, 0, 250, 128),
			wantString:       "waveshare2in13v4.Dev{playback, (0), Width: 250, Height: 122}",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev := newDev(t, &spitest.Playback{}, &gpiotest.Pin{})
			if err := dev.SetRotation(tc.rotation); err != nil {
				t.Fatal(err)
			}

			if diff := cmp.Diff(dev.String(), tc.wantString); diff != "" {
				t.Errorf("String() difference (-got +want):\n%s", diff)
			}
			if diff := cmp.Diff(dev.Bounds(), tc.wantBounds); diff != "" {
				t.Errorf("Bounds() difference (-got +want):\n%s", diff)
			}
			if diff := cmp.Diff(dev.buffer.Bounds(), tc.wantBufferBounds); diff != "" {
				t.Errorf("buffer.Bounds() difference (-got +want):\n%s", diff)
			}

			b := dev.Bounds()
			for _, pos := range []image.Point{
				image.Pt(0, 0),
				image.Pt(b.Max.X-1, 0),
				image.Pt(b.Max.X-1, b.Max.Y-1),
				image.Pt(0, b.Max.Y-1),
			} {
				if diff := cmp.Diff(dev.Pixel(pos.X, pos.Y), color.Color(color.Gray{Y: 0xFF})); diff != "" {
					t.Errorf("Pixel(%v) difference (-got +want):\n%s", pos, diff)
				}
			}
		})
	}
}

func TestSetRotationInvalid(t *testing.T) {
	dev := newDev(t, &spitest.Playback{}, &gpiotest.Pin{})
	if err := dev.SetRotation(-1); err == nil {
		t.Fatal("expected error")
	}
}

func TestPixels(t *testing.T) {
	for rotation := 0; rotation < 4; rotation++ {
		dev := newDev(t, &spitest.Playback{}, &gpiotest.Pin{})
		if err := dev.SetRotation(rotation); err != nil {
			t.Fatal(err)
		}
		b := dev.Bounds()
		dev.SetPixel(3, 4, color.Gray{Y: 0x10})
		dev.SetPixel(b.Max.X-1, b.Max.Y-1, color.Gray{})
		dev.SetPixel(b.Max.X, 0, color.Gray{})
		dev.SetPixel(-1, 0, color.Gray{})

		black, white := color.Color(color.Gray{}), color.Color(color.Gray{Y: 0xFF})
		for _, tc := range []struct {
			pos  image.Point
			want color.Color
		}{
			{image.Pt(3, 4), black},
			{image.Pt(4, 4), white},
			{image.Pt(b.Max.X-1, b.Max.Y-1), black},
			{image.Pt(0, 0), white},
		} {
			if diff := cmp.Diff(dev.Pixel(tc.pos.X, tc.pos.Y), tc.want); diff != "" {
				t.Errorf("rotation %d: Pixel(%v) difference (-got +want):\n%s", rotation, tc.pos, diff)
			}
		}
		if dev.buffer.BitAt(3+dev.offset.X, 4+dev.offset.Y) != image1bit.Off {
			t.Errorf("rotation %d: buffer bit not cleared", rotation)
		}
	}
}

func TestCommitDevice(t *testing.T) {
	for _, tc := range []struct {
		name string
		mode epd.Mode
		want []byte
	}{
		// Without fast init FastMono uses the differential waveform.
		{"fast mono fallback", epd.FastMono, []byte{borderWaveformControl}},
		{"partial", epd.Partial, []byte{borderWaveformControl}},
		{"full", epd.Full, []byte{dataEntryModeSetting}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := &spitest.Record{}
			dev := newDev(t, rec, &gpiotest.Pin{})
			if err := dev.Commit(image.Rect(0, 0, 8, 8), tc.mode); err != nil {
				t.Fatal(err)
			}
			if len(rec.Ops) == 0 {
				t.Fatal("nothing sent")
			}
			if diff := cmp.Diff(rec.Ops[0].W, tc.want); diff != "" {
				t.Errorf("first write difference (-got +want):\n%s", diff)
			}
		})
	}
}

type failingPin struct {
	gpiotest.Pin
}

var errPin = errors.New("pin failure")

func (*failingPin) Out(gpio.Level) error {
	return errPin
}

func TestCommitError(t *testing.T) {
	rec := &spitest.Record{}
	dev := newDev(t, rec, &failingPin{})
	if err := dev.Commit(dev.Bounds(), epd.Full); !errors.Is(err, errPin) {
		t.Fatalf("got %v, want %v", err, errPin)
	}
	if len(rec.Ops) != 0 {
		t.Fatalf("%d writes after the first error", len(rec.Ops))
	}
	// Outside the panel nothing is sent.
	if err := dev.Commit(image.Rect(500, 500, 600, 600), epd.Full); err != nil {
		t.Fatal(err)
	}
}
