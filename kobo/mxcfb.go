// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package kobo

import (
	"image"

	"github.com/GermanBionicSystems/einkvnc/epd"
)

// ioctl direction bits.
const (
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

// Framebuffer ioctls from linux/fb.h.
const (
	fbioGetVScreenInfo = 0x4600
	fbioPutVScreenInfo = 0x4601
	fbioGetFScreenInfo = 0x4602
)

// Waveform modes.
const (
	waveformInit = 0
	waveformDU   = 1
	waveformGC16 = 2
	waveformGC4  = 3
	waveformA2   = 4
	waveformAuto = 257
)

// Update modes.
const (
	updateModePartial = 0
	updateModeFull    = 1
)

const (
	flagForceMonochrome = 0x04
	tempUseAmbient      = 0x1000
)

type mxcfbRect struct {
	Top    uint32
	Left   uint32
	Width  uint32
	Height uint32
}

type mxcfbAltBufferData struct {
	PhysAddr        uint32
	Width           uint32
	Height          uint32
	AltUpdateRegion mxcfbRect
}

type mxcfbUpdateData struct {
	UpdateRegion  mxcfbRect
	WaveformMode  uint32
	UpdateMode    uint32
	UpdateMarker  uint32
	Temp          int32
	Flags         uint32
	AltBufferData mxcfbAltBufferData
}

// mxcfbSendUpdate is MXCFB_SEND_UPDATE.
var mxcfbSendUpdate = ioc(iocWrite, 'F', 0x2E, 64)

// updateData returns the update request refreshing r with mode m.
func updateData(r image.Rectangle, m epd.Mode, marker uint32) mxcfbUpdateData {
	d := mxcfbUpdateData{
		UpdateRegion: mxcfbRect{
			Top:    uint32(r.Min.Y),
			Left:   uint32(r.Min.X),
			Width:  uint32(r.Dx()),
			Height: uint32(r.Dy()),
		},
		UpdateMarker: marker,
		Temp:         tempUseAmbient,
	}
	switch m {
	case epd.Full:
		d.WaveformMode = waveformGC16
		d.UpdateMode = updateModeFull
	case epd.FastMono:
		d.WaveformMode = waveformA2
		d.UpdateMode = updateModePartial
		d.Flags = flagForceMonochrome
	default:
		d.WaveformMode = waveformAuto
		d.UpdateMode = updateModePartial
	}
	return d
}

type bitfield struct {
	Offset   uint32
	Length   uint32
	MSBRight uint32
}

// varScreenInfo is struct fb_var_screeninfo.
type varScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	Red, Green, Blue, Transp bitfield
	NonStd                   uint32
	Activate                 uint32
	Height, Width            uint32
	AccelFlags               uint32
	PixClock                 uint32
	LeftMargin, RightMargin  uint32
	UpperMargin, LowerMargin uint32
	HSyncLen, VSyncLen       uint32
	Sync                     uint32
	VMode                    uint32
	Rotate                   uint32
	Colorspace               uint32
	Reserved                 [4]uint32
}

// fixScreenInfo is struct fb_fix_screeninfo.
type fixScreenInfo struct {
	ID           [16]byte
	SMemStart    uintptr
	SMemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MMIOStart    uintptr
	MMIOLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}
