// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v4

import (
	"encoding/binary"
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// setMemoryArea configures the target drawing area (horizontal is in bytes,
// vertical in pixels).
func setMemoryArea(ctrl controller, area image.Rectangle) {
	startX, endX := uint8(area.Min.X), uint8(area.Max.X-1)
	startY, endY := uint16(area.Min.Y), uint16(area.Max.Y-1)

	startEndY := [4]byte{}
	binary.LittleEndian.PutUint16(startEndY[0:], startY)
	binary.LittleEndian.PutUint16(startEndY[2:], endY)

	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendData([]byte{
		// Y increment, X increment; update address counter in X direction
		0b011,
	})

	ctrl.sendCommand(setRAMXAddressStartEndPosition)
	ctrl.sendData([]byte{startX, endX})

	ctrl.sendCommand(setRAMYAddressStartEndPosition)
	ctrl.sendData(startEndY[:4])

	ctrl.sendCommand(setRAMXAddressCounter)
	ctrl.sendData([]byte{startX})

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData(startEndY[:2])
}

type drawOpts struct {
	devSize image.Point
	origin  corner
	buffer  *image1bit.VerticalLSB
	dstRect image.Rectangle
}

type drawSpec struct {
	// Amount by which buffer contents are moved to align with the physical
	// top-left corner of the display.
	bufferDstOffset image.Point

	// Destination in buffer in pixels.
	bufferDstRect image.Rectangle

	// Destination in device RAM, rotated and shifted to match the origin.
	memDstRect image.Rectangle

	// Area to send to device; horizontally in bytes (thus aligned to
	// 8 pixels), vertically in pixels. Computed from memDstRect.
	memRect image.Rectangle
}

// spec pre-computes the various offsets required for sending a region of the
// buffer to the device.
func (o *drawOpts) spec() drawSpec {
	s := drawSpec{
		bufferDstRect: image.Rectangle{Max: o.devSize}.Intersect(o.dstRect),
	}

	switch o.origin {
	case topRight:
		s.bufferDstOffset.Y = o.buffer.Bounds().Dy() - o.devSize.Y
	case bottomRight, bottomLeft:
		s.bufferDstOffset.Y = o.buffer.Bounds().Dy() - o.devSize.Y
		s.bufferDstOffset.X = o.buffer.Bounds().Dx() - o.devSize.X
	}

	if s.bufferDstRect.Empty() {
		return s
	}

	switch o.origin {
	case topLeft:
		s.memDstRect = s.bufferDstRect

	case topRight:
		s.memDstRect.Min.X = o.devSize.Y - s.bufferDstRect.Max.Y
		s.memDstRect.Max.X = o.devSize.Y - s.bufferDstRect.Min.Y

		s.memDstRect.Min.Y = s.bufferDstRect.Min.X
		s.memDstRect.Max.Y = s.bufferDstRect.Max.X

	case bottomRight:
		s.memDstRect.Min.X = o.devSize.X - s.bufferDstRect.Max.X
		s.memDstRect.Max.X = o.devSize.X - s.bufferDstRect.Min.X

		s.memDstRect.Min.Y = o.devSize.Y - s.bufferDstRect.Max.Y
		s.memDstRect.Max.Y = o.devSize.Y - s.bufferDstRect.Min.Y

	case bottomLeft:
		s.memDstRect.Min.X = s.bufferDstRect.Min.Y
		s.memDstRect.Max.X = s.bufferDstRect.Max.Y

		s.memDstRect.Min.Y = o.devSize.X - s.bufferDstRect.Max.X
		s.memDstRect.Max.Y = o.devSize.X - s.bufferDstRect.Min.X
	}

	s.bufferDstRect = s.bufferDstRect.Add(s.bufferDstOffset)

	s.memRect.Min.X = s.memDstRect.Min.X / 8
	s.memRect.Max.X = (s.memDstRect.Max.X + 7) / 8
	s.memRect.Min.Y = s.memDstRect.Min.Y
	s.memRect.Max.Y = s.memDstRect.Max.Y

	return s
}

// sendImage sends the buffer area described by spec to the given controller
// RAM bank.
func (o *drawOpts) sendImage(ctrl controller, cmd byte, spec *drawSpec) {
	if spec.memRect.Empty() {
		return
	}

	setMemoryArea(ctrl, spec.memRect)

	ctrl.sendCommand(cmd)

	var posFor func(destY, destX, bit int) image.Point

	switch o.origin {
	case topLeft:
		posFor = func(destY, destX, bit int) image.Point {
			return image.Point{X: destX + bit, Y: destY}
		}
	case topRight:
		posFor = func(destY, destX, bit int) image.Point {
			return image.Point{X: destY, Y: o.devSize.Y - destX - bit - 1}
		}
	case bottomRight:
		posFor = func(destY, destX, bit int) image.Point {
			return image.Point{X: o.devSize.X - destX - bit - 1, Y: o.devSize.Y - destY - 1}
		}
	case bottomLeft:
		posFor = func(destY, destX, bit int) image.Point {
			return image.Point{X: o.devSize.X - destY - 1, Y: destX + bit}
		}
	}

	rowData := make([]byte, spec.memRect.Dx())

	for destY := spec.memRect.Min.Y; destY < spec.memRect.Max.Y; destY++ {
		for destX := 0; destX < len(rowData); destX++ {
			rowData[destX] = 0

			for bit := 0; bit < 8; bit++ {
				bufPos := posFor(destY, (spec.memRect.Min.X+destX)*8, bit)
				bufPos = bufPos.Add(spec.bufferDstOffset)

				if o.buffer.BitAt(bufPos.X, bufPos.Y) {
					rowData[destX] |= 0x80 >> bit
				}
			}
		}

		ctrl.sendData(rowData)
	}
}
