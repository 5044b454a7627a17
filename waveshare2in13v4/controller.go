// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v4

import "github.com/GermanBionicSystems/einkvnc/epd"

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	sendByte(byte)
	readBusy()
}

func initDisplay(ctrl controller, opts *Opts) {
	ctrl.readBusy()
	ctrl.sendCommand(swReset)
	ctrl.readBusy()

	ctrl.sendCommand(driverOutputControl)
	ctrl.sendData([]byte{byte(opts.Height - 1), byte((opts.Height - 1) >> 8), 0x00})

	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendByte(0x03)

	setWindow(ctrl, 0, 0, opts.Width-1, opts.Height-1)
	setCursor(ctrl, 0, 0)

	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendByte(0x05)

	ctrl.sendCommand(displayUpdateControl1)
	ctrl.sendData([]byte{0x80, 0x80})

	// Internal temperature sensor.
	ctrl.sendCommand(tempSensorSelect)
	ctrl.sendByte(0x80)

	ctrl.readBusy()
}

// initDisplayFast loads a fixed temperature so the controller picks the fast
// waveform.
func initDisplayFast(ctrl controller, opts *Opts) {
	ctrl.sendCommand(swReset)
	ctrl.readBusy()

	ctrl.sendCommand(tempSensorSelect)
	ctrl.sendByte(0x80)

	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendByte(0x03)

	setWindow(ctrl, 0, 0, opts.Width-1, opts.Height-1)
	setCursor(ctrl, 0, 0)

	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendByte(0x81)
	ctrl.sendCommand(masterActivation)
	ctrl.readBusy()

	ctrl.sendCommand(tempSensorRegWrite)
	ctrl.sendData([]byte{0x64, 0x00})

	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendByte(0x91)
	ctrl.sendCommand(masterActivation)
	ctrl.readBusy()
}

// turnOnDisplay runs the full waveform.
func turnOnDisplay(ctrl controller) {
	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendByte(updateSequenceFull)
	ctrl.sendCommand(masterActivation)
	ctrl.readBusy()
}

// turnOnDisplayFast runs the fast waveform.
func turnOnDisplayFast(ctrl controller) {
	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendByte(updateSequenceFast)
	ctrl.sendCommand(masterActivation)
	ctrl.readBusy()
}

// turnOnDisplayPart runs the differential waveform.
func turnOnDisplayPart(ctrl controller) {
	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendByte(updateSequencePart)
	ctrl.sendCommand(masterActivation)
	ctrl.readBusy()
}

// setWindow sets the display window size.
func setWindow(ctrl controller, xStart, yStart, xEnd, yEnd int) {
	ctrl.sendCommand(setRAMXAddressStartEndPosition)
	ctrl.sendData([]byte{byte(xStart >> 3), byte(xEnd >> 3)})

	ctrl.sendCommand(setRAMYAddressStartEndPosition)
	ctrl.sendData([]byte{byte(yStart), byte(yStart >> 8), byte(yEnd), byte(yEnd >> 8)})
}

// setCursor positions the cursor. x must be a multiple of 8.
func setCursor(ctrl controller, x, y int) {
	ctrl.sendCommand(setRAMXAddressCounter)
	ctrl.sendData([]byte{byte(x)})

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData([]byte{byte(y), byte(y >> 8)})
}

// clear fills both RAM banks with color and runs the full waveform.
func clear(ctrl controller, color byte, opts *Opts) {
	buff := make([]byte, (opts.Width+7)/8*opts.Height)
	for i := range buff {
		buff[i] = color
	}
	setWindow(ctrl, 0, 0, opts.Width-1, opts.Height-1)
	setCursor(ctrl, 0, 0)

	ctrl.sendCommand(writeRAMBW)
	ctrl.sendData(buff)
	ctrl.sendCommand(writeRAMRed)
	ctrl.sendData(buff)

	turnOnDisplay(ctrl)
}

// commit uploads the buffer region described by o and refreshes it.
func commit(ctrl controller, o *drawOpts, m epd.Mode) {
	s := o.spec()
	if s.memRect.Empty() {
		return
	}
	switch m {
	case epd.Full:
		// The red bank is the reference of the next differential update.
		o.sendImage(ctrl, writeRAMBW, &s)
		o.sendImage(ctrl, writeRAMRed, &s)
		turnOnDisplay(ctrl)
	case epd.FastMono:
		o.sendImage(ctrl, writeRAMBW, &s)
		turnOnDisplayFast(ctrl)
	default:
		ctrl.sendCommand(borderWaveformControl)
		ctrl.sendByte(0x80)
		o.sendImage(ctrl, writeRAMBW, &s)
		turnOnDisplayPart(ctrl)
	}
}
