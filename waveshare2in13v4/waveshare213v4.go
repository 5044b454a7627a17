// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13v4

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3/rpi"

	"github.com/GermanBionicSystems/einkvnc/epd"
)

// Commands
const (
	driverOutputControl                byte = 0x01
	gateDrivingVoltageControl          byte = 0x03
	sourceDrivingVoltageControl        byte = 0x04
	initialCodeSettingOTPProgram       byte = 0x08
	writeRegisterForInitialCodeSetting byte = 0x09
	readRegisterForInitialCodeSetting  byte = 0x0A
	boosterSoftStartControl            byte = 0x0C
	deepSleepMode                      byte = 0x10
	dataEntryModeSetting               byte = 0x11
	swReset                            byte = 0x12
	hvReadyDetection                   byte = 0x14
	vciDetection                       byte = 0x15
	tempSensorSelect                   byte = 0x18
	tempSensorRegWrite                 byte = 0x1A
	tempSensorRegRead                  byte = 0x1B
	tempSensorExtWrite                 byte = 0x1C
	masterActivation                   byte = 0x20
	displayUpdateControl1              byte = 0x21
	displayUpdateControl2              byte = 0x22
	writeRAMBW                         byte = 0x24
	writeRAMRed                        byte = 0x26
	readRAM                            byte = 0x27
	vcomSense                          byte = 0x28
	vcomDuration                       byte = 0x29
	vcomProgramOTP                     byte = 0x2A
	vcomWriteRegisterControl           byte = 0x2B
	vcomRegisterWrite                  byte = 0x2C
	otpReadRegisterDisplayOpt          byte = 0x2D
	userIDRead                         byte = 0x2E
	statusBitRead                      byte = 0x2F
	otpProgramWaveformSetting          byte = 0x30
	otpLoadWaveformSetting             byte = 0x31
	writeLutRegister                   byte = 0x32
	crcCalculation                     byte = 0x34
	crcStatusRead                      byte = 0x35
	otpProgramSelect                   byte = 0x36
	writeRegisterForDisplayOption      byte = 0x37
	writeRegisterForUserID             byte = 0x38
	otpProgramMode                     byte = 0x39
	borderWaveformControl              byte = 0x3C
	endOptionEOPT                      byte = 0x3F
	readRAMOpt                         byte = 0x41
	setRAMXAddressStartEndPosition     byte = 0x44
	setRAMYAddressStartEndPosition     byte = 0x45
	autoWriteRedRAMRegpattern          byte = 0x46
	autoWriteBWRamRegPattern           byte = 0x47
	setRAMXAddressCounter              byte = 0x4E
	setRAMYAddressCounter              byte = 0x4F
	nop                                byte = 0x7F
)

// Flags for the displayUpdateControl2 command
const (
	displayUpdateDisableClock byte = 1 << iota
	displayUpdateDisableAnalog
	displayUpdateDisplay
	displayUpdateMode2
	displayUpdateLoadLUTFromOTP
	displayUpdateLoadTemperature
	displayUpdateEnableClock
	displayUpdateEnableAnalog
)

// displayUpdateControl2 sequences.
const (
	updateSequenceFast = displayUpdateEnableClock | displayUpdateEnableAnalog |
		displayUpdateDisplay | displayUpdateDisableAnalog | displayUpdateDisableClock
	updateSequenceFull = updateSequenceFast | displayUpdateLoadTemperature | displayUpdateLoadLUTFromOTP
	updateSequencePart = updateSequenceFull | displayUpdateMode2
)

// corner is the physical corner used as drawing origin.
type corner uint8

const (
	topLeft corner = iota
	topRight
	bottomRight
	bottomLeft
)

// Opts defines the structure of the display configuration.
type Opts struct {
	// Width and Height of the panel in its native portrait orientation.
	Width  int
	Height int
}

// EPD2in13v4 contains display configuration for the Waveshare 2in13v4.
var EPD2in13v4 = Opts{
	Width:  122,
	Height: 250,
}

// Dev is a Waveshare 2.13 v4 panel.
//
// It implements epd.Framebuffer and display.Drawer.
type Dev struct {
	c conn.Conn

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	opts     *Opts
	origin   corner
	bounds   image.Rectangle
	buffer   *image1bit.VerticalLSB
	offset   image.Point
	fastMode bool
}

// flipPt returns a new image.Point with the X and Y coordinates exchanged.
func flipPt(pt image.Point) image.Point {
	return image.Point{X: pt.Y, Y: pt.X}
}

// New creates new handler which is used to access the display.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	if err := busy.In(gpio.Float, gpio.FallingEdge); err != nil {
		return nil, err
	}

	d := &Dev{
		c:    c,
		dc:   dc,
		cs:   cs,
		rst:  rst,
		busy: busy,
		opts: opts,
	}
	d.setOrigin(topLeft)
	return d, nil
}

// NewHat creates new handler which is used to access the display. Default
// Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	return New(p, rpi.P1_22, rpi.P1_24, rpi.P1_11, rpi.P1_18, opts)
}

// setOrigin reallocates a blank (white) buffer for the given origin.
func (d *Dev) setOrigin(o corner) {
	displaySize := image.Pt(d.opts.Width, d.opts.Height)

	// The physical X axis is sized to have one-byte alignment on the (0,0)
	// on-display position after rotation.
	bufferSize := image.Pt((d.opts.Width+7)/8*8, d.opts.Height)

	if o == topRight || o == bottomLeft {
		displaySize = flipPt(displaySize)
		bufferSize = flipPt(bufferSize)
	}

	d.origin = o
	d.bounds = image.Rectangle{Max: displaySize}
	d.buffer = image1bit.NewVerticalLSB(image.Rectangle{Max: bufferSize})
	draw.Src.Draw(d.buffer, d.buffer.Bounds(), &image.Uniform{image1bit.On}, image.Point{})
	d.offset = d.drawOpts(image.Rectangle{}).spec().bufferDstOffset
}

func (d *Dev) drawOpts(r image.Rectangle) *drawOpts {
	return &drawOpts{
		devSize: d.bounds.Max,
		origin:  d.origin,
		buffer:  d.buffer,
		dstRect: r,
	}
}

// Init configures the display for usage through the other functions. In fast
// mode FastMono commits use the fast waveform.
func (d *Dev) Init(fast bool) error {
	if err := d.Reset(); err != nil {
		return err
	}

	eh := errorHandler{d: *d}
	if fast {
		initDisplayFast(&eh, d.opts)
	} else {
		initDisplay(&eh, d.opts)
	}
	if eh.err == nil {
		d.fastMode = fast
	}
	return eh.err
}

// Reset the hardware.
func (d *Dev) Reset() error {
	eh := errorHandler{d: *d}

	eh.rstOut(gpio.High)
	time.Sleep(20 * time.Millisecond)
	eh.rstOut(gpio.Low)
	time.Sleep(2 * time.Millisecond)
	eh.rstOut(gpio.High)
	time.Sleep(20 * time.Millisecond)

	return eh.err
}

// Bounds implements epd.Framebuffer.
func (d *Dev) Bounds() image.Rectangle {
	return d.bounds
}

// Channels implements epd.Framebuffer.
func (d *Dev) Channels() int {
	return 1
}

// SetPixel implements epd.Framebuffer. The color is thresholded to black or
// white.
func (d *Dev) SetPixel(x, y int, c color.Color) {
	if !image.Pt(x, y).In(d.bounds) {
		return
	}
	p := image.Pt(x, y).Add(d.offset)
	d.buffer.SetBit(p.X, p.Y, image1bit.BitModel.Convert(c).(image1bit.Bit))
}

// Pixel implements epd.Framebuffer.
func (d *Dev) Pixel(x, y int) color.Color {
	if !image.Pt(x, y).In(d.bounds) {
		return color.Gray{}
	}
	p := image.Pt(x, y).Add(d.offset)
	if d.buffer.BitAt(p.X, p.Y) {
		return color.Gray{Y: 0xFF}
	}
	return color.Gray{}
}

// Commit implements epd.Framebuffer.
//
// FastMono falls back to Partial unless the display was initialized in fast
// mode.
func (d *Dev) Commit(r image.Rectangle, m epd.Mode) error {
	if m == epd.FastMono && !d.fastMode {
		m = epd.Partial
	}
	eh := errorHandler{d: *d}
	commit(&eh, d.drawOpts(r), m)
	return eh.err
}

// SetRotation implements epd.Framebuffer. The buffer is cleared.
func (d *Dev) SetRotation(quarterTurns int) error {
	if err := epd.ValidRotation(quarterTurns); err != nil {
		return err
	}
	d.setOrigin(corner(quarterTurns))
	return nil
}

// Clear fills the display with color using the full waveform.
func (d *Dev) Clear(c color.Color) error {
	bit := image1bit.BitModel.Convert(c).(image1bit.Bit)
	draw.Src.Draw(d.buffer, d.buffer.Bounds(), &image.Uniform{bit}, image.Point{})
	var fill byte
	if bit {
		fill = 0xFF
	}
	eh := errorHandler{d: *d}
	clear(&eh, fill, d.opts)
	return eh.err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Draw implements display.Drawer. The destination area is refreshed with the
// full waveform.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	r := dstRect.Intersect(d.bounds)
	draw.Src.Draw(d.buffer, r.Add(d.offset), src, srcPts.Add(r.Min.Sub(dstRect.Min)))
	return d.Commit(r, epd.Full)
}

// Halt implements display.Drawer. It clears the display.
func (d *Dev) Halt() error {
	return d.Clear(image1bit.On)
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("waveshare2in13v4.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, d.bounds.Dx(), d.bounds.Dy())
}

// Sleep makes the controller enter deep sleep mode. It can be woken up by
// calling Init again.
func (d *Dev) Sleep() error {
	eh := errorHandler{d: *d}

	// Turn off DC/DC converter, clock, output load and MCU. RAM content is
	// retained.
	eh.sendCommand(deepSleepMode)
	eh.sendData([]byte{0x01})

	return eh.err
}

var _ epd.Framebuffer = &Dev{}
var _ display.Drawer = &Dev{}
