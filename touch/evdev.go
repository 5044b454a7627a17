// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package touch

import (
	"fmt"
	"image"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// DefaultDevice is the Kobo touchscreen.
const DefaultDevice = "/dev/input/event1"

// eventSource is the part of an evdev.InputDevice used by Device.
type eventSource interface {
	ReadOne() (*evdev.InputEvent, error)
}

// Device is a Reader backed by a Linux input event device.
type Device struct {
	src    eventSource
	closer func() error
	name   string

	// Last known values, kept across reports since a report only carries
	// what changed.
	pos      image.Point
	havePos  bool
	pressure int32
}

// Open opens the input event device at path.
func Open(path string) (*Device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("touch: open %s: %w", path, err)
	}
	name, err := dev.Name()
	if err != nil {
		name = path
	}
	return &Device{src: dev, closer: dev.Close, name: name}, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("touch.Device{%s}", d.name)
}

// Close releases the device.
func (d *Device) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

// ReadSample implements Reader.
//
// Absolute axes, touch and stylus buttons are accumulated until SYN_REPORT.
// A report seen before any position is known yields no Sample.
func (d *Device) ReadSample() (*Sample, error) {
	var s Sample
	var tiltX, tiltY *int32
	for {
		ev, err := d.src.ReadOne()
		if err != nil {
			return nil, fmt.Errorf("touch: read %s: %w", d.name, err)
		}
		v := ev.Value
		switch ev.Type {
		case evdev.EV_ABS:
			switch ev.Code {
			case evdev.ABS_X, evdev.ABS_MT_POSITION_X:
				d.pos.X = int(v)
				d.havePos = true
			case evdev.ABS_Y, evdev.ABS_MT_POSITION_Y:
				d.pos.Y = int(v)
				d.havePos = true
			case evdev.ABS_PRESSURE, evdev.ABS_MT_PRESSURE:
				d.pressure = v
			case evdev.ABS_MT_DISTANCE:
				s.Distance = &v
			case evdev.ABS_TILT_X:
				tiltX = &v
			case evdev.ABS_TILT_Y:
				tiltY = &v
			}
		case evdev.EV_KEY:
			switch ev.Code {
			case evdev.BTN_TOUCH:
				s.Button = &v
			case evdev.BTN_STYLUS:
				s.StylusBack = &v
			case evdev.BTN_STYLUS2:
				s.StylusSide = &v
			}
		case evdev.EV_SYN:
			if ev.Code != evdev.SYN_REPORT {
				continue
			}
			if !d.havePos {
				return nil, nil
			}
			s.Position = d.pos
			s.Pressure = d.pressure
			if tiltX != nil && tiltY != nil {
				s.Tilt = &image.Point{X: int(*tiltX), Y: int(*tiltY)}
			}
			s.Time = time.Unix(ev.Time.Unix())
			return &s, nil
		}
	}
}

var _ Reader = &Device{}
