// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package touch

import "image"

// Button is a pointer button mask as sent to the server.
type Button uint8

const (
	// None means no button pressed.
	None Button = 0x00
	// Primary is the left mouse button.
	Primary Button = 0x01
)

// ButtonFromCode maps a raw touch button code. Only code 1 presses Primary.
// ok is false when code is nil.
func ButtonFromCode(code *int32) (b Button, ok bool) {
	if code == nil {
		return None, false
	}
	if *code == 1 {
		return Primary, true
	}
	return None, true
}

// Event is a pointer event derived from a Sample.
type Event struct {
	Button   Button
	Position image.Point
	// RequestFull is set when the stylus back button was just pressed.
	RequestFull bool
}

// Pointer holds the button latch. Devices report a touch once and expect
// it to be held until released or hovering.
//
// The zero value is ready to use.
type Pointer struct {
	last     Button
	backDown bool
}

// Apply updates the latch with s and returns the event to send.
func (p *Pointer) Apply(s *Sample) Event {
	if b, ok := ButtonFromCode(s.Button); ok {
		p.last = b
	}
	e := Event{Button: p.last, Position: s.Position}
	if s.Distance != nil && *s.Distance > 0 {
		e.Button = None
	}
	if s.StylusBack != nil {
		down := *s.StylusBack == 1
		e.RequestFull = down && !p.backDown
		p.backDown = down
	}
	return e
}

// Last returns the latched button.
func (p *Pointer) Last() Button {
	return p.last
}
