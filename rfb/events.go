// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rfb

import (
	"fmt"
	"image"
)

// Event is produced by Conn.Poll.
type Event interface {
	isEvent()
}

// Disconnected is the last event of a connection. Reason is nil on an
// orderly close.
type Disconnected struct {
	Reason error
}

// PutPixels carries new contents for Rect.
type PutPixels struct {
	Rect image.Rectangle
	// Samples holds Rect.Dx()*Rect.Dy() pixels, row major, Stride bytes
	// each.
	Samples []byte
	Stride  int
}

// CopyPixels moves the contents of Src, already on screen, to Dst. Both
// have the same size.
type CopyPixels struct {
	Src, Dst image.Rectangle
}

// EndOfFrame follows the last rectangle of a framebuffer update.
type EndOfFrame struct{}

func (Disconnected) isEvent() {}
func (PutPixels) isEvent()    {}
func (CopyPixels) isEvent()   {}
func (EndOfFrame) isEvent()   {}

func (d Disconnected) String() string {
	if d.Reason == nil {
		return "Disconnected"
	}
	return fmt.Sprintf("Disconnected(%v)", d.Reason)
}

func (p PutPixels) String() string {
	return fmt.Sprintf("PutPixels(%v, %d bytes)", p.Rect, len(p.Samples))
}

func (c CopyPixels) String() string {
	return fmt.Sprintf("CopyPixels(%v -> %v)", c.Src, c.Dst)
}

func (EndOfFrame) String() string {
	return "EndOfFrame"
}
