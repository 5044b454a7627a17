// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package touch

import (
	"fmt"
	"image"
	"time"
)

// Sample is the state of the digitizer at one report boundary.
//
// Optional fields are nil when the report did not carry them.
type Sample struct {
	Position image.Point
	Pressure int32
	// Distance is the hover distance of a stylus. Positive means not
	// touching.
	Distance *int32
	// Button is the raw touch button code.
	Button *int32
	// StylusSide is the lower side button of a stylus.
	StylusSide *int32
	// StylusBack is the eraser end or upper button of a stylus.
	StylusBack *int32
	Tilt       *image.Point
	Time       time.Time
}

func (s *Sample) String() string {
	out := fmt.Sprintf("touch.Sample{%v, pressure: %d", s.Position, s.Pressure)
	for _, f := range []struct {
		name string
		v    *int32
	}{
		{"distance", s.Distance},
		{"button", s.Button},
		{"side", s.StylusSide},
		{"back", s.StylusBack},
	} {
		if f.v != nil {
			out += fmt.Sprintf(", %s: %d", f.name, *f.v)
		}
	}
	if s.Tilt != nil {
		out += fmt.Sprintf(", tilt: %v", *s.Tilt)
	}
	return out + "}"
}

// Reader produces Samples.
type Reader interface {
	// ReadSample blocks until the next report boundary. It returns a nil
	// Sample and a nil error when the report was unusable.
	ReadSample() (*Sample, error)
}

// Int32 returns a pointer to v. It is a helper to build Samples.
func Int32(v int32) *int32 {
	return &v
}
