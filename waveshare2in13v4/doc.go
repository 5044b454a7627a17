// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare2in13v4 controls Waveshare 2.13 v4 e-paper displays as an
// einkvnc panel.
//
// Datasheet:
// https://files.waveshare.com/upload/5/59/2.13inch_e-Paper_V3_Specificition.pdf
//
// Product page:
// https://www.waveshare.com/wiki/2.13inch_e-Paper_HAT_Manual#Resources
//
// The 2.13inch active area contains 250×122 black and white pixels. Pixels
// are thresholded when written. Full commits use the complete waveform and
// rewrite both controller RAM banks, Partial commits use the differential
// waveform and FastMono commits use the fast waveform, which needs the
// display to be initialized with Init(true).
package waveshare2in13v4
