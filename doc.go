// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package einkvnc is a remote framebuffer (VNC) client for e-ink panels.
//
// The session package drives everything: it drains framebuffer updates from
// the rfb package, maps pixels through the postproc tone curve, paints them
// on an epd.Framebuffer and lets the refresh package pick the waveform of
// every refresh. Touch input is read by the touch package on its own
// goroutine and sent back to the server as pointer events.
//
// Panels are provided by the kobo (Linux framebuffer) and waveshare2in13v4
// (SPI) packages, or simulated by epd.Sim and mirrored by the preview (HTTP)
// and console (terminal) packages.
//
// The command lives in cmd/einkvnc.
package einkvnc
