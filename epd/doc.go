// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epd defines the capability interface shared by all electronic-ink
// panel backends and a software-simulated panel.
//
// E-ink panels are bistable: writing pixels into panel memory has no visible
// effect until a region is committed with one of the refresh modes. Full
// refreshes flash the panel and clear ghosting, Partial refreshes only drive
// changed pixels, FastMono trades grey levels for speed on small regions.
//
// Backends
//
// kobo.Framebuffer drives the mxcfb controller found in Kobo readers,
// waveshare2in13v4.Dev drives an SPI e-paper HAT and Sim keeps everything in
// memory so the refresh logic can run headless.
package epd
