// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package kobo drives the e-ink panel of Kobo e-readers through the Linux
// framebuffer device and the i.MX EPDC (mxcfb) update ioctl.
//
// Pixels are written straight into the memory mapped framebuffer. Nothing
// reaches the panel until Commit sends an update for a region.
//
// Datasheet
//
// The mxcfb ioctl interface is documented in the i.MX Linux kernel header
// include/uapi/linux/mxcfb.h.
package kobo
