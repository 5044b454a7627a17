// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package touch turns a touchscreen or stylus digitizer into pointer events.
//
// A Reader produces one Sample per input report. Start runs a Reader on its
// own goroutine and buffers every Sample in an unbounded mailbox, so a slow
// consumer never stalls the device. Pointer translates Samples into the
// button state expected by a remote framebuffer server.
//
// The reader goroutine cannot be interrupted while it is blocked in a device
// read. It ends when the Reader returns an error, typically on process exit.
package touch
