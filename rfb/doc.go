// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rfb is a remote framebuffer (VNC) client producing a stream of
// drawing events.
//
// The handshake, authentication and message loop come from
// github.com/mitchellh/go-vnc. This package adds the CopyRect and ZRLE
// encodings, Apple Remote Desktop authentication, and turns server messages
// into Events that can be polled without blocking.
//
// Pixels are negotiated as 32 bits little-endian true color, so every pixel
// is 4 bytes in the order blue, green, red, padding.
package rfb
