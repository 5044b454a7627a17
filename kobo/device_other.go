// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package kobo

import "errors"

// DefaultDevice is the framebuffer device of Kobo e-readers.
const DefaultDevice = "/dev/fb0"

// Open is only supported on Linux.
func Open(path string) (*Framebuffer, error) {
	return nil, errors.New("kobo: framebuffer devices are only supported on linux")
}
