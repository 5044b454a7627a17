// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rfb

import (
	"encoding/binary"
	"io"

	vnc "github.com/mitchellh/go-vnc"
)

// CopyRectEncoding is the CopyRect encoding. The rectangle is a copy of
// another one already on screen.
type CopyRectEncoding struct {
	SrcX, SrcY uint16
}

// Type implements vnc.Encoding.
func (*CopyRectEncoding) Type() int32 {
	return 1
}

// Read implements vnc.Encoding.
func (*CopyRectEncoding) Read(c *vnc.ClientConn, rect *vnc.Rectangle, r io.Reader) (vnc.Encoding, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	return &CopyRectEncoding{
		SrcX: binary.BigEndian.Uint16(b[0:]),
		SrcY: binary.BigEndian.Uint16(b[2:]),
	}, nil
}

var _ vnc.Encoding = &CopyRectEncoding{}
