// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// ImageFormat selects how frames are encoded for HTTP clients.
type ImageFormat int

const (
	PNG ImageFormat = iota
	JPEG

	// DefaultFormat keeps text edges sharp.
	DefaultFormat = PNG
)

// codec describes one ImageFormat: its query names, its MIME type and its
// encoder.
type codec struct {
	name   string
	names  []string
	mime   string
	encode func(w io.Writer, img image.Image) error
}

// E-ink content is mostly flat areas and text.
var jpegOptions = jpeg.Options{Quality: 90}

var codecs = map[ImageFormat]codec{
	PNG: {
		name:   "PNG",
		names:  []string{"png"},
		mime:   "image/png",
		encode: pngEncoder.Encode,
	},
	JPEG: {
		name:  "JPEG",
		names: []string{"jpg", "jpeg"},
		mime:  "image/jpeg",
		encode: func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpegOptions)
		},
	},
}

func (f ImageFormat) String() string {
	if c, ok := codecs[f]; ok {
		return c.name
	}
	return strconv.Itoa(int(f))
}

func (f ImageFormat) mimeType() string {
	if c, ok := codecs[f]; ok {
		return c.mime
	}
	return "application/octet-stream"
}

// ImageFormatFromString parses the value of a "format" query parameter. Case
// is ignored.
func ImageFormatFromString(value string) (ImageFormat, error) {
	v := strings.ToLower(value)
	for f, c := range codecs {
		if slices.Contains(c.names, v) {
			return f, nil
		}
	}
	return DefaultFormat, fmt.Errorf("preview: unknown image format %q", value)
}

type pngEncoderBufferPool sync.Pool

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	buf, _ := (*sync.Pool)(p).Get().(*png.EncoderBuffer)
	return buf
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	(*sync.Pool)(p).Put(buf)
}

// pngEncoder shares its buffer pool between every request.
var pngEncoder = &png.Encoder{
	CompressionLevel: png.BestSpeed,
	BufferPool:       &pngEncoderBufferPool{},
}

// bufferPool stores reusable []byte instances.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return []byte(nil)
	},
}

func encode(img image.Image, format ImageFormat) ([]byte, error) {
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("preview: unhandled image format %s", format)
	}
	buf := bytes.NewBuffer(bufferPool.Get().([]byte)[:0])
	if err := c.encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
