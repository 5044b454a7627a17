// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"net/textproto"
	"sort"
	"strconv"
)

// randomBoundary generates a MIME multipart boundary compatible with RFC 2046
// (section 5.1.1).
func randomBoundary() string {
	var buf [34]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", buf[:])
}

type partWriter struct {
	u        *bufio.Writer
	boundary string
	started  bool
}

func makePartWriter(u *bufio.Writer) partWriter {
	return partWriter{
		u:        u,
		boundary: randomBoundary(),
	}
}

// writeFrame sends a single part of a MIME multipart entity and flushes it
// with the part-ending boundary line, so the client renders it right away.
//
// The caller-owned headers are modified to set a Content-Length header.
func (w *partWriter) writeFrame(header textproto.MIMEHeader, body []byte) error {
	header.Set("Content-Length", strconv.Itoa(len(body)))

	if !w.started {
		fmt.Fprintf(w.u, "--%s\r\n", w.boundary)
		w.started = true
	}

	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range header[name] {
			fmt.Fprintf(w.u, "%s: %s\r\n", name, value)
		}
	}
	w.u.WriteString("\r\n")
	w.u.Write(body)
	fmt.Fprintf(w.u, "\r\n--%s\r\n", w.boundary)

	return w.u.Flush()
}
