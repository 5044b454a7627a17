// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package preview

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"mime"
	"net/textproto"
	"strconv"

	"github.com/GermanBionicSystems/einkvnc/refresh"
	"github.com/gofiber/fiber/v2"
)

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

func (d *Display) bufferChangedLocked() {
	for format, buffer := range d.snapshot {
		if buffer != nil {
			//lint:ignore SA6002 buffer is []byte and thus pointer-like
			bufferPool.Put(buffer)
		}

		delete(d.snapshot, format)
	}

	for c := range d.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

func (d *Display) terminateClientsLocked() {
	for c := range d.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
}

// grabSnapshot returns a copy of the current frame encoded in format. The
// encoding is cached until the next Draw.
func (d *Display) grabSnapshot(format ImageFormat) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoded, ok := d.snapshot[format]
	if !ok {
		var err error
		if encoded, err = encode(d.buffer, format); err != nil {
			return nil, err
		}
		d.snapshot[format] = encoded
	}

	return append(bufferPool.Get().([]byte)[:0], encoded...), nil
}

func (d *Display) formatFromQuery(c *fiber.Ctx) (ImageFormat, error) {
	if value := c.Query("format"); value != "" {
		return ImageFormatFromString(value)
	}
	return d.defaultFormat, nil
}

const indexHTML = `<!DOCTYPE html>
<html><head><title>einkvnc</title></head>
<body style="margin:0;background:#888"><img src="/stream" alt="panel"></body>
</html>
`

// NewApp returns the HTTP server of the display.
//
//	GET /         page showing the stream
//	GET /frame    current frame
//	GET /stream   multipart stream of frames; "frames=N" ends it after N
//	GET /stats    refresh counters
func NewApp(d *Display) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(indexHTML)
	})
	app.Get("/frame", d.serveFrame)
	app.Get("/stream", d.serveStream)
	app.Get("/stats", d.serveStats)
	return app
}

// Serve runs the HTTP server on addr until ctx is canceled.
func Serve(ctx context.Context, d *Display, addr string) error {
	app := NewApp(d)
	go func() {
		<-ctx.Done()
		d.Halt()
		if err := app.Shutdown(); err != nil {
			log.Printf("preview: shutdown: %v", err)
		}
	}()
	log.Printf("preview: serving on http://%s/", addr)
	return app.Listen(addr)
}

func (d *Display) serveFrame(c *fiber.Ctx) error {
	format, err := d.formatFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	payload, err := d.grabSnapshot(format)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to encode image")
	}
	c.Set(fiber.HeaderContentType, format.mimeType())
	c.Set(fiber.HeaderContentLength, strconv.Itoa(len(payload)))
	return c.Send(payload)
}

func (d *Display) serveStats(c *fiber.Ctx) error {
	if d.stats == nil {
		return c.Status(fiber.StatusNotFound).SendString("No statistics available")
	}
	return c.JSON(struct {
		refresh.Stats
		Frames uint64 `json:"frames"`
	}{d.stats(), d.Frames()})
}

// serveStream sends the current frame, then a new one after every Draw.
func (d *Display) serveStream(c *fiber.Ctx) error {
	format, err := d.formatFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}
	limit := -1
	if v := c.Query("frames"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("invalid frame count %q", v))
		}
	}

	boundary := randomBoundary()
	c.Set(fiber.HeaderContentType,
		mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{
			"boundary": boundary,
		}))

	cl := &client{
		refresh:   make(chan struct{}, 1),
		terminate: make(chan struct{}, 1),
	}
	d.mu.Lock()
	d.clients[cl] = struct{}{}
	d.mu.Unlock()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			d.mu.Lock()
			delete(d.clients, cl)
			d.mu.Unlock()
		}()

		pw := makePartWriter(w)
		pw.boundary = boundary

		partHeaders := make(textproto.MIMEHeader)
		partHeaders.Set("Content-Type", mime.FormatMediaType(format.mimeType(), nil))
		partHeaders.Set("Content-Transfer-Encoding", "binary")

		for sent := 1; ; sent++ {
			payload, err := d.grabSnapshot(format)
			if err != nil {
				log.Printf("preview: %v", err)
				return
			}
			err = pw.writeFrame(partHeaders, payload)

			//lint:ignore SA6002 buffer is []byte and thus pointer-like
			bufferPool.Put(payload)

			if err != nil {
				// The client went away. There's no good way to deliver an
				// error message within an image stream.
				return
			}
			if sent == limit {
				return
			}

			select {
			case <-cl.refresh:
			case <-cl.terminate:
				return
			}
		}
	})
	return nil
}
