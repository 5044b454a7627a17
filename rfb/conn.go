// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rfb

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net"
	"strconv"
	"sync"

	vnc "github.com/mitchellh/go-vnc"
)

// Opts configures a connection.
type Opts struct {
	Host string
	Port int
	// Username and Password select the authentication: Apple Remote
	// Desktop when both are set, VNC password when only Password is set.
	// No authentication is always offered last.
	Username string
	Password string
	// Exclusive asks the server to disconnect other clients.
	Exclusive bool
	// Verbose logs every server message.
	Verbose bool
}

// Addr returns host:port.
func (o *Opts) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

func (o *Opts) auth() []vnc.ClientAuth {
	var a []vnc.ClientAuth
	if o.Username != "" && o.Password != "" {
		a = append(a, &ARDAuth{Username: o.Username, Password: o.Password})
	}
	if o.Password != "" {
		a = append(a, &vnc.PasswordAuth{Password: o.Password})
	}
	return append(a, new(vnc.ClientAuthNone))
}

// Conn is a client session.
//
// Poll, RequestUpdate and SendPointer are meant to be called from a single
// goroutine. go-vnc reads server messages on its own goroutine and hands them
// over through a buffered channel.
type Conn struct {
	vc      *vnc.ClientConn
	tc      *trackedConn
	msgs    chan vnc.ServerMessage
	zrle    *ZRLEEncoding
	verbose bool

	size   image.Point
	name   string
	stride int
	done   bool
}

// Dial connects to the server, authenticates, negotiates the pixel format
// and encodings, and requests the whole screen.
func Dial(ctx context.Context, opts *Opts) (*Conn, error) {
	addr := opts.Addr()
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Op: "dial", Err: err}
	}
	c, err := newConn(nc, opts)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Op: "handshake", Err: err}
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, &ConnectError{Addr: addr, Op: "setup", Err: err}
	}
	return c, nil
}

func newConn(nc net.Conn, opts *Opts) (*Conn, error) {
	tc := &trackedConn{Conn: nc, closed: make(chan struct{})}
	msgs := make(chan vnc.ServerMessage, 64)
	vc, err := vnc.Client(tc, &vnc.ClientConfig{
		Auth:            opts.auth(),
		Exclusive:       opts.Exclusive,
		ServerMessageCh: msgs,
	})
	if err != nil {
		return nil, err
	}
	return &Conn{
		vc:      vc,
		tc:      tc,
		msgs:    msgs,
		zrle:    &ZRLEEncoding{},
		verbose: opts.Verbose,
		size:    image.Pt(int(vc.FrameBufferWidth), int(vc.FrameBufferHeight)),
		name:    vc.DesktopName,
		stride:  int(PixelFormat.BPP) / 8,
	}, nil
}

func (c *Conn) setup() error {
	pf := PixelFormat
	if err := c.vc.SetPixelFormat(&pf); err != nil {
		return err
	}
	c.vc.PixelFormat = pf
	encs := []vnc.Encoding{new(CopyRectEncoding), c.zrle}
	if err := c.vc.SetEncodings(encs); err != nil {
		return err
	}
	log.Printf("rfb: connected to %q, %dx%d framebuffer", c.name, c.size.X, c.size.Y)
	return c.RequestUpdate(image.Rectangle{Max: c.size}, false)
}

func (c *Conn) String() string {
	return fmt.Sprintf("rfb.Conn{%s, %dx%d}", c.name, c.size.X, c.size.Y)
}

// Name returns the desktop name.
func (c *Conn) Name() string {
	return c.name
}

// Size returns the remote framebuffer size.
func (c *Conn) Size() image.Point {
	return c.size
}

// Poll returns the events received since the last call without blocking. A
// Disconnected event is returned once, after every other event.
func (c *Conn) Poll() []Event {
	if c.done {
		return nil
	}
	var out []Event
	closed := c.tc.isClosed()
	for drained := false; !drained; {
		select {
		case m := <-c.msgs:
			out = c.appendMessage(out, m)
		default:
			drained = true
		}
	}
	if closed {
		c.done = true
		reason := c.tc.reason()
		if reason == nil {
			reason = c.zrle.err
		}
		out = append(out, Disconnected{Reason: reason})
	}
	return out
}

func (c *Conn) appendMessage(out []Event, m vnc.ServerMessage) []Event {
	u, ok := m.(*vnc.FramebufferUpdateMessage)
	if !ok {
		if c.verbose {
			log.Printf("rfb: ignoring server message %T", m)
		}
		return out
	}
	for i := range u.Rectangles {
		rect := &u.Rectangles[i]
		r := image.Rect(int(rect.X), int(rect.Y), int(rect.X)+int(rect.Width), int(rect.Y)+int(rect.Height))
		switch enc := rect.Enc.(type) {
		case *vnc.RawEncoding:
			out = append(out, PutPixels{Rect: r, Samples: packColors(&c.vc.PixelFormat, enc.Colors), Stride: c.stride})
		case *ZRLEEncoding:
			out = append(out, PutPixels{Rect: r, Samples: enc.Pixels, Stride: c.stride})
		case *CopyRectEncoding:
			src := image.Rect(int(enc.SrcX), int(enc.SrcY), int(enc.SrcX)+r.Dx(), int(enc.SrcY)+r.Dy())
			out = append(out, CopyPixels{Src: src, Dst: r})
		default:
			log.Printf("rfb: unexpected encoding %T for %v", rect.Enc, r)
		}
	}
	return append(out, EndOfFrame{})
}

// RequestUpdate asks the server for the contents of r. With incremental set,
// only the parts that changed are sent.
func (c *Conn) RequestUpdate(r image.Rectangle, incremental bool) error {
	if c.tc.isClosed() {
		return ErrClosed
	}
	r = r.Intersect(image.Rectangle{Max: c.size})
	return c.vc.FramebufferUpdateRequest(incremental, uint16(r.Min.X), uint16(r.Min.Y), uint16(r.Dx()), uint16(r.Dy()))
}

// SendPointer sends the pointer position and button mask. Coordinates are
// clamped to the screen.
func (c *Conn) SendPointer(mask uint8, x, y int) error {
	if c.tc.isClosed() {
		return ErrClosed
	}
	x = max(0, min(x, c.size.X-1))
	y = max(0, min(y, c.size.Y-1))
	return c.vc.PointerEvent(vnc.ButtonMask(mask), uint16(x), uint16(y))
}

// Close ends the session.
func (c *Conn) Close() error {
	return c.vc.Close()
}

// trackedConn records why the connection ended. go-vnc closes the
// connection when its message loop fails but does not report the error.
type trackedConn struct {
	net.Conn

	mu     sync.Mutex
	err    error
	once   sync.Once
	closed chan struct{}
}

func (t *trackedConn) Read(b []byte) (int, error) {
	n, err := t.Conn.Read(b)
	if err != nil {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
	}
	return n, err
}

func (t *trackedConn) Close() error {
	var err error
	t.once.Do(func() {
		err = t.Conn.Close()
		close(t.closed)
	})
	return err
}

func (t *trackedConn) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// reason returns the first read error, or nil if the server closed the
// connection in an orderly way.
func (t *trackedConn) reason() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil || errors.Is(t.err, io.EOF) || errors.Is(t.err, net.ErrClosed) {
		return nil
	}
	return t.err
}
