// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package session runs the paint loop of a remote display on an e-ink
// panel.
//
// Each tick forwards pending touch input to the server, draws every pending
// server update into the panel memory, lets the refresh scheduler decide what
// to refresh, then sleeps for the rest of the frame budget. Drawing is never
// skipped to meet the budget; only the sleep is.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/GermanBionicSystems/einkvnc/epd"
	"github.com/GermanBionicSystems/einkvnc/postproc"
	"github.com/GermanBionicSystems/einkvnc/refresh"
	"github.com/GermanBionicSystems/einkvnc/rfb"
	"github.com/GermanBionicSystems/einkvnc/touch"
)

// Frame is the default tick duration, about 30 frames per second.
const Frame = time.Second / 30

// Remote is the server side of a session.
type Remote interface {
	// Poll returns the pending events without blocking.
	Poll() []rfb.Event
	RequestUpdate(r image.Rectangle, incremental bool) error
	SendPointer(mask uint8, x, y int) error
	Size() image.Point
}

// Mailbox delivers touch input without blocking.
type Mailbox interface {
	Drain() []touch.Message
}

// ErrDisconnected is matched by every error returned on a server
// disconnection.
var ErrDisconnected = errors.New("session: server disconnected")

// DisconnectError is returned by Run when the server ends the session.
// Reason is nil on an orderly close.
type DisconnectError struct {
	Reason error
}

func (e *DisconnectError) Error() string {
	if e.Reason == nil {
		return ErrDisconnected.Error()
	}
	return fmt.Sprintf("%s: %v", ErrDisconnected, e.Reason)
}

func (e *DisconnectError) Is(target error) bool {
	return target == ErrDisconnected
}

func (e *DisconnectError) Unwrap() error {
	return e.Reason
}

// Opts configures a Loop.
type Opts struct {
	// Frame is the tick duration. Defaults to Frame.
	Frame time.Duration
	// Refresh tunes the scheduler.
	Refresh refresh.Options
	// Verbose logs per event timings.
	Verbose bool
	// Now and Sleep default to the real clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

// Loop is the single owner of the panel, the refresh state and the server
// requests.
type Loop struct {
	remote  Remote
	fb      epd.Framebuffer
	lut     *postproc.LUT
	sched   *refresh.Scheduler
	input   Mailbox
	pointer touch.Pointer

	frame   time.Duration
	verbose bool
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration)

	buf []byte
	tmp []color.Color
}

// New returns a Loop painting remote onto fb. input may be nil for a view
// only session.
func New(remote Remote, fb epd.Framebuffer, lut *postproc.LUT, input Mailbox, opts *Opts) *Loop {
	if opts == nil {
		opts = &Opts{}
	}
	l := &Loop{
		remote:  remote,
		fb:      fb,
		lut:     lut,
		input:   input,
		frame:   opts.Frame,
		verbose: opts.Verbose,
		now:     opts.Now,
		sleep:   opts.Sleep,
	}
	if l.frame <= 0 {
		l.frame = Frame
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.sleep == nil {
		l.sleep = sleepCtx
	}
	ro := opts.Refresh
	if ro.Now == nil {
		ro.Now = l.now
	}
	ro.Verbose = ro.Verbose || opts.Verbose
	l.sched = refresh.New(fb, &ro)
	return l
}

// Scheduler returns the refresh scheduler of the loop.
func (l *Loop) Scheduler() *refresh.Scheduler {
	return l.sched
}

// Run ticks until the server disconnects or ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Tick(ctx); err != nil {
			return err
		}
	}
}

// Tick runs one frame. It returns a *DisconnectError once the server is
// gone.
func (l *Loop) Tick(ctx context.Context) error {
	start := l.now()
	full := image.Rectangle{Max: l.remote.Size()}

	l.handleInput(full)

	for _, ev := range l.remote.Poll() {
		switch ev := ev.(type) {
		case rfb.Disconnected:
			if ev.Reason != nil {
				log.Printf("session: server disconnected: %v", ev.Reason)
			}
			return &DisconnectError{Reason: ev.Reason}
		case rfb.PutPixels:
			l.putPixels(start, full, &ev)
		case rfb.CopyPixels:
			l.copyPixels(&ev)
		case rfb.EndOfFrame:
			l.logf("end of frame")
			l.sched.EndOfFrame()
		}
	}

	if elapsed := l.now().Sub(start); elapsed < l.frame {
		l.sched.Idle(l.now())
		if rest := l.frame - l.now().Sub(start); rest > 0 {
			l.sleep(ctx, rest)
		}
	} else {
		log.Printf("session: missed frame, excess Δt: %s", elapsed-l.frame)
	}

	if err := l.remote.RequestUpdate(full, true); err != nil {
		l.logf("update request: %v", err)
	}
	return nil
}

func (l *Loop) handleInput(full image.Rectangle) {
	if l.input == nil {
		return
	}
	for _, m := range l.input.Drain() {
		if m.Err != nil {
			log.Printf("session: %v, continuing view only", m.Err)
			l.input = nil
			return
		}
		e := l.pointer.Apply(m.Sample)
		if err := l.remote.SendPointer(uint8(e.Button), e.Position.X, e.Position.Y); err != nil {
			l.logf("pointer event: %v", err)
		}
		if e.RequestFull {
			log.Printf("session: full update due to stylus back button")
			if err := l.remote.RequestUpdate(full, false); err != nil {
				log.Printf("session: update request: %v, refreshing locally", err)
				l.sched.FullRefresh()
			}
		}
	}
}

func (l *Loop) putPixels(start time.Time, full image.Rectangle, ev *rfb.PutPixels) {
	l.logf("network Δt: %s", l.now().Sub(start))
	r := ev.Rect
	stride := ev.Stride
	if stride < 1 {
		stride = 1
	}
	w := r.Dx()
	if l.fb.Channels() >= 3 {
		l.buf = l.lut.Color(l.buf[:0], ev.Samples, stride)
		l.logf("postproc Δt: %s", l.now().Sub(start))
		for i := 0; i+2 < len(l.buf) && i/3 < w*r.Dy(); i += 3 {
			p := i / 3
			// Source order is blue, green, red.
			c := color.RGBA{R: l.buf[i+2], G: l.buf[i+1], B: l.buf[i], A: 0xFF}
			l.fb.SetPixel(r.Min.X+p%w, r.Min.Y+p/w, c)
		}
	} else {
		l.buf = l.lut.Gray(l.buf[:0], ev.Samples, stride)
		l.logf("postproc Δt: %s", l.now().Sub(start))
		for p := 0; p < len(l.buf) && p < w*r.Dy(); p++ {
			l.fb.SetPixel(r.Min.X+p%w, r.Min.Y+p/w, color.Gray{Y: l.buf[p]})
		}
	}
	l.logf("draw Δt: %s", l.now().Sub(start))

	if r == full {
		l.sched.WholePanel()
	} else {
		l.sched.Region(r)
	}
	l.logf("rects Δt: %s", l.now().Sub(start))
}

// copyPixels copies through an intermediate buffer since source and
// destination may overlap.
func (l *Loop) copyPixels(ev *rfb.CopyPixels) {
	w, h := ev.Dst.Dx(), ev.Dst.Dy()
	l.tmp = l.tmp[:0]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l.tmp = append(l.tmp, l.fb.Pixel(ev.Src.Min.X+x, ev.Src.Min.Y+y))
		}
	}
	for i, c := range l.tmp {
		l.fb.SetPixel(ev.Dst.Min.X+i%w, ev.Dst.Min.Y+i/w, c)
	}
	l.sched.Region(ev.Dst)
}

func (l *Loop) logf(format string, args ...any) {
	if l.verbose {
		log.Printf("session: "+format, args...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
