// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package refresh decides when, where and how an e-ink panel is refreshed.
//
// Region updates reported during a frame are coalesced and refreshed at the
// end of the frame with the cheapest waveform that looks right: FastMono for
// small regions, Partial otherwise. Every refreshed region is remembered, and
// after too many cheap refreshes, or once the screen has been still for a
// while, the remembered regions get a Full refresh to clear ghosting.
package refresh

import (
	"image"
	"log"
	"sync/atomic"
	"time"

	"github.com/GermanBionicSystems/einkvnc/dirty"
	"github.com/GermanBionicSystems/einkvnc/epd"
)

// Options tunes a Scheduler. Zero fields take the value of DefaultOpts.
type Options struct {
	// Ceiling is the number of frames after which the next end of frame
	// triggers a Full refresh. The comparison is strict.
	Ceiling int
	// FastMonoBelow is the size under which both dimensions of a region
	// must be for it to use FastMono.
	FastMonoBelow int
	// IdleFlush is the quiet time after which pending regions get a Full
	// refresh.
	IdleFlush time.Duration
	// Now returns the current time.
	Now func() time.Time
	// Verbose logs every refresh.
	Verbose bool
}

// DefaultOpts is the recommended policy.
var DefaultOpts = Options{
	Ceiling:       500,
	FastMonoBelow: 100,
	IdleFlush:     3 * time.Second,
	Now:           time.Now,
}

// Stats counts refreshes issued per mode.
type Stats struct {
	Full     int64 `json:"full"`
	Partial  int64 `json:"partial"`
	FastMono int64 `json:"fast_mono"`
	Failed   int64 `json:"failed"`
}

// Scheduler owns the refresh state of one panel.
//
// All methods except Stats must be called from a single goroutine.
type Scheduler struct {
	fb   epd.Framebuffer
	opts Options

	// tick holds the regions updated during the current frame.
	tick []image.Rectangle
	// pending holds the regions refreshed cheaply since the last Full
	// refresh.
	pending []image.Rectangle

	sinceFull   int
	paintedOnce bool
	lastDraw    time.Time

	full, partial, fastMono, failed atomic.Int64
}

// New returns a Scheduler committing to fb.
func New(fb epd.Framebuffer, opts *Options) *Scheduler {
	o := DefaultOpts
	if opts != nil {
		if opts.Ceiling > 0 {
			o.Ceiling = opts.Ceiling
		}
		if opts.FastMonoBelow > 0 {
			o.FastMonoBelow = opts.FastMonoBelow
		}
		if opts.IdleFlush > 0 {
			o.IdleFlush = opts.IdleFlush
		}
		if opts.Now != nil {
			o.Now = opts.Now
		}
		o.Verbose = opts.Verbose
	}
	return &Scheduler{fb: fb, opts: o, lastDraw: o.Now()}
}

// WholePanel handles an update covering the entire panel.
//
// The very first paint, and any paint once the ceiling is exceeded, is a
// Full refresh. Anything else is Partial. Both region lists are discarded.
func (s *Scheduler) WholePanel() {
	s.tick = s.tick[:0]
	s.pending = s.pending[:0]
	if !s.paintedOnce || s.sinceFull > s.opts.Ceiling {
		s.commit(s.fb.Bounds(), epd.Full)
		s.sinceFull = 0
		s.paintedOnce = true
		return
	}
	s.commit(s.fb.Bounds(), epd.Partial)
}

// Region records an update of r. Nothing is refreshed until EndOfFrame.
func (s *Scheduler) Region(r image.Rectangle) {
	s.tick = dirty.Absorb(s.tick, r)
}

// EndOfFrame refreshes the regions updated during the frame.
func (s *Scheduler) EndOfFrame() {
	if !s.paintedOnce {
		s.paintedOnce = len(s.tick) > 0
	}
	s.sinceFull++
	if s.sinceFull > s.opts.Ceiling {
		if s.opts.Verbose {
			log.Printf("refresh: full refresh of %d regions (%d px) after %d frames", len(s.pending), dirty.Area(s.pending), s.sinceFull)
		}
		s.flush()
	} else {
		for _, r := range s.tick {
			s.commit(r, s.modeFor(r))
			s.pending = dirty.Absorb(s.pending, r)
		}
		s.lastDraw = s.opts.Now()
	}
	s.tick = s.tick[:0]
}

// Idle gives every region refreshed cheaply a Full refresh once the panel
// has been still for long enough. It reports whether it refreshed anything.
func (s *Scheduler) Idle(now time.Time) bool {
	if len(s.pending) == 0 || now.Sub(s.lastDraw) <= s.opts.IdleFlush {
		return false
	}
	if s.opts.Verbose {
		log.Printf("refresh: idle flush of %d regions (%d px)", len(s.pending), dirty.Area(s.pending))
	}
	s.flush()
	return true
}

// FullRefresh refreshes the whole panel with a Full waveform.
func (s *Scheduler) FullRefresh() {
	s.pending = s.pending[:0]
	s.commit(s.fb.Bounds(), epd.Full)
	s.sinceFull = 0
	s.paintedOnce = true
}

// SinceFull returns the number of frames since the last Full refresh.
func (s *Scheduler) SinceFull() int {
	return s.sinceFull
}

// PaintedOnce reports whether anything was ever painted.
func (s *Scheduler) PaintedOnce() bool {
	return s.paintedOnce
}

// Pending returns a copy of the regions awaiting a Full refresh.
func (s *Scheduler) Pending() []image.Rectangle {
	return append([]image.Rectangle(nil), s.pending...)
}

// Stats returns the refresh counters. It is safe for concurrent use.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Full:     s.full.Load(),
		Partial:  s.partial.Load(),
		FastMono: s.fastMono.Load(),
		Failed:   s.failed.Load(),
	}
}

func (s *Scheduler) modeFor(r image.Rectangle) epd.Mode {
	if r.Dx() < s.opts.FastMonoBelow && r.Dy() < s.opts.FastMonoBelow {
		return epd.FastMono
	}
	return epd.Partial
}

func (s *Scheduler) flush() {
	for _, r := range s.pending {
		s.commit(r, epd.Full)
	}
	s.sinceFull = 0
	s.pending = s.pending[:0]
}

// commit issues a refresh. Hardware errors are logged and otherwise ignored.
func (s *Scheduler) commit(r image.Rectangle, m epd.Mode) {
	if s.opts.Verbose {
		log.Printf("refresh: %s %v", m, r)
	}
	switch m {
	case epd.Full:
		s.full.Add(1)
	case epd.Partial:
		s.partial.Add(1)
	case epd.FastMono:
		s.fastMono.Add(1)
	}
	if err := s.fb.Commit(r, m); err != nil {
		s.failed.Add(1)
		log.Printf("refresh: %s refresh of %v failed: %v", m, r, err)
	}
}
