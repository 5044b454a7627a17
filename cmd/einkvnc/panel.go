// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/einkvnc/config"
	"github.com/GermanBionicSystems/einkvnc/console"
	"github.com/GermanBionicSystems/einkvnc/epd"
	"github.com/GermanBionicSystems/einkvnc/kobo"
	"github.com/GermanBionicSystems/einkvnc/preview"
	"github.com/GermanBionicSystems/einkvnc/refresh"
	"github.com/GermanBionicSystems/einkvnc/waveshare2in13v4"
)

// panel is the selected e-ink backend.
type panel struct {
	fb      epd.Framebuffer
	closers []func() error
}

func (p *panel) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			log.Printf("einkvnc: %s: %v", p.fb, err)
		}
	}
}

func openPanel(ctx context.Context, cfg *config.Config, sched *atomic.Pointer[refresh.Scheduler]) (*panel, error) {
	switch cfg.Panel {
	case config.PanelKobo:
		f, err := kobo.Open(cfg.FB)
		if err != nil {
			return nil, err
		}
		return &panel{fb: f, closers: []func() error{f.Close}}, nil

	case config.PanelWaveshare:
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		port, err := spireg.Open(cfg.SPI)
		if err != nil {
			return nil, err
		}
		dev, err := waveshare2in13v4.NewHat(port, &waveshare2in13v4.EPD2in13v4)
		if err != nil {
			port.Close()
			return nil, err
		}
		if err := dev.Init(false); err != nil {
			port.Close()
			return nil, err
		}
		return &panel{fb: dev, closers: []func() error{port.Close, dev.Sleep}}, nil

	case config.PanelSim:
		return openSim(ctx, cfg, sched)
	}
	return nil, fmt.Errorf("unknown panel %q", cfg.Panel)
}

// openSim returns a simulated panel mirrored to the HTTP preview and the
// terminal when enabled.
func openSim(ctx context.Context, cfg *config.Config, sched *atomic.Pointer[refresh.Scheduler]) (*panel, error) {
	dims, err := cfg.SimDims()
	if err != nil {
		return nil, err
	}
	size := epd.Rotated(dims, cfg.Rotate)
	var sinks []display.Drawer
	if cfg.Preview != "" {
		d := preview.New(&preview.Options{
			Width:  size.X,
			Height: size.Y,
			Format: preview.DefaultFormat,
			Stats: func() refresh.Stats {
				if s := sched.Load(); s != nil {
					return s.Stats()
				}
				return refresh.Stats{}
			},
		})
		go func() {
			if err := preview.Serve(ctx, d, cfg.Preview); err != nil {
				log.Printf("einkvnc: %v", err)
			}
		}()
		sinks = append(sinks, d)
	}
	p := &panel{}
	if cfg.Console {
		if !console.IsTerminal(os.Stdout) {
			log.Printf("einkvnc: standard output is not a terminal")
		}
		c, err := console.New(&console.Opts{Width: size.X, Height: size.Y})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, c)
		p.closers = append(p.closers, c.Halt)
	}
	s, err := epd.NewSim(&epd.SimOpts{Width: dims.X, Height: dims.Y, Sinks: sinks})
	if err != nil {
		return nil, err
	}
	p.fb = s
	return p, nil
}
