// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// einkvnc shows a remote desktop on an e-ink panel and forwards touch input
// back to the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/GermanBionicSystems/einkvnc/banner"
	"github.com/GermanBionicSystems/einkvnc/config"
	"github.com/GermanBionicSystems/einkvnc/postproc"
	"github.com/GermanBionicSystems/einkvnc/refresh"
	"github.com/GermanBionicSystems/einkvnc/rfb"
	"github.com/GermanBionicSystems/einkvnc/session"
	"github.com/GermanBionicSystems/einkvnc/touch"
)

func mainImpl() error {
	cfg, err := config.Parse(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		config.Usage(os.Stderr)
		return nil
	}
	if err != nil {
		config.Usage(os.Stderr)
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pp := cfg.PostProc()
	lut := postproc.NewLUT(&pp)

	var sched atomic.Pointer[refresh.Scheduler]
	p, err := openPanel(ctx, cfg, &sched)
	if err != nil {
		return err
	}
	defer p.close()
	fb := p.fb
	if err := fb.SetRotation(cfg.Rotate); err != nil {
		log.Printf("einkvnc: %s: %v", fb, err)
	}

	var ttf []byte
	if cfg.Font != "" {
		if ttf, err = os.ReadFile(cfg.Font); err != nil {
			return err
		}
	}
	ban, err := banner.New(&banner.Opts{TTF: ttf})
	if err != nil {
		return err
	}

	opts := cfg.RFB()
	if err := ban.Connecting(fb, opts.Addr()); err != nil {
		log.Printf("einkvnc: %v", err)
	}
	conn, err := rfb.Dial(ctx, &opts)
	if err != nil {
		if err := ban.Disconnected(fb, err); err != nil {
			log.Printf("einkvnc: %v", err)
		}
		return err
	}
	defer conn.Close()
	log.Printf("einkvnc: connected to %q, %dx%d", conn.Name(), conn.Size().X, conn.Size().Y)

	var input session.Mailbox
	if !cfg.ViewOnly {
		dev, err := touch.Open(cfg.Touch)
		if err != nil {
			log.Printf("einkvnc: %v; continuing view only", err)
		} else {
			defer dev.Close()
			log.Printf("einkvnc: reading touch input from %s", dev)
			input = touch.Start(dev)
		}
	}

	loop := session.New(conn, fb, lut, input, &session.Opts{Verbose: cfg.Verbose})
	sched.Store(loop.Scheduler())
	err = loop.Run(ctx)

	var de *session.DisconnectError
	switch {
	case errors.As(err, &de):
		log.Printf("einkvnc: %v", err)
		if err := ban.Disconnected(fb, de.Reason); err != nil {
			log.Printf("einkvnc: %v", err)
		}
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	default:
		return err
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "einkvnc: %s.\n", err)
		os.Exit(1)
	}
}
