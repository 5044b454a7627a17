// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config holds the command line configuration of einkvnc.
//
// Values come from, in increasing priority: built-in defaults, the
// environment, a JSON file given with -config, and command line flags.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/GermanBionicSystems/einkvnc/epd"
	"github.com/GermanBionicSystems/einkvnc/postproc"
	"github.com/GermanBionicSystems/einkvnc/rfb"
	"github.com/GermanBionicSystems/einkvnc/touch"
)

// Panel backends.
const (
	PanelKobo      = "kobo"
	PanelWaveshare = "waveshare"
	PanelSim       = "sim"
)

// Config is the complete configuration.
type Config struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Exclusive bool   `json:"exclusive"`

	Contrast    float64 `json:"contrast"`
	GrayPoint   float64 `json:"graypoint"`
	WhiteCutoff int     `json:"whitecutoff"`

	// Rotate is the panel rotation in quarter turns.
	Rotate   int    `json:"rotate"`
	ViewOnly bool   `json:"viewonly"`
	Touch    string `json:"touch"`

	Panel   string `json:"panel"`
	FB      string `json:"fb"`
	SPI     string `json:"spi"`
	SimSize string `json:"sim_size"`
	Preview string `json:"preview"`
	Console bool   `json:"console"`
	Font    string `json:"font"`
	Verbose bool   `json:"verbose"`

	// File is the JSON file the configuration was loaded from.
	File string `json:"-"`
}

// Default returns the built-in defaults. getenv is used for KOBO_TS_INPUT.
func Default(getenv func(string) string) *Config {
	c := &Config{
		Port:        5900,
		Contrast:    postproc.DefaultConfig.ContrastExponent,
		GrayPoint:   postproc.DefaultConfig.GrayPoint,
		WhiteCutoff: int(postproc.DefaultConfig.WhiteCutoff),
		Rotate:      1,
		Touch:       touch.DefaultDevice,
		Panel:       PanelKobo,
		FB:          "/dev/fb0",
		SimSize:     "800x600",
	}
	if getenv != nil {
		if v := getenv("KOBO_TS_INPUT"); v != "" {
			c.Touch = v
		}
	}
	return c
}

func (c *Config) flagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("einkvnc", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&c.Port, "port", c.Port, "server port")
	fs.StringVar(&c.Username, "username", c.Username, "server username, for Apple Remote Desktop authentication")
	fs.StringVar(&c.Password, "password", c.Password, "server password")
	fs.BoolVar(&c.Exclusive, "exclusive", c.Exclusive, "request a non-shared session")
	fs.Float64Var(&c.Contrast, "contrast", c.Contrast, "exponent of the post processing contrast curve, 1 disables it")
	fs.Float64Var(&c.GrayPoint, "graypoint", c.GrayPoint, "gray point of the post processing contrast curve")
	fs.IntVar(&c.WhiteCutoff, "whitecutoff", c.WhiteCutoff, "turn intensities greater than this value to white (255)")
	fs.IntVar(&c.Rotate, "rotate", c.Rotate, "panel rotation in quarter turns (0-3)")
	fs.BoolVar(&c.ViewOnly, "viewonly", c.ViewOnly, "never send input to the server")
	fs.StringVar(&c.Touch, "touch", c.Touch, "touch input device ($KOBO_TS_INPUT)")
	fs.StringVar(&c.File, "config", c.File, "JSON configuration file, overridden by flags")
	fs.StringVar(&c.Panel, "panel", c.Panel, "panel backend: kobo, waveshare or sim")
	fs.StringVar(&c.FB, "fb", c.FB, "framebuffer device of the kobo panel")
	fs.StringVar(&c.SPI, "spi", c.SPI, "SPI port of the waveshare panel")
	fs.StringVar(&c.SimSize, "sim-size", c.SimSize, "size of the sim panel, WxH")
	fs.StringVar(&c.Preview, "preview", c.Preview, "serve an HTTP preview of the sim panel on this address")
	fs.BoolVar(&c.Console, "console", c.Console, "mirror the sim panel on the terminal")
	fs.StringVar(&c.Font, "font", c.Font, "TrueType font of the status screens")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "log every event")
	return fs
}

// Usage writes the command line help to w.
func Usage(w io.Writer) {
	fmt.Fprintf(w, "usage: einkvnc [flags] HOST\n\n")
	fs := Default(nil).flagSet()
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// Parse parses the command line arguments, without the program name.
//
// Flags may appear before or after HOST. It returns flag.ErrHelp when help
// was requested.
func Parse(args []string, getenv func(string) string) (*Config, error) {
	c := Default(getenv)
	fs := c.flagSet()
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return nil, err
	}
	if c.File != "" {
		if err := c.load(c.File); err != nil {
			return nil, err
		}
		// Flags win over the file.
		if pos, err = parseInterleaved(fs, args); err != nil {
			return nil, err
		}
	}
	switch len(pos) {
	case 0:
	case 1:
		c.Host = pos[0]
	default:
		return nil, fmt.Errorf("config: unexpected arguments %q", pos[1:])
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, fmt.Errorf("config: %w", err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func (c *Config) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Validate returns the first invalid setting.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("config: missing HOST")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.WhiteCutoff < 0 || c.WhiteCutoff > 255 {
		return fmt.Errorf("config: white cutoff %d out of range [0, 255]", c.WhiteCutoff)
	}
	pp := c.PostProc()
	if err := pp.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := epd.ValidRotation(c.Rotate); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Panel {
	case PanelKobo, PanelWaveshare:
	case PanelSim:
		if _, err := c.SimDims(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: unknown panel %q", c.Panel)
	}
	if !c.ViewOnly && c.Touch == "" {
		return errors.New("config: missing touch device")
	}
	return nil
}

// PostProc returns the tone curve settings.
func (c *Config) PostProc() postproc.Config {
	return postproc.Config{
		ContrastExponent: c.Contrast,
		GrayPoint:        c.GrayPoint,
		WhiteCutoff:      uint8(c.WhiteCutoff),
	}
}

// RFB returns the connection settings.
func (c *Config) RFB() rfb.Opts {
	return rfb.Opts{
		Host:      c.Host,
		Port:      c.Port,
		Username:  c.Username,
		Password:  c.Password,
		Exclusive: c.Exclusive,
		Verbose:   c.Verbose,
	}
}

// SimDims parses SimSize.
func (c *Config) SimDims() (image.Point, error) {
	w, h, ok := strings.Cut(strings.ToLower(c.SimSize), "x")
	if ok {
		x, errX := strconv.Atoi(w)
		y, errY := strconv.Atoi(h)
		if errX == nil && errY == nil && x > 0 && y > 0 {
			return image.Pt(x, y), nil
		}
	}
	return image.Point{}, fmt.Errorf("config: invalid sim panel size %q, want WxH", c.SimSize)
}
