// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package kobo

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the framebuffer device of Kobo e-readers.
const DefaultDevice = "/dev/fb0"

// Open opens and maps a framebuffer device.
func Open(path string) (*Framebuffer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("kobo: %w", err)
	}
	return newFramebuffer(&fbDevice{f: f}, path)
}

type fbDevice struct {
	f *os.File
}

func (d *fbDevice) ioctl(req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

func (d *fbDevice) screenInfo() (*varScreenInfo, *fixScreenInfo, error) {
	v := &varScreenInfo{}
	if err := d.ioctl(fbioGetVScreenInfo, unsafe.Pointer(v)); err != nil {
		return nil, nil, fmt.Errorf("FBIOGET_VSCREENINFO: %w", err)
	}
	fix := &fixScreenInfo{}
	if err := d.ioctl(fbioGetFScreenInfo, unsafe.Pointer(fix)); err != nil {
		return nil, nil, fmt.Errorf("FBIOGET_FSCREENINFO: %w", err)
	}
	return v, fix, nil
}

func (d *fbDevice) setScreenInfo(v *varScreenInfo) error {
	if err := d.ioctl(fbioPutVScreenInfo, unsafe.Pointer(v)); err != nil {
		return fmt.Errorf("FBIOPUT_VSCREENINFO: %w", err)
	}
	return nil
}

func (d *fbDevice) mmap(size int) ([]byte, error) {
	return unix.Mmap(int(d.f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (d *fbDevice) munmap(b []byte) error {
	return unix.Munmap(b)
}

func (d *fbDevice) sendUpdate(u *mxcfbUpdateData) error {
	if err := d.ioctl(mxcfbSendUpdate, unsafe.Pointer(u)); err != nil {
		return fmt.Errorf("MXCFB_SEND_UPDATE: %w", err)
	}
	return nil
}

func (d *fbDevice) Close() error {
	return d.f.Close()
}
