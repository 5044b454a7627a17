// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rfb

import (
	"errors"
	"fmt"
)

// ConnectError is returned when a session cannot be established.
type ConnectError struct {
	Addr string
	// Op is the failed step: "dial", "handshake" or "setup".
	Op  string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("rfb: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ErrClosed is returned by requests on a closed connection.
var ErrClosed = errors.New("rfb: connection closed")
