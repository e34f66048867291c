// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package swo

import (
	"os"
	"runtime"

	"golang.org/x/xerrors"
)

// Configure is not supported on this platform.
func Configure(dev *os.File, baud uint32) error {
	return xerrors.Errorf("swo: serial device configuration not supported on %s", runtime.GOOS)
}
