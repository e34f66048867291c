// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package swo

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// Configure puts the serial capture device into raw 8N1 mode at the
// given baud rate, ready to carry an SWO trace stream. The device is
// claimed exclusively: any further open(2) fails with EBUSY.
func Configure(dev *os.File, baud uint32) error {
	speed, ok := baudRates[baud]
	if !ok {
		return xerrors.Errorf("swo: %d is not a valid baud rate", baud)
	}

	fd := int(dev.Fd())

	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		return xerrors.Errorf("swo: could not put device into exclusive mode: %w", err)
	}

	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return xerrors.Errorf("swo: could not read terminal settings: %w", err)
	}

	tio.Iflag |= unix.BRKINT | unix.IGNPAR | unix.IXON
	tio.Iflag &^= unix.ICRNL | unix.IGNBRK | unix.PARMRK | unix.INPCK |
		unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.IXOFF |
		unix.IXANY | unix.IMAXBEL | unix.IUTF8

	tio.Oflag &^= unix.OPOST | unix.ONLCR | unix.OLCUC | unix.OCRNL |
		unix.ONOCR | unix.ONLRET | unix.OFILL | unix.OFDEL |
		unix.NLDLY | unix.CRDLY | unix.TABDLY | unix.BSDLY |
		unix.VTDLY | unix.FFDLY

	tio.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	tio.Cflag &^= unix.HUPCL | unix.CSTOPB | unix.PARENB | unix.PARODD |
		unix.CRTSCTS | unix.CBAUD | unix.CMSPAR | unix.CIBAUD
	tio.Cflag |= speed

	tio.Lflag &^= unix.ECHO | unix.ISIG | unix.ICANON | unix.ECHONL |
		unix.ECHOPRT | unix.TOSTOP | unix.FLUSHO | unix.PENDIN |
		unix.NOFLSH

	tio.Ispeed = speed
	tio.Ospeed = speed

	// Return after at most 0.2s, or once 100 bytes are available.
	tio.Cc[unix.VTIME] = 2
	tio.Cc[unix.VMIN] = 100

	// Drain all output, flush all input, and apply settings.
	if err := unix.IoctlSetTermios(fd, unix.TCSETSF, tio); err != nil {
		return xerrors.Errorf("swo: could not apply terminal settings: %w", err)
	}

	flags, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
	if err != nil {
		return xerrors.Errorf("swo: could not read modem bits: %w", err)
	}
	flags |= unix.TIOCM_DTR | unix.TIOCM_RTS
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCMSET, flags); err != nil {
		return xerrors.Errorf("swo: could not apply modem bits: %w", err)
	}

	// Flush all pending I/O, just in case.
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		return xerrors.Errorf("swo: could not flush device I/O: %w", err)
	}

	return nil
}

var baudRates = map[uint32]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}
