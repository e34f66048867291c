// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package swo reads ITM/DWT trace streams from an SWO capture device.
package swo // import "github.com/rtic-scope/itm/swo"

import (
	"context"
	"io"

	"github.com/go-daq/tdaq/log"
	"github.com/rtic-scope/itm"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Readout pumps bytes from an SWO data source through a trace packet
// decoder and publishes the decoded packets on a channel.
//
// Malformed input is logged and skipped: an SWO pin capture may join
// the stream mid-packet or drop bytes, so the readout resynchronizes
// rather than fail.
type Readout struct {
	msg log.MsgStream
	r   io.Reader

	pkts chan itm.Packet
}

// NewReadout creates a readout decoding trace data from r.
func NewReadout(r io.Reader, msg log.MsgStream) *Readout {
	return &Readout{
		msg:  msg,
		r:    r,
		pkts: make(chan itm.Packet, 1024),
	}
}

// Packets returns the channel of decoded packets. It is closed when
// Run returns.
func (rdo *Readout) Packets() <-chan itm.Packet { return rdo.pkts }

// Run reads and decodes trace data until the source is exhausted or
// the context is canceled.
func (rdo *Readout) Run(ctx context.Context) error {
	defer close(rdo.pkts)

	raw := make(chan []byte, 32)

	var grp errgroup.Group
	grp.Go(func() error {
		defer close(raw)
		for {
			buf := make([]byte, 1024)
			n, err := rdo.r.Read(buf)
			if n > 0 {
				select {
				case raw <- buf[:n]:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			switch {
			case err == nil:
				// keep reading
			case xerrors.Is(err, io.EOF):
				return nil
			default:
				return xerrors.Errorf("swo: could not read from device: %w", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	})

	grp.Go(func() error {
		dec := itm.NewDecoder(nil)
		for chunk := range raw {
			if _, err := dec.Write(chunk); err != nil {
				return xerrors.Errorf("swo: could not buffer trace data: %w", err)
			}
			if err := rdo.drain(ctx, dec); err != nil {
				return err
			}
		}
		_ = dec.Close()
		return rdo.drain(ctx, dec)
	})

	return grp.Wait()
}

// drain publishes all packets currently decodable, skipping past
// malformed input.
func (rdo *Readout) drain(ctx context.Context, dec *itm.Decoder) error {
	var cerr error
	dec.DecodeAll(func(pkt itm.Packet, err error) bool {
		if err != nil {
			rdo.msg.Warnf("skipping malformed trace data: %+v", err)
			return true
		}
		select {
		case rdo.pkts <- pkt:
			return true
		case <-ctx.Done():
			cerr = ctx.Err()
			return false
		}
	})
	return cerr
}
