// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package swo

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-daq/tdaq/log"
	"github.com/google/go-cmp/cmp"
	"github.com/rtic-scope/itm"
	"golang.org/x/xerrors"
)

func TestReadout(t *testing.T) {
	raw := []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x80, // sync
		0x01, 0x2a, // instrumentation
		0x04,       // reserved header, skipped
		0x15, 0x00, // pc sample (sleeping)
		0x60, // local timestamp
		0x70, // overflow
	}
	want := []itm.Packet{
		itm.Sync{Zeros: 5},
		itm.Instrumentation{Port: 0, Value: 0x2a, Width: 1},
		itm.PCSample{Sleep: true},
		itm.LocalTimestamp{Delta: 6, Relation: itm.RelationSync},
		itm.Overflow{},
	}

	msg := log.NewMsgStream("swo-test", log.LvlError, io.Discard)
	rdo := NewReadout(bytes.NewReader(raw), msg)

	var got []itm.Packet
	done := make(chan struct{})
	go func() {
		defer close(done)
		for pkt := range rdo.Packets() {
			got = append(got, pkt)
		}
	}()

	if err := rdo.Run(context.Background()); err != nil {
		t.Fatalf("could not run readout: %+v", err)
	}
	<-done

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("invalid packets: (-want +got)\n%s", diff)
	}
}

func TestReadoutCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	msg := log.NewMsgStream("swo-test", log.LvlError, io.Discard)
	rdo := NewReadout(zeroReader{}, msg)

	go func() {
		defer cancel()
		time.Sleep(10 * time.Millisecond)
	}()
	go func() {
		for range rdo.Packets() {
		}
	}()

	if err := rdo.Run(ctx); !xerrors.Is(err, context.Canceled) {
		t.Fatalf("got err=%v, want %v", err, context.Canceled)
	}
}

func TestReadoutReadError(t *testing.T) {
	msg := log.NewMsgStream("swo-test", log.LvlError, io.Discard)
	rdo := NewReadout(errReader{}, msg)

	go func() {
		for range rdo.Packets() {
		}
	}()

	if err := rdo.Run(context.Background()); err == nil {
		t.Fatalf("expected a read error")
	}
}

func TestConfigureInvalidBaud(t *testing.T) {
	if err := Configure(nil, 12345); err == nil {
		t.Fatalf("expected an error for an invalid baud rate")
	}
}

// zeroReader yields endless zero bytes, like an idle SWO pin.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) {
	return 0, xerrors.New("boom")
}
