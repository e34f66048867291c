// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package swo

import (
	"os"

	"github.com/go-daq/tdaq"
	"github.com/rtic-scope/itm"
	"golang.org/x/xerrors"
)

// Server exposes an SWO capture device as a TDAQ data source: decoded
// trace packets are published, JSON-encoded, on an output channel.
type Server struct {
	dev  string
	baud uint32

	f    *os.File
	rdo  *Readout
	data chan []byte
	n    int // packets published since /start
}

// NewServer creates a server reading the SWO stream from the named
// serial device at the given baud rate.
func NewServer(dev string, baud uint32) *Server {
	return &Server{
		dev:  dev,
		baud: baud,
	}
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")

	f, err := os.OpenFile(srv.dev, os.O_RDWR, 0)
	if err != nil {
		ctx.Msg.Errorf("could not open SWO device %q: %+v", srv.dev, err)
		return xerrors.Errorf("could not open SWO device %q: %w", srv.dev, err)
	}

	err = Configure(f, srv.baud)
	if err != nil {
		_ = f.Close()
		ctx.Msg.Errorf("could not configure SWO device %q: %+v", srv.dev, err)
		return xerrors.Errorf("could not configure SWO device %q: %w", srv.dev, err)
	}

	srv.f = f
	srv.rdo = NewReadout(f, ctx.Msg)
	srv.data = make(chan []byte, 1024)
	srv.n = 0

	ctx.Msg.Infof("SWO device %q ready (baud=%d)", srv.dev, srv.baud)
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	return srv.release()
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command... -> n=%d", srv.n)
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return srv.release()
}

// Packets is the output handler publishing decoded packets.
func (srv *Server) Packets(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

// Run drives the readout and serializes its packets for the output
// channel.
func (srv *Server) Run(ctx tdaq.Context) error {
	if srv.rdo == nil {
		return xerrors.Errorf("swo: server not initialized")
	}

	go func() {
		err := srv.rdo.Run(ctx.Ctx)
		if err != nil && ctx.Ctx.Err() == nil {
			ctx.Msg.Errorf("readout stopped: %+v", err)
		}
	}()

	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case pkt, ok := <-srv.rdo.Packets():
			if !ok {
				return nil
			}
			raw, err := itm.Marshal(pkt)
			if err != nil {
				ctx.Msg.Errorf("could not serialize %v packet: %+v", pkt.Kind(), err)
				continue
			}
			select {
			case srv.data <- raw:
				srv.n++
			default:
				// drop when the consumer lags, like the trace
				// hardware does
			}
		}
	}
}

func (srv *Server) release() error {
	if srv.f == nil {
		return nil
	}
	err := srv.f.Close()
	srv.f = nil
	srv.rdo = nil
	if err != nil {
		return xerrors.Errorf("could not close SWO device %q: %w", srv.dev, err)
	}
	return nil
}
