// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command swo-srv starts a TDAQ server publishing the decoded trace
// packets of an SWO capture device.
package main // import "github.com/rtic-scope/itm/cmd/swo-srv"

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/rtic-scope/itm/swo"
)

func main() {
	var (
		dev  = flag.String("dev", "/dev/ttyUSB0", "path to the SWO serial capture device")
		baud = flag.Uint("baud", 115200, "baud rate of the SWO serial capture device")
	)

	cmd := flags.New()

	srv := swo.NewServer(*dev, uint32(*baud))

	tsrv := tdaq.New(cmd, os.Stdout)
	tsrv.CmdHandle("/config", srv.OnConfig)
	tsrv.CmdHandle("/init", srv.OnInit)
	tsrv.CmdHandle("/reset", srv.OnReset)
	tsrv.CmdHandle("/start", srv.OnStart)
	tsrv.CmdHandle("/stop", srv.OnStop)
	tsrv.CmdHandle("/quit", srv.OnQuit)

	tsrv.OutputHandle("/packets", srv.Packets)

	tsrv.RunHandle(srv.Run)

	err := tsrv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
