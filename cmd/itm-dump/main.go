// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// itm-dump decodes and displays ITM/DWT trace capture files.
//
// Usage: itm-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> itm-dump ./testdata/blinky.bin
//	sync zeros=5
//	instrumentation port=0 value=0x2a
//	local-timestamp delta=217 (sync)
//	exception-trace SysTick entered
//	pc-sample pc=0x20000f2c
//	overflow
//	[...]
package main // import "github.com/rtic-scope/itm/cmd/itm-dump"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rtic-scope/itm"
	"github.com/rtic-scope/itm/cortexm"
	"golang.org/x/xerrors"
)

func main() {
	log.SetPrefix("itm-dump: ")
	log.SetFlags(0)

	var (
		jsonfmt = flag.Bool("json", false, "display packets as JSON")
		withTS  = flag.Bool("ts", false, "group packets per local timestamp")
		freq    = flag.Uint("freq", 16_000_000, "ITM timestamp clock frequency (Hz), with -ts")
		div     = flag.Int("div", 1, "local timestamp prescaler (1, 4, 16 or 64), with -ts")
	)

	flag.Usage = func() {
		fmt.Printf(`itm-dump decodes and displays ITM/DWT trace capture files.

Usage: itm-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> itm-dump ./testdata/blinky.bin
 sync zeros=5
 instrumentation port=0 value=0x2a
 local-timestamp delta=217 (sync)
 exception-trace SysTick entered
 pc-sample pc=0x20000f2c
 overflow
 [...]

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input trace file")
	}

	for _, fname := range flag.Args() {
		err := process(os.Stdout, fname, *jsonfmt, *withTS, uint32(*freq), *div)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, jsonfmt, withTS bool, freq uint32, div int) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return xerrors.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	if withTS {
		return timestamps(wbuf, f, freq, div)
	}
	return singles(wbuf, f, jsonfmt)
}

func singles(w io.Writer, r io.Reader, jsonfmt bool) error {
	s := itm.NewStream(r)
	for {
		pkt, err := s.Next()
		if err != nil {
			if xerrors.Is(err, io.EOF) {
				return nil
			}
			fmt.Fprintf(w, "error: %+v\n", err)
			s.Skip(1)
			continue
		}
		if jsonfmt {
			raw, err := itm.Marshal(pkt)
			if err != nil {
				return xerrors.Errorf("could not marshal packet: %w", err)
			}
			fmt.Fprintf(w, "%s\n", raw)
			continue
		}
		fmt.Fprintf(w, "%v\n", pkt)
	}
}

func timestamps(w io.Writer, r io.Reader, freq uint32, div int) error {
	pre, err := prescaler(div)
	if err != nil {
		return err
	}

	ts, err := itm.NewTimestamps(r, itm.TimestampsConfig{
		ClockFrequency:  freq,
		Prescaler:       pre,
		ExpectMalformed: true,
	})
	if err != nil {
		return xerrors.Errorf("could not create timestamp decoder: %w", err)
	}

	for {
		grp, err := ts.Next()
		if err != nil {
			if xerrors.Is(err, io.EOF) {
				return nil
			}
			return xerrors.Errorf("could not decode timestamped packets: %w", err)
		}
		fmt.Fprintf(w, "=== %v %v (%d packets) ===\n",
			grp.Timestamp.Curr, grp.Timestamp.Quality, len(grp.Packets),
		)
		for _, pkt := range grp.Packets {
			fmt.Fprintf(w, "  %v\n", pkt)
		}
		for _, err := range grp.Malformed {
			fmt.Fprintf(w, "  malformed: %+v\n", err)
		}
	}
}

func prescaler(div int) (cortexm.Prescaler, error) {
	switch div {
	case 1:
		return cortexm.Prescale1, nil
	case 4:
		return cortexm.Prescale4, nil
	case 16:
		return cortexm.Prescale16, nil
	case 64:
		return cortexm.Prescale64, nil
	}
	return 0, xerrors.Errorf("invalid prescaler divider %d", div)
}
