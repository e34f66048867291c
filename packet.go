// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

import (
	"encoding/json"
	"fmt"

	"github.com/rtic-scope/itm/cortexm"
	"golang.org/x/xerrors"
)

// Kind discriminates trace packet kinds.
type Kind uint8

const (
	KindInstrumentation  Kind = iota // software stimulus port write
	KindEventCounterWrap             // DWT counter wrapped
	KindExceptionTrace               // exception entered, exited or returned to
	KindPCSample                     // periodic PC sample
	KindDataTracePC                  // data trace, PC value
	KindDataTraceAddress             // data trace, address offset
	KindDataTraceValue               // data trace, data value
	KindLocalTimestamp               // delta timestamp
	KindGlobalTimestamp1             // lower bits of the global timestamp clock
	KindGlobalTimestamp2             // upper bits of the global timestamp clock
	KindOverflow                     // trace output dropped packets
	KindSync                         // synchronization frame
	KindExtension                    // extension information
)

func (k Kind) String() string {
	switch k {
	case KindInstrumentation:
		return "instrumentation"
	case KindEventCounterWrap:
		return "event-counter-wrap"
	case KindExceptionTrace:
		return "exception-trace"
	case KindPCSample:
		return "pc-sample"
	case KindDataTracePC:
		return "data-trace-pc"
	case KindDataTraceAddress:
		return "data-trace-address"
	case KindDataTraceValue:
		return "data-trace-value"
	case KindLocalTimestamp:
		return "local-timestamp"
	case KindGlobalTimestamp1:
		return "global-timestamp-1"
	case KindGlobalTimestamp2:
		return "global-timestamp-2"
	case KindOverflow:
		return "overflow"
	case KindSync:
		return "sync"
	case KindExtension:
		return "extension"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Packet is a single decoded ITM/DWT trace packet.
type Packet interface {
	Kind() Kind
	String() string
}

// Instrumentation is a value written by software to an ITM stimulus
// port.
type Instrumentation struct {
	Port  uint8  `json:"port"`  // stimulus port, 0-31
	Value uint32 `json:"value"` // payload value, little-endian
	Width int    `json:"width"` // payload width in bytes: 1, 2 or 4
}

func (Instrumentation) Kind() Kind { return KindInstrumentation }

func (p Instrumentation) String() string {
	return fmt.Sprintf("instrumentation port=%d value=0x%0*x", p.Port, 2*p.Width, p.Value)
}

// EventCounterWrap reports DWT counters that have wrapped.
type EventCounterWrap struct {
	CPI   bool `json:"cpi"`   // CPICNT wrapped
	Exc   bool `json:"exc"`   // EXCCNT wrapped
	Sleep bool `json:"sleep"` // SLEEPCNT wrapped
	LSU   bool `json:"lsu"`   // LSUCNT wrapped
	Fold  bool `json:"fold"`  // FOLDCNT wrapped
	Cyc   bool `json:"cyc"`   // POSTCNT (cycle counter) wrapped
}

func (EventCounterWrap) Kind() Kind { return KindEventCounterWrap }

func (p EventCounterWrap) String() string {
	s := "event-counter-wrap"
	for _, f := range []struct {
		set  bool
		name string
	}{
		{p.CPI, "cpi"}, {p.Exc, "exc"}, {p.Sleep, "sleep"},
		{p.LSU, "lsu"}, {p.Fold, "fold"}, {p.Cyc, "cyc"},
	} {
		if f.set {
			s += " " + f.name
		}
	}
	return s
}

// ExceptionAction is what the processor did with the exception reported
// by an exception trace packet.
type ExceptionAction uint8

const (
	ExceptionEntered  ExceptionAction = iota + 1 // exception entered
	ExceptionExited                              // exception exited
	ExceptionReturned                            // returned to the exception
)

func (a ExceptionAction) String() string {
	switch a {
	case ExceptionEntered:
		return "entered"
	case ExceptionExited:
		return "exited"
	case ExceptionReturned:
		return "returned"
	}
	return fmt.Sprintf("ExceptionAction(%d)", uint8(a))
}

// ExceptionTrace reports an exception entry, exit or return.
type ExceptionTrace struct {
	Exception cortexm.VectActive `json:"exception"`
	Action    ExceptionAction    `json:"action"`
}

func (ExceptionTrace) Kind() Kind { return KindExceptionTrace }

func (p ExceptionTrace) String() string {
	return fmt.Sprintf("exception-trace %v %v", p.Exception, p.Action)
}

// PCSample is a periodic sample of the program counter.
// A sleeping core emits samples with Sleep set and PC zero.
type PCSample struct {
	PC    uint32 `json:"pc"`
	Sleep bool   `json:"sleep,omitempty"`
}

func (PCSample) Kind() Kind { return KindPCSample }

func (p PCSample) String() string {
	if p.Sleep {
		return "pc-sample sleeping"
	}
	return fmt.Sprintf("pc-sample pc=0x%08x", p.PC)
}

// DataTracePC is the PC value for a DWT comparator match.
type DataTracePC struct {
	Comparator uint8  `json:"comparator"` // comparator, 0-3
	PC         uint32 `json:"pc"`
}

func (DataTracePC) Kind() Kind { return KindDataTracePC }

func (p DataTracePC) String() string {
	return fmt.Sprintf("data-trace-pc cmp=%d pc=0x%08x", p.Comparator, p.PC)
}

// DataTraceAddress is the address offset for a DWT comparator match.
type DataTraceAddress struct {
	Comparator uint8  `json:"comparator"` // comparator, 0-3
	Address    uint16 `json:"address"`    // bits [15:0] of the accessed address
}

func (DataTraceAddress) Kind() Kind { return KindDataTraceAddress }

func (p DataTraceAddress) String() string {
	return fmt.Sprintf("data-trace-address cmp=%d addr=0x%04x", p.Comparator, p.Address)
}

// Access is the memory access direction of a data trace value packet.
type Access uint8

const (
	AccessRead  Access = iota // read access
	AccessWrite               // write access
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	}
	return fmt.Sprintf("Access(%d)", uint8(a))
}

// DataTraceValue is the data value for a DWT comparator match.
type DataTraceValue struct {
	Comparator uint8  `json:"comparator"` // comparator, 0-3
	Access     Access `json:"access"`
	Value      uint32 `json:"value"`
	Width      int    `json:"width"` // payload width in bytes: 1, 2 or 4
}

func (DataTraceValue) Kind() Kind { return KindDataTraceValue }

func (p DataTraceValue) String() string {
	return fmt.Sprintf("data-trace-value cmp=%d %v value=0x%0*x",
		p.Comparator, p.Access, 2*p.Width, p.Value,
	)
}

// TimestampRelation describes how a local timestamp relates to the
// packets it timestamps.
type TimestampRelation uint8

const (
	// RelationSync: the timestamp is synchronous to the corresponding
	// data and event.
	RelationSync TimestampRelation = iota
	// RelationDelayedTimestamp: the timestamp packet itself was
	// delayed relative to the data it timestamps.
	RelationDelayedTimestamp
	// RelationDelayedEvent: the packet the timestamp is associated
	// with was delayed relative to the corresponding event.
	RelationDelayedEvent
	// RelationDelayedBoth: both the timestamp packet and its
	// associated packet were delayed.
	RelationDelayedBoth
)

func (r TimestampRelation) String() string {
	switch r {
	case RelationSync:
		return "sync"
	case RelationDelayedTimestamp:
		return "delayed-timestamp"
	case RelationDelayedEvent:
		return "delayed-event"
	case RelationDelayedBoth:
		return "delayed-both"
	}
	return fmt.Sprintf("TimestampRelation(%d)", uint8(r))
}

// LocalTimestamp is the delta of the local timestamp clock since the
// previous local timestamp packet.
type LocalTimestamp struct {
	Delta    uint32            `json:"delta"`
	Relation TimestampRelation `json:"relation"`
}

func (LocalTimestamp) Kind() Kind { return KindLocalTimestamp }

func (p LocalTimestamp) String() string {
	return fmt.Sprintf("local-timestamp delta=%d (%v)", p.Delta, p.Relation)
}

// GlobalTimestamp1 carries bits [25:0] of the global timestamp clock.
// Compressed packets only retransmit the bits that changed since the
// previous GlobalTimestamp1.
type GlobalTimestamp1 struct {
	TS    uint64 `json:"ts"`
	Wrap  bool   `json:"wrap"`  // bits [47:26] have changed, a GlobalTimestamp2 follows
	ClkCh bool   `json:"clkch"` // the ratio of the global timestamp clock has changed
}

func (GlobalTimestamp1) Kind() Kind { return KindGlobalTimestamp1 }

func (p GlobalTimestamp1) String() string {
	return fmt.Sprintf("global-timestamp-1 ts=%d wrap=%v clkch=%v", p.TS, p.Wrap, p.ClkCh)
}

// GlobalTimestamp2 carries bits [47:26] (48-bit format) or [63:26]
// (64-bit format) of the global timestamp clock.
type GlobalTimestamp2 struct {
	TS uint64 `json:"ts"` // upper bits, not shifted
}

func (GlobalTimestamp2) Kind() Kind { return KindGlobalTimestamp2 }

func (p GlobalTimestamp2) String() string {
	return fmt.Sprintf("global-timestamp-2 ts=%d", p.TS)
}

// Overflow reports that the trace output skipped at least one packet.
type Overflow struct{}

func (Overflow) Kind() Kind { return KindOverflow }

func (Overflow) String() string { return "overflow" }

// Sync is a synchronization frame: a run of zero bytes terminated by
// the 0x80 marker, used to recover packet alignment.
type Sync struct {
	Zeros int `json:"zeros"` // number of zero bytes observed before the marker
}

func (Sync) Kind() Kind { return KindSync }

func (p Sync) String() string { return fmt.Sprintf("sync zeros=%d", p.Zeros) }

// Extension carries extension information, such as the stimulus port
// page selection. The information bits are carried through opaquely.
type Extension struct {
	Source bool   `json:"source"` // set for hardware source extensions
	Value  uint32 `json:"value"`  // extension information bits
}

func (Extension) Kind() Kind { return KindExtension }

func (p Extension) String() string {
	return fmt.Sprintf("extension source=%v value=0x%x", p.Source, p.Value)
}

// Page returns the stimulus port page selected by an ITM extension
// packet.
func (p Extension) Page() uint8 { return uint8(p.Value & 0b111) }

// Marshal returns the JSON encoding of pkt, wrapped in an envelope
// naming the packet kind.
func Marshal(pkt Packet) ([]byte, error) {
	raw, err := json.Marshal(struct {
		Kind   string `json:"kind"`
		Packet Packet `json:"packet"`
	}{
		Kind:   pkt.Kind().String(),
		Packet: pkt,
	})
	if err != nil {
		return nil, xerrors.Errorf("itm: could not marshal %v packet: %w", pkt.Kind(), err)
	}
	return raw, nil
}
