// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

import (
	"io"

	"golang.org/x/xerrors"
)

// Encoder writes trace packets to an output stream, producing the
// canonical (shortest) byte encoding of each packet.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
	}
}

// Encode writes the byte encoding of pkt to the stream.
func (enc *Encoder) Encode(pkt Packet) error {
	if pkt == nil {
		return nil
	}

	switch p := pkt.(type) {
	case Instrumentation:
		if p.Port > 31 {
			return xerrors.Errorf("itm: invalid stimulus port %d", p.Port)
		}
		enc.writeU8(p.Port<<3 | sizeCode(p.Width))
		enc.writeULE(p.Value, p.Width)

	case EventCounterWrap:
		enc.writeU8(0<<3 | 0b100 | 0b01)
		var v uint8
		for i, set := range []bool{p.CPI, p.Exc, p.Sleep, p.LSU, p.Fold, p.Cyc} {
			if set {
				v |= 1 << i
			}
		}
		enc.writeU8(v)

	case ExceptionTrace:
		num := p.Exception.Number()
		enc.writeU8(1<<3 | 0b100 | 0b10)
		enc.writeU8(uint8(num))
		enc.writeU8(uint8(num>>8)&0b1 | uint8(p.Action)<<4)

	case PCSample:
		if p.Sleep {
			enc.writeU8(2<<3 | 0b100 | 0b01)
			enc.writeU8(0)
			break
		}
		enc.writeU8(2<<3 | 0b100 | 0b11)
		enc.writeULE(p.PC, 4)

	case DataTracePC:
		enc.writeU8((0b01000|p.Comparator<<1)<<3 | 0b100 | 0b11)
		enc.writeULE(p.PC, 4)

	case DataTraceAddress:
		enc.writeU8((0b01001|p.Comparator<<1)<<3 | 0b100 | 0b10)
		enc.writeULE(uint32(p.Address), 2)

	case DataTraceValue:
		enc.writeU8((0b10000|p.Comparator<<1|uint8(p.Access))<<3 | 0b100 | sizeCode(p.Width))
		enc.writeULE(p.Value, p.Width)

	case LocalTimestamp:
		switch {
		case p.Relation == RelationSync && 0 < p.Delta && p.Delta < 7:
			enc.writeU8(uint8(p.Delta) << 4)
		case p.Delta < 1<<(7*maxLTSPayload):
			enc.writeU8(0xc0 | uint8(p.Relation)<<4)
			enc.varint(uint64(p.Delta))
		default:
			return xerrors.Errorf("itm: local timestamp delta %d out of range", p.Delta)
		}

	case GlobalTimestamp1:
		if p.TS >= 1<<26 {
			return xerrors.Errorf("itm: global timestamp lower bits %d out of range", p.TS)
		}
		enc.writeU8(gts1Header)
		enc.writeU8(0x80 | uint8(p.TS&0x7f))
		enc.writeU8(0x80 | uint8(p.TS>>7&0x7f))
		enc.writeU8(0x80 | uint8(p.TS>>14&0x7f))
		last := uint8(p.TS >> 21 & 0x1f)
		if p.ClkCh {
			last |= 0x20
		}
		if p.Wrap {
			last |= 0x40
		}
		enc.writeU8(last)

	case GlobalTimestamp2:
		if p.TS >= 1<<(7*maxGTS2Payload) {
			return xerrors.Errorf("itm: global timestamp upper bits %d out of range", p.TS)
		}
		enc.writeU8(gts2Header)
		enc.varint(p.TS)

	case Overflow:
		enc.writeU8(overflowHeader)

	case Sync:
		n := p.Zeros
		if n < syncMinZeros {
			n = syncMinZeros
		}
		for i := 0; i < n; i++ {
			enc.writeU8(0x00)
		}
		enc.writeU8(syncMarker)

	case Extension:
		hdr := uint8(p.Value&0b111)<<4 | 0b1000
		if p.Source {
			hdr |= 0b100
		}
		if more := uint64(p.Value >> 3); more != 0 {
			enc.writeU8(hdr | 0x80)
			enc.varint(more)
		} else {
			enc.writeU8(hdr)
		}

	default:
		return xerrors.Errorf("itm: cannot encode %v packet", pkt.Kind())
	}

	if enc.err != nil {
		return xerrors.Errorf("itm: could not encode %v packet: %w", pkt.Kind(), enc.err)
	}
	return nil
}

func sizeCode(width int) uint8 {
	switch width {
	case 2:
		return 0b10
	case 4:
		return 0b11
	}
	return 0b01
}

// varint writes v as a base-128 continuation run, LSB-first, at least
// one byte.
func (enc *Encoder) varint(v uint64) {
	for {
		b := uint8(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		enc.writeU8(b)
		if v == 0 {
			return
		}
	}
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

func (enc *Encoder) writeU8(v uint8) {
	const n = 1
	enc.buf[0] = v
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeULE(v uint32, n int) {
	for i := 0; i < n; i++ {
		enc.buf[i] = byte(v >> (8 * i))
	}
	enc.write(enc.buf[:n])
}
