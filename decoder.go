// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

import (
	"io"

	"github.com/rtic-scope/itm/cortexm"
	"golang.org/x/xerrors"
)

const (
	syncMarker     = 0x80 // terminates a synchronization zero run
	syncMinZeros   = 5    // minimum zero bytes before the marker (47 zero bits)
	overflowHeader = 0x70 // overflow packet header

	gts1Header = 0x94 // global timestamp, lower bits
	gts2Header = 0xb4 // global timestamp, upper bits

	maxLTSPayload  = 4 // local timestamp continuation, payload bytes
	maxGTS1Payload = 4 // 26 ts bits + wrap + clkch
	maxGTS2Payload = 6 // 64-bit format, bits [63:26]
	maxExtPayload  = 4 // extension continuation, payload bytes
)

// Decoder splits a raw ITM/DWT byte stream into trace packets.
//
// Bytes are fed incrementally with Write; Decode extracts one packet
// at a time. The cursor only advances on a successful decode: on
// ErrNeedMoreData the caller can Write more bytes and retry the same
// call, and after a decode failure the caller chooses the recovery
// policy, typically Skip(1) or Resync.
//
// A Decoder instance is owned by a single logical sequence of calls;
// independent Decoders over independent streams may run in parallel.
type Decoder struct {
	cur    cursor
	closed bool
}

// NewDecoder creates a decoder over the given initial bytes, if any.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{cur: cursor{buf: buf}}
}

// Write appends bytes to the decoder's buffer.
// Write implements io.Writer; it fails only on a closed decoder.
func (dec *Decoder) Write(p []byte) (int, error) {
	if dec.closed {
		return 0, xerrors.Errorf("itm: decoder is closed")
	}
	dec.cur.compact()
	dec.cur.buf = append(dec.cur.buf, p...)
	return len(p), nil
}

// Close signals that no more bytes will ever be written. A packet
// still incomplete at close is reported by Decode as a
// TruncatedPayloadError instead of ErrNeedMoreData.
func (dec *Decoder) Close() error {
	dec.closed = true
	return nil
}

// Buffered returns the number of unconsumed bytes.
func (dec *Decoder) Buffered() int { return dec.cur.rest() }

// Reset discards all buffered bytes and decode context, for use after
// unrecoverable desynchronization. The decoder is reopened for writes.
func (dec *Decoder) Reset() {
	dec.cur = cursor{buf: dec.cur.buf[:0]}
	dec.closed = false
}

// Skip discards up to n bytes from the current position and returns
// the number of bytes discarded.
func (dec *Decoder) Skip(n int) int { return dec.cur.skip(n) }

// Decode extracts exactly one packet.
//
// On success the consumed bytes are exactly those the packet header
// declared. Otherwise the cursor is left at the packet start and the
// error is one of:
//   - ErrNeedMoreData: buffer ends mid-packet, feed more and retry;
//   - io.EOF: decoder closed and no bytes left;
//   - *TruncatedPayloadError: decoder closed mid-packet;
//   - *ReservedEncodingError, *MalformedSyncError,
//     *MalformedTimestampError: invalid input, recovery is the
//     caller's policy.
func (dec *Decoder) Decode() (Packet, error) {
	mark := dec.cur.mark()
	pkt, err := dec.decode()
	if err == nil {
		return pkt, nil
	}
	dec.cur.rewind(mark)
	if xerrors.Is(err, ErrNeedMoreData) && dec.closed {
		if dec.cur.rest() == 0 {
			return nil, io.EOF
		}
		hdr, _ := dec.cur.peekByte()
		return nil, &TruncatedPayloadError{Header: hdr, Have: dec.cur.rest() - 1}
	}
	return nil, err
}

// DecodeAll repeatedly decodes packets, invoking f with each packet or
// decode failure, until the buffered bytes are exhausted or f returns
// false. Trailing bytes that only form a partial packet are left in
// place so a later Write can complete them; after a decode failure the
// offending byte is skipped before the next attempt.
func (dec *Decoder) DecodeAll(f func(pkt Packet, err error) bool) {
	for {
		pkt, err := dec.Decode()
		switch {
		case err == nil:
			if !f(pkt, nil) {
				return
			}
		case xerrors.Is(err, ErrNeedMoreData) || xerrors.Is(err, io.EOF):
			return
		default:
			if !f(nil, err) {
				return
			}
			if _, ok := err.(*TruncatedPayloadError); ok {
				return
			}
			dec.Skip(1)
		}
	}
}

// Resync discards bytes from the current position until the start of a
// valid synchronization packet. It returns the number of bytes
// discarded; the synchronization packet itself is left for the next
// Decode. If the buffered bytes are exhausted without a complete sync
// frame, Resync reports ErrNeedMoreData (io.EOF on a closed decoder)
// and keeps the trailing candidate run so decoding can resume there.
func (dec *Decoder) Resync() (int, error) {
	dropped := 0
	for {
		mark := dec.cur.mark()
		hdr, ok := dec.cur.readByte()
		if !ok {
			if dec.closed {
				return dropped, io.EOF
			}
			return dropped, ErrNeedMoreData
		}
		if hdr == 0x00 {
			_, err := dec.sync()
			dec.cur.rewind(mark)
			switch {
			case err == nil:
				return dropped, nil
			case xerrors.Is(err, ErrNeedMoreData):
				if dec.closed {
					return dropped, io.EOF
				}
				return dropped, ErrNeedMoreData
			}
		} else {
			dec.cur.rewind(mark)
		}
		dec.cur.skip(1)
		dropped++
	}
}

func (dec *Decoder) decode() (Packet, error) {
	hdr, ok := dec.cur.readByte()
	if !ok {
		return nil, ErrNeedMoreData
	}
	switch {
	case hdr == 0x00:
		return dec.sync()
	case hdr == overflowHeader:
		return Overflow{}, nil
	case hdr&0b11 == 0:
		return dec.protocol(hdr)
	default:
		return dec.source(hdr)
	}
}

// sync recognizes the synchronization frame. The first zero byte has
// already been consumed.
func (dec *Decoder) sync() (Packet, error) {
	zeros := 1
	for {
		v, ok := dec.cur.readByte()
		if !ok {
			return nil, ErrNeedMoreData
		}
		switch {
		case v == 0x00:
			zeros++
		case v == syncMarker && zeros >= syncMinZeros:
			return Sync{Zeros: zeros}, nil
		default:
			return nil, &MalformedSyncError{Zeros: zeros, Last: v}
		}
	}
}

// protocol decodes the timestamp/extension packet family (size code
// 0b00, neither sync nor overflow).
func (dec *Decoder) protocol(hdr byte) (Packet, error) {
	switch {
	case hdr&0x8f == 0x00:
		// Single-byte local timestamp; delta 0b000 is the sync header
		// and 0b111 the overflow header, both handled before.
		return LocalTimestamp{Delta: uint32(hdr >> 4 & 0b111)}, nil

	case hdr&0xcf == 0xc0:
		delta, err := dec.varint(hdr, maxLTSPayload)
		if err != nil {
			return nil, err
		}
		return LocalTimestamp{
			Delta:    uint32(delta),
			Relation: TimestampRelation(hdr >> 4 & 0b11),
		}, nil

	case hdr == gts1Header:
		return dec.gts1(hdr)

	case hdr == gts2Header:
		ts, err := dec.varint(hdr, maxGTS2Payload)
		if err != nil {
			return nil, err
		}
		return GlobalTimestamp2{TS: ts}, nil

	case hdr&0x0b == 0x08:
		pkt := Extension{
			Source: hdr&0b100 != 0,
			Value:  uint32(hdr >> 4 & 0b111),
		}
		if hdr&0x80 != 0 {
			more, err := dec.varint(hdr, maxExtPayload)
			if err != nil {
				return nil, err
			}
			pkt.Value |= uint32(more) << 3
		}
		return pkt, nil
	}
	return nil, &ReservedEncodingError{Header: hdr}
}

// gts1 decodes the lower-bits global timestamp. The final payload byte
// of the full form carries the clkch and wrap flags above ts[25:21].
func (dec *Decoder) gts1(hdr byte) (Packet, error) {
	pkt := GlobalTimestamp1{}
	for i := 0; ; i++ {
		if i == maxGTS1Payload {
			return nil, &MalformedTimestampError{Header: hdr, Max: maxGTS1Payload}
		}
		v, ok := dec.cur.readByte()
		if !ok {
			return nil, ErrNeedMoreData
		}
		if i < 3 {
			pkt.TS |= uint64(v&0x7f) << (7 * i)
		} else {
			pkt.TS |= uint64(v&0x1f) << 21
			pkt.ClkCh = v&0x20 != 0
			pkt.Wrap = v&0x40 != 0
		}
		if v&0x80 == 0 {
			return pkt, nil
		}
	}
}

// varint consumes a base-128 continuation payload of at most max
// bytes, LSB-first.
func (dec *Decoder) varint(hdr byte, max int) (uint64, error) {
	var v uint64
	for i := 0; ; i++ {
		if i == max {
			return 0, &MalformedTimestampError{Header: hdr, Max: max}
		}
		b, ok := dec.cur.readByte()
		if !ok {
			return 0, ErrNeedMoreData
		}
		v |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

// source decodes instrumentation and hardware source packets (nonzero
// size code).
func (dec *Decoder) source(hdr byte) (Packet, error) {
	var (
		size = 1 << (hdr&0b11 - 1) // size code 0b01, 0b10, 0b11 -> 1, 2, 4 bytes
		addr = hdr >> 3
	)
	payload, ok := dec.cur.readBytes(size)
	if !ok {
		return nil, ErrNeedMoreData
	}
	var value uint32
	for i, b := range payload {
		value |= uint32(b) << (8 * i)
	}
	if hdr&0b100 == 0 {
		return Instrumentation{Port: addr, Value: value, Width: size}, nil
	}
	return dec.hardware(hdr, addr, size, value, payload)
}

// hardware sub-decodes a hardware source packet from its 5-bit
// discriminant.
func (dec *Decoder) hardware(hdr byte, disc uint8, size int, value uint32, payload []byte) (Packet, error) {
	reserved := func() (Packet, error) {
		return nil, &ReservedEncodingError{Header: hdr, Disc: disc, Size: size}
	}

	switch {
	case disc == 0:
		if size != 1 {
			return reserved()
		}
		return EventCounterWrap{
			CPI:   value&(1<<0) != 0,
			Exc:   value&(1<<1) != 0,
			Sleep: value&(1<<2) != 0,
			LSU:   value&(1<<3) != 0,
			Fold:  value&(1<<4) != 0,
			Cyc:   value&(1<<5) != 0,
		}, nil

	case disc == 1:
		if size != 2 {
			return reserved()
		}
		var (
			num    = uint16(payload[0]) | uint16(payload[1]&0b1)<<8
			action = payload[1] >> 4 & 0b11
		)
		vect, ok := cortexm.VectActiveFrom(num)
		if !ok || action == 0 {
			return reserved()
		}
		return ExceptionTrace{
			Exception: vect,
			Action:    ExceptionAction(action),
		}, nil

	case disc == 2:
		switch {
		case size == 4:
			return PCSample{PC: value}, nil
		case size == 1 && value == 0:
			return PCSample{Sleep: true}, nil
		}
		return reserved()

	case 8 <= disc && disc <= 15:
		cmp := disc >> 1 & 0b11
		if disc&0b1 == 0 {
			if size != 4 {
				return reserved()
			}
			return DataTracePC{Comparator: cmp, PC: value}, nil
		}
		if size != 2 {
			return reserved()
		}
		return DataTraceAddress{Comparator: cmp, Address: uint16(value)}, nil

	case 16 <= disc && disc <= 23:
		return DataTraceValue{
			Comparator: disc >> 1 & 0b11,
			Access:     Access(disc & 0b1),
			Value:      value,
			Width:      size,
		}, nil
	}
	return reserved()
}
