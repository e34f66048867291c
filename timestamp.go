// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

import (
	"io"
	"math"
	"math/bits"
	"time"

	"github.com/rtic-scope/itm/cortexm"
	"golang.org/x/xerrors"
)

// gts2Shift is the position of the GlobalTimestamp2 bits within the
// full global timestamp value.
const gts2Shift = 26

// Quality grades a timestamp, in order of decreasing quality.
type Quality uint8

const (
	// QualitySync: the timestamp is synchronous to the data and event.
	QualitySync Quality = iota
	// QualityUnknownDelay: the exact instant is unknown, but lies
	// between the previous and current timestamp.
	QualityUnknownDelay
	// QualityAssocEventDelay: the packet was generated on time but
	// delayed relative to its event by other trace output.
	QualityAssocEventDelay
	// QualityUnknownAssocEventDelay: both of the above; the event
	// occurred some time between the previous and current timestamp.
	QualityUnknownAssocEventDelay
)

func (q Quality) String() string {
	switch q {
	case QualitySync:
		return "sync"
	case QualityUnknownDelay:
		return "unknown-delay"
	case QualityAssocEventDelay:
		return "assoc-event-delay"
	case QualityUnknownAssocEventDelay:
		return "unknown-assoc-event-delay"
	}
	return "unknown"
}

// Timestamp locates a group of packets on the trace clock, relative to
// trace start.
//
// A decrease in timestamp quality indicates an insufficient
// exfiltration rate of trace packets and may herald an overflow.
type Timestamp struct {
	Quality Quality       `json:"quality"`
	Curr    time.Duration `json:"curr"`
	Prev    time.Duration `json:"prev,omitempty"` // only set for the unknown-delay qualities
}

// TimestampedPackets is a group of packets generated during the same
// local timestamp window.
type TimestampedPackets struct {
	Timestamp Timestamp `json:"timestamp"`
	Packets   []Packet  `json:"packets"`
	Malformed []error   `json:"-"`
	Consumed  int       `json:"consumed"` // packets consumed to build this group
}

// TimestampsConfig configures a Timestamps iterator.
type TimestampsConfig struct {
	// ClockFrequency is the frequency of the ITM timestamp clock, in
	// Hz. Required to turn timestamp packets into durations.
	ClockFrequency uint32

	// Prescaler is the local timestamp prescaler configured on the
	// target.
	Prescaler cortexm.Prescaler

	// ExpectMalformed collects malformed packets into
	// TimestampedPackets.Malformed (skipping one byte after each)
	// instead of failing the iteration.
	ExpectMalformed bool
}

// Timestamps groups the packets of a stream per local timestamp and
// tracks absolute time across local and global timestamp packets.
type Timestamps struct {
	s   *Stream
	cfg TimestampsConfig

	offset  time.Duration // current offset on the trace clock
	prevLTS time.Duration // offset at the previous local timestamp
	gts     gts
}

// NewTimestamps returns a timestamping iterator over the packets of r.
func NewTimestamps(r io.Reader, cfg TimestampsConfig) (*Timestamps, error) {
	if cfg.ClockFrequency == 0 {
		return nil, xerrors.Errorf("itm: timestamp clock frequency not set")
	}
	return &Timestamps{s: NewStream(r), cfg: cfg}, nil
}

// Next returns the next group of timestamped packets: all packets up
// to and including the next local timestamp. io.EOF signals the clean
// end of the stream.
func (ts *Timestamps) Next() (*TimestampedPackets, error) {
	grp := TimestampedPackets{}
	for {
		grp.Consumed++
		pkt, err := ts.s.Next()
		if err != nil {
			if ts.cfg.ExpectMalformed && malformed(err) {
				grp.Malformed = append(grp.Malformed, err)
				ts.s.Skip(1)
				continue
			}
			return nil, err
		}

		switch p := pkt.(type) {
		case LocalTimestamp:
			// Packets received up to this point relate to this local
			// timestamp. Return them as a group.
			grp.Timestamp = ts.applyLTS(uint64(p.Delta), p.Relation)
			return &grp, nil

		case GlobalTimestamp1:
			ts.gts.replaceLower(p.TS)
			switch {
			case p.Wrap:
				// upper bits have changed; a GlobalTimestamp2 follows
				ts.gts.upper = nil
			case p.ClkCh:
				// the clock ratio changed; a full timestamp follows
				ts.gts.reset()
			default:
				ts.applyGTS()
			}

		case GlobalTimestamp2:
			v := p.TS
			ts.gts.upper = &v
			ts.applyGTS()

		default:
			grp.Packets = append(grp.Packets, pkt)
		}
	}
}

func (ts *Timestamps) applyLTS(delta uint64, rel TimestampRelation) Timestamp {
	ts.offset += calcOffset(delta, ts.cfg.Prescaler.Div(), ts.cfg.ClockFrequency)

	var t Timestamp
	switch rel {
	case RelationSync:
		t = Timestamp{Quality: QualitySync, Curr: ts.offset}
	case RelationDelayedTimestamp:
		t = Timestamp{Quality: QualityUnknownDelay, Prev: ts.prevLTS, Curr: ts.offset}
	case RelationDelayedEvent:
		t = Timestamp{Quality: QualityAssocEventDelay, Curr: ts.offset}
	case RelationDelayedBoth:
		t = Timestamp{Quality: QualityUnknownAssocEventDelay, Prev: ts.prevLTS, Curr: ts.offset}
	}
	ts.prevLTS = ts.offset
	return t
}

func (ts *Timestamps) applyGTS() {
	if full, ok := ts.gts.merge(); ok {
		ts.offset = calcOffset(full, 1, ts.cfg.ClockFrequency)
	}
}

// gts accumulates the two halves of the global timestamp clock.
type gts struct {
	lower *uint64
	upper *uint64
}

// replaceLower folds a (possibly compressed) GlobalTimestamp1 value
// into the lower bits: only the bits the packet retransmitted are
// replaced.
func (g *gts) replaceLower(next uint64) {
	if g.lower == nil {
		g.lower = &next
		return
	}
	shift := uint(bits.Len64(next))
	v := (*g.lower>>shift)<<shift | next
	g.lower = &v
}

func (g *gts) reset() {
	g.lower = nil
	g.upper = nil
}

func (g *gts) merge() (uint64, bool) {
	if g.lower == nil || g.upper == nil {
		return 0, false
	}
	return *g.upper<<gts2Shift | *g.lower, true
}

// calcOffset converts timestamp clock ticks into a duration, rounding
// up so events are never reported before they occur on hardware.
func calcOffset(ticks uint64, prescale int, freq uint32) time.Duration {
	seconds := float64(ticks*uint64(prescale)) / float64(freq)
	return time.Duration(math.Ceil(seconds * 1e9))
}

// malformed reports whether err is a recoverable decode failure, as
// opposed to an I/O or end-of-stream condition.
func malformed(err error) bool {
	var (
		reserved  *ReservedEncodingError
		sync      *MalformedSyncError
		timestamp *MalformedTimestampError
	)
	return xerrors.As(err, &reserved) ||
		xerrors.As(err, &sync) ||
		xerrors.As(err, &timestamp)
}
