// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrNeedMoreData signals that the buffered bytes end in the middle of
// a packet. It is not a decode failure: the caller should feed more
// bytes to the decoder and retry from the same, unmoved position.
var ErrNeedMoreData = xerrors.New("itm: need more data")

// ReservedEncodingError reports a header or discriminant combination
// that the architecture does not allocate.
type ReservedEncodingError struct {
	Header byte  // header byte of the offending packet
	Disc   uint8 // hardware source discriminant, if the header selects one
	Size   int   // declared payload size in bytes
}

func (e *ReservedEncodingError) Error() string {
	if e.Header&0b100 != 0 && e.Header&0b11 != 0 {
		return fmt.Sprintf(
			"itm: reserved encoding (header=0x%02x, disc=%d, size=%d)",
			e.Header, e.Disc, e.Size,
		)
	}
	return fmt.Sprintf("itm: reserved encoding (header=0x%02x)", e.Header)
}

// MalformedSyncError reports a zero-byte run that did not satisfy the
// minimum-length-then-marker synchronization rule.
type MalformedSyncError struct {
	Zeros int  // zero bytes observed
	Last  byte // byte that terminated the run
}

func (e *MalformedSyncError) Error() string {
	return fmt.Sprintf(
		"itm: malformed synchronization (%d zero bytes, then 0x%02x)",
		e.Zeros, e.Last,
	)
}

// MalformedTimestampError reports a timestamp continuation run that
// exceeds the maximum payload length the architecture allows.
type MalformedTimestampError struct {
	Header byte // header byte of the offending packet
	Max    int  // architected maximum payload length in bytes
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf(
		"itm: malformed timestamp continuation (header=0x%02x, more than %d payload bytes)",
		e.Header, e.Max,
	)
}

// TruncatedPayloadError reports a packet whose header declared more
// payload bytes than the stream could ever supply: the decoder was
// closed with the packet still incomplete.
type TruncatedPayloadError struct {
	Header byte // header byte of the truncated packet
	Have   int  // bytes available past the header
}

func (e *TruncatedPayloadError) Error() string {
	return fmt.Sprintf(
		"itm: truncated payload (header=0x%02x, %d byte(s) left)",
		e.Header, e.Have,
	)
}
