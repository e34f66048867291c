// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

import (
	"io"

	"golang.org/x/xerrors"
)

// Stream drives a Decoder from an io.Reader, pulling more bytes
// whenever the decoder runs out.
type Stream struct {
	r   io.Reader
	dec *Decoder
	buf []byte
}

// NewStream returns a stream decoding packets from r.
func NewStream(r io.Reader) *Stream {
	return &Stream{
		r:   r,
		dec: NewDecoder(nil),
		buf: make([]byte, 1024),
	}
}

// Next returns the next packet from the stream.
//
// At the end of the stream Next returns io.EOF; decode failures are
// returned as is, with the stream positioned at the offending byte so
// the caller can Skip or Resync before the next call.
func (s *Stream) Next() (Packet, error) {
	for {
		pkt, err := s.dec.Decode()
		switch {
		case err == nil:
			return pkt, nil
		case xerrors.Is(err, ErrNeedMoreData):
			if err := s.fill(); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}
}

// Skip discards up to n bytes of buffered input and returns the number
// of bytes discarded.
func (s *Stream) Skip(n int) int { return s.dec.Skip(n) }

// Resync discards bytes until the start of a valid synchronization
// packet, pulling more input as needed. It returns the number of bytes
// discarded; io.EOF means the stream ended without a sync frame.
func (s *Stream) Resync() (int, error) {
	dropped := 0
	for {
		n, err := s.dec.Resync()
		dropped += n
		if !xerrors.Is(err, ErrNeedMoreData) {
			return dropped, err
		}
		if err := s.fill(); err != nil {
			return dropped, err
		}
	}
}

// fill reads one chunk from the underlying reader into the decoder.
func (s *Stream) fill() error {
	n, err := s.r.Read(s.buf)
	if n > 0 {
		if _, werr := s.dec.Write(s.buf[:n]); werr != nil {
			return werr
		}
		return nil
	}
	switch {
	case err == nil:
		return nil
	case xerrors.Is(err, io.EOF):
		_ = s.dec.Close()
		return nil
	}
	return xerrors.Errorf("itm: could not read trace stream: %w", err)
}
