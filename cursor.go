// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

// cursor is a read-only view over a byte buffer with bit- and
// byte-level extraction. A failed read reports ok=false and leaves the
// position unchanged; the cursor knows nothing about packet semantics.
//
// Bits are addressed LSB-first within each byte, matching the
// little-endian bit order of the ITM/DWT protocol.
type cursor struct {
	buf []byte
	pos int // bit offset from the start of buf
}

// mark returns a checkpoint of the current position.
func (c *cursor) mark() int { return c.pos }

// rewind restores a position previously returned by mark, so a
// multi-read extraction can be abandoned atomically.
func (c *cursor) rewind(mark int) { c.pos = mark }

// rest returns the number of whole bytes left past the current
// position.
func (c *cursor) rest() int { return len(c.buf) - (c.pos+7)/8 }

func (c *cursor) peekByte() (byte, bool) {
	if c.pos%8 != 0 || c.pos/8 >= len(c.buf) {
		return 0, false
	}
	return c.buf[c.pos/8], true
}

func (c *cursor) readByte() (byte, bool) {
	v, ok := c.peekByte()
	if ok {
		c.pos += 8
	}
	return v, ok
}

// readBytes returns n bytes from the current position without copying
// the underlying buffer.
func (c *cursor) readBytes(n int) ([]byte, bool) {
	if c.pos%8 != 0 || c.pos/8+n > len(c.buf) {
		return nil, false
	}
	p := c.buf[c.pos/8 : c.pos/8+n]
	c.pos += 8 * n
	return p, true
}

// readBits extracts n bits (n <= 64) from the current position,
// LSB-first.
func (c *cursor) readBits(n int) (uint64, bool) {
	if c.pos+n > 8*len(c.buf) {
		return 0, false
	}
	var v uint64
	for i := 0; i < n; i++ {
		bit := c.buf[c.pos/8] >> (c.pos % 8) & 1
		v |= uint64(bit) << i
		c.pos++
	}
	return v, true
}

// skip advances the position by up to n bytes and returns the number
// of bytes actually skipped.
func (c *cursor) skip(n int) int {
	if rest := c.rest(); n > rest {
		n = rest
	}
	c.pos += 8 * n
	return n
}

// compact drops the consumed prefix of the buffer. Only whole consumed
// bytes are dropped; a mid-byte position is kept as is.
func (c *cursor) compact() {
	n := c.pos / 8
	if n == 0 {
		return
	}
	c.buf = c.buf[:copy(c.buf, c.buf[n:])]
	c.pos -= 8 * n
}
