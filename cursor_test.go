// Copyright 2026 The rtic-scope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itm

import (
	"bytes"
	"testing"
)

func TestCursorBytes(t *testing.T) {
	c := cursor{buf: []byte{0x01, 0x02, 0x03, 0x04}}

	if got, want := c.rest(), 4; got != want {
		t.Fatalf("invalid rest: got=%d, want=%d", got, want)
	}

	v, ok := c.peekByte()
	if !ok || v != 0x01 {
		t.Fatalf("invalid peek: got=(0x%02x, %v)", v, ok)
	}
	if got, want := c.rest(), 4; got != want {
		t.Fatalf("peek moved the cursor: rest=%d, want=%d", got, want)
	}

	v, ok = c.readByte()
	if !ok || v != 0x01 {
		t.Fatalf("invalid read: got=(0x%02x, %v)", v, ok)
	}

	p, ok := c.readBytes(2)
	if !ok || !bytes.Equal(p, []byte{0x02, 0x03}) {
		t.Fatalf("invalid read: got=(%q, %v)", p, ok)
	}

	if _, ok := c.readBytes(2); ok {
		t.Fatalf("read past the end of the buffer")
	}
	if got, want := c.rest(), 1; got != want {
		t.Fatalf("failed read moved the cursor: rest=%d, want=%d", got, want)
	}
}

func TestCursorBits(t *testing.T) {
	c := cursor{buf: []byte{0b1010_0101, 0b0000_1111}}

	v, ok := c.readBits(4)
	if !ok || v != 0b0101 {
		t.Fatalf("invalid bits: got=(0b%04b, %v)", v, ok)
	}
	v, ok = c.readBits(8)
	if !ok || v != 0b1111_1010 {
		t.Fatalf("invalid bits: got=(0b%08b, %v)", v, ok)
	}
	if _, ok := c.readBits(8); ok {
		t.Fatalf("read past the end of the buffer")
	}
	v, ok = c.readBits(4)
	if !ok || v != 0b0000 {
		t.Fatalf("invalid bits: got=(0b%04b, %v)", v, ok)
	}
}

func TestCursorRewind(t *testing.T) {
	c := cursor{buf: []byte{0x01, 0x02, 0x03}}

	mark := c.mark()
	c.readByte()
	c.readByte()
	c.rewind(mark)

	v, ok := c.readByte()
	if !ok || v != 0x01 {
		t.Fatalf("invalid read after rewind: got=(0x%02x, %v)", v, ok)
	}
}

func TestCursorSkipCompact(t *testing.T) {
	c := cursor{buf: []byte{0x01, 0x02, 0x03, 0x04}}

	if got, want := c.skip(2), 2; got != want {
		t.Fatalf("invalid skip: got=%d, want=%d", got, want)
	}
	c.compact()
	if got, want := c.rest(), 2; got != want {
		t.Fatalf("invalid rest after compact: got=%d, want=%d", got, want)
	}
	v, ok := c.readByte()
	if !ok || v != 0x03 {
		t.Fatalf("invalid read after compact: got=(0x%02x, %v)", v, ok)
	}

	if got, want := c.skip(10), 1; got != want {
		t.Fatalf("invalid clamped skip: got=%d, want=%d", got, want)
	}
	if got, want := c.rest(), 0; got != want {
		t.Fatalf("invalid rest: got=%d, want=%d", got, want)
	}
}
