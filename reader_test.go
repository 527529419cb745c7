// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// streamBuilder assembles a synthetic NRBF byte stream (no envelope) for
// tests, mirroring just enough of the wire format to drive the decoder
// without a real Paint.NET file on disk.
type streamBuilder struct {
	buf bytes.Buffer
}

func (s *streamBuilder) u8(v uint8) { s.buf.WriteByte(v) }

func (s *streamBuilder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.buf.Write(b[:])
}
func (s *streamBuilder) i32(v int32) { s.u32(uint32(v)) }

func (s *streamBuilder) str(v string) {
	s.u8(uint8(len(v))) // varint fits in one byte for every string used here
	s.buf.WriteString(v)
}

func (s *streamBuilder) bytes() []byte { return s.buf.Bytes() }

// plainEnvelope wraps an NRBF payload in a headerless envelope: just the
// plain inner flag, with no PDN3 header.
func plainEnvelope(nrbf []byte) []byte {
	var out bytes.Buffer
	out.Write(plainInnerFlag[:])
	out.Write(nrbf)
	return out.Bytes()
}

// minimalDocument builds a SerializationHeader + one Document class record
// (width/height only, no layers) + MessageEnd.
func minimalDocument(width, height int32) []byte {
	var s streamBuilder

	s.u8(recordSerializationHeader)
	s.u32(1) // root id
	s.u32(0) // header id
	s.u32(1) // major version
	s.u32(0) // minor version

	s.u8(recordBinaryLibrary)
	s.u32(1)
	s.str("PaintDotNet")

	s.u8(recordClassWithMembersAndTypes)
	s.i32(1)
	s.str(classDocument)
	s.u32(2)
	s.str("width")
	s.str("height")
	s.u8(memberTypePrimitive)
	s.u8(memberTypePrimitive)
	s.u8(primitiveI32)
	s.u8(primitiveI32)
	s.i32(1) // library id
	s.i32(width)
	s.i32(height)

	s.u8(recordMessageEnd)

	return s.bytes()
}

func TestOpenBytesMinimalDocument(t *testing.T) {
	data := plainEnvelope(minimalDocument(800, 600))

	doc, err := OpenBytes(data, nil)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if doc.Width != 800 || doc.Height != 600 {
		t.Fatalf("got %dx%d, want 800x600", doc.Width, doc.Height)
	}
	if len(doc.Layers) != 0 {
		t.Fatalf("expected no layers, got %d", len(doc.Layers))
	}
}

func TestOpenBytesBadEnvelope(t *testing.T) {
	_, err := OpenBytes([]byte{0xff, 0xff, 0xff, 0xff}, nil)
	if err == nil {
		t.Fatal("expected an error for garbage input")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if !errors.Is(err, ErrBadEnvelope) {
		t.Fatalf("expected ErrBadEnvelope, got %v", perr.Kind)
	}
}

func TestOpenBytesTruncated(t *testing.T) {
	full := plainEnvelope(minimalDocument(1, 1))
	_, err := OpenBytes(full[:len(full)-3], nil)
	if err == nil {
		t.Fatal("expected an error for truncated input")
	}
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestRegisterEnforcesObjectTableCap(t *testing.T) {
	d := newTestDecoder(nil)
	d.maxObjects = 1

	if err := d.register(1, &stringNode{id: 1, value: "a"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := d.register(2, &stringNode{id: 2, value: "b"})
	if !errors.Is(err, ErrObjectTableTooLarge) {
		t.Fatalf("second register err = %v, want ErrObjectTableTooLarge", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("testdata/does-not-exist.pdn", nil)
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
