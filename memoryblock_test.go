// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
)

type chunkBuilder struct {
	buf bytes.Buffer
}

func (c *chunkBuilder) u8(v uint8) { c.buf.WriteByte(v) }

func (c *chunkBuilder) beU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	c.buf.Write(b[:])
}

func (c *chunkBuilder) chunk(number, dataSize uint32, payload string) {
	c.beU32(number)
	c.beU32(dataSize)
	c.buf.WriteString(payload)
}

func lengthNode(length uint64) *classNode {
	return &classNode{
		name: classMemoryBlock,
		values: map[string]nrbfValue{
			"length64": {kind: valuePrimitive, primitive: length},
		},
	}
}

// TestChunkedSurfaceReassembly covers spec scenario 8.4.5: out-of-order,
// uncompressed chunks reassemble into the concatenated payload.
func TestChunkedSurfaceReassembly(t *testing.T) {
	var c chunkBuilder
	c.u8(memoryBlockPlain)
	c.beU32(4) // chunk size

	c.chunk(2, 1, "9")
	c.chunk(0, 4, "1234")
	c.chunk(1, 4, "5678")

	n := lengthNode(9)
	d := newTestDecoder(nil)
	d.bs = newByteStream(bytes.NewReader(c.buf.Bytes()))

	if err := d.decodeMemoryBlock(n); err != nil {
		t.Fatalf("decodeMemoryBlock: %v", err)
	}
	got := n.values["data"]
	if got.kind != valueBytes {
		t.Fatalf("data kind = %v, want valueBytes", got.kind)
	}
	if string(got.bytes) != "123456789" {
		t.Fatalf("data = %q, want %q", got.bytes, "123456789")
	}
}

// TestDuplicateChunkRejected covers spec scenario 8.4.6.
func TestDuplicateChunkRejected(t *testing.T) {
	var c chunkBuilder
	c.u8(memoryBlockPlain)
	c.beU32(4)
	c.chunk(0, 4, "aaaa")
	c.chunk(0, 4, "bbbb")

	n := lengthNode(8)
	d := newTestDecoder(nil)
	d.bs = newByteStream(bytes.NewReader(c.buf.Bytes()))

	err := d.decodeMemoryBlock(n)
	if !errors.Is(err, ErrBadMemoryBlock) {
		t.Fatalf("decodeMemoryBlock err = %v, want ErrBadMemoryBlock", err)
	}
}

// TestGzipChunkDecompression covers format_version == 0.
func TestGzipChunkDecompression(t *testing.T) {
	var payload bytes.Buffer
	gz := gzip.NewWriter(&payload)
	gz.Write([]byte("hello world!"))
	gz.Close()

	var c chunkBuilder
	c.u8(memoryBlockGzip)
	c.beU32(uint32(len("hello world!")))
	c.chunk(0, uint32(payload.Len()), payload.String())

	n := lengthNode(uint64(len("hello world!")))
	d := newTestDecoder(nil)
	d.bs = newByteStream(bytes.NewReader(c.buf.Bytes()))

	if err := d.decodeMemoryBlock(n); err != nil {
		t.Fatalf("decodeMemoryBlock: %v", err)
	}
	if string(n.values["data"].bytes) != "hello world!" {
		t.Fatalf("data = %q, want %q", n.values["data"].bytes, "hello world!")
	}
}
