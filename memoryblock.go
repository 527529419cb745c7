// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// decodeMemoryBlock implements §4.D: it reads a chunked payload directly
// from the underlying stream (no seeking) and stores the reassembled bytes
// under the node's "data" member. Chunks may arrive out of order; each
// chunk's number must be unique and its decompressed length must match the
// portion of length64 it covers.
func (d *decoder) decodeMemoryBlock(n *classNode) error {
	length, ok := extractUint64(n.values["length64"])
	if !ok {
		return newParseError(ErrBadMemoryBlock, d.bs.offset, "missing or malformed length64")
	}

	formatVersion, err := d.bs.readU8()
	if err != nil {
		return err
	}
	if formatVersion != memoryBlockGzip && formatVersion != memoryBlockPlain {
		return newParseError(ErrBadMemoryBlock, d.bs.offset, "format version %d", formatVersion)
	}

	chunkSize, err := d.bs.readBEU32()
	if err != nil {
		return err
	}
	if chunkSize == 0 {
		return newParseError(ErrBadMemoryBlock, d.bs.offset, "zero chunk size")
	}

	chunkCount := int((length + uint64(chunkSize) - 1) / uint64(chunkSize))
	chunks := make([][]byte, chunkCount)
	seen := make([]bool, chunkCount)

	for i := 0; i < chunkCount; i++ {
		chunkNumber, err := d.bs.readBEU32()
		if err != nil {
			return err
		}
		dataSize, err := d.bs.readBEU32()
		if err != nil {
			return err
		}
		payload, err := d.bs.read(int(dataSize))
		if err != nil {
			return err
		}

		if int(chunkNumber) >= chunkCount {
			return newParseError(ErrBadMemoryBlock, d.bs.offset, "chunk number %d out of range [0,%d)", chunkNumber, chunkCount)
		}
		if seen[chunkNumber] {
			return newParseError(ErrBadMemoryBlock, d.bs.offset, "duplicate chunk number %d", chunkNumber)
		}
		seen[chunkNumber] = true

		want := uint64(chunkSize)
		if remaining := length - uint64(chunkNumber)*uint64(chunkSize); remaining < want {
			want = remaining
		}

		data := payload
		if formatVersion == memoryBlockGzip {
			gz, err := gzip.NewReader(bytes.NewReader(payload))
			if err != nil {
				return newParseError(ErrBadMemoryBlock, d.bs.offset, "gzip chunk %d: %v", chunkNumber, err)
			}
			data, err = io.ReadAll(gz)
			if err != nil {
				return newParseError(ErrBadMemoryBlock, d.bs.offset, "gzip chunk %d: %v", chunkNumber, err)
			}
		}

		if uint64(len(data)) != want {
			return newParseError(ErrBadMemoryBlock, d.bs.offset, "chunk %d length %d, want %d", chunkNumber, len(data), want)
		}
		chunks[chunkNumber] = data
	}

	full := make([]byte, 0, length)
	for _, c := range chunks {
		full = append(full, c...)
	}

	n.values["data"] = nrbfValue{kind: valueBytes, bytes: full}
	return nil
}

// extractUint64 pulls an unsigned 64-bit length out of whatever primitive
// wire type length64 actually arrived as; Paint.NET serializes it as a
// signed or unsigned 64-bit integer depending on version.
func extractUint64(v nrbfValue) (uint64, bool) {
	if v.kind != valuePrimitive {
		return 0, false
	}
	switch n := v.primitive.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case int32:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}
