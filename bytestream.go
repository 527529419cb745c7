// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// maxVarintBytes is the largest number of bytes a 7-bit
// length-prefixed string's varint may use before it is considered corrupt.
const maxVarintBytes = 5

// byteStream is the buffered, offset-tracking reader every component above
// it builds on: little- and big-endian fixed width integers, booleans, and
// 7-bit varint-length-prefixed UTF-8 strings. It never seeks; the stream is
// consumed front to back exactly once, matching §5 of the format.
type byteStream struct {
	r      *bufio.Reader
	offset int64
}

// newByteStream wraps r with the buffering and offset tracking the rest of
// the decoder depends on.
func newByteStream(r io.Reader) *byteStream {
	return &byteStream{r: bufio.NewReader(r)}
}

// read returns exactly n bytes or ErrUnexpectedEOF.
func (b *byteStream) read(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(b.r, buf)
	b.offset += int64(read)
	if err != nil {
		return nil, newParseError(ErrUnexpectedEOF, b.offset, "reading %d bytes", n)
	}
	return buf, nil
}

func (b *byteStream) readU8() (uint8, error) {
	v, err := b.r.ReadByte()
	if err != nil {
		return 0, newParseError(ErrUnexpectedEOF, b.offset, "reading u8")
	}
	b.offset++
	return v, nil
}

func (b *byteStream) readBool() (bool, error) {
	v, err := b.readU8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (b *byteStream) readU16() (uint16, error) {
	buf, err := b.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (b *byteStream) readU32() (uint32, error) {
	buf, err := b.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// readBEU32 reads a big-endian uint32. Only the MemoryBlock chunk framing
// (§4.D) uses big-endian integers; everything else in the NRBF stream is
// little-endian.
func (b *byteStream) readBEU32() (uint32, error) {
	buf, err := b.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

func (b *byteStream) readU64() (uint64, error) {
	buf, err := b.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (b *byteStream) readI16() (int16, error) {
	v, err := b.readU16()
	return int16(v), err
}

func (b *byteStream) readI32() (int32, error) {
	v, err := b.readU32()
	return int32(v), err
}

func (b *byteStream) readI64() (int64, error) {
	v, err := b.readU64()
	return int64(v), err
}

func (b *byteStream) readI8() (int8, error) {
	v, err := b.readU8()
	return int8(v), err
}

func (b *byteStream) readF32() (float32, error) {
	v, err := b.readU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (b *byteStream) readF64() (float64, error) {
	v, err := b.readU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// readRecordTag reads the one-byte record tag that begins every NRBF
// record.
func (b *byteStream) readRecordTag() (uint8, error) {
	return b.readU8()
}

// readVarintLen decodes a 7-bit length-prefixed integer: the low 7 bits of
// each byte contribute to the length, the high bit set means another byte
// follows, least-significant group first, at most maxVarintBytes bytes.
func (b *byteStream) readVarintLen() (int, error) {
	var length int
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		octet, err := b.readU8()
		if err != nil {
			return 0, err
		}
		length |= int(octet&0x7f) << shift
		if octet&0x80 == 0 {
			return length, nil
		}
		shift += 7
	}
	return 0, newParseError(ErrBadVarint, b.offset, "varint exceeded %d bytes", maxVarintBytes)
}

// readLenPrefixedString reads a 7-bit varint byte length followed by that
// many bytes of UTF-8 payload.
func (b *byteStream) readLenPrefixedString() (string, error) {
	n, err := b.readVarintLen()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	payload, err := b.read(n)
	if err != nil {
		return "", err
	}
	return decodeStrictUTF8(payload, b.offset)
}

// decodeStrictUTF8 validates payload as UTF-8 via golang.org/x/text's UTF-8
// decoder, rejecting overlong encodings and stray continuation bytes rather
// than trusting a raw string conversion. Grounded on helper.go's use of
// golang.org/x/text/encoding/unicode to decode wire strings instead of
// reinterpreting bytes directly. The decoder substitutes U+FFFD for each
// ill-formed sequence, so any difference from the input marks it invalid.
func decodeStrictUTF8(payload []byte, offset int64) (string, error) {
	decoded, err := unicode.UTF8.NewDecoder().Bytes(payload)
	if err != nil || !bytes.Equal(decoded, payload) {
		return "", newParseError(ErrBadUtf8, offset, "length-prefixed string")
	}
	return string(decoded), nil
}
