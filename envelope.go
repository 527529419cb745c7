// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// envelope is what parseEnvelope extracts from the outer PDN wrapper before
// the NRBF decoder ever runs: the optional XML header and a stream that
// yields fully decompressed NRBF bytes.
type envelope struct {
	headerXML string
	nrbf      io.Reader
}

// parseEnvelope implements §4.B / §6.1: detect the PDN 2.1 magic, pull the
// XML header out if present, then decide whether the following NRBF stream
// is plain or gzip-compressed.
func parseEnvelope(r io.Reader) (*envelope, error) {
	bs := newByteStream(r)

	flag, err := bs.read(2)
	if err != nil {
		return nil, err
	}

	env := &envelope{}

	if flag[0] == pdn21Magic[0] && flag[1] == pdn21Magic[1] {
		rest, err := bs.read(2)
		if err != nil {
			return nil, err
		}
		if rest[0] != pdn21Magic[2] || rest[1] != pdn21Magic[3] {
			return nil, newParseError(ErrBadEnvelope, bs.offset, "PDN3 magic mismatch")
		}

		lenBytes, err := bs.read(3)
		if err != nil {
			return nil, err
		}
		headerLen := uint32(lenBytes[0]) | uint32(lenBytes[1])<<8 | uint32(lenBytes[2])<<16

		headerBytes, err := bs.read(int(headerLen))
		if err != nil {
			return nil, err
		}
		xml, err := decodeStrictUTF8(headerBytes, bs.offset)
		if err != nil {
			return nil, err
		}
		env.headerXML = xml

		flag, err = bs.read(2)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case flag[0] == plainInnerFlag[0] && flag[1] == plainInnerFlag[1]:
		env.nrbf = bs.r

	case flag[0] == gzipMagic[0] && flag[1] == gzipMagic[1]:
		pushedBack := io.MultiReader(bytes.NewReader(flag), bs.r)
		gz, err := gzip.NewReader(pushedBack)
		if err != nil {
			return nil, newParseError(ErrBadEnvelope, bs.offset, "gzip header: %v", err)
		}
		env.nrbf = gz

	default:
		return nil, newParseError(ErrBadEnvelope, bs.offset, "unrecognized inner flag %#x %#x", flag[0], flag[1])
	}

	return env, nil
}
