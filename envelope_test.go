// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// TestParseEnvelopeWithHeader covers spec scenario 8.4.1: a PDN3 envelope
// with an XML header wrapping a plain inner stream.
func TestParseEnvelopeWithHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(pdn21Magic[:])
	header := "<hi/>"
	buf.WriteByte(byte(len(header)))
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteString(header)
	buf.Write(plainInnerFlag[:])
	buf.WriteString("rest of the stream")

	env, err := parseEnvelope(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parseEnvelope: %v", err)
	}
	if env.headerXML != header {
		t.Fatalf("headerXML = %q, want %q", env.headerXML, header)
	}
	rest, err := io.ReadAll(env.nrbf)
	if err != nil {
		t.Fatalf("reading nrbf stream: %v", err)
	}
	if string(rest) != "rest of the stream" {
		t.Fatalf("nrbf stream = %q, want %q", rest, "rest of the stream")
	}
}

// TestParseEnvelopeLegacyGzip covers spec scenario 8.4.2: a bare gzip
// stream with no PDN3 header at all.
func TestParseEnvelopeLegacyGzip(t *testing.T) {
	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	gz.Write([]byte("legacy nrbf payload"))
	gz.Close()

	env, err := parseEnvelope(bytes.NewReader(gzBuf.Bytes()))
	if err != nil {
		t.Fatalf("parseEnvelope: %v", err)
	}
	if env.headerXML != "" {
		t.Fatalf("headerXML = %q, want empty", env.headerXML)
	}
	got, err := io.ReadAll(env.nrbf)
	if err != nil {
		t.Fatalf("reading nrbf stream: %v", err)
	}
	if string(got) != "legacy nrbf payload" {
		t.Fatalf("nrbf stream = %q, want %q", got, "legacy nrbf payload")
	}
}

func TestParseEnvelopeBadInnerFlag(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(pdn21Magic[:])
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(0xAB)
	buf.WriteByte(0xCD)

	_, err := parseEnvelope(bytes.NewReader(buf.Bytes()))
	if err == nil {
		t.Fatal("expected an error for an unrecognized inner flag")
	}
}
