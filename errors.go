// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure behind a ParseError. Every Kind is a
// sentinel error so callers can compare with errors.Is instead of string
// matching.
type Kind error

// Sentinel kinds, one per failure mode in the NRBF/PDN wire format.
var (
	// ErrUnexpectedEOF is returned when the input ends inside a record,
	// string, or chunk.
	ErrUnexpectedEOF Kind = errors.New("pdn: unexpected end of input")

	// ErrBadEnvelope is returned when the outer magic or inner flag bytes
	// do not match any recognized PDN envelope shape.
	ErrBadEnvelope Kind = errors.New("pdn: invalid envelope")

	// ErrUnsupportedRecord is returned for a legal NRBF record tag this
	// reader does not implement (2, 3, 8, 15, 21, 22).
	ErrUnsupportedRecord Kind = errors.New("pdn: unsupported NRBF record")

	// ErrBadVarint is returned when a 7-bit length-prefixed string's
	// varint exceeds five bytes.
	ErrBadVarint Kind = errors.New("pdn: varint too long")

	// ErrBadUtf8 is returned when a length-prefixed string's payload is
	// not valid UTF-8.
	ErrBadUtf8 Kind = errors.New("pdn: invalid utf-8 string")

	// ErrDuplicateObjectID is returned when two records claim the same
	// NRBF object id with conflicting content.
	ErrDuplicateObjectID Kind = errors.New("pdn: duplicate object id")

	// ErrDanglingReference is returned when a MemberReference points at
	// an object id never registered in the object table.
	ErrDanglingReference Kind = errors.New("pdn: dangling object reference")

	// ErrBadMemoryBlock is returned for any MemoryBlock chunk framing,
	// length, or version violation.
	ErrBadMemoryBlock Kind = errors.New("pdn: malformed memory block")

	// ErrBadPrimitive is returned for an unrecognized primitive type id.
	ErrBadPrimitive Kind = errors.New("pdn: unrecognized primitive type")

	// ErrBadTypeInfo is returned for an unrecognized member type code.
	ErrBadTypeInfo Kind = errors.New("pdn: unrecognized member type info")

	// ErrObjectTableTooLarge is returned when a stream registers more
	// objects than Options.MaxObjectTableSize allows.
	ErrObjectTableTooLarge Kind = errors.New("pdn: object table too large")
)

// ParseError carries a sentinel Kind plus the byte offset and logical
// context (record or member name) where the fault was detected.
type ParseError struct {
	Kind    Kind
	Offset  int64
	Context string
}

func (e *ParseError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%v (offset %d)", e.Kind, e.Offset)
	}
	return fmt.Sprintf("%v: %s (offset %d)", e.Kind, e.Context, e.Offset)
}

// Unwrap lets errors.Is(err, pdn.ErrBadEnvelope) work through a ParseError.
func (e *ParseError) Unwrap() error {
	return e.Kind
}

// newParseError builds a ParseError, formatting Context from format/args
// when args are given.
func newParseError(kind Kind, offset int64, format string, args ...interface{}) *ParseError {
	ctx := format
	if len(args) > 0 {
		ctx = fmt.Sprintf(format, args...)
	}
	return &ParseError{Kind: kind, Offset: offset, Context: ctx}
}
