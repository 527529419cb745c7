// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

// NRBF record tags. A single byte at the start of every record selects
// which of these a decoder must run.
const (
	// recordSerializationHeader carries the root object id and the NRBF
	// version pair.
	recordSerializationHeader = 0

	// recordClassWithId reuses a previously declared class's member
	// layout by metadata id.
	recordClassWithId = 1

	// recordSystemClassWithMembersAndTypes is a class record with inline
	// member types and no library id (the class lives in mscorlib).
	recordSystemClassWithMembersAndTypes = 4

	// recordClassWithMembersAndTypes is a class record with inline member
	// types and a trailing library id.
	recordClassWithMembersAndTypes = 5

	// recordBinaryObjectString carries an object id and a length-prefixed
	// string.
	recordBinaryObjectString = 6

	// recordBinaryArray carries a rank, per-dimension lengths, optional
	// lower bounds, and an element type descriptor.
	recordBinaryArray = 7

	// recordMemberReference carries a back-reference to an earlier
	// object id.
	recordMemberReference = 9

	// recordObjectNull marks a single null member/element slot.
	recordObjectNull = 10

	// recordMessageEnd terminates the record stream.
	recordMessageEnd = 11

	// recordBinaryLibrary declares a library id to library name mapping.
	recordBinaryLibrary = 12

	// recordObjectNullMultiple256 marks up to 256 consecutive null
	// slots with a one-byte count.
	recordObjectNullMultiple256 = 13

	// recordObjectNullMultiple marks an arbitrary number of consecutive
	// null slots with a four-byte count.
	recordObjectNullMultiple = 14

	// recordArraySingleObject carries a flat array of generic object
	// references.
	recordArraySingleObject = 16

	// recordArraySingleString carries a flat array of string references;
	// wire-identical to recordArraySingleObject (§4.C, tag 17).
	recordArraySingleString = 17
)

// memberTypeCode selects how a class member's "extra" payload and value are
// read (§4.C.1).
const (
	memberTypePrimitive      = 0
	memberTypeObject         = 1
	memberTypeSystemString   = 2
	memberTypeLibraryClass   = 3
	memberTypeSystemClass    = 4
	memberTypeObjectArray    = 5
	memberTypeStringArray    = 6
	memberTypePrimitiveArray = 7
)

// primitiveTypeID selects the wire width and Go type of a primitive member
// value (§4.C.3).
const (
	primitiveBool = 1
	primitiveU8   = 2
	primitiveF64  = 6
	primitiveI16  = 7
	primitiveI32  = 8
	primitiveI64  = 9
	primitiveI8   = 10
	primitiveF32  = 11
	primitiveU16  = 14
	primitiveU32  = 15
	primitiveU64  = 16
)

// binaryArrayType selects whether a BinaryArray record carries lower
// bounds alongside its per-dimension lengths (§4.C.2).
const (
	binaryArraySingle            = 0
	binaryArrayJagged            = 1
	binaryArrayRectangular       = 2
	binaryArraySingleOffset      = 3
	binaryArrayJaggedOffset      = 4
	binaryArrayRectangularOffset = 5
)

// memoryBlockFormatVersion selects whether a MemoryBlock chunk's payload is
// gzip-compressed (§4.D).
const (
	memoryBlockGzip  = 0
	memoryBlockPlain = 1
)

// Well-known NRBF class names the object materializer dispatches on
// (§4.E.1).
const (
	classDocument            = "PaintDotNet.Document"
	classLayerList           = "PaintDotNet.LayerList"
	classBitmapLayer         = "PaintDotNet.BitmapLayer"
	classSurface             = "PaintDotNet.Surface"
	classNameValueCollection = "System.Collections.Specialized.NameValueCollection"
	classArrayList           = "System.Collections.ArrayList"
	classMemoryBlock         = "PaintDotNet.MemoryBlock"
)

// PDN envelope magic bytes (§6.1).
var (
	pdn21Magic     = [4]byte{'P', 'D', 'N', '3'}
	gzipMagic      = [2]byte{0x1F, 0x8B}
	plainInnerFlag = [2]byte{0x00, 0x01}
)
