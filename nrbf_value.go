// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

// valueKind tags what an nrbfValue actually holds.
type valueKind uint8

const (
	// valueNull marks a slot consumed by a null-run record (§4.C.4,
	// §4.E.4 — expanded to nil once the materializer flattens it).
	valueNull valueKind = iota

	// valuePrimitive holds a decoded Go primitive (bool, uintN, intN,
	// float32/64).
	valuePrimitive

	// valueRef holds an objectID to resolve later, either because a
	// nested record was just decoded (and registered under that id) or
	// because a MemberReference pointed at one (§4.C.3, §4.E.3).
	valueRef

	// valueBytes holds the reassembled payload of a deferred MemoryBlock
	// (§4.D), filled in after MessageEnd and before materialization.
	valueBytes
)

// nrbfValue is one member or array-element slot as decoded by the value
// reader (§4.C.3): a tagged union of Primitive(kind) | Node(index) | Null
// per §9's "polymorphic nodes" design note, plus a Bytes variant for
// deferred MemoryBlock payloads.
type nrbfValue struct {
	kind      valueKind
	primitive interface{}
	ref       objectID
	bytes     []byte
}

// readTypeExtra reads the type-code-dependent "extra" payload shared by
// class member declarations and array element type descriptors (§4.C.1's
// extra column).
func (d *decoder) readTypeExtra(code uint8) (interface{}, error) {
	switch code {
	case memberTypePrimitive, memberTypePrimitiveArray:
		return d.bs.readU8()

	case memberTypeObject, memberTypeSystemString, memberTypeObjectArray, memberTypeStringArray:
		return nil, nil

	case memberTypeLibraryClass:
		return d.bs.readLenPrefixedString()

	case memberTypeSystemClass:
		name, err := d.bs.readLenPrefixedString()
		if err != nil {
			return nil, err
		}
		libraryID, err := d.bs.readI32()
		if err != nil {
			return nil, err
		}
		return classExtra{name: name, libraryID: libraryID}, nil

	default:
		return nil, newParseError(ErrBadTypeInfo, d.bs.offset, "member type code %d", code)
	}
}

// readValue is the value reader of §4.C.3: given a member or array
// element's (type_code, extra), it either returns a pending null (§4.C.4,
// without consuming a record tag), reads a primitive directly, or reads one
// nested record via the main dispatch.
func (d *decoder) readValue(typeCode uint8, extra interface{}) (nrbfValue, error) {
	if d.pendingNulls > 0 {
		d.pendingNulls--
		return nrbfValue{kind: valueNull}, nil
	}

	if typeCode == memberTypePrimitive {
		primitiveID, _ := extra.(uint8)
		v, err := d.readPrimitive(primitiveID)
		if err != nil {
			return nrbfValue{}, err
		}
		return nrbfValue{kind: valuePrimitive, primitive: v}, nil
	}

	outcome, err := d.readRecord()
	if err != nil {
		return nrbfValue{}, err
	}

	switch outcome.tag {
	case recordObjectNull:
		return nrbfValue{kind: valueNull}, nil

	case recordObjectNullMultiple256, recordObjectNullMultiple:
		if outcome.nullCount == 0 {
			return nrbfValue{}, newParseError(ErrBadTypeInfo, d.bs.offset, "null run with zero count")
		}
		d.pendingNulls = outcome.nullCount - 1
		return nrbfValue{kind: valueNull}, nil

	case recordMemberReference:
		return nrbfValue{kind: valueRef, ref: outcome.refTarget}, nil

	default:
		return nrbfValue{kind: valueRef, ref: outcome.id}, nil
	}
}

// readPrimitive reads one primitive value given its primitive_type_id
// (§4.C.3's primitive table).
func (d *decoder) readPrimitive(id uint8) (interface{}, error) {
	switch id {
	case primitiveBool:
		return d.bs.readBool()
	case primitiveU8:
		return d.bs.readU8()
	case primitiveF64:
		return d.bs.readF64()
	case primitiveI16:
		return d.bs.readI16()
	case primitiveI32:
		return d.bs.readI32()
	case primitiveI64:
		return d.bs.readI64()
	case primitiveI8:
		return d.bs.readI8()
	case primitiveF32:
		return d.bs.readF32()
	case primitiveU16:
		return d.bs.readU16()
	case primitiveU32:
		return d.bs.readU32()
	case primitiveU64:
		return d.bs.readU64()
	default:
		return nil, newParseError(ErrBadPrimitive, d.bs.offset, "primitive type id %d", id)
	}
}
