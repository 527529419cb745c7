// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-pdn/pdn/log"
)

func newTestDecoder(data []byte) *decoder {
	return newDecoder(bytes.NewReader(data), log.Discard)
}

func drainRecords(t *testing.T, d *decoder) {
	t.Helper()
	for {
		outcome, err := d.readRecord()
		if err != nil {
			t.Fatalf("readRecord: %v", err)
		}
		if outcome.tag == recordMessageEnd {
			return
		}
	}
}

// TestBackReferenceSharesInstance covers spec scenario 8.4.3: two classes,
// one declaring a string member directly and one referencing it via
// MemberReference, must resolve to the same string value.
func TestBackReferenceSharesInstance(t *testing.T) {
	var s streamBuilder

	s.u8(recordSerializationHeader)
	s.u32(10)
	s.u32(0)
	s.u32(1)
	s.u32(0)

	s.u8(recordBinaryLibrary)
	s.u32(1)
	s.str("Test")

	// class A (id 3): one System.String member, read inline.
	s.u8(recordClassWithMembersAndTypes)
	s.i32(3)
	s.str("TestClassA")
	s.u32(1)
	s.str("value")
	s.u8(memberTypeSystemString)
	s.i32(1) // library id for class A
	// BinaryObjectString inline for the "value" member (id 5).
	s.u8(recordBinaryObjectString)
	s.i32(5)
	s.str("hello")

	// class B (id 4): one Object member, a MemberReference to id 5.
	s.u8(recordClassWithMembersAndTypes)
	s.i32(4)
	s.str("TestClassB")
	s.u32(1)
	s.str("ref")
	s.u8(memberTypeObject)
	s.i32(1) // library id for class B
	s.u8(recordMemberReference)
	s.i32(5)

	s.u8(recordMessageEnd)

	d := newTestDecoder(s.bytes())
	drainRecords(t, d)

	classA, ok := d.objects[3].(*classNode)
	if !ok {
		t.Fatalf("object 3 is not a classNode")
	}
	classB, ok := d.objects[4].(*classNode)
	if !ok {
		t.Fatalf("object 4 is not a classNode")
	}

	if classA.values["value"].ref != 5 {
		t.Fatalf("class A value ref = %d, want 5", classA.values["value"].ref)
	}
	if classB.values["ref"].ref != 5 {
		t.Fatalf("class B ref = %d, want 5", classB.values["ref"].ref)
	}

	m := &materializer{objects: d.objects, memo: make(map[objectID]interface{})}
	a, err := m.resolveValue(classA.values["value"])
	if err != nil {
		t.Fatalf("resolveValue(A): %v", err)
	}
	b, err := m.resolveValue(classB.values["ref"])
	if err != nil {
		t.Fatalf("resolveValue(B): %v", err)
	}
	if a != "hello" || b != "hello" {
		t.Fatalf("got a=%v b=%v, want both %q", a, b, "hello")
	}
}

// TestNullRunExpansion covers spec scenario 8.4.4: a 5-element array with
// one real element followed by an ObjectNullMultiple256 run of 4 consumes
// exactly one additional record.
func TestNullRunExpansion(t *testing.T) {
	var s streamBuilder

	s.i32(20) // array id
	s.u8(binaryArraySingle)
	s.i32(1) // rank
	s.i32(5) // length
	s.u8(memberTypeObject)

	s.u8(recordBinaryObjectString)
	s.i32(21)
	s.str("x")

	s.u8(recordObjectNullMultiple256)
	s.u8(4)

	d := newTestDecoder(s.bytes())
	outcome, err := d.readBinaryArray()
	if err != nil {
		t.Fatalf("readBinaryArray: %v", err)
	}

	arr, ok := d.objects[outcome.id].(*arrayNode)
	if !ok {
		t.Fatalf("object %d is not an arrayNode", outcome.id)
	}
	leaves, ok := arr.raw.([]nrbfValue)
	if !ok {
		t.Fatalf("array raw is %T, want []nrbfValue", arr.raw)
	}
	if len(leaves) != 5 {
		t.Fatalf("len(leaves) = %d, want 5", len(leaves))
	}
	if leaves[0].kind != valueRef {
		t.Fatalf("leaves[0].kind = %v, want valueRef", leaves[0].kind)
	}
	for i := 1; i < 5; i++ {
		if leaves[i].kind != valueNull {
			t.Fatalf("leaves[%d].kind = %v, want valueNull", i, leaves[i].kind)
		}
	}
}

func TestDuplicateObjectIDRejected(t *testing.T) {
	var s streamBuilder

	s.u8(recordBinaryObjectString)
	s.i32(1)
	s.str("a")
	s.u8(recordBinaryObjectString)
	s.i32(1)
	s.str("b")

	d := newTestDecoder(s.bytes())
	if _, err := d.readRecord(); err != nil {
		t.Fatalf("first readRecord: %v", err)
	}
	_, err := d.readRecord()
	if !errors.Is(err, ErrDuplicateObjectID) {
		t.Fatalf("second readRecord err = %v, want ErrDuplicateObjectID", err)
	}
}
