// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import (
	"io"
	"reflect"

	"github.com/go-pdn/pdn/log"
)

// objectID is an NRBF object identifier. Every record that carries state
// worth referencing later registers itself under one of these (§3.1).
type objectID int32

// node is the intermediate representation a decoded NRBF record takes
// before the materializer (§4.E) turns it into a public Document. classNode,
// stringNode and arrayNode are the only variants that live in the object
// table; ReferenceNode and NullRun never get an id and are represented
// inline as an nrbfValue instead (§3.1).
type node interface {
	nodeObjectID() objectID
}

// classExtra is the "extra" payload for member type codes 3 and 4: a class
// name, optionally paired with a library id for system classes (§4.C.1).
type classExtra struct {
	name      string
	libraryID int32
}

// classMember is one entry of a class record's member layout: its name,
// its type code, and the type-code-dependent extra payload (§4.C.1).
type classMember struct {
	name     string
	typeCode uint8
	extra    interface{}
}

// classNode is a decoded ClassWithMembersAndTypes / SystemClassWithMembersAndTypes
// / ClassWithId record (§3.1).
type classNode struct {
	id           objectID
	name         string
	libraryID    int32
	hasLibraryID bool
	members      []classMember
	values       map[string]nrbfValue
}

func (n *classNode) nodeObjectID() objectID { return n.id }

// stringNode is a decoded BinaryObjectString record.
type stringNode struct {
	id    objectID
	value string
}

func (n *stringNode) nodeObjectID() objectID { return n.id }

// arrayNode is a decoded BinaryArray / ArraySingleObject / ArraySingleString
// record. raw holds the nested, rectangular value tree mirroring lengths:
// for rank 1 it is []nrbfValue, for higher ranks it is []interface{} whose
// elements are themselves raw array trees one rank down (§3.1, §4.C.2).
type arrayNode struct {
	id              objectID
	rank            int32
	lengths         []int32
	lowerBounds     []int32
	elementTypeCode uint8
	elementExtra    interface{}
	raw             interface{}
}

func (n *arrayNode) nodeObjectID() objectID { return n.id }

// recordOutcome is what readRecord reports back to its caller: the tag that
// was dispatched, plus whichever of id/refTarget/nullCount that tag fills
// in. Only one of id/refTarget/nullCount is meaningful for any given tag.
type recordOutcome struct {
	tag       uint8
	id        objectID
	refTarget objectID
	nullCount uint32
}

// decoder walks one NRBF record stream, building the object table that the
// materializer (§4.E) later walks exactly once. It is single-pass and
// single-threaded per §5: the stream is never seeked, and deferred
// MemoryBlock bodies are drained only after MessageEnd.
type decoder struct {
	bs     *byteStream
	logger *log.Helper

	objects   map[objectID]node
	libraries map[int32]string
	rootID    objectID

	pendingNulls    uint32
	deferred        []*classNode
	disableDeferred bool
	maxObjects      uint32
}

func newDecoder(r io.Reader, logger *log.Helper) *decoder {
	if logger == nil {
		logger = log.Discard
	}
	return &decoder{
		bs:        newByteStream(r),
		logger:    logger,
		objects:   make(map[objectID]node),
		libraries: make(map[int32]string),
	}
}

// run drives the full NRBF pipeline: the main record loop until MessageEnd
// (§4.C), then the deferred MemoryBlock queue (§4.D), then materialization
// (§4.E).
func (d *decoder) run() (*Document, error) {
	for {
		outcome, err := d.readRecord()
		if err != nil {
			return nil, err
		}
		if outcome.tag == recordMessageEnd {
			break
		}
	}

	if len(d.deferred) == 0 {
		d.logger.Debugf("deferred MemoryBlock queue is empty")
	}
	if !d.disableDeferred {
		for _, mb := range d.deferred {
			if err := d.decodeMemoryBlock(mb); err != nil {
				return nil, err
			}
		}
	}

	return d.materialize()
}

// register enforces the object-table policy of §4.C.5: registering an id
// again is a no-op when the new node is identical to the stored one, and
// ErrDuplicateObjectID when it differs. It also enforces the MaxObjectTableSize
// guard rail (SPEC_FULL.md §8.3), analogous to the teacher's
// MaxCOFFSymbolsCount/MaxRelocEntriesCount caps.
func (d *decoder) register(id objectID, n node) error {
	if existing, exists := d.objects[id]; exists {
		if reflect.DeepEqual(existing, n) {
			return nil
		}
		return newParseError(ErrDuplicateObjectID, d.bs.offset, "object id %d", id)
	}
	if d.maxObjects != 0 && uint32(len(d.objects)) >= d.maxObjects {
		return newParseError(ErrObjectTableTooLarge, d.bs.offset, "object table exceeds %d entries", d.maxObjects)
	}
	d.objects[id] = n
	return nil
}

// readRecord reads and fully processes exactly one NRBF record, dispatching
// on its tag (§4.C "Record dispatch"). It is used both by the top-level
// message loop and, recursively, whenever a value reader needs to pull in
// a nested record (§4.C.3).
func (d *decoder) readRecord() (recordOutcome, error) {
	tag, err := d.bs.readRecordTag()
	if err != nil {
		return recordOutcome{}, err
	}

	switch tag {
	case recordSerializationHeader:
		rootID, err := d.bs.readU32()
		if err != nil {
			return recordOutcome{}, err
		}
		if _, err := d.bs.readU32(); err != nil { // header id, unused
			return recordOutcome{}, err
		}
		if _, err := d.bs.readU32(); err != nil { // major version, unused
			return recordOutcome{}, err
		}
		if _, err := d.bs.readU32(); err != nil { // minor version, unused
			return recordOutcome{}, err
		}
		d.rootID = objectID(rootID)
		return recordOutcome{tag: tag}, nil

	case recordClassWithId:
		return d.readClassWithId()

	case recordSystemClassWithMembersAndTypes:
		return d.readClassBody(tag, false)

	case recordClassWithMembersAndTypes:
		return d.readClassBody(tag, true)

	case recordBinaryObjectString:
		return d.readBinaryObjectString()

	case recordBinaryArray:
		return d.readBinaryArray()

	case recordMemberReference:
		target, err := d.bs.readI32()
		if err != nil {
			return recordOutcome{}, err
		}
		return recordOutcome{tag: tag, refTarget: objectID(target)}, nil

	case recordObjectNull:
		return recordOutcome{tag: tag}, nil

	case recordMessageEnd:
		return recordOutcome{tag: tag}, nil

	case recordBinaryLibrary:
		libID, err := d.bs.readU32()
		if err != nil {
			return recordOutcome{}, err
		}
		name, err := d.bs.readLenPrefixedString()
		if err != nil {
			return recordOutcome{}, err
		}
		d.libraries[int32(libID)] = name
		return recordOutcome{tag: tag}, nil

	case recordObjectNullMultiple256:
		count, err := d.bs.readU8()
		if err != nil {
			return recordOutcome{}, err
		}
		return recordOutcome{tag: tag, nullCount: uint32(count)}, nil

	case recordObjectNullMultiple:
		count, err := d.bs.readU32()
		if err != nil {
			return recordOutcome{}, err
		}
		return recordOutcome{tag: tag, nullCount: count}, nil

	case recordArraySingleObject, recordArraySingleString:
		return d.readArraySingle(tag)

	default:
		return recordOutcome{}, newParseError(ErrUnsupportedRecord, d.bs.offset, "tag %d", tag)
	}
}

// readClassBody reads a SystemClassWithMembersAndTypes (no trailing library
// id) or ClassWithMembersAndTypes (trailing library id) record body
// (§4.C.1).
func (d *decoder) readClassBody(tag uint8, hasLibraryID bool) (recordOutcome, error) {
	id, err := d.bs.readI32()
	if err != nil {
		return recordOutcome{}, err
	}
	name, err := d.bs.readLenPrefixedString()
	if err != nil {
		return recordOutcome{}, err
	}

	memberCount, err := d.bs.readU32()
	if err != nil {
		return recordOutcome{}, err
	}

	members := make([]classMember, memberCount)
	for i := range members {
		members[i].name, err = d.bs.readLenPrefixedString()
		if err != nil {
			return recordOutcome{}, err
		}
	}
	for i := range members {
		code, err := d.bs.readU8()
		if err != nil {
			return recordOutcome{}, err
		}
		members[i].typeCode = code
	}
	for i := range members {
		extra, err := d.readTypeExtra(members[i].typeCode)
		if err != nil {
			return recordOutcome{}, err
		}
		members[i].extra = extra
	}

	var libraryID int32
	if hasLibraryID {
		libraryID, err = d.bs.readI32()
		if err != nil {
			return recordOutcome{}, err
		}
		if _, known := d.libraries[libraryID]; !known {
			d.logger.Warnf("class %q references unknown library id %d", name, libraryID)
		}
	}

	n := &classNode{
		id:           objectID(id),
		name:         name,
		libraryID:    libraryID,
		hasLibraryID: hasLibraryID,
	}
	n.members = members

	values, err := d.readMemberValues(members)
	if err != nil {
		return recordOutcome{}, err
	}
	n.values = values

	if err := d.register(n.id, n); err != nil {
		return recordOutcome{}, err
	}
	d.enqueueIfDeferred(n)

	return recordOutcome{tag: tag, id: n.id}, nil
}

// readClassWithId reuses a previously declared class's member layout,
// identified by the object id of the class record that first declared it
// (§4.C.1, §3.1 "ClassWithId reuses the member layout").
func (d *decoder) readClassWithId() (recordOutcome, error) {
	id, err := d.bs.readI32()
	if err != nil {
		return recordOutcome{}, err
	}
	metadataID, err := d.bs.readI32()
	if err != nil {
		return recordOutcome{}, err
	}

	base, ok := d.objects[objectID(metadataID)].(*classNode)
	if !ok {
		return recordOutcome{}, newParseError(ErrDanglingReference, d.bs.offset, "ClassWithId metadata id %d", metadataID)
	}

	n := &classNode{
		id:           objectID(id),
		name:         base.name,
		libraryID:    base.libraryID,
		hasLibraryID: base.hasLibraryID,
		members:      base.members,
	}

	values, err := d.readMemberValues(n.members)
	if err != nil {
		return recordOutcome{}, err
	}
	n.values = values

	if err := d.register(n.id, n); err != nil {
		return recordOutcome{}, err
	}
	d.enqueueIfDeferred(n)

	return recordOutcome{tag: recordClassWithId, id: n.id}, nil
}

// readMemberValues reads one value per member, in declared order, honoring
// any outstanding null-run count (§4.C.3, §4.C.4).
func (d *decoder) readMemberValues(members []classMember) (map[string]nrbfValue, error) {
	values := make(map[string]nrbfValue, len(members))
	for _, m := range members {
		v, err := d.readValue(m.typeCode, m.extra)
		if err != nil {
			return nil, err
		}
		values[m.name] = v
	}
	return values, nil
}

// readBinaryObjectString reads a BinaryObjectString record: an object id
// and a length-prefixed string (§4.C, tag 6).
func (d *decoder) readBinaryObjectString() (recordOutcome, error) {
	id, err := d.bs.readI32()
	if err != nil {
		return recordOutcome{}, err
	}
	s, err := d.bs.readLenPrefixedString()
	if err != nil {
		return recordOutcome{}, err
	}
	n := &stringNode{id: objectID(id), value: s}
	if err := d.register(n.id, n); err != nil {
		return recordOutcome{}, err
	}
	return recordOutcome{tag: recordBinaryObjectString, id: n.id}, nil
}

// enqueueIfDeferred implements the post-deserialize hook of §4.C.6: a
// MemoryBlock whose "deferred" member is truthy is queued for §4.D decoding
// after MessageEnd.
func (d *decoder) enqueueIfDeferred(n *classNode) {
	if n.name != classMemoryBlock {
		return
	}
	v, ok := n.values["deferred"]
	if !ok {
		return
	}
	if b, ok := v.primitive.(bool); ok && v.kind == valuePrimitive && b {
		d.deferred = append(d.deferred, n)
	}
}
