// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

// readBinaryArray reads a BinaryArray record (§4.C.2): an object id, array
// type, rank, per-dimension lengths, optional lower bounds, an element type
// descriptor, and the elements themselves in row-major order.
func (d *decoder) readBinaryArray() (recordOutcome, error) {
	id, err := d.bs.readI32()
	if err != nil {
		return recordOutcome{}, err
	}
	arrayType, err := d.bs.readU8()
	if err != nil {
		return recordOutcome{}, err
	}
	rank, err := d.bs.readI32()
	if err != nil {
		return recordOutcome{}, err
	}
	if rank <= 0 {
		return recordOutcome{}, newParseError(ErrBadTypeInfo, d.bs.offset, "binary array rank %d", rank)
	}

	lengths := make([]int32, rank)
	for i := range lengths {
		lengths[i], err = d.bs.readI32()
		if err != nil {
			return recordOutcome{}, err
		}
	}

	var lowerBounds []int32
	if arrayType == binaryArraySingleOffset || arrayType == binaryArrayJaggedOffset || arrayType == binaryArrayRectangularOffset {
		lowerBounds = make([]int32, rank)
		for i := range lowerBounds {
			lowerBounds[i], err = d.bs.readI32()
			if err != nil {
				return recordOutcome{}, err
			}
		}
	}

	elementTypeCode, err := d.bs.readU8()
	if err != nil {
		return recordOutcome{}, err
	}
	elementExtra, err := d.readTypeExtra(elementTypeCode)
	if err != nil {
		return recordOutcome{}, err
	}

	raw, err := d.readArrayDimension(lengths, elementTypeCode, elementExtra)
	if err != nil {
		return recordOutcome{}, err
	}

	n := &arrayNode{
		id:              objectID(id),
		rank:            rank,
		lengths:         lengths,
		lowerBounds:     lowerBounds,
		elementTypeCode: elementTypeCode,
		elementExtra:    elementExtra,
		raw:             raw,
	}
	if err := d.register(n.id, n); err != nil {
		return recordOutcome{}, err
	}
	return recordOutcome{tag: recordBinaryArray, id: n.id}, nil
}

// readArrayDimension recursively reads a rectangular array's elements,
// mirroring lengths: the innermost dimension reads nrbfValue leaves, every
// outer dimension reads a nested slice one rank down (§4.C.2).
func (d *decoder) readArrayDimension(lengths []int32, typeCode uint8, extra interface{}) (interface{}, error) {
	if len(lengths) > 1 {
		dim := make([]interface{}, lengths[0])
		for i := range dim {
			child, err := d.readArrayDimension(lengths[1:], typeCode, extra)
			if err != nil {
				return nil, err
			}
			dim[i] = child
		}
		return dim, nil
	}

	leaves := make([]nrbfValue, lengths[0])
	for i := range leaves {
		v, err := d.readValue(typeCode, extra)
		if err != nil {
			return nil, err
		}
		leaves[i] = v
	}
	return leaves, nil
}

// readArraySingle reads an ArraySingleObject or ArraySingleString record
// (tags 16/17): an object id, a length, and that many elements each read
// generically (type-info code 1), per §4.C and the reference implementation
// — the two tags are wire-identical (see SPEC_FULL.md §10).
func (d *decoder) readArraySingle(tag uint8) (recordOutcome, error) {
	id, err := d.bs.readI32()
	if err != nil {
		return recordOutcome{}, err
	}
	length, err := d.bs.readI32()
	if err != nil {
		return recordOutcome{}, err
	}
	if length < 0 {
		return recordOutcome{}, newParseError(ErrBadTypeInfo, d.bs.offset, "array length %d", length)
	}

	leaves := make([]nrbfValue, length)
	for i := range leaves {
		v, err := d.readValue(memberTypeObject, nil)
		if err != nil {
			return recordOutcome{}, err
		}
		leaves[i] = v
	}

	n := &arrayNode{
		id:              objectID(id),
		rank:            1,
		lengths:         []int32{length},
		elementTypeCode: memberTypeObject,
		raw:             leaves,
	}
	if err := d.register(n.id, n); err != nil {
		return recordOutcome{}, err
	}
	return recordOutcome{tag: tag, id: n.id}, nil
}
