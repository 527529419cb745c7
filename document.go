// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import "strings"

// Document is the root object returned by Open/OpenBytes: a canvas with an
// ordered sequence of bitmap layers (§3.2).
type Document struct {
	Width  uint32
	Height uint32
	Layers []*Layer
}

// Layer is a single bitmap image plane with its own property bag and pixel
// surface (§3.2).
type Layer struct {
	Width           uint32
	Height          uint32
	Surface         *Surface
	LayerProperties *PropertyBag
	Properties      *PropertyBag
}

// Surface is a 2-D BGRA32 premultiplied pixel buffer with explicit stride
// (§3.2, §6.3).
type Surface struct {
	Width  uint32
	Height uint32
	Stride uint32
	Data   []byte
}

// PropertyBag is a string-keyed mapping of arbitrary NRBF member values:
// strings, numbers, booleans, nested bags, or lists (§3.2). Classes the
// materializer's registry (§4.E.1) doesn't recognize become opaque
// PropertyBags, one entry per member, keyed by the original NRBF member
// name so a caller can still find e.g. a layer's name field even though
// this reader never learned to name it.
type PropertyBag struct {
	values map[string]interface{}
}

// NewPropertyBag returns an empty bag; used by the materializer and by
// tests constructing expected values.
func NewPropertyBag() *PropertyBag {
	return &PropertyBag{values: make(map[string]interface{})}
}

// Get returns the value stored under key and whether it was present.
func (p *PropertyBag) Get(key string) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the bag's member names in no particular order.
func (p *PropertyBag) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	return keys
}

// Name returns the bag's best-effort name string: an exact "name" key if
// present, otherwise a string member whose NRBF name ends in "name"
// (case-insensitive), matching how Paint.NET qualifies inherited members as
// "BaseClass+name". When several members match, which one is returned is
// not defined. Returns "" if no such member exists.
func (p *PropertyBag) Name() string {
	if p == nil {
		return ""
	}
	if v, ok := p.values["name"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	for k, v := range p.values {
		if strings.HasSuffix(strings.ToLower(k), "name") {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
