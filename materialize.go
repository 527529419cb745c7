// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pdn

import "fmt"

// materializer walks the NRBF object table exactly once (§4.E, §5) to
// produce the public Document. memo maps NRBF object identity to the
// already-materialized public object, implementing the "insert the shell
// before recursing into children" policy of §4.E.2 for every class that
// returns a pointer type.
type materializer struct {
	objects map[objectID]node
	memo    map[objectID]interface{}
}

// materialize implements the top of §4.E: resolve the root id and require
// it to be a Document.
func (d *decoder) materialize() (*Document, error) {
	m := &materializer{
		objects: d.objects,
		memo:    make(map[objectID]interface{}, len(d.objects)),
	}

	obj, err := m.resolve(d.rootID)
	if err != nil {
		return nil, err
	}
	doc, ok := obj.(*Document)
	if !ok {
		return nil, newParseError(ErrBadTypeInfo, 0, "root object is not a PaintDotNet.Document")
	}
	return doc, nil
}

// resolve looks up id in the object table, memoizing the result (§4.E.2,
// §4.E.3). A missing id is a fatal dangling reference.
func (m *materializer) resolve(id objectID) (interface{}, error) {
	if v, ok := m.memo[id]; ok {
		return v, nil
	}
	n, ok := m.objects[id]
	if !ok {
		return nil, newParseError(ErrDanglingReference, 0, "object id %d", id)
	}
	return m.materializeNode(id, n)
}

func (m *materializer) materializeNode(id objectID, n node) (interface{}, error) {
	switch v := n.(type) {
	case *stringNode:
		m.memo[id] = v.value
		return v.value, nil
	case *classNode:
		return m.materializeClass(id, v)
	case *arrayNode:
		return m.materializeArray(id, v)
	default:
		return nil, fmt.Errorf("pdn: unreachable node type for id %d", id)
	}
}

// resolveValue expands one nrbfValue into its public representation,
// turning a NullRun-derived valueNull into a plain nil exactly once
// (§4.E.4 — NullRun never appears past this point).
func (m *materializer) resolveValue(v nrbfValue) (interface{}, error) {
	switch v.kind {
	case valueNull:
		return nil, nil
	case valuePrimitive:
		return v.primitive, nil
	case valueBytes:
		return v.bytes, nil
	case valueRef:
		return m.resolve(v.ref)
	default:
		return nil, fmt.Errorf("pdn: unreachable value kind %d", v.kind)
	}
}

// materializeClass is the name-driven dispatch of §4.E.1.
func (m *materializer) materializeClass(id objectID, n *classNode) (interface{}, error) {
	switch n.name {
	case classDocument:
		return m.materializeDocument(id, n)
	case classLayerList:
		return m.materializeArrayListLike(id, n, "ArrayList+_items", "ArrayList+_size")
	case classBitmapLayer:
		return m.materializeBitmapLayer(id, n)
	case classSurface:
		return m.materializeSurface(id, n)
	case classNameValueCollection:
		return m.materializeNameValueCollection(id, n)
	case classArrayList:
		return m.materializeArrayListLike(id, n, "_items", "_size")
	default:
		return m.materializePropertyBag(id, n)
	}
}

func (m *materializer) materializeDocument(id objectID, n *classNode) (*Document, error) {
	doc := &Document{}
	m.memo[id] = doc

	width, err := m.resolveUint32(n, "width")
	if err != nil {
		return nil, err
	}
	height, err := m.resolveUint32(n, "height")
	if err != nil {
		return nil, err
	}

	layersVal, ok := n.values["layers"]
	var layers []*Layer
	if ok {
		obj, err := m.resolveValue(layersVal)
		if err != nil {
			return nil, err
		}
		if ls, ok := obj.([]*Layer); ok {
			layers = ls
		}
	}

	doc.Width, doc.Height, doc.Layers = width, height, layers
	return doc, nil
}

func (m *materializer) materializeBitmapLayer(id objectID, n *classNode) (*Layer, error) {
	layer := &Layer{}
	m.memo[id] = layer

	width, err := m.resolveUint32(n, "Layer+width")
	if err != nil {
		return nil, err
	}
	height, err := m.resolveUint32(n, "Layer+height")
	if err != nil {
		return nil, err
	}

	layerProps, err := m.resolvePropertyBag(n, "Layer+properties")
	if err != nil {
		return nil, err
	}
	props, err := m.resolvePropertyBag(n, "properties")
	if err != nil {
		return nil, err
	}

	var surface *Surface
	if surfVal, ok := n.values["surface"]; ok {
		obj, err := m.resolveValue(surfVal)
		if err != nil {
			return nil, err
		}
		surface, _ = obj.(*Surface)
	}

	layer.Width = width
	layer.Height = height
	layer.Surface = surface
	layer.LayerProperties = layerProps
	layer.Properties = props
	return layer, nil
}

func (m *materializer) materializeSurface(id objectID, n *classNode) (*Surface, error) {
	surf := &Surface{}
	m.memo[id] = surf

	width, err := m.resolveUint32(n, "width")
	if err != nil {
		return nil, err
	}
	height, err := m.resolveUint32(n, "height")
	if err != nil {
		return nil, err
	}
	stride, err := m.resolveUint32(n, "stride")
	if err != nil {
		return nil, err
	}

	var data []byte
	scan0Val, ok := n.values["scan0"]
	if ok && scan0Val.kind == valueRef {
		blockNode, ok := m.objects[scan0Val.ref].(*classNode)
		if !ok {
			return nil, newParseError(ErrDanglingReference, 0, "surface scan0 id %d", scan0Val.ref)
		}
		dataVal, ok := blockNode.values["data"]
		if ok && dataVal.kind == valueBytes {
			data = dataVal.bytes
		}
	}

	surf.Width, surf.Height, surf.Stride, surf.Data = width, height, stride, data
	return surf, nil
}

func (m *materializer) materializeNameValueCollection(id objectID, n *classNode) (*PropertyBag, error) {
	bag := NewPropertyBag()
	m.memo[id] = bag

	keys, err := m.resolveList(n, "Keys")
	if err != nil {
		return nil, err
	}
	values, err := m.resolveList(n, "Values")
	if err != nil {
		return nil, err
	}

	for i, k := range keys {
		if i >= len(values) {
			break
		}
		key, _ := k.(string)
		bag.values[key] = values[i]
	}
	return bag, nil
}

func (m *materializer) materializePropertyBag(id objectID, n *classNode) (*PropertyBag, error) {
	bag := NewPropertyBag()
	m.memo[id] = bag

	for _, member := range n.members {
		v, err := m.resolveValue(n.values[member.name])
		if err != nil {
			return nil, err
		}
		bag.values[member.name] = v
	}
	return bag, nil
}

// materializeArrayListLike reads an ArrayList-shaped class (the LayerList
// and generic ArrayList are both ArrayList subclasses on the wire): an
// items array truncated to a size field (§4.E.1).
func (m *materializer) materializeArrayListLike(id objectID, n *classNode, itemsKey, sizeKey string) (interface{}, error) {
	items, size, err := m.resolveSizedList(n, itemsKey, sizeKey)
	if err != nil {
		return nil, err
	}

	if n.name == classLayerList {
		layers := make([]*Layer, 0, size)
		for _, it := range items[:size] {
			if it == nil {
				continue
			}
			layer, ok := it.(*Layer)
			if !ok {
				return nil, newParseError(ErrBadTypeInfo, 0, "LayerList element is not a BitmapLayer")
			}
			layers = append(layers, layer)
		}
		m.memo[id] = layers
		return layers, nil
	}

	result := items[:size]
	m.memo[id] = result
	return result, nil
}

// materializeArray resolves an arrayNode's raw value tree into nested
// []interface{} (§4.C.2's nested list, flattened of NullRun sentinels per
// §4.E.4).
func (m *materializer) materializeArray(id objectID, n *arrayNode) (interface{}, error) {
	result, err := m.buildArray(n.raw)
	if err != nil {
		return nil, err
	}
	m.memo[id] = result
	return result, nil
}

func (m *materializer) buildArray(raw interface{}) ([]interface{}, error) {
	switch vs := raw.(type) {
	case []nrbfValue:
		out := make([]interface{}, len(vs))
		for i, v := range vs {
			resolved, err := m.resolveValue(v)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(vs))
		for i, v := range vs {
			child, err := m.buildArray(v)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pdn: unreachable array raw type %T", raw)
	}
}

// resolveList resolves a member holding an array reference into a flat
// []interface{}, without any _size truncation.
func (m *materializer) resolveList(n *classNode, key string) ([]interface{}, error) {
	v, ok := n.values[key]
	if !ok {
		return nil, nil
	}
	obj, err := m.resolveValue(v)
	if err != nil {
		return nil, err
	}
	list, _ := obj.([]interface{})
	return list, nil
}

// resolveSizedList resolves an items-array member truncated to a separate
// int32 size member (the ArrayList wire shape used throughout §4.E.1).
func (m *materializer) resolveSizedList(n *classNode, itemsKey, sizeKey string) ([]interface{}, int, error) {
	items, err := m.resolveList(n, itemsKey)
	if err != nil {
		return nil, 0, err
	}

	sizeVal, ok := n.values[sizeKey]
	size := len(items)
	if ok {
		raw, err := m.resolveValue(sizeVal)
		if err != nil {
			return nil, 0, err
		}
		if n, ok := asInt(raw); ok && n >= 0 && n <= len(items) {
			size = n
		}
	}
	return items, size, nil
}

// resolvePropertyBag resolves a member expected to hold a nested class
// instance into a PropertyBag; a missing or null member yields nil.
func (m *materializer) resolvePropertyBag(n *classNode, key string) (*PropertyBag, error) {
	v, ok := n.values[key]
	if !ok || v.kind != valueRef {
		return nil, nil
	}
	obj, err := m.resolveValue(v)
	if err != nil {
		return nil, err
	}
	bag, _ := obj.(*PropertyBag)
	return bag, nil
}

func (m *materializer) resolveUint32(n *classNode, key string) (uint32, error) {
	v, ok := n.values[key]
	if !ok {
		return 0, nil
	}
	raw, err := m.resolveValue(v)
	if err != nil {
		return 0, err
	}
	u, _ := asUint32(raw)
	return u, nil
}

// asUint32 widens any of the NRBF integer primitive types into a uint32.
func asUint32(v interface{}) (uint32, bool) {
	switch n := v.(type) {
	case uint32:
		return n, true
	case int32:
		return uint32(n), true
	case uint16:
		return uint32(n), true
	case int16:
		return uint32(n), true
	case uint64:
		return uint32(n), true
	case int64:
		return uint32(n), true
	case uint8:
		return uint32(n), true
	case int8:
		return uint32(n), true
	default:
		return 0, false
	}
}

// asInt widens any of the NRBF integer primitive types into an int.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case uint32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case int16:
		return int(n), true
	case uint16:
		return int(n), true
	case int8:
		return int(n), true
	case uint8:
		return int(n), true
	default:
		return 0, false
	}
}
