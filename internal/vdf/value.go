// Package vdf implements a reader and writer for the VDF (Valve KeyValues)
// text format used by VMF files: a recursive structure of quoted
// identifiers followed by either a quoted string or a brace-delimited
// nested object, with repeated keys at the same level collapsing into a
// list-valued entry.
//
// The scanner/parser split mirrors cuelang.org/go/cue/scanner and
// cuelang.org/go/cue/parser, trimmed to the much smaller KeyValues grammar.
package vdf

// Value is either a string, a *Object, or a []Value all of the same
// dynamic kind (string or *Object) — the representation used whenever a
// key repeats at the same nesting level.
type Value interface{}

// Object is an ordered key/value mapping, preserving both insertion order
// of distinct keys and every occurrence of a repeated key.
//
// Object mirrors the collections.OrderedDict used by the reference
// implementation: a key holds a scalar Value until it is written a second
// time, at which point it becomes a []Value, and collapses back down to a
// scalar if reduced to a single element (see Remove).
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Keys returns the distinct keys of o, in insertion order.
func (o *Object) Keys() []string {
	return o.keys
}

// Get returns the value stored at key, and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present in o.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Len returns the number of distinct keys in o.
func (o *Object) Len() int {
	return len(o.keys)
}

// Set unconditionally (re)writes key to v, as a single scalar entry. Unlike
// Append, this never turns an existing entry into a list.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Append adds an occurrence of key with value v, following the
// scalar-or-list duality: if key is unset, it is set to the scalar v; if
// set to a scalar, it becomes a two-element list; if already a list, v is
// appended to it.
func (o *Object) Append(key string, v Value) {
	existing, ok := o.values[key]
	if !ok {
		o.Set(key, v)
		return
	}
	if list, isList := existing.([]Value); isList {
		o.values[key] = append(list, v)
		return
	}
	o.values[key] = []Value{existing, v}
}

// Remove deletes one occurrence of v from key's entry. If the entry is a
// scalar equal to v, the key is removed entirely. If the entry is a list
// that becomes a singleton after removal, it collapses back to a scalar,
// preserving round-trip fidelity with the serialiser.
func (o *Object) Remove(key string, v Value) {
	existing, ok := o.values[key]
	if !ok {
		return
	}
	list, isList := existing.([]Value)
	if !isList {
		if valuesEqual(existing, v) {
			o.Delete(key)
		}
		return
	}
	idx := -1
	for i, item := range list {
		if valuesEqual(item, v) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	list = append(list[:idx], list[idx+1:]...)
	if len(list) == 1 {
		o.values[key] = list[0]
	} else {
		o.values[key] = list
	}
}

// Delete unconditionally removes key from o.
func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// AsList returns v's elements as a []Value, whether v is itself a list or
// a lone scalar. This mirrors the repeated "if not isinstance(x, list): x
// = [x]" idiom throughout the reference implementation.
func AsList(v Value) []Value {
	if v == nil {
		return nil
	}
	if list, ok := v.([]Value); ok {
		return list
	}
	return []Value{v}
}

// AsObjects filters a Value down to its *Object elements, in the shape
// that VMF sub-object properties ("solid", "side", "visgroup", ...)
// naturally take.
func AsObjects(v Value) []*Object {
	var result []*Object
	for _, item := range AsList(v) {
		if obj, ok := item.(*Object); ok {
			result = append(result, obj)
		}
	}
	return result
}

func valuesEqual(a, b Value) bool {
	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString && bIsString {
		return as == bs
	}
	ao, aIsObj := a.(*Object)
	bo, bIsObj := b.(*Object)
	if aIsObj && bIsObj {
		return ao == bo
	}
	return false
}
