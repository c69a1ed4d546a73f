package vmf

import (
	"sort"
	"strconv"
	"strings"

	"github.com/darthryking/VMFMergeTool/internal/vdf"
	"github.com/darthryking/VMFMergeTool/vmferr"
)

func objectsOf(v vdf.Value, class Class) []*Object {
	return vdf.AsObjects(v)
}

// splitPropertyPath splits a PROPERTY_DELIMITER-joined path into segments.
func splitPropertyPath(property string) []string {
	return strings.Split(property, PropertyDelimiter)
}

// HasProperty reports whether obj has the given (possibly nested)
// property path.
func HasProperty(obj *Object, property string) bool {
	cur := obj
	segments := splitPropertyPath(property)
	for i, key := range segments {
		v, ok := cur.Get(key)
		if !ok {
			return false
		}
		next, isObj := v.(*Object)
		if !isObj {
			return i == len(segments)-1
		}
		cur = next
	}
	return true
}

// GetProperty returns the value at the given (possibly nested) property
// path on obj.
func GetProperty(obj *Object, property string) (vdf.Value, error) {
	segments := splitPropertyPath(property)

	var cur vdf.Value = obj
	for _, key := range segments {
		curObj, ok := cur.(*Object)
		if !ok {
			return nil, vmferr.NewKeyError(property)
		}
		v, ok := curObj.Get(key)
		if !ok {
			return nil, vmferr.NewKeyError(property)
		}
		cur = v
	}
	return cur, nil
}

// SetProperty sets the value at the given (possibly nested) property
// path on obj, creating intermediate objects as needed.
func SetProperty(obj *Object, property string, value vdf.Value) error {
	segments := splitPropertyPath(property)

	cur := obj
	for _, key := range segments[:len(segments)-1] {
		v, ok := cur.Get(key)
		if !ok {
			child := vdf.NewObject()
			cur.Set(key, child)
			cur = child
			continue
		}
		child, isObj := v.(*Object)
		if !isObj {
			return vmferr.NewKeyError(property)
		}
		cur = child
	}

	cur.Set(segments[len(segments)-1], value)
	return nil
}

// DeleteProperty removes the given (possibly nested) property path from
// obj, collapsing any intermediate pseudo-objects left empty.
func DeleteProperty(obj *Object, property string) error {
	segments := splitPropertyPath(property)

	type frame struct {
		key string
		obj *Object
	}

	var stack []frame
	cur := obj
	for _, key := range segments[:len(segments)-1] {
		stack = append(stack, frame{key, cur})
		v, ok := cur.Get(key)
		if !ok {
			return vmferr.NewKeyError(property)
		}
		child, isObj := v.(*Object)
		if !isObj {
			return vmferr.NewKeyError(property)
		}
		cur = child
	}

	last := segments[len(segments)-1]
	if !cur.Has(last) {
		return vmferr.NewKeyError(property)
	}
	cur.Delete(last)

	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		child, _ := f.obj.Get(f.key)
		if childObj, ok := child.(*Object); ok && childObj.Len() == 0 {
			f.obj.Delete(f.key)
		}
	}

	return nil
}

// GetVisGroups returns the set of VisGroup IDs obj belongs to.
func GetVisGroups(obj *Object) map[int]bool {
	result := make(map[int]bool)

	v, err := GetProperty(obj, VisGroupPropertyPath)
	if err != nil {
		return result
	}

	for _, item := range vdf.AsList(v) {
		s, ok := item.(string)
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		result[id] = true
	}

	return result
}

// SetVisGroups overwrites obj's VisGroup membership with the given set,
// written out as a sorted list of decimal strings.
func SetVisGroups(obj *Object, visGroupIDs map[int]bool) error {
	ids := make([]int, 0, len(visGroupIDs))
	for id := range visGroupIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	values := make([]vdf.Value, 0, len(ids))
	for _, id := range ids {
		values = append(values, strconv.Itoa(id))
	}

	var v vdf.Value
	switch len(values) {
	case 0:
		return DeleteProperty(obj, VisGroupPropertyPath)
	case 1:
		v = values[0]
	default:
		v = values
	}

	return SetProperty(obj, VisGroupPropertyPath, v)
}

// ignoredPropertyKeys are keys IterProperties never reports as ordinary
// properties: the object's own ID, the map-wide revision counter, entity
// I/O (walked separately via IterOutputs), and sub-object container keys.
var ignoredPropertyKeys = map[string]bool{
	"id":          true,
	"mapversion":  true,
	"connections": true,
	string(World): true, string(Solid): true, string(Side): true,
	string(Group): true, string(Entity): true, string(VisGroup): true,
}

// Property is one key/value pair yielded by IterProperties, with key
// already joined into full PROPERTY_DELIMITER path form.
type Property struct {
	Key   string
	Value vdf.Value
}

// IterProperties walks obj's properties and nested sub-properties,
// skipping id/mapversion/connections/class-container keys. The "solid"
// key is only reported when it is a literal scalar string (a point
// entity's "solid" field), not when it names a brush sub-object list.
func IterProperties(obj *Object) []Property {
	var result []Property
	walkProperties(obj, "", &result)
	return result
}

func walkProperties(obj *Object, prefix string, result *[]Property) {
	for _, key := range obj.Keys() {
		v, _ := obj.Get(key)

		_, isStringSolid := v.(string)
		if ignoredPropertyKeys[key] && !(key == string(Solid) && isStringSolid) {
			continue
		}

		fullKey := key
		if prefix != "" {
			fullKey = prefix + PropertyDelimiter + key
		}

		switch val := v.(type) {
		case *Object:
			walkProperties(val, fullKey, result)
		default:
			*result = append(*result, Property{Key: fullKey, Value: v})
		}
	}
}

// Output is one entity I/O connection, with Index counting duplicate
// (OutputName, Value) pairs seen so far (0-based).
type Output struct {
	OutputName string
	Value      string
	Index      int
}

// IterOutputs walks an entity's "connections" block.
func IterOutputs(entity *Object) []Output {
	connVal, ok := entity.Get("connections")
	if !ok {
		return nil
	}
	conn, ok := connVal.(*Object)
	if !ok {
		return nil
	}

	seen := make(map[[2]string]int)

	var result []Output
	for _, output := range conn.Keys() {
		v, _ := conn.Get(output)
		for _, item := range vdf.AsList(v) {
			value, ok := item.(string)
			if !ok {
				continue
			}
			k := [2]string{output, value}
			count := seen[k]
			result = append(result, Output{OutputName: output, Value: value, Index: count})
			seen[k] = count + 1
		}
	}

	return result
}
