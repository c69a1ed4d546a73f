package vmf

// ObjectRef pairs an object's identity with the object itself, as
// yielded by AllObjects.
type ObjectRef struct {
	Class Class
	ID    int
	Obj   *Object
}

// AllObjects returns every object in the Map, in IterObjects order.
func (m *Map) AllObjects() []ObjectRef {
	var result []ObjectRef
	m.IterObjects(func(class Class, id int, obj *Object) {
		result = append(result, ObjectRef{class, id, obj})
	})
	return result
}

// EntityTies returns a copy of the solid-ID-to-entity-ID tie table.
func (m *Map) EntityTies() map[int]int {
	result := make(map[int]int, len(m.entityIDForSolidID))
	for k, v := range m.entityIDForSolidID {
		result[k] = v
	}
	return result
}
