package vmf

import "github.com/darthryking/VMFMergeTool/vmferr"

func (m *Map) tableFor(class Class) *table {
	switch class {
	case Solid:
		return m.solids
	case Side:
		return m.sides
	case Group:
		return m.groups
	case Entity:
		return m.entities
	case VisGroup:
		return m.visGroups
	default:
		return nil
	}
}

// Get returns the object identified by class and id.
func (m *Map) Get(class Class, id int) (*Object, error) {
	if class == World {
		if id != m.worldID {
			return nil, vmferr.NewObjectDoesNotExist(string(class), id)
		}
		return m.world, nil
	}

	t := m.tableFor(class)
	if t == nil {
		return nil, vmferr.NewObjectDoesNotExist(string(class), id)
	}
	obj, ok := t.get(id)
	if !ok {
		return nil, vmferr.NewObjectDoesNotExist(string(class), id)
	}
	return obj, nil
}

// Has reports whether an object identified by class and id exists.
func (m *Map) Has(class Class, id int) bool {
	_, err := m.Get(class, id)
	return err == nil
}

// IterObjects calls visit once for every object in the Map, in the fixed
// order VisGroup, Group, World, Entity, Solid, Side: higher-level
// containers before the lower-level objects that depend on them already
// existing.
func (m *Map) IterObjects(visit func(class Class, id int, obj *Object)) {
	for _, id := range m.visGroups.order {
		visit(VisGroup, id, m.visGroups.byID[id])
	}
	for _, id := range m.groups.order {
		visit(Group, id, m.groups.byID[id])
	}
	visit(World, m.worldID, m.world)
	for _, id := range m.entities.order {
		visit(Entity, id, m.entities.byID[id])
	}
	for _, id := range m.solids.order {
		visit(Solid, id, m.solids.byID[id])
	}
	for _, id := range m.sides.order {
		visit(Side, id, m.sides.byID[id])
	}
}

// IterSubObjectInfos returns the direct sub-objects of the given object,
// one level deep: Solids for World/Entity, Sides for Solid, child
// VisGroups for VisGroup. Side and Group have none.
func (m *Map) IterSubObjectInfos(class Class, id int) ([]ObjectInfo, error) {
	obj, err := m.Get(class, id)
	if err != nil {
		return nil, err
	}

	var subClass Class
	switch class {
	case World, Entity:
		subClass = Solid
	case Solid:
		subClass = Side
	case VisGroup:
		subClass = VisGroup
	case Side, Group:
		return nil, nil
	default:
		return nil, nil
	}

	v, ok := obj.Get(string(subClass))
	if !ok {
		return nil, nil
	}
	if _, isString := v.(string); isString {
		// A point entity's literal "solid" property, not a sub-object list.
		return nil, nil
	}

	var result []ObjectInfo
	for _, subObj := range objectsOf(v, subClass) {
		subID, err := getIntProperty(subObj, idPropertyName(subClass))
		if err != nil {
			return nil, err
		}
		result = append(result, ObjectInfo{subClass, subID})
	}
	return result, nil
}

// NextAvailableID mints and reserves the next unused ID for class.
func (m *Map) NextAvailableID(class Class) int {
	m.lastIDForClass[class]++
	return m.lastIDForClass[class]
}

// ParentOf returns the parent of the given object, if it has one.
func (m *Map) ParentOf(class Class, id int) (ObjectInfo, bool) {
	info, ok := m.parentInfo[ObjectInfo{class, id}]
	return info, ok
}

// EntityForSolid returns the entity a brush solid is tied to, if any. If
// ok is false, the solid belongs to the world.
func (m *Map) EntityForSolid(solidID int) (int, bool) {
	entityID, ok := m.entityIDForSolidID[solidID]
	return entityID, ok
}
