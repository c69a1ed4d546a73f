package vmf

import (
	"strconv"

	"github.com/darthryking/VMFMergeTool/internal/delta"
	"github.com/darthryking/VMFMergeTool/internal/vdf"
	"github.com/darthryking/VMFMergeTool/vmferr"
)

func toObjectInfo(i *delta.ObjectInfo) (ObjectInfo, bool) {
	if i == nil {
		return ObjectInfo{}, false
	}
	return ObjectInfo{Class(i.Class), i.ID}, true
}

// addObjectToTree inserts the object identified by class/id into the VDF
// tree under parent (the map root, or the "visgroups" block, if parent is
// not ok).
func (m *Map) addObjectToTree(class Class, id int, parent ObjectInfo, hasParent bool) error {
	obj, err := m.Get(class, id)
	if err != nil {
		return err
	}

	var into *Object
	if !hasParent {
		if class == VisGroup {
			v, ok := m.data.Get("visgroups")
			if !ok {
				return vmferr.NewKeyError("visgroups")
			}
			into, ok = v.(*Object)
			if !ok {
				return vmferr.NewKeyError("visgroups")
			}
		} else {
			into = m.data
		}
	} else {
		parentObj, err := m.Get(parent.Class, parent.ID)
		if err != nil {
			return err
		}
		into = parentObj
		m.parentInfo[ObjectInfo{class, id}] = parent
	}

	into.Append(string(class), obj)
	return nil
}

// removeObjectFromTree removes the object identified by class/id from
// wherever it currently sits in the VDF tree. It does not remove the
// object from the Map's per-class table.
func (m *Map) removeObjectFromTree(class Class, id int) error {
	obj, err := m.Get(class, id)
	if err != nil {
		return err
	}

	parent, hasParent := m.ParentOf(class, id)

	var from *Object
	if !hasParent {
		if class == VisGroup {
			v, ok := m.data.Get("visgroups")
			if !ok {
				return vmferr.NewKeyError("visgroups")
			}
			from, ok = v.(*Object)
			if !ok {
				return vmferr.NewKeyError("visgroups")
			}
		} else {
			from = m.data
		}
	} else {
		from, err = m.Get(parent.Class, parent.ID)
		if err != nil {
			return err
		}
		delete(m.parentInfo, ObjectInfo{class, id})
	}

	from.Remove(string(class), obj)
	return nil
}

// ApplyDeltas mutates the Map according to deltas, in order, then bumps
// the map revision (unless incrementRevision is false — used when
// applying deltas that are themselves part of constructing a diff, such
// as clone deltas for a conflict VisGroup, where the revision bump has
// already happened or will happen separately).
func (m *Map) ApplyDeltas(deltas []delta.Delta, incrementRevision bool) error {
	removed := make(map[ObjectInfo]bool)

	for _, d := range deltas {
		switch t := d.(type) {
		case delta.AddObject:
			class := Class(t.Class)
			if t.ID > m.lastIDForClass[class] {
				m.lastIDForClass[class] = t.ID
			}

			newObj := vdf.NewObject()
			if class == VisGroup {
				newObj.Set("visgroupid", strconv.Itoa(t.ID))
			} else {
				newObj.Set("id", strconv.Itoa(t.ID))
			}
			m.tableFor(class).set(t.ID, newObj)

			parentInfo, hasParent := toObjectInfo(t.Parent)
			if err := m.addObjectToTree(class, t.ID, parentInfo, hasParent); err != nil {
				return err
			}

		case delta.RemoveObject:
			class := Class(t.Class)
			parentInfo, hasParent := m.ParentOf(class, t.ID)

			skip := false
			if hasParent {
				skip = removed[parentInfo]
			}
			if !skip {
				if err := m.removeObjectFromTree(class, t.ID); err != nil {
					return err
				}
			}
			m.tableFor(class).delete(t.ID)
			removed[ObjectInfo{class, t.ID}] = true

		case delta.ChangeObject:
			// No payload of its own; real effect carried by the
			// AddProperty/ChangeProperty/etc. deltas alongside it.

		case delta.AddProperty:
			obj, err := m.Get(Class(t.Class), t.ID)
			if err != nil {
				return err
			}
			if err := SetProperty(obj, t.Key, t.Value); err != nil {
				return err
			}

		case delta.ChangeProperty:
			obj, err := m.Get(Class(t.Class), t.ID)
			if err != nil {
				return err
			}
			if err := SetProperty(obj, t.Key, t.Value); err != nil {
				return err
			}

		case delta.RemoveProperty:
			obj, err := m.Get(Class(t.Class), t.ID)
			if err != nil {
				return err
			}
			if err := DeleteProperty(obj, t.Key); err != nil {
				return err
			}

		case delta.AddOutput:
			entity, err := m.Get(Entity, t.EntityID)
			if err != nil {
				return err
			}
			connVal, ok := entity.Get("connections")
			var conn *Object
			if !ok {
				conn = vdf.NewObject()
				entity.Set("connections", conn)
			} else {
				conn = connVal.(*Object)
			}
			conn.Append(t.Output, t.Value)

		case delta.RemoveOutput:
			entity, err := m.Get(Entity, t.EntityID)
			if err != nil {
				return err
			}
			connVal, ok := entity.Get("connections")
			if !ok {
				return vmferr.NewKeyError("connections")
			}
			conn := connVal.(*Object)
			conn.Remove(t.Output, t.Value)

		case delta.TieSolid:
			m.entityIDForSolidID[t.SolidID] = t.EntityID
			if err := m.removeObjectFromTree(Solid, t.SolidID); err != nil {
				return err
			}
			if err := m.addObjectToTree(Solid, t.SolidID, ObjectInfo{Entity, t.EntityID}, true); err != nil {
				return err
			}

		case delta.UntieSolid:
			delete(m.entityIDForSolidID, t.SolidID)
			if err := m.removeObjectFromTree(Solid, t.SolidID); err != nil {
				return err
			}
			if err := m.addObjectToTree(Solid, t.SolidID, ObjectInfo{World, m.worldID}, true); err != nil {
				return err
			}

		case delta.ReparentObject:
			if err := m.removeObjectFromTree(VisGroup, t.VisGroupID); err != nil {
				return err
			}
			if t.ParentID == nil {
				if err := m.addObjectToTree(VisGroup, t.VisGroupID, ObjectInfo{}, false); err != nil {
					return err
				}
			} else {
				if err := m.addObjectToTree(VisGroup, t.VisGroupID, ObjectInfo{VisGroup, *t.ParentID}, true); err != nil {
					return err
				}
			}

		case delta.AddToVisGroup:
			obj, err := m.Get(Class(t.Class), t.ID)
			if err != nil {
				return err
			}
			vgs := GetVisGroups(obj)
			vgs[t.VisGroupID] = true
			if err := SetVisGroups(obj, vgs); err != nil {
				return err
			}

		case delta.RemoveFromVisGroup:
			obj, err := m.Get(Class(t.Class), t.ID)
			if err != nil {
				return err
			}
			vgs := GetVisGroups(obj)
			delete(vgs, t.VisGroupID)
			if err := SetVisGroups(obj, vgs); err != nil {
				return err
			}

		case delta.HideObject, delta.UnhideObject:
			// No-op: see the doc comment on these variants.
		}
	}

	if incrementRevision {
		m.incrementRevision()
	}

	return nil
}

func (m *Map) incrementRevision() {
	m.revision++
	revStr := strconv.Itoa(m.revision)

	if versionInfo, ok := objValue(m.data, "versioninfo"); ok {
		versionInfo.Set("mapversion", revStr)
	}
	m.world.Set("mapversion", revStr)
}
