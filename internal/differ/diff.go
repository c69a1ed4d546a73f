// Package differ implements the three-way structural comparison between
// a parent map and one child map, producing the list of deltas required
// to mutate the parent into the child.
package differ

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/darthryking/VMFMergeTool/internal/delta"
	"github.com/darthryking/VMFMergeTool/internal/vdf"
	"github.com/darthryking/VMFMergeTool/vmf"
)

// sidesEntityClassnames names entity classes whose "sides" property
// refers to a space-separated list of brush face (Side) IDs, which need
// renumbering whenever a diff mints new Side IDs.
var sidesEntityClassnames = map[string]bool{
	"env_cubemap":  true,
	"info_overlay": true,
}

// Diff compares parent against child and returns the deltas that would
// mutate parent into child, tagged with origin (normally child's
// filename, for conflict-resolution labeling).
//
// Diff mints fresh IDs on parent for every object new in child, which
// means it mutates parent's ID counters as a side effect — this is by
// design, since every child's new objects must land on non-colliding
// parent-space IDs, but it does mean Diff is not safe to call twice
// against the same parent without that in mind.
func Diff(parent, child *vmf.Map, origin string) ([]delta.Delta, error) {
	var deltas []delta.Delta

	// sidesPropertyIdx indexes positions in deltas that carry a "sides"
	// property value needing Side-ID fixup once every new Side has a
	// final parent-space ID.
	var sidesPropertyIdx []int

	// newIDForNewChildObject relates a new child object's original
	// identity to the fresh ID it was assigned in parent-space.
	newIDForNewChildObject := make(map[vmf.ObjectInfo]int)

	addVisGroupDeltas := func(class vmf.Class, id int, baseIDs, childIDs map[int]bool) {
		for visGroupID := range childIDs {
			if baseIDs[visGroupID] {
				continue
			}
			resolvedID := visGroupID
			if newID, ok := newIDForNewChildObject[vmf.ObjectInfo{Class: vmf.VisGroup, ID: visGroupID}]; ok {
				resolvedID = newID
			}
			deltas = append(deltas, delta.AddToVisGroup{
				Class: string(class), ID: id, VisGroupID: resolvedID, Of: origin,
			})
		}
		for visGroupID := range baseIDs {
			if childIDs[visGroupID] {
				continue
			}
			deltas = append(deltas, delta.RemoveFromVisGroup{
				Class: string(class), ID: id, VisGroupID: visGroupID, Of: origin,
			})
		}
	}

	// --- Check for new objects. ---
	for _, ref := range child.AllObjects() {
		class, id, obj := ref.Class, ref.ID, ref.Obj

		if parent.Has(class, id) {
			continue
		}

		newID := parent.NextAvailableID(class)
		newIDForNewChildObject[vmf.ObjectInfo{Class: class, ID: id}] = newID

		var newParentPtr *delta.ObjectInfo
		if parentInfo, hasParent := child.ParentOf(class, id); hasParent {
			resolved := parentInfo
			if mappedID, ok := newIDForNewChildObject[parentInfo]; ok {
				resolved = vmf.ObjectInfo{Class: parentInfo.Class, ID: mappedID}
			}
			newParentPtr = &delta.ObjectInfo{Class: string(resolved.Class), ID: resolved.ID}
		}

		deltas = append(deltas, delta.AddObject{Parent: newParentPtr, Class: string(class), ID: newID, Of: origin})

		for _, prop := range vmf.IterProperties(obj) {
			if class == vmf.VisGroup && (prop.Key == string(vmf.VisGroup) || prop.Key == "visgroupid") {
				continue
			}

			if prop.Key == vmf.VisGroupPropertyPath {
				childIDs := toIDSet(prop.Value)
				addVisGroupDeltas(class, newID, map[int]bool{}, childIDs)
				continue
			}

			value := prop.Value
			if prop.Key == vmf.GroupPropertyPath {
				value = remapGroupID(value, newIDForNewChildObject)
			}

			propDelta := delta.AddProperty{Class: string(class), ID: newID, Key: prop.Key, Value: value, Of: origin}
			deltas = append(deltas, propDelta)

			if class == vmf.Entity && prop.Key == "sides" && hasSidesClassname(obj) {
				sidesPropertyIdx = append(sidesPropertyIdx, len(deltas)-1)
			}
		}

		if class == vmf.Entity {
			for _, out := range vmf.IterOutputs(obj) {
				deltas = append(deltas, delta.AddOutput{
					EntityID: newID, Output: out.OutputName, Value: out.Value, Index: out.Index, Of: origin,
				})
			}
		}
	}

	// --- Check for changed/deleted objects. ---
	changeObjectSeen := make(map[delta.EquivKey]bool)

	var addChangeObjectDeltas func(class vmf.Class, id int)
	addChangeObjectDeltas = func(class vmf.Class, id int) {
		if class == vmf.VisGroup {
			return
		}

		for {
			key := delta.ChangeObject{Class: string(class), ID: id}.Equiv()
			if changeObjectSeen[key] {
				return
			}
			changeObjectSeen[key] = true
			deltas = append(deltas, delta.ChangeObject{Class: string(class), ID: id, Of: origin})

			parentInfo, hasParent := parent.ParentOf(class, id)
			if !hasParent {
				return
			}

			if parentInfo.Class == vmf.Entity {
				// class must be Solid here: a tied brush solid's parent.
				if _, tied := child.EntityForSolid(id); !tied {
					// Untied in child; the cascade stops here rather than
					// reaching an entity this solid no longer belongs to.
					return
				}
			}

			class, id = parentInfo.Class, parentInfo.ID
		}
	}

	for _, ref := range parent.AllObjects() {
		class, id, parentObj := ref.Class, ref.ID, ref.Obj

		childObj, err := child.Get(class, id)
		if err != nil {
			subInfos, _ := parent.IterSubObjectInfos(class, id)
			var cascaded []delta.ObjectInfo
			for _, si := range subInfos {
				cascaded = append(cascaded, delta.ObjectInfo{Class: string(si.Class), ID: si.ID})
			}
			deltas = append(deltas, delta.RemoveObject{Class: string(class), ID: id, CascadedRemovals: cascaded, Of: origin})
			continue
		}

		if class == vmf.VisGroup {
			parentParent, parentHas := parent.ParentOf(class, id)
			childParent, childHas := child.ParentOf(class, id)

			reparented := parentHas != childHas || (parentHas && childHas && parentParent != childParent)
			if reparented {
				var newParentID *int
				if childHas {
					id2 := childParent.ID
					newParentID = &id2
				}
				deltas = append(deltas, delta.ReparentObject{VisGroupID: id, ParentID: newParentID, Of: origin})
			}
		} else {
			addVisGroupDeltas(class, id, vmf.GetVisGroups(parentObj), vmf.GetVisGroups(childObj))
		}

		for _, prop := range vmf.IterProperties(childObj) {
			if prop.Key == vmf.VisGroupPropertyPath {
				continue
			}
			if vmf.HasProperty(parentObj, prop.Key) {
				continue
			}

			addChangeObjectDeltas(class, id)

			value := prop.Value
			if prop.Key == vmf.GroupPropertyPath {
				value = remapGroupID(value, newIDForNewChildObject)
			}

			propDelta := delta.AddProperty{Class: string(class), ID: id, Key: prop.Key, Value: value, Of: origin}
			deltas = append(deltas, propDelta)

			if class == vmf.Entity && prop.Key == "sides" && hasSidesClassname(childObj) {
				sidesPropertyIdx = append(sidesPropertyIdx, len(deltas)-1)
			}
		}

		for _, prop := range vmf.IterProperties(parentObj) {
			if prop.Key == vmf.VisGroupPropertyPath {
				continue
			}

			childValue, err := vmf.GetProperty(childObj, prop.Key)
			if err != nil {
				addChangeObjectDeltas(class, id)
				deltas = append(deltas, delta.RemoveProperty{Class: string(class), ID: id, Key: prop.Key, Of: origin})
				continue
			}

			if valuesEqual(childValue, prop.Value) {
				continue
			}

			addChangeObjectDeltas(class, id)

			value := childValue
			if prop.Key == vmf.GroupPropertyPath {
				value = remapGroupID(value, newIDForNewChildObject)
			}

			propDelta := delta.ChangeProperty{Class: string(class), ID: id, Key: prop.Key, Value: value, Of: origin}
			deltas = append(deltas, propDelta)

			if class == vmf.Entity && prop.Key == "sides" && hasSidesClassname(childObj) {
				sidesPropertyIdx = append(sidesPropertyIdx, len(deltas)-1)
			}
		}

		if class == vmf.Entity {
			parentOutputs := outputSet(vmf.IterOutputs(parentObj))
			childOutputs := outputSet(vmf.IterOutputs(childObj))

			for out := range childOutputs {
				if parentOutputs[out] {
					continue
				}
				addChangeObjectDeltas(class, id)
				deltas = append(deltas, delta.AddOutput{EntityID: id, Output: out.Output, Value: out.Value, Index: out.Index, Of: origin})
			}
			for out := range parentOutputs {
				if childOutputs[out] {
					continue
				}
				addChangeObjectDeltas(class, id)
				deltas = append(deltas, delta.RemoveOutput{EntityID: id, Output: out.Output, Value: out.Value, Index: out.Index, Of: origin})
			}
		}
	}

	// --- Check for newly-tied and re-tied solids. ---
	childTies := child.EntityTies()
	parentTies := parent.EntityTies()

	for solidID, entityID := range childTies {
		parentEntityID, hadTie := parentTies[solidID]
		if !hadTie {
			if _, isNewSolid := newIDForNewChildObject[vmf.ObjectInfo{Class: vmf.Solid, ID: solidID}]; isNewSolid {
				continue
			}
			newEntityID := entityID
			if mapped, ok := newIDForNewChildObject[vmf.ObjectInfo{Class: vmf.Entity, ID: entityID}]; ok {
				newEntityID = mapped
			}
			deltas = append(deltas, delta.TieSolid{SolidID: solidID, EntityID: newEntityID, Of: origin})
		} else if parentEntityID != entityID {
			newEntityID := entityID
			if mapped, ok := newIDForNewChildObject[vmf.ObjectInfo{Class: vmf.Entity, ID: entityID}]; ok {
				newEntityID = mapped
			}
			deltas = append(deltas, delta.UntieSolid{SolidID: solidID, Of: origin})
			deltas = append(deltas, delta.TieSolid{SolidID: solidID, EntityID: newEntityID, Of: origin})
		}
	}

	for solidID := range parentTies {
		if _, stillTied := childTies[solidID]; !stillTied {
			deltas = append(deltas, delta.UntieSolid{SolidID: solidID, Of: origin})
		}
	}

	// --- Fix up cubemap/overlay "sides" references. ---
	for _, idx := range sidesPropertyIdx {
		value, err := fixSidesValue(deltas[idx], newIDForNewChildObject)
		if err != nil {
			return nil, err
		}
		switch d := deltas[idx].(type) {
		case delta.AddProperty:
			d.Value = value
			deltas[idx] = d
		case delta.ChangeProperty:
			d.Value = value
			deltas[idx] = d
		}
	}

	return deltas, nil
}

func hasSidesClassname(entity *vmf.Object) bool {
	v, err := vmf.GetProperty(entity, "classname")
	if err != nil {
		return false
	}
	s, ok := v.(string)
	return ok && sidesEntityClassnames[s]
}

func toIDSet(v vdf.Value) map[int]bool {
	result := make(map[int]bool)
	for _, item := range vdf.AsList(v) {
		s, ok := item.(string)
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err == nil {
			result[id] = true
		}
	}
	return result
}

func remapGroupID(value interface{}, newIDs map[vmf.ObjectInfo]int) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	groupID, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return value
	}
	if newID, ok := newIDs[vmf.ObjectInfo{Class: vmf.Group, ID: groupID}]; ok {
		return strconv.Itoa(newID)
	}
	return strconv.Itoa(groupID)
}

func valuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

type outputKey struct {
	Output string
	Value  string
	Index  int
}

func outputSet(outputs []vmf.Output) map[outputKey]bool {
	result := make(map[outputKey]bool, len(outputs))
	for _, o := range outputs {
		result[outputKey{o.OutputName, o.Value, o.Index}] = true
	}
	return result
}

func fixSidesValue(d delta.Delta, newIDs map[vmf.ObjectInfo]int) (string, error) {
	var raw interface{}
	switch t := d.(type) {
	case delta.AddProperty:
		raw = t.Value
	case delta.ChangeProperty:
		raw = t.Value
	default:
		return "", fmt.Errorf("differ: unexpected delta type for sides fixup")
	}

	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("differ: \"sides\" property is not a scalar string")
	}

	fields := strings.Fields(s)
	fixed := make([]string, 0, len(fields))
	for _, f := range fields {
		sideID, err := strconv.Atoi(f)
		if err != nil {
			fixed = append(fixed, f)
			continue
		}
		if newID, ok := newIDs[vmf.ObjectInfo{Class: vmf.Side, ID: sideID}]; ok {
			fixed = append(fixed, strconv.Itoa(newID))
		} else {
			fixed = append(fixed, strconv.Itoa(sideID))
		}
	}

	return strings.Join(fixed, " "), nil
}
