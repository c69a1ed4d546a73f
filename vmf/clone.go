package vmf

import (
	"fmt"

	"github.com/darthryking/VMFMergeTool/internal/delta"
)

// CloneObjectDeferred returns the deltas sufficient to deep-clone the
// object identified by class/id (and all of its sub-objects), without
// applying them. cloneIDs, if non-nil, is populated with the mapping
// from each cloned object's original ObjectInfo to the ID its clone was
// given.
//
// World, Group, and VisGroup cannot be cloned this way: World is a
// singleton, and Groups/VisGroups are conflict-resolution bookkeeping
// rather than mergeable map content.
func (m *Map) CloneObjectDeferred(class Class, id int, cloneIDs map[ObjectInfo]int) ([]delta.Delta, error) {
	if class == World || class == Group || class == VisGroup {
		return nil, fmt.Errorf("vmf: cannot clone a %s object", class)
	}

	obj, err := m.Get(class, id)
	if err != nil {
		return nil, err
	}

	var result []delta.Delta

	parentInfo, hasParent := m.ParentOf(class, id)

	newID := m.NextAvailableID(class)

	var parentPtr *delta.ObjectInfo
	if hasParent {
		parentPtr = &delta.ObjectInfo{Class: string(parentInfo.Class), ID: parentInfo.ID}
	}
	result = append(result, delta.AddObject{Parent: parentPtr, Class: string(class), ID: newID})

	if cloneIDs != nil {
		cloneIDs[ObjectInfo{class, id}] = newID
	}

	for _, prop := range IterProperties(obj) {
		result = append(result, delta.AddProperty{Class: string(class), ID: newID, Key: prop.Key, Value: prop.Value})
	}

	if class == Entity {
		for _, out := range IterOutputs(obj) {
			result = append(result, delta.AddOutput{
				EntityID: newID,
				Output:   out.OutputName,
				Value:    out.Value,
				Index:    out.Index,
			})
		}
	}

	subInfos, err := m.IterSubObjectInfos(class, id)
	if err != nil {
		return nil, err
	}

	for _, subInfo := range subInfos {
		subDeltas, err := m.CloneObjectDeferred(subInfo.Class, subInfo.ID, cloneIDs)
		if err != nil {
			return nil, err
		}

		for i, d := range subDeltas {
			if add, ok := d.(delta.AddObject); ok &&
				add.Parent != nil &&
				add.Parent.Class == string(class) &&
				add.Parent.ID == id {
				add.Parent = &delta.ObjectInfo{Class: string(class), ID: newID}
				subDeltas[i] = add
			}
		}

		result = append(result, subDeltas...)
	}

	return result, nil
}
