// Package resolve turns a list of conflicted deltas into new deltas that,
// once applied to the parent map, leave behind VisGroups a human can use
// to resolve the conflicts inside Hammer: a root "Manual Merge Required"
// group, per involved child a "Changed in" sub-group holding clones of what
// that child changed and a "Removed in" sub-group holding the originals of
// what it removed, and a sub-group of the parent's own pre-merge originals
// of the changed objects.
package resolve

import (
	"fmt"

	"github.com/darthryking/VMFMergeTool/internal/delta"
	"github.com/darthryking/VMFMergeTool/vmf"
)

// Create returns the deltas that synthesize conflict-resolution VisGroups
// for conflicted, which must be the Conflicted slice from a
// *merger.ConflictError produced against the same parent, along with the
// name of every VisGroup it created (the root group and every per-parent/
// per-child sub-group), in creation order — suitable for a --report
// summary of what a human still needs to resolve by hand.
func Create(parent *vmf.Map, conflicted []delta.Delta) ([]delta.Delta, []string, error) {
	var result []delta.Delta
	var visGroupNames []string

	rootID := parent.NextAvailableID(vmf.VisGroup)
	rootInfo := delta.ObjectInfo{Class: string(vmf.VisGroup), ID: rootID}
	result = append(result,
		delta.AddObject{Class: string(vmf.VisGroup), ID: rootID},
		delta.AddProperty{Class: string(vmf.VisGroup), ID: rootID, Key: "name", Value: "Manual Merge Required"},
		delta.AddProperty{Class: string(vmf.VisGroup), ID: rootID, Key: "color", Value: "255 0 0"},
	)
	visGroupNames = append(visGroupNames, "Manual Merge Required")

	createConflictVisGroup := func(name string) int {
		id := parent.NextAvailableID(vmf.VisGroup)
		result = append(result,
			delta.AddObject{Parent: &rootInfo, Class: string(vmf.VisGroup), ID: id},
			delta.AddProperty{Class: string(vmf.VisGroup), ID: id, Key: "name", Value: name},
			delta.AddProperty{Class: string(vmf.VisGroup), ID: id, Key: "color", Value: "255 0 0"},
		)
		visGroupNames = append(visGroupNames, name)
		return id
	}

	parentVisGroupID := createConflictVisGroup(parent.Filename())

	changedVisGroupForChild := make(map[string]int)
	removedVisGroupForChild := make(map[string]int)
	cloneIDsForChild := make(map[string]map[vmf.ObjectInfo]int)
	addedAddToVisGroup := make(map[delta.EquivKey]bool)

	addOnce := func(d delta.AddToVisGroup) {
		key := d.Equiv()
		if addedAddToVisGroup[key] {
			return
		}
		addedAddToVisGroup[key] = true
		result = append(result, d)
	}

	for _, d := range conflicted {
		origin := d.Origin()

		var affectedClass vmf.Class
		var affectedID int

		switch t := d.(type) {
		case delta.AddOutput:
			affectedClass, affectedID = vmf.Entity, t.EntityID
		case delta.RemoveOutput:
			affectedClass, affectedID = vmf.Entity, t.EntityID
		case delta.TieSolid:
			affectedClass, affectedID = vmf.Entity, t.EntityID
		case delta.UntieSolid:
			// UntieSolid carries no entity ID; conflicts on it are
			// reported against the solid itself.
			affectedClass, affectedID = vmf.Solid, t.SolidID
		case delta.AddObject:
			affectedClass, affectedID = vmf.Class(t.Class), t.ID
		case delta.RemoveObject:
			affectedClass, affectedID = vmf.Class(t.Class), t.ID
		case delta.ChangeObject:
			affectedClass, affectedID = vmf.Class(t.Class), t.ID
		case delta.AddProperty:
			affectedClass, affectedID = vmf.Class(t.Class), t.ID
		case delta.RemoveProperty:
			affectedClass, affectedID = vmf.Class(t.Class), t.ID
		case delta.ChangeProperty:
			affectedClass, affectedID = vmf.Class(t.Class), t.ID
		case delta.ReparentObject:
			affectedClass, affectedID = vmf.VisGroup, t.VisGroupID
		case delta.AddToVisGroup:
			affectedClass, affectedID = vmf.Class(t.Class), t.ID
		case delta.RemoveFromVisGroup:
			affectedClass, affectedID = vmf.Class(t.Class), t.ID
		default:
			continue
		}

		if affectedClass == vmf.World || affectedClass == vmf.Group || affectedClass == vmf.VisGroup {
			// Leave these conflicts for manual resolution without the aid
			// of a conflict VisGroup: the World is a singleton, and
			// Groups/VisGroups are themselves bookkeeping, not content.
			continue
		}

		if affectedClass == vmf.Side {
			parentInfo, ok := parent.ParentOf(affectedClass, affectedID)
			if !ok {
				return nil, nil, fmt.Errorf("resolve: side %d has no parent solid", affectedID)
			}
			affectedClass, affectedID = parentInfo.Class, parentInfo.ID
		}

		affectedInfo := vmf.ObjectInfo{Class: affectedClass, ID: affectedID}

		if _, isRemove := d.(delta.RemoveObject); isRemove {
			childVGID, ok := removedVisGroupForChild[origin]
			if !ok {
				childVGID = createConflictVisGroup(fmt.Sprintf("Removed in %s", origin))
				removedVisGroupForChild[origin] = childVGID
			}
			addOnce(delta.AddToVisGroup{Class: string(affectedClass), ID: affectedID, VisGroupID: childVGID})
			continue
		}

		if !parent.Has(affectedClass, affectedID) {
			// affectedInfo is a genuinely new object: an AddObject (or a
			// conflict on the properties/outputs/ties of one) that was
			// never applied to parent, so there is nothing to clone.
			// Emit d itself — for an AddObject that's what brings the
			// object into existence; for anything else it's a direct
			// edit of the object under its own ID — and drop it straight
			// into the child's "Changed" VisGroup instead of the
			// parent's.
			cloneIDs, haveClones := cloneIDsForChild[origin]
			if !haveClones {
				cloneIDs = make(map[vmf.ObjectInfo]int)
				cloneIDsForChild[origin] = cloneIDs
			}
			_, alreadySeen := cloneIDs[affectedInfo]
			cloneIDs[affectedInfo] = affectedID

			// d must apply before the AddToVisGroup below: when d is
			// itself the object's AddObject, the object has to exist
			// before anything can reference its VisGroup membership.
			result = append(result, d)

			if !alreadySeen {
				childVGID, ok := changedVisGroupForChild[origin]
				if !ok {
					childVGID = createConflictVisGroup(fmt.Sprintf("Changed in %s", origin))
					changedVisGroupForChild[origin] = childVGID
				}
				addOnce(delta.AddToVisGroup{Class: string(affectedClass), ID: affectedID, VisGroupID: childVGID})
			}
			continue
		}

		addOnce(delta.AddToVisGroup{Class: string(affectedClass), ID: affectedID, VisGroupID: parentVisGroupID})

		cloneIDs, haveClones := cloneIDsForChild[origin]
		if !haveClones {
			cloneIDs = make(map[vmf.ObjectInfo]int)
			cloneIDsForChild[origin] = cloneIDs
		}

		if _, already := cloneIDs[affectedInfo]; !already {
			cloneDeltas, err := parent.CloneObjectDeferred(affectedClass, affectedID, cloneIDs)
			if err != nil {
				return nil, nil, err
			}
			result = append(result, cloneDeltas...)

			cloneID, ok := cloneIDs[affectedInfo]
			if !ok {
				return nil, nil, fmt.Errorf("resolve: clone of %s %d did not register its own ID", affectedClass, affectedID)
			}

			childVGID, ok := changedVisGroupForChild[origin]
			if !ok {
				childVGID = createConflictVisGroup(fmt.Sprintf("Changed in %s", origin))
				changedVisGroupForChild[origin] = childVGID
			}

			result = append(result, delta.AddToVisGroup{Class: string(affectedClass), ID: cloneID, VisGroupID: childVGID})
		}

		cloneDelta, err := remapToClone(d, cloneIDs)
		if err != nil {
			return nil, nil, err
		}
		result = append(result, cloneDelta)
	}

	return result, visGroupNames, nil
}

// remapToClone copies d with its (Class, ID) target redirected to the
// clone that stands in for the original affected object.
func remapToClone(d delta.Delta, cloneIDs map[vmf.ObjectInfo]int) (delta.Delta, error) {
	remap := func(class string, id int) (int, error) {
		cloneID, ok := cloneIDs[vmf.ObjectInfo{Class: vmf.Class(class), ID: id}]
		if !ok {
			return 0, fmt.Errorf("resolve: no clone registered for %s %d", class, id)
		}
		return cloneID, nil
	}

	switch t := d.(type) {
	case delta.AddProperty:
		id, err := remap(t.Class, t.ID)
		if err != nil {
			return nil, err
		}
		t.ID = id
		return t, nil
	case delta.RemoveProperty:
		id, err := remap(t.Class, t.ID)
		if err != nil {
			return nil, err
		}
		t.ID = id
		return t, nil
	case delta.ChangeProperty:
		id, err := remap(t.Class, t.ID)
		if err != nil {
			return nil, err
		}
		t.ID = id
		return t, nil
	case delta.AddOutput:
		id, err := remap(string(vmf.Entity), t.EntityID)
		if err != nil {
			return nil, err
		}
		t.EntityID = id
		return t, nil
	case delta.RemoveOutput:
		id, err := remap(string(vmf.Entity), t.EntityID)
		if err != nil {
			return nil, err
		}
		t.EntityID = id
		return t, nil
	case delta.TieSolid:
		id, err := remap(string(vmf.Entity), t.EntityID)
		if err != nil {
			return nil, err
		}
		t.EntityID = id
		return t, nil
	case delta.UntieSolid:
		id, err := remap(string(vmf.Solid), t.SolidID)
		if err != nil {
			return nil, err
		}
		t.SolidID = id
		return t, nil
	case delta.ChangeObject:
		id, err := remap(t.Class, t.ID)
		if err != nil {
			return nil, err
		}
		t.ID = id
		return t, nil
	case delta.AddObject:
		id, err := remap(t.Class, t.ID)
		if err != nil {
			return nil, err
		}
		t.ID = id
		return t, nil
	default:
		return nil, fmt.Errorf("resolve: unsupported delta type %T for clone remap", d)
	}
}
