// Package merger combines the delta lists produced by diffing a parent
// map against each of its children into a single list of deltas that
// mutates the parent into the merged result — detecting and reporting
// conflicts along the way rather than silently picking a side.
package merger

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/darthryking/VMFMergeTool/internal/delta"
	"github.com/darthryking/VMFMergeTool/vmf"
)

// ConflictError reports that one or more deltas across the input lists
// could not be reconciled automatically. Partial holds the deltas that
// merged cleanly; Conflicted holds every delta that took part in a
// conflict, in delta-kind order.
type ConflictError struct {
	Partial    []delta.Delta
	Conflicted []delta.Delta
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"merge conflict(s) detected in %d delta(s); human intervention required for conflict resolution",
		len(e.Conflicted),
	)
}

// box gives every delta a stable identity distinct from its equivalence
// key, so a delta can be told apart from another equivalent one even
// though neither carries a usable Go comparison operator (a delta's
// Value field may hold a slice).
type box struct {
	id    int
	delta delta.Delta
}

// orderedMap is a minimal insertion-ordered map, mirroring the semantics
// of Python's collections.OrderedDict: Set on an absent key appends it;
// Set on a present key updates the value in place; Delete followed by
// Set re-appends the key at the end, exactly as repeated del/assignment
// would reorder a real OrderedDict.
type orderedMap[K comparable, V any] struct {
	keys []K
	m    map[K]V
}

func newOrderedMap[K comparable, V any]() *orderedMap[K, V] {
	return &orderedMap[K, V]{m: make(map[K]V)}
}

func (o *orderedMap[K, V]) Get(k K) (V, bool) {
	v, ok := o.m[k]
	return v, ok
}

func (o *orderedMap[K, V]) Set(k K, v V) {
	if _, ok := o.m[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.m[k] = v
}

func (o *orderedMap[K, V]) Delete(k K) {
	if _, ok := o.m[k]; !ok {
		return
	}
	delete(o.m, k)
	for i, kk := range o.keys {
		if kk == k {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *orderedMap[K, V]) Len() int {
	return len(o.keys)
}

// Merge combines deltaLists (one list per child map, already diffed
// against the same parent) into a single delta list. If any conflicts
// are detected, it returns a nil list and a *ConflictError whose Partial
// holds the partial merge.
func Merge(deltaLists [][]delta.Delta) ([]delta.Delta, error) {
	merged := newOrderedMap[delta.EquivKey, *box]()
	conflicted := newOrderedMap[delta.EquivKey, []*box]()

	nextID := 0
	newBox := func(d delta.Delta) *box {
		nextID++
		return &box{id: nextID, delta: d}
	}

	iterProcessed := func(key delta.EquivKey) []*box {
		var result []*box
		if b, ok := merged.Get(key); ok {
			result = append(result, b)
		}
		if bs, ok := conflicted.Get(key); ok {
			result = append(result, bs...)
		}
		return result
	}

	addConflicted := func(b *box) {
		key := b.delta.Equiv()
		if existing, ok := merged.Get(key); ok && existing == b {
			merged.Delete(key)
		}
		bs, _ := conflicted.Get(key)
		conflicted.Set(key, append(bs, b))
	}

	var cascadeRemovalConflict func(b *box)
	cascadeRemovalConflict = func(b *box) {
		ro, ok := b.delta.(delta.RemoveObject)
		if !ok {
			return
		}
		for _, child := range ro.CascadedRemovals {
			childKey := delta.RemoveObject{Class: child.Class, ID: child.ID}.Equiv()
			if childBox, ok := merged.Get(childKey); ok {
				addConflicted(childBox)
				cascadeRemovalConflict(childBox)
			}
		}
	}

	merge := func(b *box) {
		switch d := b.delta.(type) {
		case delta.ChangeObject:
			removeKey := delta.RemoveObject{Class: d.Class, ID: d.ID}.Equiv()
			processed := iterProcessed(removeKey)
			if len(processed) > 0 {
				other := processed[0]
				addConflicted(b)
				addConflicted(other)
				cascadeRemovalConflict(other)
				return
			}

		case delta.AddProperty:
			changeKey := delta.ChangeObject{Class: d.Class, ID: d.ID}.Equiv()
			addKey := delta.AddObject{Class: d.Class, ID: d.ID}.Equiv()
			if _, ok := conflicted.Get(changeKey); ok {
				addConflicted(b)
				return
			}
			if _, ok := conflicted.Get(addKey); ok {
				addConflicted(b)
				return
			}
			for _, other := range iterProcessed(b.delta.Equiv()) {
				if reflect.DeepEqual(other.delta.(delta.AddProperty).Value, d.Value) {
					continue
				}
				addConflicted(b)
				addConflicted(other)
				return
			}

		case delta.ChangeProperty:
			changeKey := delta.ChangeObject{Class: d.Class, ID: d.ID}.Equiv()
			if _, ok := conflicted.Get(changeKey); ok {
				addConflicted(b)
				return
			}

			if d.Class == string(vmf.VisGroup) {
				removeVGKey := delta.RemoveObject{Class: d.Class, ID: d.ID}.Equiv()
				if _, ok := merged.Get(removeVGKey); ok {
					return
				}
			}

			removePropKey := delta.RemoveProperty{Class: d.Class, ID: d.ID, Key: d.Key}.Equiv()
			processed := iterProcessed(removePropKey)
			if len(processed) > 0 {
				other := processed[0]
				addConflicted(b)
				addConflicted(other)
				return
			}

			for _, other := range iterProcessed(b.delta.Equiv()) {
				if reflect.DeepEqual(other.delta.(delta.ChangeProperty).Value, d.Value) {
					continue
				}
				addConflicted(b)
				addConflicted(other)
				return
			}

		case delta.TieSolid:
			changeKey := delta.ChangeObject{Class: string(vmf.Solid), ID: d.SolidID}.Equiv()
			if _, ok := conflicted.Get(changeKey); ok {
				addConflicted(b)
				addEntityKey := delta.AddObject{Class: string(vmf.Entity), ID: d.EntityID}.Equiv()
				if addEntityBox, ok := merged.Get(addEntityKey); ok {
					addConflicted(addEntityBox)
				}
				return
			}

			for _, other := range iterProcessed(b.delta.Equiv()) {
				if other.delta.(delta.TieSolid).EntityID == d.EntityID {
					continue
				}
				addConflicted(b)
				addConflicted(other)
				addEntityKey := delta.AddObject{Class: string(vmf.Entity), ID: d.EntityID}.Equiv()
				if addEntityBox, ok := merged.Get(addEntityKey); ok {
					addConflicted(addEntityBox)
				}
				return
			}

		case delta.ReparentObject:
			removeVGKey := delta.RemoveObject{Class: string(vmf.VisGroup), ID: d.VisGroupID}.Equiv()
			if _, ok := merged.Get(removeVGKey); ok {
				return
			}

		case delta.AddToVisGroup:
			removeVGKey := delta.RemoveObject{Class: string(vmf.VisGroup), ID: d.VisGroupID}.Equiv()
			removeObjKey := delta.RemoveObject{Class: d.Class, ID: d.ID}.Equiv()
			if _, ok := merged.Get(removeVGKey); ok {
				return
			}
			if _, ok := merged.Get(removeObjKey); ok {
				return
			}
		}

		merged.Set(b.delta.Equiv(), b)
	}

	byKind := make(map[delta.Kind][]*box)
	for _, list := range deltaLists {
		for _, d := range list {
			k := d.Kind()
			byKind[k] = append(byKind[k], newBox(d))
		}
	}

	if bs, ok := byKind[delta.KindRemoveObject]; ok {
		reversed := make([]*box, len(bs))
		for i, b := range bs {
			reversed[len(bs)-1-i] = b
		}
		byKind[delta.KindRemoveObject] = reversed
	}

	for _, kind := range delta.Order {
		for _, b := range byKind[kind] {
			merge(b)
		}
	}

	var mergedDeltas []delta.Delta
	for _, key := range merged.keys {
		b, _ := merged.Get(key)
		mergedDeltas = append(mergedDeltas, b.delta)
	}

	if conflicted.Len() == 0 {
		return mergedDeltas, nil
	}

	kindIndex := make(map[delta.Kind]int, len(delta.Order))
	for i, k := range delta.Order {
		kindIndex[k] = i
	}

	var conflictedBoxes []*box
	for _, key := range conflicted.keys {
		bs, _ := conflicted.Get(key)
		conflictedBoxes = append(conflictedBoxes, bs...)
	}

	sort.SliceStable(conflictedBoxes, func(i, j int) bool {
		return kindIndex[conflictedBoxes[i].delta.Kind()] < kindIndex[conflictedBoxes[j].delta.Kind()]
	})

	var conflictedDeltas []delta.Delta
	for _, b := range conflictedBoxes {
		conflictedDeltas = append(conflictedDeltas, b.delta)
	}

	return nil, &ConflictError{Partial: mergedDeltas, Conflicted: conflictedDeltas}
}
