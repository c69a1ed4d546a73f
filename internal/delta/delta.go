// Package delta defines the closed algebra of changes a VMF diff, merge,
// and conflict-resolution pass operates on. Every mutation a merge can
// make to a map is expressed as one of the concrete Delta variants below;
// nothing else touches a vmf.Map's tree directly.
//
// Class and object IDs are carried as plain strings/ints rather than the
// vmf package's Class type, so this package has no dependency on vmf at
// all: vmf.Class's underlying type is string, so callers convert at the
// boundary with a plain type conversion.
package delta

// ObjectInfo identifies one object by class and ID.
type ObjectInfo struct {
	Class string
	ID    int
}

// Kind discriminates the concrete Delta variants. The order in which a
// merge processes them is given by Order, not by these constants' values.
type Kind int

const (
	KindAddObject Kind = iota
	KindTieSolid
	KindUntieSolid
	KindRemoveObject
	KindChangeObject
	KindAddProperty
	KindRemoveProperty
	KindChangeProperty
	KindAddOutput
	KindRemoveOutput
	KindReparentObject
	KindAddToVisGroup
	KindRemoveFromVisGroup
	KindHideObject
	KindUnhideObject
)

// Order is the fixed delta-type processing order a merge follows.
// RemoveObject deltas are walked in reverse within this order, so a
// parent's removal is merged (and can cascade conflicts into) its
// children's removals before the parent disappears from
// mergedDeltasDict.
var Order = []Kind{
	KindAddObject,
	KindUntieSolid,
	KindRemoveObject,
	KindTieSolid,
	KindChangeObject,
	KindAddProperty,
	KindRemoveProperty,
	KindChangeProperty,
	KindAddOutput,
	KindRemoveOutput,
	KindReparentObject,
	KindAddToVisGroup,
	KindRemoveFromVisGroup,
}

// EquivKey is the key two deltas are compared and hashed by for the
// purposes of merging and conflict detection: two deltas "conflict" when
// they carry equal EquivKeys but are not identical, and a delta is
// unconditionally replaced by a later one with the same EquivKey and
// value. Equivalence ignores the actual value/content of a change; it is
// the detector of "same conceptual edit by two sides."
type EquivKey struct {
	Kind        Kind
	Class       string
	ID          int
	Key         string
	VisGroupID  int
	EntityID    int
	Output      string
	Value       string
	OutputIndex int
}

// Delta is implemented by every concrete delta variant.
type Delta interface {
	Kind() Kind
	Equiv() EquivKey
	// Origin names the child map this delta was produced against, for
	// conflict-resolution VisGroup labeling. Empty for deltas synthesized
	// outside of a diff (e.g. conflict-resolution deltas themselves).
	Origin() string
	WithOrigin(origin string) Delta
}

// AddObject adds a new object of Class under Parent (nil for "attach
// directly to the map root", the special case World/top-level Entities
// and top-level VisGroups use).
type AddObject struct {
	Parent *ObjectInfo
	Class  string
	ID     int
	Of     string
}

func (d AddObject) Kind() Kind       { return KindAddObject }
func (d AddObject) Origin() string   { return d.Of }
func (d AddObject) Equiv() EquivKey  { return EquivKey{Kind: KindAddObject, Class: d.Class, ID: d.ID} }
func (d AddObject) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// RemoveObject deletes an existing object. CascadedRemovals lists the
// sub-objects (one level of cascade short of exhaustive — each cascaded
// removal carries its own CascadedRemovals) that a merge conflict on this
// delta must also conflict.
type RemoveObject struct {
	Class            string
	ID               int
	CascadedRemovals []ObjectInfo
	Of               string
}

func (d RemoveObject) Kind() Kind { return KindRemoveObject }
func (d RemoveObject) Origin() string { return d.Of }
func (d RemoveObject) Equiv() EquivKey {
	return EquivKey{Kind: KindRemoveObject, Class: d.Class, ID: d.ID}
}
func (d RemoveObject) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// ChangeObject marks that some property, output, tie, or VisGroup
// membership of an existing object changed. It carries no payload of its
// own; it exists purely so a RemoveObject on the same object can be
// detected as conflicting with whatever changed it.
type ChangeObject struct {
	Class string
	ID    int
	Of    string
}

func (d ChangeObject) Kind() Kind      { return KindChangeObject }
func (d ChangeObject) Origin() string  { return d.Of }
func (d ChangeObject) Equiv() EquivKey { return EquivKey{Kind: KindChangeObject, Class: d.Class, ID: d.ID} }
func (d ChangeObject) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// AddProperty adds a new, previously-absent property.
type AddProperty struct {
	Class string
	ID    int
	Key   string
	Value interface{}
	Of    string
}

func (d AddProperty) Kind() Kind     { return KindAddProperty }
func (d AddProperty) Origin() string { return d.Of }
func (d AddProperty) Equiv() EquivKey {
	return EquivKey{Kind: KindAddProperty, Class: d.Class, ID: d.ID, Key: d.Key}
}
func (d AddProperty) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// RemoveProperty deletes an existing property.
type RemoveProperty struct {
	Class string
	ID    int
	Key   string
	Of    string
}

func (d RemoveProperty) Kind() Kind     { return KindRemoveProperty }
func (d RemoveProperty) Origin() string { return d.Of }
func (d RemoveProperty) Equiv() EquivKey {
	return EquivKey{Kind: KindRemoveProperty, Class: d.Class, ID: d.ID, Key: d.Key}
}
func (d RemoveProperty) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// ChangeProperty overwrites an existing property's value.
type ChangeProperty struct {
	Class string
	ID    int
	Key   string
	Value interface{}
	Of    string
}

func (d ChangeProperty) Kind() Kind     { return KindChangeProperty }
func (d ChangeProperty) Origin() string { return d.Of }
func (d ChangeProperty) Equiv() EquivKey {
	return EquivKey{Kind: KindChangeProperty, Class: d.Class, ID: d.ID, Key: d.Key}
}
func (d ChangeProperty) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// TieSolid reparents a brush Solid onto a brush Entity.
type TieSolid struct {
	SolidID  int
	EntityID int
	Of       string
}

func (d TieSolid) Kind() Kind      { return KindTieSolid }
func (d TieSolid) Origin() string  { return d.Of }
func (d TieSolid) Equiv() EquivKey { return EquivKey{Kind: KindTieSolid, ID: d.SolidID} }
func (d TieSolid) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// UntieSolid reparents a brush Solid back onto the World.
type UntieSolid struct {
	SolidID int
	Of      string
}

func (d UntieSolid) Kind() Kind      { return KindUntieSolid }
func (d UntieSolid) Origin() string  { return d.Of }
func (d UntieSolid) Equiv() EquivKey { return EquivKey{Kind: KindUntieSolid, ID: d.SolidID} }
func (d UntieSolid) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// AddOutput adds an entity I/O connection. Index counts duplicate
// (Output, Value) pairs already present, disambiguating otherwise-equal
// outputs.
type AddOutput struct {
	EntityID int
	Output   string
	Value    string
	Index    int
	Of       string
}

func (d AddOutput) Kind() Kind     { return KindAddOutput }
func (d AddOutput) Origin() string { return d.Of }
func (d AddOutput) Equiv() EquivKey {
	return EquivKey{Kind: KindAddOutput, EntityID: d.EntityID, Output: d.Output, Value: d.Value, OutputIndex: d.Index}
}
func (d AddOutput) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// RemoveOutput removes an entity I/O connection.
type RemoveOutput struct {
	EntityID int
	Output   string
	Value    string
	Index    int
	Of       string
}

func (d RemoveOutput) Kind() Kind     { return KindRemoveOutput }
func (d RemoveOutput) Origin() string { return d.Of }
func (d RemoveOutput) Equiv() EquivKey {
	return EquivKey{Kind: KindRemoveOutput, EntityID: d.EntityID, Output: d.Output, Value: d.Value, OutputIndex: d.Index}
}
func (d RemoveOutput) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// ReparentObject moves a VisGroup to a new parent VisGroup (ParentID nil
// for "becomes top-level").
type ReparentObject struct {
	VisGroupID int
	ParentID   *int
	Of         string
}

func (d ReparentObject) Kind() Kind { return KindReparentObject }
func (d ReparentObject) Origin() string { return d.Of }
func (d ReparentObject) Equiv() EquivKey {
	return EquivKey{Kind: KindReparentObject, ID: d.VisGroupID}
}
func (d ReparentObject) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// AddToVisGroup adds an object's membership in a VisGroup.
type AddToVisGroup struct {
	Class      string
	ID         int
	VisGroupID int
	Of         string
}

func (d AddToVisGroup) Kind() Kind     { return KindAddToVisGroup }
func (d AddToVisGroup) Origin() string { return d.Of }
func (d AddToVisGroup) Equiv() EquivKey {
	return EquivKey{Kind: KindAddToVisGroup, Class: d.Class, ID: d.ID, VisGroupID: d.VisGroupID}
}
func (d AddToVisGroup) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// RemoveFromVisGroup removes an object's membership in a VisGroup.
type RemoveFromVisGroup struct {
	Class      string
	ID         int
	VisGroupID int
	Of         string
}

func (d RemoveFromVisGroup) Kind() Kind     { return KindRemoveFromVisGroup }
func (d RemoveFromVisGroup) Origin() string { return d.Of }
func (d RemoveFromVisGroup) Equiv() EquivKey {
	return EquivKey{Kind: KindRemoveFromVisGroup, Class: d.Class, ID: d.ID, VisGroupID: d.VisGroupID}
}
func (d RemoveFromVisGroup) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

// HideObject and UnhideObject are carried through the algebra for
// completeness with the object model's "hidden" bookkeeping, but neither
// the differ nor the merger currently produce them: Hammer's per-object
// visibility flag is a local editor setting, not map content worth
// merging, so apply treats both as no-ops.
type HideObject struct {
	Class string
	ID    int
	Of    string
}

func (d HideObject) Kind() Kind      { return KindHideObject }
func (d HideObject) Origin() string  { return d.Of }
func (d HideObject) Equiv() EquivKey { return EquivKey{Kind: KindHideObject, Class: d.Class, ID: d.ID} }
func (d HideObject) WithOrigin(o string) Delta {
	d.Of = o
	return d
}

type UnhideObject struct {
	Class string
	ID    int
	Of    string
}

func (d UnhideObject) Kind() Kind { return KindUnhideObject }
func (d UnhideObject) Origin() string { return d.Of }
func (d UnhideObject) Equiv() EquivKey {
	return EquivKey{Kind: KindUnhideObject, Class: d.Class, ID: d.ID}
}
func (d UnhideObject) WithOrigin(o string) Delta {
	d.Of = o
	return d
}
