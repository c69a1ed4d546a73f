// Package vmf implements the in-memory model of a Valve Map File: per-class
// object tables, parent-pointer and solid/entity tie tables, and the
// property-path, output, and VisGroup-membership helpers the differ,
// merger, and conflict resolver are built on.
package vmf

// Class identifies one of the object kinds a VMF distinguishes. IDs are
// unique per Class within a single Map; VisGroup IDs live under the
// "visgroupid" attribute, all others under "id".
type Class string

const (
	World    Class = "world"
	Solid    Class = "solid"
	Side     Class = "side"
	Group    Class = "group"
	Entity   Class = "entity"
	VisGroup Class = "visgroup"
)

// Classes lists every object class, in the order iter_objects() visits
// them: higher-level containers (VisGroup, Group, World, Entity) before
// the lower-level objects (Solid, Side) that depend on them existing
// first.
var Classes = []Class{VisGroup, Group, World, Entity, Solid, Side}

// Extension is the required file extension for a VMF document.
const Extension = ".vmf"

// PropertyDelimiter joins nested property path segments. It contains a
// double quote, the one human-readable character forbidden inside any VMF
// field text, so a delimiter-joined path can never collide with user data.
const PropertyDelimiter = `"::"`

// VisGroupPropertyPath is the full property path to an object's VisGroup
// membership list.
const VisGroupPropertyPath = "editor" + PropertyDelimiter + "visgroupid"

// GroupPropertyPath is the full property path to an object's owning Group.
const GroupPropertyPath = "editor" + PropertyDelimiter + "groupid"

// idPropertyName returns the attribute name that carries a Class's ID:
// "visgroupid" for VisGroups, "id" for everything else.
func idPropertyName(class Class) string {
	if class == VisGroup {
		return "visgroupid"
	}
	return "id"
}

// ObjectInfo identifies one object by class and ID, the unit every parent
// pointer, delta, and lookup in this module is keyed on.
type ObjectInfo struct {
	Class Class
	ID    int
}
