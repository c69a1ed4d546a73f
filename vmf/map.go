package vmf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/darthryking/VMFMergeTool/internal/vdf"
	"github.com/darthryking/VMFMergeTool/vmferr"
)

// Object is a raw VDF node: the representation every VMF object (world,
// solid, side, entity, group, visgroup) takes before any class-specific
// meaning is layered on top of it.
type Object = vdf.Object

// Map is an in-memory Valve Map File: the parsed VDF tree, indexed by
// class and ID for O(1) lookup, plus the parent-pointer and solid/entity
// tie tables the differ and merger need but the raw tree doesn't expose
// directly.
type Map struct {
	data *Object
	path string

	revision int

	lastIDForClass map[Class]int

	world   *Object
	worldID int

	solids    *table
	sides     *table
	groups    *table
	entities  *table
	visGroups *table

	// entityIDForSolidID relates brush solid IDs to the entity they are
	// tied to. A solid with no entry here belongs to the world.
	entityIDForSolidID map[int]int

	// parentInfo relates an object's identity to its parent's, for every
	// object that has one. World, top-level Entities and top-level
	// VisGroups have no entry.
	parentInfo map[ObjectInfo]ObjectInfo
}

// Load reads and parses the *.vmf file at path into a Map.
func Load(path string) (*Map, error) {
	if filepath.Ext(path) != Extension {
		return nil, vmferr.NewInvalidMap(path, "invalid file extension")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, vmferr.NewInvalidMap(path, err.Error())
	}

	data, err := vdf.Parse(raw)
	if err != nil {
		return nil, vmferr.NewInvalidMap(path, fmt.Sprintf("failed to parse VMF: %v", err))
	}

	return New(data, path)
}

// New builds a Map from an already-parsed VDF tree.
func New(data *Object, path string) (*Map, error) {
	m := &Map{
		data:               data,
		path:               path,
		lastIDForClass:     make(map[Class]int),
		solids:             newTable(),
		sides:              newTable(),
		groups:             newTable(),
		entities:           newTable(),
		visGroups:          newTable(),
		entityIDForSolidID: make(map[int]int),
		parentInfo:         make(map[ObjectInfo]ObjectInfo),
	}

	versionInfo, ok := objValue(data, "versioninfo")
	if !ok {
		return nil, vmferr.NewInvalidMap(path, "VMF has no versioninfo entry")
	}
	rev, err := getIntProperty(versionInfo, "mapversion")
	if err != nil {
		return nil, vmferr.NewInvalidMap(path, "versioninfo has no mapversion")
	}
	m.revision = rev

	for _, key := range data.Keys() {
		v, _ := data.Get(key)
		switch key {
		case string(World):
			world, ok := v.(*Object)
			if !ok {
				return nil, vmferr.NewInvalidMap(path, "world entry is not an object")
			}
			m.world = world

			worldID, err := getID(world)
			if err != nil {
				return nil, vmferr.NewInvalidMap(path, "world has no id")
			}
			m.worldID = worldID
			m.updateLastID(World, worldID)

			if err := m.addSolidsFrom(World, world, worldID); err != nil {
				return nil, vmferr.NewInvalidMap(path, err.Error())
			}

			if groupVal, ok := world.Get(string(Group)); ok {
				for _, group := range vdf.AsObjects(groupVal) {
					groupID, err := getID(group)
					if err != nil {
						return nil, vmferr.NewInvalidMap(path, "group has no id")
					}
					m.groups.set(groupID, group)
					m.parentInfo[ObjectInfo{Group, groupID}] = ObjectInfo{World, worldID}
					m.updateLastID(Group, groupID)
				}
			}

		case string(Entity):
			for _, entity := range vdf.AsObjects(v) {
				id, err := getID(entity)
				if err != nil {
					return nil, vmferr.NewInvalidMap(path, "entity has no id")
				}
				m.entities.set(id, entity)
				m.updateLastID(Entity, id)

				if err := m.addSolidsFrom(Entity, entity, id); err != nil {
					return nil, vmferr.NewInvalidMap(path, err.Error())
				}
			}
		}
	}

	if m.world == nil {
		return nil, vmferr.NewInvalidMap(path, "VMF has no world entry")
	}

	if visGroupsVal, ok := data.Get("visgroups"); ok {
		visGroupsObj, ok := visGroupsVal.(*Object)
		if !ok {
			return nil, vmferr.NewInvalidMap(path, "visgroups entry is not an object")
		}
		if err := m.loadVisGroups(visGroupsObj); err != nil {
			return nil, vmferr.NewInvalidMap(path, err.Error())
		}
	}

	return m, nil
}

func (m *Map) addSolidsFrom(class Class, obj *Object, ownerID int) error {
	solidVal, ok := obj.Get(string(Solid))
	if !ok {
		return nil
	}
	if _, isString := solidVal.(string); isString {
		// Point entity with a literal "solid" scalar property, not a
		// sub-object; nothing to walk.
		return nil
	}

	for _, solid := range vdf.AsObjects(solidVal) {
		solidID, err := getID(solid)
		if err != nil {
			return fmt.Errorf("solid has no id")
		}
		m.solids.set(solidID, solid)

		if class == Entity {
			m.entityIDForSolidID[solidID] = ownerID
		}

		m.parentInfo[ObjectInfo{Solid, solidID}] = ObjectInfo{class, ownerID}
		m.updateLastID(Solid, solidID)

		sideVal, ok := solid.Get(string(Side))
		if !ok {
			return fmt.Errorf("solid %d has no sides", solidID)
		}
		for _, side := range vdf.AsObjects(sideVal) {
			sideID, err := getID(side)
			if err != nil {
				return fmt.Errorf("side has no id")
			}
			m.sides.set(sideID, side)
			m.parentInfo[ObjectInfo{Side, sideID}] = ObjectInfo{Solid, solidID}
			m.updateLastID(Side, sideID)
		}
	}

	return nil
}

// loadVisGroups walks the "visgroups" tree breadth-first, exactly
// mirroring the nesting order Hammer itself writes VisGroups in.
func (m *Map) loadVisGroups(visGroupsObj *Object) error {
	topVal, ok := visGroupsObj.Get(string(VisGroup))
	if !ok {
		return nil
	}

	type queued struct {
		parent *Object
		group  *Object
	}

	queue := make([]queued, 0)
	for _, top := range vdf.AsObjects(topVal) {
		queue = append(queue, queued{parent: nil, group: top})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		id, err := getVisGroupID(item.group)
		if err != nil {
			return fmt.Errorf("visgroup has no visgroupid")
		}
		m.visGroups.set(id, item.group)

		if item.parent != nil {
			parentID, err := getVisGroupID(item.parent)
			if err != nil {
				return fmt.Errorf("visgroup has no visgroupid")
			}
			m.parentInfo[ObjectInfo{VisGroup, id}] = ObjectInfo{VisGroup, parentID}
		}

		m.updateLastID(VisGroup, id)

		if childVal, ok := item.group.Get(string(VisGroup)); ok {
			for _, child := range vdf.AsObjects(childVal) {
				queue = append(queue, queued{parent: item.group, group: child})
			}
		}
	}

	return nil
}

func (m *Map) updateLastID(class Class, id int) {
	if last, ok := m.lastIDForClass[class]; !ok || id > last {
		m.lastIDForClass[class] = id
	}
}

// Path returns the filesystem path the Map was loaded from, if any.
func (m *Map) Path() string { return m.path }

// Filename returns the base name of Path.
func (m *Map) Filename() string {
	if m.path == "" {
		return ""
	}
	return filepath.Base(m.path)
}

// Revision returns the VMF's current "mapversion".
func (m *Map) Revision() int { return m.revision }

// WorldID returns the ID of the Map's single World object.
func (m *Map) WorldID() int { return m.worldID }

// Save serializes the Map back to VDF text at path.
func (m *Map) Save(path string) error {
	out := vdf.Format(m.data)
	return os.WriteFile(path, []byte(out), 0644)
}

func getID(obj *Object) (int, error) {
	return getIntProperty(obj, "id")
}

func getVisGroupID(obj *Object) (int, error) {
	return getIntProperty(obj, "visgroupid")
}

func getIntProperty(obj *Object, key string) (int, error) {
	v, ok := obj.Get(key)
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("%q is not a scalar", key)
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

func objValue(obj *Object, key string) (*Object, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return nil, false
	}
	child, ok := v.(*Object)
	return child, ok
}
