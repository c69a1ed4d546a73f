package resolve

import (
	"testing"

	"github.com/darthryking/VMFMergeTool/internal/delta"
	"github.com/darthryking/VMFMergeTool/internal/vdf"
	"github.com/darthryking/VMFMergeTool/vmf"
)

const parentVMF = `
"versioninfo"
{
	"mapversion" "4"
}
"visgroups"
{
	"visgroup"
	{
		"name" "Structural"
		"visgroupid" "1"
		"color" "255 0 0"
	}
}
"world"
{
	"id" "1"
	"solid"
	{
		"id" "2"
		"side"
		{
			"id" "3"
			"material" "BRICK/BRICK01"
		}
	}
	"solid"
	{
		"id" "8"
		"side"
		{
			"id" "9"
			"material" "BRICK/BRICK01"
		}
	}
}
"entity"
{
	"id" "4"
	"classname" "func_detail"
	"solid"
	{
		"id" "5"
		"side"
		{
			"id" "6"
			"material" "BRICK/BRICK01"
		}
	}
}
`

func mustLoadMap(t *testing.T, src, path string) *vmf.Map {
	t.Helper()
	data, err := vdf.Parse([]byte(src))
	if err != nil {
		t.Fatalf("vdf.Parse: %v", err)
	}
	m, err := vmf.New(data, path)
	if err != nil {
		t.Fatalf("vmf.New: %v", err)
	}
	return m
}

func visGroupNamed(t *testing.T, m *vmf.Map, name string) (id int, ok bool) {
	t.Helper()
	for _, ref := range m.AllObjects() {
		if ref.Class != vmf.VisGroup {
			continue
		}
		v, err := vmf.GetProperty(ref.Obj, "name")
		if err == nil && v == name {
			return ref.ID, true
		}
	}
	return 0, false
}

func TestCreateBuildsRootAndChildVisGroups(t *testing.T) {
	parent := mustLoadMap(t, parentVMF, "parent.vmf")

	conflicted := []delta.Delta{
		delta.ChangeObject{Class: string(vmf.Solid), ID: 2, Of: "child_a.vmf"},
		delta.AddProperty{Class: string(vmf.Side), ID: 3, Key: "material", Value: "METAL/METAL01", Of: "child_a.vmf"},
	}

	deltas, _, err := Create(parent, conflicted)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := parent.ApplyDeltas(deltas, false); err != nil {
		t.Fatalf("ApplyDeltas(resolution deltas): %v", err)
	}

	if _, ok := visGroupNamed(t, parent, "Manual Merge Required"); !ok {
		t.Error("no root \"Manual Merge Required\" VisGroup was created")
	}
	if _, ok := visGroupNamed(t, parent, "parent.vmf"); !ok {
		t.Error("no per-parent-filename VisGroup was created")
	}
	changedID, ok := visGroupNamed(t, parent, "Changed in child_a.vmf")
	if !ok {
		t.Fatal("no \"Changed in child_a.vmf\" VisGroup was created")
	}

	// The conflict redirected to Solid 2 (the Side's parent, via the
	// AddProperty) should have produced exactly one clone, shared by both
	// conflicted deltas naming it.
	var cloneSolidID int
	var cloneCount int
	for _, ref := range parent.AllObjects() {
		if ref.Class != vmf.Solid {
			continue
		}
		if ref.ID == 2 || ref.ID == 8 || ref.ID == 5 {
			continue
		}
		cloneCount++
		cloneSolidID = ref.ID
	}
	if cloneCount != 1 {
		t.Fatalf("clone count = %d, want exactly 1 (ChangeObject and AddProperty share the same affected Solid)", cloneCount)
	}

	clone, err := parent.Get(vmf.Solid, cloneSolidID)
	if err != nil {
		t.Fatalf("Get(clone solid): %v", err)
	}
	if !vmf.GetVisGroups(clone)[changedID] {
		t.Error("cloned solid was not added to the \"Changed in child_a.vmf\" VisGroup")
	}
}

func TestCreateRemoveObjectAddsOriginalWithoutCloning(t *testing.T) {
	parent := mustLoadMap(t, parentVMF, "parent.vmf")

	conflicted := []delta.Delta{
		delta.RemoveObject{Class: string(vmf.Solid), ID: 8, Of: "child_b.vmf"},
	}

	deltas, _, err := Create(parent, conflicted)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := parent.ApplyDeltas(deltas, false); err != nil {
		t.Fatalf("ApplyDeltas: %v", err)
	}

	removedID, ok := visGroupNamed(t, parent, "Removed in child_b.vmf")
	if !ok {
		t.Fatal("no \"Removed in child_b.vmf\" VisGroup was created")
	}

	if !parent.Has(vmf.Solid, 8) {
		t.Fatal("RemoveObject conflict must leave the original object in place for manual resolution")
	}
	original, _ := parent.Get(vmf.Solid, 8)
	if !vmf.GetVisGroups(original)[removedID] {
		t.Error("original solid 8 was not added to \"Removed in child_b.vmf\"")
	}

	for _, ref := range parent.AllObjects() {
		if ref.Class == vmf.Solid && ref.ID != 2 && ref.ID != 8 && ref.ID != 5 {
			t.Errorf("unexpected clone %d created for a RemoveObject conflict", ref.ID)
		}
	}
}

func TestCreateRedirectsSideConflictToParentSolid(t *testing.T) {
	parent := mustLoadMap(t, parentVMF, "parent.vmf")

	conflicted := []delta.Delta{
		delta.ChangeProperty{Class: string(vmf.Side), ID: 9, Key: "material", Value: "METAL/METAL01", Of: "child_a.vmf"},
	}

	deltas, _, err := Create(parent, conflicted)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := parent.ApplyDeltas(deltas, false); err != nil {
		t.Fatalf("ApplyDeltas: %v", err)
	}

	var cloneCount int
	for _, ref := range parent.AllObjects() {
		if ref.Class == vmf.Solid && ref.ID != 2 && ref.ID != 8 && ref.ID != 5 {
			cloneCount++
		}
	}
	if cloneCount != 1 {
		t.Fatalf("clone count = %d, want 1: a Side-level conflict must clone the parent Solid, not the Side alone", cloneCount)
	}
}

func TestCreateEmitsConflictedAddObjectInsteadOfCloning(t *testing.T) {
	parent := mustLoadMap(t, parentVMF, "parent.vmf")

	// Entity 50 was never applied to parent: its own AddObject, plus an
	// AddProperty on it, both ended up conflicted (e.g. via a TieSolid
	// cascade onto a brand-new entity, per internal/merger). resolve.Create
	// must not try to clone an object that doesn't exist yet.
	conflicted := []delta.Delta{
		delta.AddObject{Class: string(vmf.Entity), ID: 50, Of: "child_a.vmf"},
		delta.AddProperty{Class: string(vmf.Entity), ID: 50, Key: "classname", Value: "info_target", Of: "child_a.vmf"},
	}

	deltas, _, err := Create(parent, conflicted)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := parent.ApplyDeltas(deltas, false); err != nil {
		t.Fatalf("ApplyDeltas: %v", err)
	}

	if !parent.Has(vmf.Entity, 50) {
		t.Fatal("conflicted AddObject was not emitted; entity 50 does not exist")
	}

	changedID, ok := visGroupNamed(t, parent, "Changed in child_a.vmf")
	if !ok {
		t.Fatal("no \"Changed in child_a.vmf\" VisGroup was created")
	}

	entity, err := parent.Get(vmf.Entity, 50)
	if err != nil {
		t.Fatalf("Get(entity 50): %v", err)
	}
	if !vmf.GetVisGroups(entity)[changedID] {
		t.Error("entity 50 was not added to \"Changed in child_a.vmf\"")
	}
	if v, err := vmf.GetProperty(entity, "classname"); err != nil || v != "info_target" {
		t.Errorf("entity 50 classname = (%q, %v), want info_target", v, err)
	}

	for _, ref := range parent.AllObjects() {
		if ref.Class == vmf.Entity && ref.ID != 4 && ref.ID != 50 {
			t.Errorf("unexpected clone %d created for a new-object conflict", ref.ID)
		}
	}
}

func TestCreateReturnsCreatedVisGroupNames(t *testing.T) {
	parent := mustLoadMap(t, parentVMF, "parent.vmf")

	conflicted := []delta.Delta{
		delta.ChangeObject{Class: string(vmf.Solid), ID: 2, Of: "child_a.vmf"},
		delta.RemoveObject{Class: string(vmf.Solid), ID: 8, Of: "child_b.vmf"},
	}

	_, names, err := Create(parent, conflicted)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	want := []string{
		"Manual Merge Required",
		"parent.vmf",
		"Changed in child_a.vmf",
		"Removed in child_b.vmf",
	}
	if len(names) != len(want) {
		t.Fatalf("visGroupNames = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("visGroupNames[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestCreateSkipsWorldAndVisGroupConflicts(t *testing.T) {
	parent := mustLoadMap(t, parentVMF, "parent.vmf")

	conflicted := []delta.Delta{
		delta.ChangeObject{Class: string(vmf.World), ID: 1, Of: "child_a.vmf"},
		delta.ChangeProperty{Class: string(vmf.VisGroup), ID: 1, Key: "name", Value: "Renamed", Of: "child_a.vmf"},
	}

	deltas, _, err := Create(parent, conflicted)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := parent.ApplyDeltas(deltas, false); err != nil {
		t.Fatalf("ApplyDeltas: %v", err)
	}

	if _, ok := visGroupNamed(t, parent, "Changed in child_a.vmf"); ok {
		t.Error("World/VisGroup conflicts must not synthesize a \"Changed in\" VisGroup")
	}
}
