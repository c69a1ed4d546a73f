package vdf

import "testing"

func TestObjectAppendScalarToList(t *testing.T) {
	o := NewObject()
	o.Append("tag", "a")
	if v, _ := o.Get("tag"); v != "a" {
		t.Fatalf("after one Append, Get = %v, want scalar %q", v, "a")
	}

	o.Append("tag", "b")
	v, _ := o.Get("tag")
	list, ok := v.([]Value)
	if !ok || len(list) != 2 {
		t.Fatalf("after two Appends, Get = %#v, want a 2-element list", v)
	}
	if list[0] != "a" || list[1] != "b" {
		t.Errorf("list = %v, want [a b]", list)
	}
}

func TestObjectRemoveCollapsesSingletonList(t *testing.T) {
	o := NewObject()
	o.Append("tag", "a")
	o.Append("tag", "b")

	o.Remove("tag", "a")

	v, ok := o.Get("tag")
	if !ok {
		t.Fatal("tag missing after Remove")
	}
	if v != "b" {
		t.Errorf("Get(tag) = %#v, want collapsed scalar %q", v, "b")
	}
}

func TestObjectRemoveLastOccurrenceDeletesKey(t *testing.T) {
	o := NewObject()
	o.Set("tag", "a")
	o.Remove("tag", "a")

	if o.Has("tag") {
		t.Error("tag still present after removing its only value")
	}
}

func TestObjectSetNeverBecomesAList(t *testing.T) {
	o := NewObject()
	o.Set("tag", "a")
	o.Set("tag", "b")

	if v, _ := o.Get("tag"); v != "b" {
		t.Errorf("Get(tag) = %v, want %q (Set always overwrites)", v, "b")
	}
}

func TestAsListWrapsScalar(t *testing.T) {
	list := AsList("solo")
	if len(list) != 1 || list[0] != "solo" {
		t.Errorf("AsList(scalar) = %v, want a single-element list", list)
	}
}

func TestAsObjectsFiltersNonObjects(t *testing.T) {
	inner := NewObject()
	v := []Value{inner, "not an object"}
	got := AsObjects(v)
	if len(got) != 1 || got[0] != inner {
		t.Errorf("AsObjects = %v, want just the *Object element", got)
	}
}
