package vdf

import "testing"

func TestParseBasic(t *testing.T) {
	src := `
"versioninfo"
{
	"mapversion" "4"
}
"world"
{
	"id" "1"
	"classname" "worldspawn"
}
`
	obj, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got, want := obj.Keys(), []string{"versioninfo", "world"}; !stringsEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}

	versionInfo, ok := obj.Get("versioninfo")
	if !ok {
		t.Fatal("missing versioninfo")
	}
	vi, ok := versionInfo.(*Object)
	if !ok {
		t.Fatalf("versioninfo is %T, want *Object", versionInfo)
	}
	if mv, _ := vi.Get("mapversion"); mv != "4" {
		t.Errorf("mapversion = %v, want %q", mv, "4")
	}
}

func TestParseRepeatedKeyBecomesList(t *testing.T) {
	src := `
"world"
{
	"id" "1"
	"solid"
	{
		"id" "2"
	}
	"solid"
	{
		"id" "3"
	}
}
`
	obj, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	world, _ := obj.Get("world")
	worldObj := world.(*Object)

	solidVal, ok := worldObj.Get("solid")
	if !ok {
		t.Fatal("missing solid")
	}

	solids := AsObjects(solidVal)
	if len(solids) != 2 {
		t.Fatalf("len(solids) = %d, want 2", len(solids))
	}
	if id, _ := solids[0].Get("id"); id != "2" {
		t.Errorf("solids[0].id = %v, want 2", id)
	}
	if id, _ := solids[1].Get("id"); id != "3" {
		t.Errorf("solids[1].id = %v, want 3", id)
	}
}

func TestParseNoEscapeSequences(t *testing.T) {
	src := `"key" "a\not-an-escape"`
	obj, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, _ := obj.Get("key")
	if v != `a\not-an-escape` {
		t.Errorf("value = %q, want %q (backslash preserved literally)", v, `a\not-an-escape`)
	}
}

func TestParseUnterminatedBraceReportsError(t *testing.T) {
	_, err := Parse([]byte(`"world" { "id" "1"`))
	if err == nil {
		t.Fatal("expected an error for an unterminated brace")
	}
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
