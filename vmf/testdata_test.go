package vmf

import "github.com/darthryking/VMFMergeTool/internal/vdf"

// sampleVMF is a small but structurally complete map: a world with one
// untied solid (a member of visgroup 1), a func_detail entity with one
// tied solid and an output, and a single visgroup.
const sampleVMF = `
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
		"color" "0 255 0"
	}
}
"world"
{
	"id" "1"
	"classname" "worldspawn"
	"solid"
	{
		"id" "2"
		"side"
		{
			"id" "3"
		}
		"editor"
		{
			"visgroupid" "1"
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
		}
	}
	"connections"
	{
		"OnTrigger" "relay,Trigger,,0,-1"
	}
}
`

func mustParse(src string) *vdf.Object {
	obj, err := vdf.Parse([]byte(src))
	if err != nil {
		panic(err)
	}
	return obj
}

func mustLoad(src string) *Map {
	m, err := New(mustParse(src), "sample.vmf")
	if err != nil {
		panic(err)
	}
	return m
}
