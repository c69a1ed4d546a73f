package vdf

import (
	"strings"
)

// Format renders root back to VDF text, using tab indentation in the
// style Hammer itself writes (and the style the reference tool's own
// formatter round-trips). Escape sequences are disabled: quoted values
// are written verbatim between double quotes.
func Format(root *Object) string {
	var b strings.Builder
	writeBody(&b, root, 0)
	return b.String()
}

func writeBody(b *strings.Builder, obj *Object, depth int) {
	indent := strings.Repeat("\t", depth)

	for _, key := range obj.Keys() {
		v, _ := obj.Get(key)

		switch val := v.(type) {
		case []Value:
			for _, item := range val {
				writeEntry(b, indent, key, item, depth)
			}

		default:
			writeEntry(b, indent, key, val, depth)
		}
	}
}

func writeEntry(b *strings.Builder, indent, key string, v Value, depth int) {
	switch val := v.(type) {
	case *Object:
		b.WriteString(indent)
		b.WriteByte('"')
		b.WriteString(key)
		b.WriteString("\"\n")
		b.WriteString(indent)
		b.WriteString("{\n")
		writeBody(b, val, depth+1)
		b.WriteString(indent)
		b.WriteString("}\n")

	case string:
		b.WriteString(indent)
		b.WriteByte('"')
		b.WriteString(key)
		b.WriteString("\" \"")
		b.WriteString(val)
		b.WriteString("\"\n")
	}
}
