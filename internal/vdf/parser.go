package vdf

// Parse reads src as VDF (KeyValues) text and returns the root Object,
// whose entries are the file's top-level keys (versioninfo, world, entity,
// visgroups, ...). Escape sequences are disabled throughout: a backslash
// is an ordinary character and a quoted string ends at the next double
// quote, full stop.
//
// Repeated keys at the same nesting level become list-valued entries on
// the returned Object, exactly mirroring the source format's own
// "singleton or list" ambiguity (see Object.Append).
func Parse(src []byte) (*Object, error) {
	s := newScanner(src)
	obj := parseBody(s, false)
	if len(s.errs) > 0 {
		return nil, s.errs
	}
	return obj, nil
}

// parseBody parses a sequence of key/value pairs, stopping at an unmatched
// '}' if nested, or at EOF if parsing the document root.
func parseBody(s *scanner, nested bool) *Object {
	obj := NewObject()

	for {
		tok, lit, pos := s.scan()

		switch tok {
		case tokEOF:
			if nested {
				s.error(pos, "unexpected end of file, expected '}'")
			}
			return obj

		case tokRBrace:
			if !nested {
				s.error(pos, "unexpected '}'")
				continue
			}
			return obj

		case tokLBrace:
			s.error(pos, "expected a key, got '{'")
			skipValue(s, tokLBrace)
			continue

		case tokIllegal:
			continue

		case tokString:
			key := lit
			vtok, vlit, vpos := s.scan()

			switch vtok {
			case tokLBrace:
				child := parseBody(s, true)
				obj.Append(key, child)

			case tokString:
				obj.Append(key, vlit)

			default:
				s.error(vpos, "expected a value for key %q", key)
			}
		}
	}
}

// skipValue discards a malformed value so that parsing of the rest of the
// document can continue after reporting an error.
func skipValue(s *scanner, opened token) {
	if opened != tokLBrace {
		return
	}
	depth := 1
	for depth > 0 {
		tok, _, _ := s.scan()
		switch tok {
		case tokLBrace:
			depth++
		case tokRBrace:
			depth--
		case tokEOF:
			return
		}
	}
}
