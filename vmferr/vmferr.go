// Package vmferr defines the error kinds shared across the merge engine.
//
// The pivotal type is the Error interface, a trimmed analogue of
// cuelang.org/go/cue/errors.Error: CUE errors carry source positions because
// they originate from parsed text; VMF objects don't have a comparable
// notion of position, so an Error here instead carries the VMF class and
// object ID it concerns, when there is one.
package vmferr

import (
	"errors"
	"fmt"
)

// Error is the common interface implemented by every error kind in this
// package.
type Error interface {
	error

	// Object returns the VMF class and ID this error concerns, if any.
	// ok is false if the error isn't associated with a particular object.
	Object() (class string, id int, ok bool)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target's type.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Unwrap returns the result of calling Unwrap on err, if any.
func Unwrap(err error) error { return errors.Unwrap(err) }

// Wrap returns parent with child attached as a subordinate cause. If child
// is nil, Wrap returns parent unchanged. The result's Object() reports
// parent's object, same as parent.Object() alone would, but its message and
// Unwrap chain also surface child.
func Wrap(parent Error, child error) Error {
	if child == nil {
		return parent
	}
	return &wrapped{parent, child}
}

// wrapped joins a parent Error to a subordinate error, the way a failed
// high-level operation (e.g. loading a map) wraps the lower-level cause
// (e.g. a malformed property path) that triggered it.
type wrapped struct {
	main Error
	wrap error
}

func (e *wrapped) Error() string {
	switch msg := e.main.Error(); {
	case e.wrap == nil:
		return msg
	case msg == "":
		return e.wrap.Error()
	default:
		return fmt.Sprintf("%s: %s", msg, e.wrap)
	}
}

func (e *wrapped) Object() (string, int, bool) { return e.main.Object() }

// Unwrap exposes both the parent and the subordinate error so stdlib
// errors.Is/errors.As (and this package's Is/As, which are thin wrappers
// over them) can match against either one.
func (e *wrapped) Unwrap() []error { return []error{e.main, e.wrap} }

// InvalidMapError reports that a VMF file or tree could not be loaded.
type InvalidMapError struct {
	Path    string
	Message string
}

func NewInvalidMap(path, message string) *InvalidMapError {
	if path == "" {
		path = "(no path)"
	}
	return &InvalidMapError{Path: path, Message: message}
}

func (e *InvalidMapError) Error() string {
	return fmt.Sprintf("%s: invalid VMF: %s", e.Path, e.Message)
}

func (e *InvalidMapError) Object() (string, int, bool) { return "", 0, false }

// ObjectDoesNotExistError reports a failed (class, id) lookup.
type ObjectDoesNotExistError struct {
	Class string
	ID    int
}

func NewObjectDoesNotExist(class string, id int) *ObjectDoesNotExistError {
	return &ObjectDoesNotExistError{Class: class, ID: id}
}

func (e *ObjectDoesNotExistError) Error() string {
	return fmt.Sprintf("object with class %q and id %d does not exist", e.Class, e.ID)
}

func (e *ObjectDoesNotExistError) Object() (string, int, bool) {
	return e.Class, e.ID, true
}

// KeyError reports a nested-property access that passed through a
// non-object segment, or that found no such segment at all.
type KeyError struct {
	Path string
}

func NewKeyError(path string) *KeyError {
	return &KeyError{Path: path}
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key error: %s", e.Path)
}

func (e *KeyError) Object() (string, int, bool) { return "", 0, false }
