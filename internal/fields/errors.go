package fields

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateField  = errors.New("fields: duplicate field")
	ErrUnknownField    = errors.New("fields: unknown field")
	ErrIndexOutOfRange = errors.New("fields: index out of range")
	ErrInvalidShape    = errors.New("fields: invalid shape")
	ErrInvalidKind     = errors.New("fields: invalid element type")
	ErrEmptyName       = errors.New("fields: empty field name")
)

// DuplicateFieldError is returned when a name is declared twice.
type DuplicateFieldError struct {
	Name string
}

func (e DuplicateFieldError) Error() string {
	return fmt.Sprintf("fields: field %q already declared", e.Name)
}

func (e DuplicateFieldError) Is(target error) bool {
	return target == ErrDuplicateField
}

// UnknownFieldError is returned for lookups of names that were never declared.
type UnknownFieldError struct {
	Name string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("fields: field %q not declared", e.Name)
}

func (e UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// IndexOutOfRangeError reports a positional index outside the declared shape.
type IndexOutOfRangeError struct {
	Name  string
	Index []int
	Shape []int
}

func (e IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("fields: index %v out of range for %q with shape %v", e.Index, e.Name, e.Shape)
}

func (e IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
