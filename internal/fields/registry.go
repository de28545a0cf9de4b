package fields

import (
	"fmt"
	"strings"
)

// Descriptor declares one output field.
type Descriptor struct {
	Name    string
	Kind    Kind
	Shape   []int
	Default float64
}

// Len is the total number of elements implied by the shape.
func (d Descriptor) Len() int {
	n := 1
	for _, dim := range d.Shape {
		n *= dim
	}
	return n
}

// LeafList renders the descriptor the way tree branches are declared,
// e.g. "CalXHit_Tower[16]/i".
func (d Descriptor) LeafList() string {
	var b strings.Builder
	b.WriteString(d.Name)
	for _, dim := range d.Shape {
		fmt.Fprintf(&b, "[%d]", dim)
	}
	b.WriteString("/")
	b.WriteString(leafCodes[d.Kind])
	return b.String()
}

// MaxElements caps the flattened size of one field.
const MaxElements = 1 << 24

// CheckShape rejects non-positive extents and shapes whose element count
// overflows or exceeds MaxElements.
func CheckShape(shape []int) error {
	n := 1
	for _, dim := range shape {
		if dim <= 0 {
			return fmt.Errorf("%w: %v", ErrInvalidShape, shape)
		}
		if n > MaxElements/dim {
			return fmt.Errorf("%w: %v holds more than %d elements", ErrInvalidShape, shape, MaxElements)
		}
		n *= dim
	}
	return nil
}

// ID is a fixed slot handle handed out by Declare.
type ID int

// NoID marks a handle that was never resolved.
const NoID ID = -1

type slot struct {
	desc   Descriptor
	stride []int
	def    uint64
	data   []uint64
}

// Registry stores the live values of every declared field.
// It is owned by one event loop and performs no locking.
type Registry struct {
	slots  []*slot
	index  map[string]ID
	frozen map[string]ID
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]ID)}
}

// Declare registers a field and returns its slot handle.
func (r *Registry) Declare(d Descriptor) (ID, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return NoID, ErrEmptyName
	}
	if _, ok := r.index[name]; ok {
		return NoID, DuplicateFieldError{Name: name}
	}
	if !d.Kind.Valid() {
		return NoID, fmt.Errorf("%w: field %q kind %v", ErrInvalidKind, name, d.Kind)
	}
	if err := CheckShape(d.Shape); err != nil {
		return NoID, fmt.Errorf("field %q: %w", name, err)
	}

	d.Name = name
	d.Shape = append([]int(nil), d.Shape...)
	s := &slot{
		desc:   d,
		stride: strides(d.Shape),
		def:    d.Kind.fromFloat(d.Default),
		data:   make([]uint64, d.Len()),
	}
	s.reset()

	id := ID(len(r.slots))
	r.slots = append(r.slots, s)
	r.index[name] = id
	r.frozen = nil
	return id, nil
}

// MustDeclare panics on declaration errors. Intended for static tables.
func (r *Registry) MustDeclare(d Descriptor) ID {
	id, err := r.Declare(d)
	if err != nil {
		panic(err)
	}
	return id
}

// Reset sets every field back to its declared default.
func (r *Registry) Reset() {
	for _, s := range r.slots {
		s.reset()
	}
}

// Lookup resolves a name to its slot handle.
func (r *Registry) Lookup(name string) (ID, error) {
	id, ok := r.index[name]
	if !ok {
		return NoID, UnknownFieldError{Name: name}
	}
	return id, nil
}

// Has reports whether name was declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Get returns a mutable view of the named field.
func (r *Registry) Get(name string) (View, error) {
	id, err := r.Lookup(name)
	if err != nil {
		return View{}, err
	}
	return r.Field(id), nil
}

// Field returns the view for a handle returned by Declare or Lookup.
// An unresolved handle yields a detached view whose writes are dropped.
func (r *Registry) Field(id ID) View {
	if id < 0 || int(id) >= len(r.slots) {
		return View{}
	}
	return View{s: r.slots[id]}
}

// Descriptors lists declarations in declaration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.slots))
	for _, s := range r.slots {
		d := s.desc
		d.Shape = append([]int(nil), d.Shape...)
		out = append(out, d)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.slots)
}

// Snapshot copies every field into an immutable record.
func (r *Registry) Snapshot() Snapshot {
	cols := make([]Column, len(r.slots))
	for i, s := range r.slots {
		cols[i] = Column{
			desc:   s.desc,
			stride: s.stride,
			data:   append([]uint64(nil), s.data...),
		}
	}
	if r.frozen == nil {
		r.frozen = make(map[string]ID, len(r.index))
		for k, v := range r.index {
			r.frozen[k] = v
		}
	}
	return Snapshot{columns: cols, index: r.frozen}
}

func (s *slot) reset() {
	for i := range s.data {
		s.data[i] = s.def
	}
}

func strides(shape []int) []int {
	out := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = acc
		acc *= shape[i]
	}
	return out
}

func offset(desc Descriptor, stride []int, idx []int) (int, error) {
	if len(idx) != len(desc.Shape) {
		return 0, IndexOutOfRangeError{Name: desc.Name, Index: append([]int(nil), idx...), Shape: desc.Shape}
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= desc.Shape[i] {
			return 0, IndexOutOfRangeError{Name: desc.Name, Index: append([]int(nil), idx...), Shape: desc.Shape}
		}
		off += v * stride[i]
	}
	return off, nil
}
