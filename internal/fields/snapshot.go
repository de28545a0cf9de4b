package fields

// Snapshot is an immutable copy of every field taken after one event.
type Snapshot struct {
	columns []Column
	index   map[string]ID
}

// Column is the read-only copy of one field inside a Snapshot.
type Column struct {
	desc   Descriptor
	stride []int
	data   []uint64
}

func (s Snapshot) Len() int {
	return len(s.columns)
}

// Columns returns the columns in declaration order.
func (s Snapshot) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

func (s Snapshot) Column(name string) (Column, error) {
	id, ok := s.index[name]
	if !ok {
		return Column{}, UnknownFieldError{Name: name}
	}
	return s.columns[id], nil
}

func (c Column) Name() string {
	return c.desc.Name
}

func (c Column) Kind() Kind {
	return c.desc.Kind
}

func (c Column) Shape() []int {
	return append([]int(nil), c.desc.Shape...)
}

func (c Column) Descriptor() Descriptor {
	d := c.desc
	d.Shape = c.Shape()
	return d
}

// Len is the flattened element count.
func (c Column) Len() int {
	return len(c.data)
}

func (c Column) Int(idx ...int) (int64, error) {
	off, err := offset(c.desc, c.stride, idx)
	if err != nil {
		return 0, err
	}
	return c.desc.Kind.toInt(c.data[off]), nil
}

func (c Column) Uint(idx ...int) (uint64, error) {
	off, err := offset(c.desc, c.stride, idx)
	if err != nil {
		return 0, err
	}
	return c.desc.Kind.toUint(c.data[off]), nil
}

func (c Column) Float(idx ...int) (float64, error) {
	off, err := offset(c.desc, c.stride, idx)
	if err != nil {
		return 0, err
	}
	return c.desc.Kind.toFloat(c.data[off]), nil
}

// Values returns the flattened, row-major elements converted to the natural Go
// type of the kind: []int64, []uint64 or []float64.
func (c Column) Values() any {
	k := c.desc.Kind
	switch {
	case k.IsFloat():
		out := make([]float64, len(c.data))
		for i, raw := range c.data {
			out[i] = k.toFloat(raw)
		}
		return out
	case k.IsSigned():
		out := make([]int64, len(c.data))
		for i, raw := range c.data {
			out[i] = k.toInt(raw)
		}
		return out
	default:
		out := make([]uint64, len(c.data))
		copy(out, c.data)
		return out
	}
}
