package fields

// View is a mutable handle onto one field's live storage. Writes are visible
// to every other view of the same field within the event; nothing is copied.
//
// The zero View is detached: reads return zero and writes are dropped without
// error. Decoder handlers for fields that the schema does not declare hold a
// detached view.
type View struct {
	s *slot
}

// Attached reports whether the view refers to declared storage.
func (v View) Attached() bool {
	return v.s != nil
}

func (v View) Name() string {
	if v.s == nil {
		return ""
	}
	return v.s.desc.Name
}

func (v View) Kind() Kind {
	if v.s == nil {
		return KindInvalid
	}
	return v.s.desc.Kind
}

// Shape returns a copy of the declared extents.
func (v View) Shape() []int {
	if v.s == nil {
		return nil
	}
	return append([]int(nil), v.s.desc.Shape...)
}

func (v View) at(idx []int) (int, error) {
	return offset(v.s.desc, v.s.stride, idx)
}

func (v View) SetInt(value int64, idx ...int) error {
	if v.s == nil {
		return nil
	}
	off, err := v.at(idx)
	if err != nil {
		return err
	}
	v.s.data[off] = v.s.desc.Kind.fromInt(value)
	return nil
}

func (v View) SetUint(value uint64, idx ...int) error {
	if v.s == nil {
		return nil
	}
	off, err := v.at(idx)
	if err != nil {
		return err
	}
	v.s.data[off] = v.s.desc.Kind.fromUint(value)
	return nil
}

func (v View) SetFloat(value float64, idx ...int) error {
	if v.s == nil {
		return nil
	}
	off, err := v.at(idx)
	if err != nil {
		return err
	}
	v.s.data[off] = v.s.desc.Kind.fromFloat(value)
	return nil
}

// AddInt increments the element in place, in the field's own arithmetic.
func (v View) AddInt(delta int64, idx ...int) error {
	if v.s == nil {
		return nil
	}
	off, err := v.at(idx)
	if err != nil {
		return err
	}
	k := v.s.desc.Kind
	if k.IsFloat() {
		v.s.data[off] = k.fromFloat(k.toFloat(v.s.data[off]) + float64(delta))
		return nil
	}
	v.s.data[off] = k.fromInt(k.toInt(v.s.data[off]) + delta)
	return nil
}

func (v View) Int(idx ...int) (int64, error) {
	if v.s == nil {
		return 0, nil
	}
	off, err := v.at(idx)
	if err != nil {
		return 0, err
	}
	return v.s.desc.Kind.toInt(v.s.data[off]), nil
}

func (v View) Uint(idx ...int) (uint64, error) {
	if v.s == nil {
		return 0, nil
	}
	off, err := v.at(idx)
	if err != nil {
		return 0, err
	}
	return v.s.desc.Kind.toUint(v.s.data[off]), nil
}

func (v View) Float(idx ...int) (float64, error) {
	if v.s == nil {
		return 0, nil
	}
	off, err := v.at(idx)
	if err != nil {
		return 0, err
	}
	return v.s.desc.Kind.toFloat(v.s.data[off]), nil
}
