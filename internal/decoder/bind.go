package decoder

import (
	"github.com/danmuck/fastmon/internal/fields"
)

// binder resolves field handles once at startup. Undeclared names resolve to
// detached views, so scalar writes to them cost nothing and go nowhere.
type binder struct {
	reg *fields.Registry
}

func (b binder) view(name string) fields.View {
	id, err := b.reg.Lookup(name)
	if err != nil {
		return fields.View{}
	}
	return b.reg.Field(id)
}

func (b binder) has(name string) bool {
	return b.reg.Has(name)
}
