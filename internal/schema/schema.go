package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/fastmon/internal/fields"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

//go:embed default.toml
var defaultDocument []byte

// Document is one parsed schema file: a set of input lists, each holding
// variable declarations.
type Document struct {
	Name  string `toml:"name"`
	Lists []List `toml:"list"`
}

// List groups variables the way the acquisition input lists do. A disabled
// list disables every variable it holds.
type List struct {
	Name      string     `toml:"name"`
	Group     string     `toml:"group"`
	Enabled   *bool      `toml:"enabled"`
	Variables []Variable `toml:"variable"`
}

type Variable struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Shape   []int  `toml:"shape"`
	Default any    `toml:"default"`
	Enabled *bool  `toml:"enabled"`
}

// ValidationError locates a bad variable inside a document.
type ValidationError struct {
	List     string
	Variable string
	Err      error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: list %q variable %q: %v", e.List, e.Variable, e.Err)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// DefaultTOML returns the built-in schema document as written.
func DefaultTOML() []byte {
	return append([]byte(nil), defaultDocument...)
}

// Default returns the built-in schema covering every field the decoder writes.
func Default() Document {
	doc, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("schema: built-in document invalid: %v", err))
	}
	return doc
}

// Load reads and parses a schema file.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("schema load failed (%s): %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("schema parse failed (%s): %w", path, err)
	}
	log.Debug().Str("path", path).Str("schema", doc.Name).Int("lists", len(doc.Lists)).Msg("schema loaded")
	return doc, nil
}

func Parse(data []byte) (Document, error) {
	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	if _, err := doc.Descriptors(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (l List) enabled() bool {
	return l.Enabled == nil || *l.Enabled
}

func (v Variable) enabled() bool {
	return v.Enabled == nil || *v.Enabled
}

// Descriptors returns the enabled declarations in document order. All
// validation failures are reported together.
func (d Document) Descriptors() ([]fields.Descriptor, error) {
	var (
		out  []fields.Descriptor
		errs []error
		seen = make(map[string]string)
	)
	for _, list := range d.Lists {
		if !list.enabled() {
			continue
		}
		for _, v := range list.Variables {
			if !v.enabled() {
				continue
			}
			desc, err := v.descriptor()
			if err != nil {
				errs = append(errs, ValidationError{List: list.Name, Variable: v.Name, Err: err})
				continue
			}
			if prev, ok := seen[desc.Name]; ok {
				errs = append(errs, ValidationError{List: list.Name, Variable: v.Name, Err: fmt.Errorf("%w: already declared in list %q", fields.ErrDuplicateField, prev)})
				continue
			}
			seen[desc.Name] = list.Name
			out = append(out, desc)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (v Variable) descriptor() (fields.Descriptor, error) {
	name := strings.TrimSpace(v.Name)
	if name == "" {
		return fields.Descriptor{}, fields.ErrEmptyName
	}
	kind, err := fields.ParseKind(v.Type)
	if err != nil {
		return fields.Descriptor{}, err
	}
	if err := fields.CheckShape(v.Shape); err != nil {
		return fields.Descriptor{}, err
	}
	def, err := number(v.Default)
	if err != nil {
		return fields.Descriptor{}, err
	}
	return fields.Descriptor{Name: name, Kind: kind, Shape: v.Shape, Default: def}, nil
}

func number(raw any) (float64, error) {
	switch n := raw.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("default must be numeric, got %T", raw)
	}
}

// Declare registers every enabled variable of d into r.
func Declare(r *fields.Registry, d Document) error {
	descs, err := d.Descriptors()
	if err != nil {
		return err
	}
	for _, desc := range descs {
		if _, err := r.Declare(desc); err != nil {
			return fmt.Errorf("schema %q: %w", d.Name, err)
		}
	}
	return nil
}

// Groups lists the distinct groups of enabled lists in document order.
func (d Document) Groups() []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range d.Lists {
		if !list.enabled() || list.Group == "" || seen[list.Group] {
			continue
		}
		seen[list.Group] = true
		out = append(out, list.Group)
	}
	return out
}

// WithoutGroups returns a copy of d with every list in the named groups disabled.
func (d Document) WithoutGroups(groups ...string) Document {
	drop := make(map[string]bool, len(groups))
	for _, g := range groups {
		drop[strings.TrimSpace(g)] = true
	}
	out := Document{Name: d.Name, Lists: make([]List, len(d.Lists))}
	off := false
	for i, list := range d.Lists {
		out.Lists[i] = list
		if drop[list.Group] {
			out.Lists[i].Enabled = &off
		}
	}
	return out
}
