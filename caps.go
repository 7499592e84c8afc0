package gst

import (
	"fmt"
	"strings"
)

// Caps describe the media formats a pad can handle. Caps are immutable.
type Caps struct {
	any        bool
	structures []Structure
}

// Structure is a media type with fixed field values.
type Structure struct {
	Name   string
	Fields []Field
}

// Field is a named value of a structure.
type Field struct {
	Name  string
	Value string
}

// NewAnyCaps returns caps compatible with everything.
func NewAnyCaps() *Caps {
	return &Caps{any: true}
}

// NewEmptyCaps returns caps compatible with nothing.
func NewEmptyCaps() *Caps {
	return &Caps{}
}

// NewCaps returns caps with provided structures.
func NewCaps(structures ...Structure) *Caps {
	return &Caps{structures: structures}
}

// ParseCaps parses caps from a string like
// "audio/x-raw,rate=44100,channels=2; video/x-raw". ANY and EMPTY are
// accepted as well.
func ParseCaps(s string) (*Caps, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "ANY":
		return NewAnyCaps(), nil
	case "EMPTY", "NONE":
		return NewEmptyCaps(), nil
	case "":
		return nil, fmt.Errorf("empty caps string")
	}
	var c Caps
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, err := parseStructure(part)
		if err != nil {
			return nil, err
		}
		c.structures = append(c.structures, st)
	}
	return &c, nil
}

func parseStructure(s string) (Structure, error) {
	items := strings.Split(s, ",")
	name := strings.TrimSpace(items[0])
	if name == "" || strings.Contains(name, "=") {
		return Structure{}, fmt.Errorf("invalid structure name in %q", s)
	}
	st := Structure{Name: name}
	for _, item := range items[1:] {
		k, v, ok := strings.Cut(item, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return Structure{}, fmt.Errorf("invalid field %q in %q", item, s)
		}
		st.Fields = append(st.Fields, Field{Name: k, Value: fieldValue(v)})
	}
	return st, nil
}

// fieldValue strips type annotation like (int) and quotes.
func fieldValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "(") {
		if i := strings.Index(v, ")"); i > 0 {
			v = strings.TrimSpace(v[i+1:])
		}
	}
	return strings.Trim(v, `"`)
}

// MustParseCaps is like ParseCaps but panics on error.
func MustParseCaps(s string) *Caps {
	c, err := ParseCaps(s)
	if err != nil {
		panic(err)
	}
	return c
}

// IsAny returns true for ANY caps.
func (c *Caps) IsAny() bool {
	return c == nil || c.any
}

// IsEmpty returns true if caps are compatible with nothing.
func (c *Caps) IsEmpty() bool {
	return c != nil && !c.any && len(c.structures) == 0
}

// Structures returns caps structures.
func (c *Caps) Structures() []Structure {
	if c == nil {
		return nil
	}
	return append([]Structure(nil), c.structures...)
}

// Intersect returns caps compatible with both c and o.
func (c *Caps) Intersect(o *Caps) *Caps {
	if c.IsAny() {
		return o.orAny()
	}
	if o.IsAny() {
		return c
	}
	var res Caps
	for _, a := range c.structures {
		for _, b := range o.structures {
			if st, ok := a.intersect(b); ok {
				res.structures = append(res.structures, st)
			}
		}
	}
	return &res
}

// CanIntersect returns true if intersection is not empty.
func (c *Caps) CanIntersect(o *Caps) bool {
	return !c.Intersect(o).IsEmpty()
}

func (c *Caps) orAny() *Caps {
	if c == nil {
		return NewAnyCaps()
	}
	return c
}

func (c *Caps) String() string {
	switch {
	case c.IsAny():
		return "ANY"
	case c.IsEmpty():
		return "EMPTY"
	}
	s := make([]string, 0, len(c.structures))
	for _, st := range c.structures {
		s = append(s, st.String())
	}
	return strings.Join(s, "; ")
}

// Value returns the value of named field.
func (s Structure) Value(name string) (string, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func (s Structure) intersect(o Structure) (Structure, bool) {
	if s.Name != o.Name {
		return Structure{}, false
	}
	res := Structure{Name: s.Name, Fields: append([]Field(nil), s.Fields...)}
	for _, f := range o.Fields {
		v, ok := s.Value(f.Name)
		if !ok {
			res.Fields = append(res.Fields, f)
			continue
		}
		if v != f.Value {
			return Structure{}, false
		}
	}
	return res, true
}

func (s Structure) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	for _, f := range s.Fields {
		sb.WriteString(",")
		sb.WriteString(f.Name)
		sb.WriteString("=")
		sb.WriteString(f.Value)
	}
	return sb.String()
}
