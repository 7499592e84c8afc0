package gst

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// PropertyKind is the type of property value.
type PropertyKind int

// Supported property kinds.
const (
	PropertyInt PropertyKind = iota
	PropertyBool
	PropertyString
)

func (k PropertyKind) String() string {
	switch k {
	case PropertyInt:
		return "int"
	case PropertyBool:
		return "bool"
	case PropertyString:
		return "string"
	}
	return fmt.Sprintf("PropertyKind(%d)", int(k))
}

// PropertySpec describes a property of an element. Int values are int64,
// bool values are bool and string values are string.
type PropertySpec struct {
	Name    string
	Kind    PropertyKind
	Blurb   string
	Default interface{}
	// Min and Max limit int values if Max is greater than Min.
	Min, Max int64
	// Set is called with converted value before it's stored. Returned
	// error rejects the value.
	Set func(v interface{}) error
}

type properties struct {
	mu     sync.RWMutex
	specs  map[string]*PropertySpec
	values map[string]interface{}
}

func newProperties() *properties {
	return &properties{
		specs:  make(map[string]*PropertySpec),
		values: make(map[string]interface{}),
	}
}

// InstallProperty adds a property to the element. It's meant to be called
// by element constructors.
func (e *Element) InstallProperty(spec PropertySpec) {
	if d, err := convert(&PropertySpec{Kind: spec.Kind}, spec.Default); err == nil {
		spec.Default = d
	} else {
		spec.Default = zeroValue(spec.Kind)
	}
	e.props.mu.Lock()
	e.props.specs[spec.Name] = &spec
	e.props.values[spec.Name] = spec.Default
	e.props.mu.Unlock()
}

// SetProperty sets the value of named property. Accepted values are int
// types, bool and string, they must match the property kind.
func (e *Element) SetProperty(name string, value interface{}) error {
	if name == "name" {
		s, ok := value.(string)
		if !ok {
			return e.propertyError(name, fmt.Sprintf("want string, got %T", value))
		}
		return e.SetName(s)
	}
	e.props.mu.RLock()
	spec, ok := e.props.specs[name]
	e.props.mu.RUnlock()
	if !ok {
		return e.propertyError(name, "no such property")
	}
	v, err := convert(spec, value)
	if err != nil {
		return e.propertyError(name, err.Error())
	}
	if spec.Set != nil {
		if err := spec.Set(v); err != nil {
			return e.propertyError(name, err.Error())
		}
	}
	e.props.mu.Lock()
	e.props.values[name] = v
	e.props.mu.Unlock()
	e.logger().WithField("property", name).Debugf("set to %v", v)
	return nil
}

// SetPropertyString parses the value according to property kind and sets
// it.
func (e *Element) SetPropertyString(name, value string) error {
	if name == "name" {
		return e.SetName(value)
	}
	e.props.mu.RLock()
	spec, ok := e.props.specs[name]
	e.props.mu.RUnlock()
	if !ok {
		return e.propertyError(name, "no such property")
	}
	switch spec.Kind {
	case PropertyInt:
		v, err := strconv.ParseInt(strings.TrimSpace(value), 0, 64)
		if err != nil {
			return e.propertyError(name, fmt.Sprintf("invalid int %q", value))
		}
		return e.SetProperty(name, v)
	case PropertyBool:
		v, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			switch strings.ToLower(value) {
			case "yes", "on":
				v = true
			case "no", "off":
				v = false
			default:
				return e.propertyError(name, fmt.Sprintf("invalid bool %q", value))
			}
		}
		return e.SetProperty(name, v)
	}
	return e.SetProperty(name, value)
}

// Property returns the value of named property.
func (e *Element) Property(name string) (interface{}, error) {
	if name == "name" {
		return e.Name(), nil
	}
	e.props.mu.RLock()
	defer e.props.mu.RUnlock()
	v, ok := e.props.values[name]
	if !ok {
		return nil, e.propertyError(name, "no such property")
	}
	return v, nil
}

// Properties returns specs of all element properties sorted by name.
func (e *Element) Properties() []PropertySpec {
	e.props.mu.RLock()
	defer e.props.mu.RUnlock()
	specs := make([]PropertySpec, 0, len(e.props.specs)+1)
	specs = append(specs, PropertySpec{
		Name:    "name",
		Kind:    PropertyString,
		Blurb:   "The name of the element",
		Default: "",
	})
	for _, s := range e.props.specs {
		specs = append(specs, *s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

func (e *Element) intProperty(name string) int64 {
	v, _ := e.Property(name)
	i, _ := v.(int64)
	return i
}

func (e *Element) boolProperty(name string) bool {
	v, _ := e.Property(name)
	b, _ := v.(bool)
	return b
}

func (e *Element) stringProperty(name string) string {
	v, _ := e.Property(name)
	s, _ := v.(string)
	return s
}

func (e *Element) propertyError(name, reason string) error {
	return &PropertyError{Element: e.Name(), Property: name, Reason: reason}
}

func convert(spec *PropertySpec, value interface{}) (interface{}, error) {
	switch spec.Kind {
	case PropertyInt:
		var v int64
		switch n := value.(type) {
		case int:
			v = int64(n)
		case int32:
			v = int64(n)
		case int64:
			v = n
		case uint:
			v = int64(n)
		case uint32:
			v = int64(n)
		default:
			return nil, fmt.Errorf("want int, got %T", value)
		}
		if spec.Max > spec.Min && (v < spec.Min || v > spec.Max) {
			return nil, fmt.Errorf("value %d out of range [%d, %d]", v, spec.Min, spec.Max)
		}
		return v, nil
	case PropertyBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("want bool, got %T", value)
	case PropertyString:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("want string, got %T", value)
	}
	return nil, fmt.Errorf("unsupported kind %v", spec.Kind)
}

func zeroValue(k PropertyKind) interface{} {
	switch k {
	case PropertyInt:
		return int64(0)
	case PropertyBool:
		return false
	}
	return ""
}
