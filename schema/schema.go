// Package schema defines the restricted JSON-Schema-like vocabulary used by
// service specifications: const, enum, anyOf, $ref, the primitive kinds, and
// array/object composites. Keep this struct small; unrecognized keywords are
// ignored, unrecognized shapes are rejected by the compiler and validator,
// not here.
package schema

import (
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// RefPrefix is the only reference form a specification may use: a pointer
// into the types section identified by a type name.
const RefPrefix = "#/types/"

// ResolveFunc resolves a reference string to the schema of the named type,
// scoped to one specification.
type ResolveFunc func(ref string) (*Schema, error)

// Schema is one node of the structural vocabulary. Exactly one shape is
// populated; Kind reports which.
type Schema struct {
	Type     string
	Const    any
	HasConst bool // distinguishes "const: null" from no const at all
	Enum     []any
	AnyOf    []*Schema
	Ref      string

	// Array: Items for a homogeneous sequence, Tuple for a heterogeneous
	// ordered items list. At most one is set.
	Items *Schema
	Tuple []*Schema

	// Object
	Properties           map[string]*Schema
	Required             []string
	AdditionalProperties *bool
}

// FromValue builds a Schema from a decoded document value (the output of a
// YAML or JSON unmarshal into any).
func FromValue(v any) (*Schema, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema: expected mapping, got %T", v)
	}
	s := &Schema{}
	if c, ok := m["const"]; ok {
		s.Const = c
		s.HasConst = true
	}
	if e, ok := m["enum"]; ok {
		list, ok := e.([]any)
		if !ok {
			return nil, fmt.Errorf("schema: enum must be a list, got %T", e)
		}
		s.Enum = list
	}
	if a, ok := m["anyOf"]; ok {
		list, ok := a.([]any)
		if !ok {
			return nil, fmt.Errorf("schema: anyOf must be a list, got %T", a)
		}
		for _, sub := range list {
			member, err := FromValue(sub)
			if err != nil {
				return nil, err
			}
			s.AnyOf = append(s.AnyOf, member)
		}
	}
	if r, ok := m["$ref"]; ok {
		ref, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("schema: $ref must be a string, got %T", r)
		}
		s.Ref = ref
	}
	if t, ok := m["type"]; ok {
		typ, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("schema: type must be a string, got %T", t)
		}
		s.Type = typ
	}
	if items, ok := m["items"]; ok {
		switch it := items.(type) {
		case []any:
			for _, sub := range it {
				element, err := FromValue(sub)
				if err != nil {
					return nil, err
				}
				s.Tuple = append(s.Tuple, element)
			}
		default:
			element, err := FromValue(items)
			if err != nil {
				return nil, err
			}
			s.Items = element
		}
	}
	if props, ok := m["properties"]; ok {
		pm, ok := props.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema: properties must be a mapping, got %T", props)
		}
		s.Properties = make(map[string]*Schema, len(pm))
		for name, sub := range pm {
			property, err := FromValue(sub)
			if err != nil {
				return nil, err
			}
			s.Properties[name] = property
		}
	}
	if req, ok := m["required"]; ok {
		list, ok := req.([]any)
		if !ok {
			return nil, fmt.Errorf("schema: required must be a list, got %T", req)
		}
		for _, name := range list {
			fieldName, ok := name.(string)
			if !ok {
				return nil, fmt.Errorf("schema: required entries must be strings, got %T", name)
			}
			s.Required = append(s.Required, fieldName)
		}
	}
	if ap, ok := m["additionalProperties"]; ok {
		allowed, ok := ap.(bool)
		if !ok {
			return nil, fmt.Errorf("schema: additionalProperties must be a bool, got %T", ap)
		}
		s.AdditionalProperties = &allowed
	}
	return s, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Schema) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	built, err := FromValue(raw)
	if err != nil {
		return err
	}
	*s = *built
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := FromValue(raw)
	if err != nil {
		return err
	}
	*s = *built
	return nil
}

// MarshalJSON renders the node back into its document form.
func (s *Schema) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if s.HasConst {
		m["const"] = s.Const
	}
	if s.Enum != nil {
		m["enum"] = s.Enum
	}
	if s.AnyOf != nil {
		m["anyOf"] = s.AnyOf
	}
	if s.Ref != "" {
		m["$ref"] = s.Ref
	}
	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Tuple != nil {
		m["items"] = s.Tuple
	} else if s.Items != nil {
		m["items"] = s.Items
	}
	if s.Properties != nil {
		m["properties"] = s.Properties
	}
	if s.Required != nil {
		m["required"] = s.Required
	}
	if s.AdditionalProperties != nil {
		m["additionalProperties"] = *s.AdditionalProperties
	}
	return json.Marshal(m)
}

// UnresolvedReferenceError reports a reference that is not of the
// "#/types/<name>" form, names an undeclared type, or never terminates at a
// non-reference node.
type UnresolvedReferenceError struct {
	Ref    string
	Reason string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("schema: unresolved reference %q", e.Ref)
	}
	return fmt.Sprintf("schema: unresolved reference %q: %s", e.Ref, e.Reason)
}

// UnsupportedSchemaError reports a schema shape outside the vocabulary. The
// compiler and validator fail closed rather than degrade to a permissive
// "any" type.
type UnsupportedSchemaError struct {
	Path string // dotted naming path of the node, when known
}

func (e *UnsupportedSchemaError) Error() string {
	if e.Path == "" {
		return "schema: unsupported schema shape"
	}
	return fmt.Sprintf("schema: unsupported schema shape at %s", e.Path)
}
