package descriptor

import (
	"strings"

	"github.com/wirespec/wirespec/schema"
)

// Compile recursively compiles a schema node into a descriptor. path is the
// accumulated naming path ([type-name] or [function-name, argument-name]);
// records synthesized at nested positions extend it with the field name, so
// two occurrences of an object schema at different positions never collide.
func Compile(s *schema.Schema, resolve schema.ResolveFunc, path []string) (Descriptor, error) {
	if s == nil {
		return nil, &schema.UnsupportedSchemaError{Path: strings.Join(path, ".")}
	}
	if s.HasConst {
		return &Literal{Value: s.Const}, nil
	}
	if len(s.Enum) > 0 {
		if len(s.Enum) == 1 {
			return &Literal{Value: s.Enum[0]}, nil
		}
		u := &Union{Members: make([]Descriptor, 0, len(s.Enum))}
		for _, v := range s.Enum {
			u.Members = append(u.Members, &Literal{Value: v})
		}
		return u, nil
	}
	if len(s.AnyOf) > 0 {
		u := &Union{Members: make([]Descriptor, 0, len(s.AnyOf))}
		for _, member := range s.AnyOf {
			compiled, err := Compile(member, resolve, path)
			if err != nil {
				return nil, err
			}
			u.Members = append(u.Members, compiled)
		}
		return u, nil
	}
	if s.Ref != "" {
		if err := verifyRef(s.Ref, resolve); err != nil {
			return nil, err
		}
		return &Reference{TypeName: strings.TrimPrefix(s.Ref, schema.RefPrefix)}, nil
	}
	switch s.Type {
	case "null":
		return &Literal{Value: nil}, nil
	case "integer":
		return &Int{}, nil
	case "number":
		return &Union{Members: []Descriptor{&Int{}, &Float{}}}, nil
	case "boolean":
		return &Bool{}, nil
	case "string":
		return &String{}, nil
	case "array":
		if s.Tuple != nil {
			t := &Tuple{Elements: make([]Descriptor, 0, len(s.Tuple))}
			for _, element := range s.Tuple {
				compiled, err := Compile(element, resolve, path)
				if err != nil {
					return nil, err
				}
				t.Elements = append(t.Elements, compiled)
			}
			return t, nil
		}
		if s.Items != nil {
			element, err := Compile(s.Items, resolve, path)
			if err != nil {
				return nil, err
			}
			return &Sequence{Element: element}, nil
		}
		return nil, &schema.UnsupportedSchemaError{Path: strings.Join(path, ".")}
	case "object":
		return compileRecord(s, resolve, path)
	}
	return nil, &schema.UnsupportedSchemaError{Path: strings.Join(path, ".")}
}

func compileRecord(s *schema.Schema, resolve schema.ResolveFunc, path []string) (Descriptor, error) {
	required := map[string]bool{}
	for _, name := range s.Required {
		required[name] = true
	}
	record := &Record{
		Name:     RecordName(path),
		Required: map[string]Descriptor{},
		Optional: map[string]Descriptor{},
	}
	for name, property := range s.Properties {
		child := append(append([]string{}, path...), name)
		compiled, err := Compile(property, resolve, child)
		if err != nil {
			return nil, err
		}
		if required[name] {
			record.Required[name] = compiled
		} else {
			record.Optional[name] = compiled
		}
	}
	return record, nil
}

// verifyRef checks that a reference terminates at a non-reference node.
// References are compiled by name, never inlined, so this only has to chase
// pure ref-to-ref chains; a cycle among those is a compile error rather
// than an infinite unfold.
func verifyRef(ref string, resolve schema.ResolveFunc) error {
	seen := map[string]bool{}
	for {
		if seen[ref] {
			return &schema.UnresolvedReferenceError{Ref: ref, Reason: "reference cycle never terminates"}
		}
		seen[ref] = true
		target, err := resolve(ref)
		if err != nil {
			return err
		}
		if target == nil || target.Ref == "" {
			return nil
		}
		ref = target.Ref
	}
}

// RecordName synthesizes the stable record name for a naming path: the
// kebab-joined segments rendered in PascalCase, e.g. ["make-move",
// "position"] becomes "MakeMovePosition".
func RecordName(path []string) string {
	joined := strings.Join(path, "-")
	parts := strings.Split(strings.ToLower(joined), "-")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
