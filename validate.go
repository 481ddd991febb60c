package wirespec

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/wirespec/wirespec/schema"
)

// Validator checks decoded document values against one compiled schema.
// Compilation fails closed: unresolved references and unrecognized schema
// shapes are construction errors, never downgraded to a permissive check.
// A compiled Validator is pure and safe for concurrent use.
type Validator struct {
	check checkFunc
}

// Validate reports all mismatches between value and the schema as Issues,
// or nil when the value conforms.
func (v *Validator) Validate(value any) error {
	if iss := v.check(value, rootPath()); len(iss) > 0 {
		return iss
	}
	return nil
}

// NewValidator compiles a validator for a schema, resolving "#/types/"
// references through resolve.
func NewValidator(s *schema.Schema, resolve schema.ResolveFunc) (*Validator, error) {
	c := &validatorCompiler{resolve: resolve, cells: map[string]*refCell{}}
	check, err := c.compile(s, nil)
	if err != nil {
		return nil, err
	}
	return &Validator{check: check}, nil
}

type checkFunc func(v any, p *pathRef) Issues

// refCell breaks compile-time recursion for self-referential type graphs:
// the delegate closure reads check at validation time, after compilation
// has filled it in.
type refCell struct {
	check checkFunc
}

type validatorCompiler struct {
	resolve schema.ResolveFunc
	cells   map[string]*refCell
}

func (c *validatorCompiler) compile(s *schema.Schema, path []string) (checkFunc, error) {
	if s == nil {
		return nil, &schema.UnsupportedSchemaError{Path: strings.Join(path, ".")}
	}
	if s.HasConst {
		want := s.Const
		return func(v any, p *pathRef) Issues {
			if !literalEqual(v, want) {
				return Issues{p.Issue(CodeInvalidConst, fmt.Sprintf("value must equal %v", want))}
			}
			return nil
		}, nil
	}
	if len(s.Enum) > 0 {
		allowed := s.Enum
		return func(v any, p *pathRef) Issues {
			for _, want := range allowed {
				if literalEqual(v, want) {
					return nil
				}
			}
			return Issues{p.Issue(CodeInvalidEnum, "value not among enumerated literals")}
		}, nil
	}
	if len(s.AnyOf) > 0 {
		members := make([]checkFunc, 0, len(s.AnyOf))
		for i, member := range s.AnyOf {
			chk, err := c.compile(member, append(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			members = append(members, chk)
		}
		return func(v any, p *pathRef) Issues {
			for _, chk := range members {
				if len(chk(v, p)) == 0 {
					return nil
				}
			}
			return Issues{p.Issue(CodeUnionMismatch, "value matches no union member")}
		}, nil
	}
	if s.Ref != "" {
		return c.compileRef(s.Ref)
	}
	switch s.Type {
	case "null":
		return func(v any, p *pathRef) Issues {
			if v != nil {
				return Issues{p.Issue(CodeInvalidType, "expected null", "got", typeName(v))}
			}
			return nil
		}, nil
	case "integer":
		return func(v any, p *pathRef) Issues {
			if !isIntegral(v) {
				return Issues{p.Issue(CodeInvalidType, "expected integer", "got", typeName(v))}
			}
			return nil
		}, nil
	case "number":
		return func(v any, p *pathRef) Issues {
			if _, ok := numericValue(v); !ok {
				return Issues{p.Issue(CodeInvalidType, "expected number", "got", typeName(v))}
			}
			return nil
		}, nil
	case "boolean":
		return func(v any, p *pathRef) Issues {
			if _, ok := v.(bool); !ok {
				return Issues{p.Issue(CodeInvalidType, "expected boolean", "got", typeName(v))}
			}
			return nil
		}, nil
	case "string":
		return func(v any, p *pathRef) Issues {
			if _, ok := v.(string); !ok {
				return Issues{p.Issue(CodeInvalidType, "expected string", "got", typeName(v))}
			}
			return nil
		}, nil
	case "array":
		return c.compileArray(s, path)
	case "object":
		return c.compileObject(s, path)
	}
	return nil, &schema.UnsupportedSchemaError{Path: strings.Join(path, ".")}
}

func (c *validatorCompiler) compileArray(s *schema.Schema, path []string) (checkFunc, error) {
	if s.Tuple != nil {
		elements := make([]checkFunc, 0, len(s.Tuple))
		for i, element := range s.Tuple {
			chk, err := c.compile(element, append(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			elements = append(elements, chk)
		}
		return func(v any, p *pathRef) Issues {
			list, ok := v.([]any)
			if !ok {
				return Issues{p.Issue(CodeInvalidType, "expected array", "got", typeName(v))}
			}
			var iss Issues
			// positional prefix check; trailing positions beyond the
			// value's length are not required
			for i, chk := range elements {
				if i >= len(list) {
					break
				}
				iss = append(iss, chk(list[i], p.Index(i))...)
			}
			return iss
		}, nil
	}
	if s.Items != nil {
		element, err := c.compile(s.Items, path)
		if err != nil {
			return nil, err
		}
		return func(v any, p *pathRef) Issues {
			list, ok := v.([]any)
			if !ok {
				return Issues{p.Issue(CodeInvalidType, "expected array", "got", typeName(v))}
			}
			var iss Issues
			for i, item := range list {
				iss = append(iss, element(item, p.Index(i))...)
			}
			return iss
		}, nil
	}
	return nil, &schema.UnsupportedSchemaError{Path: strings.Join(path, ".")}
}

func (c *validatorCompiler) compileObject(s *schema.Schema, path []string) (checkFunc, error) {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	properties := make(map[string]checkFunc, len(names))
	for _, name := range names {
		chk, err := c.compile(s.Properties[name], append(path, name))
		if err != nil {
			return nil, err
		}
		properties[name] = chk
	}
	required := append([]string{}, s.Required...)
	strict := s.AdditionalProperties != nil && !*s.AdditionalProperties
	return func(v any, p *pathRef) Issues {
		m, ok := v.(map[string]any)
		if !ok {
			return Issues{p.Issue(CodeInvalidType, "expected object", "got", typeName(v))}
		}
		var iss Issues
		for _, name := range required {
			if _, ok := m[name]; !ok {
				iss = append(iss, p.Field(name).Issue(CodeRequired, "required field missing"))
			}
		}
		for _, name := range names {
			if fv, ok := m[name]; ok {
				iss = append(iss, properties[name](fv, p.Field(name))...)
			}
		}
		if strict {
			extra := make([]string, 0)
			for name := range m {
				if _, ok := properties[name]; !ok {
					extra = append(extra, name)
				}
			}
			sort.Strings(extra)
			for _, name := range extra {
				iss = append(iss, p.Field(name).Issue(CodeUnknownKey, "field not permitted"))
			}
		}
		return iss
	}, nil
}

func (c *validatorCompiler) compileRef(ref string) (checkFunc, error) {
	// chase pure ref-to-ref chains up front so a cycle that never reaches a
	// non-reference node fails compilation instead of looping
	seen := map[string]bool{}
	for cursor := ref; ; {
		if seen[cursor] {
			return nil, &schema.UnresolvedReferenceError{Ref: cursor, Reason: "reference cycle never terminates"}
		}
		seen[cursor] = true
		target, err := c.resolve(cursor)
		if err != nil {
			return nil, err
		}
		if target == nil || target.Ref == "" {
			break
		}
		cursor = target.Ref
	}
	if cell, ok := c.cells[ref]; ok {
		return cell.delegate(), nil
	}
	cell := &refCell{}
	c.cells[ref] = cell
	target, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	chk, err := c.compile(target, []string{strings.TrimPrefix(ref, schema.RefPrefix)})
	if err != nil {
		return nil, err
	}
	cell.check = chk
	return cell.delegate(), nil
}

func (cell *refCell) delegate() checkFunc {
	return func(v any, p *pathRef) Issues {
		return cell.check(v, p)
	}
}

// literalEqual compares document values the way JSON equality does: numbers
// compare across representations, everything else structurally.
func literalEqual(a, b any) bool {
	if na, ok := numericValue(a); ok {
		if nb, ok := numericValue(b); ok {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func isIntegral(v any) bool {
	switch v.(type) {
	case bool, string, nil:
		return false
	}
	f, ok := numericValue(v)
	if !ok {
		return false
	}
	return f == math.Trunc(f)
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
