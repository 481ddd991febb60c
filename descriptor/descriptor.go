// Package descriptor defines the compiled, resolved, name-stable
// representation of a schema. Code-rendering collaborators consume this tree
// to emit target-language bindings; it carries no behavior of its own.
package descriptor

import "sort"

// Kind identifies a descriptor node type.
type Kind int

const (
	KindLiteral Kind = iota
	KindString
	KindBool
	KindInt
	KindFloat
	KindUnion
	KindTuple
	KindSequence
	KindRecord
	KindReference
)

// Descriptor is the root descriptor node interface.
type Descriptor interface {
	Kind() Kind
}

// Literal permits exactly one value. A null schema compiles to a Literal
// with a nil Value.
type Literal struct {
	Value any
}

func (l *Literal) Kind() Kind { return KindLiteral }

// String permits any string value.
type String struct{}

func (s *String) Kind() Kind { return KindString }

// Bool permits any boolean value.
type Bool struct{}

func (b *Bool) Kind() Kind { return KindBool }

// Int permits any integral numeric value.
type Int struct{}

func (i *Int) Kind() Kind { return KindInt }

// Float permits any floating-point numeric value. A "number" schema
// compiles to a union of Int and Float, preserving both exactness classes.
type Float struct{}

func (f *Float) Kind() Kind { return KindFloat }

// Union permits a value matching any member.
type Union struct {
	Members []Descriptor
}

func (u *Union) Kind() Kind { return KindUnion }

// Tuple is an ordered heterogeneous sequence.
type Tuple struct {
	Elements []Descriptor
}

func (t *Tuple) Kind() Kind { return KindTuple }

// Sequence is a homogeneous sequence.
type Sequence struct {
	Element Descriptor
}

func (s *Sequence) Kind() Kind { return KindSequence }

// Record is a structured record with required/optional field partitioning
// and a name synthesized from the naming path that produced it. Identity is
// positional: structurally identical records at different specification
// positions carry different names.
type Record struct {
	Name     string
	Required map[string]Descriptor
	Optional map[string]Descriptor
}

func (r *Record) Kind() Kind { return KindRecord }

// FieldNames returns all field names, required first, each group sorted.
// Renderers rely on this for deterministic output.
func (r *Record) FieldNames() []string {
	req := make([]string, 0, len(r.Required))
	for name := range r.Required {
		req = append(req, name)
	}
	sort.Strings(req)
	opt := make([]string, 0, len(r.Optional))
	for name := range r.Optional {
		opt = append(opt, name)
	}
	sort.Strings(opt)
	return append(req, opt...)
}

// Reference names another declared type without inlining it. This is the
// one place compilation breaks recursion, so recursive type graphs stay
// finite.
type Reference struct {
	TypeName string
}

func (r *Reference) Kind() Kind { return KindReference }
