package wirespec

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/wirespec/wirespec/schema"
)

// Document is the parsed form of a specification document.
type Document struct {
	Service   ServiceInfo    `yaml:"service" json:"service"`
	Types     []TypeDecl     `yaml:"types" json:"types"`
	Functions []FunctionDecl `yaml:"functions" json:"functions"`
	Messages  []MessageDecl  `yaml:"messages" json:"messages"`
}

// ServiceInfo is the document's service header.
type ServiceInfo struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// TypeDecl is one entry of the document's types section.
type TypeDecl struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Schema      *schema.Schema `yaml:"schema" json:"schema"`
}

// FunctionDecl is one entry of the document's functions section.
type FunctionDecl struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Arguments   []ArgumentDecl `yaml:"arguments" json:"arguments"`
	Returns     *ReturnDecl    `yaml:"returns" json:"returns"`
}

// ArgumentDecl is one entry of a function's arguments list.
type ArgumentDecl struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Schema      *schema.Schema `yaml:"schema" json:"schema"`
}

// ReturnDecl is a function's optional returns entry.
type ReturnDecl struct {
	Description string         `yaml:"description" json:"description"`
	Schema      *schema.Schema `yaml:"schema" json:"schema"`
}

// MessageDecl is one entry of the document's messages section.
type MessageDecl struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Schema      *schema.Schema `yaml:"schema" json:"schema"`
}

// Service is the definition of a service: name-keyed collections of types,
// functions, and messages. Declaration must complete before the compiler,
// validators, or hooks read it; after that the model is read-only and safe
// to share.
type Service struct {
	name        string
	version     string
	description string
	source      *Document

	types     map[string]*Type
	typeOrder []string

	functions     map[string]*Function
	functionOrder []string

	messages     map[string]*Message
	messageOrder []string
}

// Type is a named schema declaration.
type Type struct {
	Name        string
	Description string
	Schema      *schema.Schema
}

// Argument is a named, schema-typed function parameter.
type Argument struct {
	Name        string
	Description string
	Schema      *schema.Schema
}

// Return is a function's optional result contract.
type Return struct {
	Description string
	Schema      *schema.Schema
}

// Message is an asynchronous payload contract, independent of functions.
type Message struct {
	Name        string
	Description string
	Schema      *schema.Schema
}

// Function is a named operation with uniquely-named arguments and an
// optional return.
type Function struct {
	name        string
	description string

	arguments map[string]*Argument
	argOrder  []string
	ret       *Return
}

// NewFunction creates an empty function declaration.
func NewFunction(name, description string) *Function {
	return &Function{
		name:        name,
		description: description,
		arguments:   map[string]*Argument{},
	}
}

func (f *Function) Name() string        { return f.name }
func (f *Function) Description() string { return f.description }

// DeclareArgument adds an argument; names are unique within the function.
func (f *Function) DeclareArgument(a *Argument) error {
	if _, ok := f.arguments[a.Name]; ok {
		return &DuplicateDeclarationError{Kind: "argument", Name: fmt.Sprintf("%s.%s", f.name, a.Name)}
	}
	f.arguments[a.Name] = a
	f.argOrder = append(f.argOrder, a.Name)
	return nil
}

// Arguments returns the declared arguments in declaration order.
func (f *Function) Arguments() []*Argument {
	out := make([]*Argument, 0, len(f.argOrder))
	for _, name := range f.argOrder {
		out = append(out, f.arguments[name])
	}
	return out
}

// SetReturn declares the function's result contract.
func (f *Function) SetReturn(r *Return) { f.ret = r }

// Return reports the declared result contract, nil when the function
// returns nothing observable.
func (f *Function) Return() *Return { return f.ret }

// New creates an empty service definition.
func New(name, version, description string) *Service {
	return &Service{
		name:        name,
		version:     version,
		description: description,
		types:       map[string]*Type{},
		functions:   map[string]*Function{},
		messages:    map[string]*Message{},
	}
}

// FromDocument builds a service from a parsed specification document,
// walking the types, functions, and messages sections in document order.
func FromDocument(doc *Document) (*Service, error) {
	svc := New(doc.Service.Name, doc.Service.Version, doc.Service.Description)
	svc.source = doc
	for _, td := range doc.Types {
		err := svc.DeclareType(&Type{Name: td.Name, Description: td.Description, Schema: td.Schema})
		if err != nil {
			return nil, err
		}
	}
	for _, fd := range doc.Functions {
		fn := NewFunction(fd.Name, fd.Description)
		if err := svc.DeclareFunction(fn); err != nil {
			return nil, err
		}
		for _, ad := range fd.Arguments {
			err := fn.DeclareArgument(&Argument{Name: ad.Name, Description: ad.Description, Schema: ad.Schema})
			if err != nil {
				return nil, err
			}
		}
		if fd.Returns != nil {
			fn.SetReturn(&Return{Description: fd.Returns.Description, Schema: fd.Returns.Schema})
		}
	}
	for _, md := range doc.Messages {
		err := svc.DeclareMessage(&Message{Name: md.Name, Description: md.Description, Schema: md.Schema})
		if err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// FromYAML parses a YAML specification document and builds a service.
func FromYAML(data []byte) (*Service, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("wirespec: parse specification: %w", err)
	}
	return FromDocument(&doc)
}

// FromJSON parses a JSON specification document and builds a service.
func FromJSON(data []byte) (*Service, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("wirespec: parse specification: %w", err)
	}
	return FromDocument(&doc)
}

func (s *Service) Name() string        { return s.name }
func (s *Service) Version() string     { return s.version }
func (s *Service) Description() string { return s.description }

// Source returns the parsed document the service was built from, nil for
// services assembled programmatically. Packaging collaborators consume it.
func (s *Service) Source() *Document { return s.source }

// DeclareType adds a type; duplicate names fail.
func (s *Service) DeclareType(t *Type) error {
	if _, ok := s.types[t.Name]; ok {
		return &DuplicateDeclarationError{Kind: "type", Name: t.Name}
	}
	s.types[t.Name] = t
	s.typeOrder = append(s.typeOrder, t.Name)
	return nil
}

// DeclareFunction adds a function; duplicate names fail.
func (s *Service) DeclareFunction(f *Function) error {
	if _, ok := s.functions[f.name]; ok {
		return &DuplicateDeclarationError{Kind: "function", Name: f.name}
	}
	s.functions[f.name] = f
	s.functionOrder = append(s.functionOrder, f.name)
	return nil
}

// DeclareMessage adds a message; duplicate names fail.
func (s *Service) DeclareMessage(m *Message) error {
	if _, ok := s.messages[m.Name]; ok {
		return &DuplicateDeclarationError{Kind: "message", Name: m.Name}
	}
	s.messages[m.Name] = m
	s.messageOrder = append(s.messageOrder, m.Name)
	return nil
}

// Type returns the named type declaration.
func (s *Service) Type(name string) (*Type, error) {
	t, ok := s.types[name]
	if !ok {
		return nil, &UnknownDeclarationError{Kind: "type", Name: name}
	}
	return t, nil
}

// Function returns the named function declaration.
func (s *Service) Function(name string) (*Function, error) {
	f, ok := s.functions[name]
	if !ok {
		return nil, &UnknownDeclarationError{Kind: "function", Name: name}
	}
	return f, nil
}

// Message returns the named message declaration.
func (s *Service) Message(name string) (*Message, error) {
	m, ok := s.messages[name]
	if !ok {
		return nil, &UnknownDeclarationError{Kind: "message", Name: name}
	}
	return m, nil
}

// Types returns all type declarations in declaration order.
func (s *Service) Types() []*Type {
	out := make([]*Type, 0, len(s.typeOrder))
	for _, name := range s.typeOrder {
		out = append(out, s.types[name])
	}
	return out
}

// Functions returns all function declarations in declaration order.
func (s *Service) Functions() []*Function {
	out := make([]*Function, 0, len(s.functionOrder))
	for _, name := range s.functionOrder {
		out = append(out, s.functions[name])
	}
	return out
}

// Messages returns all message declarations in declaration order.
func (s *Service) Messages() []*Message {
	out := make([]*Message, 0, len(s.messageOrder))
	for _, name := range s.messageOrder {
		out = append(out, s.messages[name])
	}
	return out
}

// ResolveRef resolves a "#/types/<name>" reference to the schema of the
// named type. Any other reference form, or an undeclared name, fails with
// an UnresolvedReferenceError.
func (s *Service) ResolveRef(ref string) (*schema.Schema, error) {
	if !strings.HasPrefix(ref, schema.RefPrefix) {
		return nil, &schema.UnresolvedReferenceError{Ref: ref, Reason: "not a type reference"}
	}
	name := strings.TrimPrefix(ref, schema.RefPrefix)
	t, ok := s.types[name]
	if !ok {
		return nil, &schema.UnresolvedReferenceError{Ref: ref, Reason: "type not declared"}
	}
	return t.Schema, nil
}
