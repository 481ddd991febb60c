package wirespec

import (
	"github.com/wirespec/wirespec/descriptor"
)

// FunctionDescriptor is the compiled shape of one function: its arguments
// in declaration order plus the optional return.
type FunctionDescriptor struct {
	Name      string
	Arguments []ArgumentDescriptor
	Return    descriptor.Descriptor // nil when the function declares no return
}

// ArgumentDescriptor pairs an argument name with its compiled descriptor.
type ArgumentDescriptor struct {
	Name       string
	Descriptor descriptor.Descriptor
}

// CompileType compiles the named type's schema with naming path
// [type-name].
func CompileType(svc *Service, name string) (descriptor.Descriptor, error) {
	t, err := svc.Type(name)
	if err != nil {
		return nil, err
	}
	return descriptor.Compile(t.Schema, svc.ResolveRef, []string{t.Name})
}

// CompileFunction compiles the named function's arguments (naming path
// [function-name, argument-name]) and return (path [function-name,
// "return"]).
func CompileFunction(svc *Service, name string) (*FunctionDescriptor, error) {
	fn, err := svc.Function(name)
	if err != nil {
		return nil, err
	}
	out := &FunctionDescriptor{Name: fn.Name()}
	for _, arg := range fn.Arguments() {
		compiled, err := descriptor.Compile(arg.Schema, svc.ResolveRef, []string{fn.Name(), arg.Name})
		if err != nil {
			return nil, err
		}
		out.Arguments = append(out.Arguments, ArgumentDescriptor{Name: arg.Name, Descriptor: compiled})
	}
	if ret := fn.Return(); ret != nil {
		compiled, err := descriptor.Compile(ret.Schema, svc.ResolveRef, []string{fn.Name(), "return"})
		if err != nil {
			return nil, err
		}
		out.Return = compiled
	}
	return out, nil
}
