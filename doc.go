// Package wirespec provides:
//
// - A declarative specification model for a service's types, functions, and messages
// - A schema-to-descriptor compiler producing name-stable structural type descriptors
// - Contract validation gates guarding function and message entry points
// - A context-scoped dispatch runtime routing calls to local or remote bindings
//
// Design policy:
// - Keep only public APIs in the root package; the schema vocabulary lives in
//   schema/ and the compiled descriptor tree in descriptor/.
// - Validation and compilation are pure and safe for concurrent reads once a
//   Service is fully declared; declaration itself must complete first.
// - The runtime performs no I/O. Remote invocation and publishing go through
//   the Invoker and Publisher interfaces supplied by the caller.
//
// Typical usage:
//
//	svc, err := wirespec.FromYAML(document)
//	hook := wirespec.NewHook(svc, wirespec.WithInvoker(inv))
//	entry, err := hook.Implement("make-move", impl)
//
//	ctx = hook.Bind(ctx)
//	out, err := hook.Call(ctx, "make-move", payload)
package wirespec
