package wirespec

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes reported by validation and decoding.
const (
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeUnknownKey    = "unknown_key"
	CodeInvalidConst  = "invalid_const"
	CodeInvalidEnum   = "invalid_enum"
	CodeUnionMismatch = "union_mismatch"
	CodeParseError    = "parse_error"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	// Params carries structured parameters (e.g., {"want":"string", "got":42})
	// for observability.
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Validation stages reported by ContractError.
const (
	StageEvent   = "event"
	StageReturn  = "return"
	StageMessage = "message"
)

// ContractError reports a mismatch between an observed payload or value and
// its governing schema. Subject is the function or message name; Stage says
// which gate detected it.
type ContractError struct {
	Subject string
	Stage   string
	Issues  Issues
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("wirespec: contract violated by %s of %q: %s", e.Stage, e.Subject, e.Issues.Error())
}

func (e *ContractError) Unwrap() error { return e.Issues }

// DuplicateDeclarationError reports a name declared twice in one of a
// service's collections.
type DuplicateDeclarationError struct {
	Kind string // "type", "function", "message", or "argument"
	Name string
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("wirespec: %s %q already declared", e.Kind, e.Name)
}

// UnknownDeclarationError reports a lookup of a name never declared.
type UnknownDeclarationError struct {
	Kind string
	Name string
}

func (e *UnknownDeclarationError) Error() string {
	return fmt.Sprintf("wirespec: no %s %q declared", e.Kind, e.Name)
}

// UnboundCallError reports a call or send on a hook with neither a local
// implementation nor a remote routing descriptor registered for the name.
type UnboundCallError struct {
	Name string
}

func (e *UnboundCallError) Error() string {
	return fmt.Sprintf("wirespec: %q is bound to neither an implementation nor a routing descriptor", e.Name)
}

// ErrNoActiveHook is returned by Current when no hook is bound to the
// calling context.
var ErrNoActiveHook = errors.New("wirespec: no active hook")

// TransportError reports a failure from an external invocation or publish
// collaborator. The runtime never retries; the error surfaces unmodified.
type TransportError struct {
	Op     string // "invoke" or "publish"
	Target RoutingDescriptor
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wirespec: %s %q: %v", e.Op, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AccessError is a TransportError raised when access to the underlying
// transport is denied.
type AccessError struct {
	TransportError
}
