// Package optype implements the operation-type catalog: a process-wide,
// read-mostly registry mapping a type name to its descriptor.
//
// A Type declares the named input and output sockets an Operation of
// that type will own, plus the (possibly nil) callback that computes
// its outputs from its inputs. Types are registered once, at startup,
// and never mutated afterwards.
package optype

import "fmt"

// Executable is the minimal surface an ExecFunc needs from the
// Operation it is invoked against: read a named input's current value,
// and write a named output's value. It is defined here, rather than
// depending on package operation directly, so that optype has no
// dependency on the graph-node representation it describes.
type Executable interface {
	// Input returns the current value of the named input socket,
	// which is either the value written by a finished upstream
	// operation, or the socket's declared default.
	Input(name string) float64

	// SetOutput writes the named output socket's value.
	SetOutput(name string, value float64)
}

// ExecFunc computes an operation's outputs from its inputs. A nil
// ExecFunc on a type with no inputs marks a "pure carrier" type (only
// `value` ships with one): such operations never pass through the
// worker pool. A type with a nil ExecFunc and declared inputs is still
// dispatched to a worker, where executing it does nothing.
type ExecFunc func(op Executable) error

// InputSocketType declares one named input an operation of a Type
// accepts, along with the value used when the caller leaves it
// unbound.
type InputSocketType struct {
	Name    string
	Default float64
}

// OutputSocketType declares one named output an operation of a Type
// produces.
type OutputSocketType struct {
	Name string
}

// Type is an immutable operation-type descriptor.
type Type struct {
	// Name uniquely identifies this type within a Registry.
	Name string

	// Inputs is the ordered list of input sockets an Operation of
	// this Type owns. Order matters: Operation.Inputs mirrors it.
	Inputs []InputSocketType

	// Outputs is the ordered list of output sockets an Operation of
	// this Type owns.
	Outputs []OutputSocketType

	// Exec computes this type's outputs. Nil for carrier types.
	Exec ExecFunc
}

// NotFoundError reports that a type name has no registered descriptor.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("optype: operation type not found: %q", e.Name)
}

// Registry is a lookup table of Types, keyed by name. The zero value
// is ready to use. A Registry is safe to read concurrently once its
// startup registration phase has completed; Register itself is not
// meant to be called concurrently with Find (see the "Global catalog"
// design note: build eagerly, then treat as read-only).
type Registry struct {
	types map[string]*Type
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register idempotently inserts a Type, keyed on its Name. Registering
// a Type whose Name is already present is a no-op, matching the
// catalog's "idempotent insert" contract.
func (r *Registry) Register(t *Type) {
	if r.types == nil {
		r.types = make(map[string]*Type)
	}
	if _, exists := r.types[t.Name]; exists {
		return
	}
	r.types[t.Name] = t
}

// Find looks up a Type by name, returning a *NotFoundError (directly,
// unwrapped; errors.As works on it) if no such type is registered.
func (r *Registry) Find(name string) (*Type, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return t, nil
}
