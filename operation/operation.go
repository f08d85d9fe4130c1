// Package operation implements a single dataflow graph node: an
// Operation instance bound to a Type, its input edges, its output
// values, and the scheduler bookkeeping (waiting-on counter, blocking
// list, finished flag) that drives execution order.
//
// The bookkeeping fields (WaitingOn, Blocking, Finished, Queued) are
// exported because the scheduler package owns their mutation and needs
// direct access to them; an Operation itself never mutates them. All
// such mutation must happen while holding the owning scheduler's
// table lock — see package scheduler for the synchronization
// discipline.
package operation

import (
	"fmt"

	"github.com/lento/daffy/optype"
)

// InputSocket is one input of an Operation: either bound to an
// upstream operation's named output, or left to use the declared
// default.
type InputSocket struct {
	// Name is the input socket's name, as declared by the Type.
	Name string

	// Source is the upstream Operation this socket reads from, or
	// nil if this socket is unbound (uses Default instead).
	Source *Operation

	// SourceOutput names the output socket on Source to read.
	// Meaningless when Source is nil.
	SourceOutput string

	// Default is the value used when Source is nil.
	Default float64
}

// OutputSocket is one output of an Operation: a name and a value that
// becomes meaningful only after the Operation has finished.
type OutputSocket struct {
	Name  string
	Value float64
}

// Operation is one node of a dataflow graph.
type Operation struct {
	// Type is this operation's descriptor.
	Type *optype.Type

	// Name uniquely identifies this operation within its scheduler.
	Name string

	// Inputs holds one InputSocket per socket the Type declares, in
	// the Type's declared order.
	Inputs []InputSocket

	// Outputs holds one OutputSocket per socket the Type declares.
	Outputs []OutputSocket

	// WaitingOn counts bound predecessors that have not finished.
	// Mutated only by the scheduler's updater goroutine.
	WaitingOn int

	// Blocking lists the dependents to notify when this operation
	// finishes. Appended to only during submission, drained only by
	// the updater; by construction these two phases never overlap
	// for a given operation (a dependent is recorded before its
	// predecessor can possibly finish).
	Blocking []*Operation

	// Finished transitions false->true exactly once, when the
	// updater has processed this operation's completion (or, for a
	// value carrier, at submission time).
	Finished bool

	// Queued marks that this operation has already been placed on
	// the runnable queue (or, after an abort, cancelled); the
	// updater's completion cascade skips an operation once it is set,
	// so it is never enqueued twice.
	Queued bool
}

// New constructs an Operation of the given Type with the given input
// bindings. Outputs start at their zero value; WaitingOn is left at 0
// for the caller (the scheduler) to compute once the operation's
// bindings are resolved against the table.
func New(t *optype.Type, name string, inputs []InputSocket) *Operation {
	op := &Operation{
		Type:    t,
		Name:    name,
		Inputs:  inputs,
		Outputs: make([]OutputSocket, len(t.Outputs)),
	}
	for i, o := range t.Outputs {
		op.Outputs[i].Name = o.Name
	}
	return op
}

// socketNotFoundError reports a reference to an input or output
// socket name the operation's Type never declared. Seeing this means
// a built-in operation's ExecFunc disagrees with its own Type — a
// core bug, not a user-facing error.
type socketNotFoundError struct {
	op, socket string
}

func (e *socketNotFoundError) Error() string {
	return fmt.Sprintf("operation: socket %q not found on operation %q", e.socket, e.op)
}

// Input returns the current value of the named input socket: either
// the value of the upstream output it is bound to, or the socket's
// default if unbound. The upstream operation, if any, is guaranteed
// to have finished by the time a worker calls Input (invariant 4).
func (o *Operation) Input(name string) float64 {
	for _, sock := range o.Inputs {
		if sock.Name != name {
			continue
		}
		if sock.Source != nil {
			return sock.Source.OutputValue(sock.SourceOutput)
		}
		return sock.Default
	}
	panic(&socketNotFoundError{op: o.Name, socket: name})
}

// OutputValue returns the current value of the named output socket.
func (o *Operation) OutputValue(name string) float64 {
	for _, sock := range o.Outputs {
		if sock.Name == name {
			return sock.Value
		}
	}
	panic(&socketNotFoundError{op: o.Name, socket: name})
}

// SetOutput writes the named output socket's value.
func (o *Operation) SetOutput(name string, value float64) {
	for i := range o.Outputs {
		if o.Outputs[i].Name == name {
			o.Outputs[i].Value = value
			return
		}
	}
	panic(&socketNotFoundError{op: o.Name, socket: name})
}
