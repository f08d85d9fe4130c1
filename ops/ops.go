// Package ops holds the builtin operation-type catalog: value, add,
// sub, mul, div and print. Register wires all of them into a
// *optype.Registry at startup; nothing here is mutated afterwards.
package ops

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lento/daffy/optype"
)

// Register adds every builtin type to reg. stdout is where the print
// operation writes; it is the program's only output, distinct from
// whatever sink the ambient logger is configured with. Register is
// idempotent: calling it twice on the same Registry has no extra
// effect, since Registry.Register ignores an already-registered name.
func Register(reg *optype.Registry, stdout io.Writer) {
	reg.Register(valueType())
	reg.Register(binaryType("add", func(a, b float64) float64 { return a + b }))
	reg.Register(binaryType("sub", func(a, b float64) float64 { return a - b }))
	reg.Register(binaryType("mul", func(a, b float64) float64 { return a * b }))
	reg.Register(divType())
	reg.Register(printType(stdout))
}

// valueType is the sole carrier type: it has no declared inputs, one
// output named "value", and a nil Exec, so the scheduler treats it as
// a source that's finished the instant it's submitted.
func valueType() *optype.Type {
	return &optype.Type{
		Name:    "value",
		Outputs: []optype.OutputSocketType{{Name: "value"}},
	}
}

// binaryType builds one of the three arity-two arithmetic
// types (add, sub, mul), all of which share the same shape: inputs
// "a" and "b", default 0, output "result".
func binaryType(name string, fn func(a, b float64) float64) *optype.Type {
	return &optype.Type{
		Name:    name,
		Inputs:  []optype.InputSocketType{{Name: "a"}, {Name: "b"}},
		Outputs: []optype.OutputSocketType{{Name: "result"}},
		Exec: func(op optype.Executable) error {
			op.SetOutput("result", fn(op.Input("a"), op.Input("b")))
			return nil
		},
	}
}

// divType is arithmetically the odd one out among the binary ops: it
// can fail, so unlike add/sub/mul it gets its own Exec rather than
// going through binaryType.
func divType() *optype.Type {
	return &optype.Type{
		Name:    "div",
		Inputs:  []optype.InputSocketType{{Name: "a"}, {Name: "b"}},
		Outputs: []optype.OutputSocketType{{Name: "result"}},
		Exec: func(op optype.Executable) error {
			b := op.Input("b")
			if b == 0 {
				return fmt.Errorf("division by zero")
			}
			op.SetOutput("result", op.Input("a")/b)
			return nil
		},
	}
}

// printType has a single input, "value", defaulting to 0, and no
// outputs; its side effect is the program's only standard-output
// write: the float's textual value followed by a newline.
func printType(stdout io.Writer) *optype.Type {
	return &optype.Type{
		Name:   "print",
		Inputs: []optype.InputSocketType{{Name: "value"}},
		Exec: func(op optype.Executable) error {
			_, err := fmt.Fprintf(stdout, "%s\n", formatValue(op.Input("value")))
			return err
		},
	}
}

// formatValue renders a float the way a reader of a dataflow program
// would expect: the shortest decimal that round-trips, with ".0"
// appended to a whole number so 42.0 doesn't print as a bare "42".
// Values that %g renders in exponent form (1e+06 and up, or below
// 1e-4) keep that form and get no ".0".
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
