package ops

import (
	"bytes"
	"testing"

	"github.com/lento/daffy/optype"
)

func registry(t *testing.T, stdout *bytes.Buffer) *optype.Registry {
	t.Helper()
	reg := optype.NewRegistry()
	Register(reg, stdout)
	return reg
}

func TestRegisterAddsAllBuiltins(t *testing.T) {
	reg := registry(t, &bytes.Buffer{})
	for _, name := range []string{"value", "add", "sub", "mul", "div", "print"} {
		if _, err := reg.Find(name); err != nil {
			t.Fatalf("Find(%q) failed: %v", name, err)
		}
	}
}

type fakeExec struct {
	inputs  map[string]float64
	outputs map[string]float64
}

func newFakeExec(inputs map[string]float64) *fakeExec {
	return &fakeExec{inputs: inputs, outputs: make(map[string]float64)}
}

func (f *fakeExec) Input(name string) float64         { return f.inputs[name] }
func (f *fakeExec) SetOutput(name string, value float64) { f.outputs[name] = value }

func TestAddSubMul(t *testing.T) {
	reg := registry(t, &bytes.Buffer{})

	cases := []struct {
		optype string
		a, b   float64
		want   float64
	}{
		{"add", 3, 4, 7},
		{"sub", 10, 4, 6},
		{"mul", 6, 7, 42},
	}
	for _, c := range cases {
		ty, err := reg.Find(c.optype)
		if err != nil {
			t.Fatalf("Find(%q): %v", c.optype, err)
		}
		exec := newFakeExec(map[string]float64{"a": c.a, "b": c.b})
		if err := ty.Exec(exec); err != nil {
			t.Fatalf("%s exec: %v", c.optype, err)
		}
		if got := exec.outputs["result"]; got != c.want {
			t.Fatalf("%s(%v,%v) = %v, want %v", c.optype, c.a, c.b, got, c.want)
		}
	}
}

func TestDivByZero(t *testing.T) {
	reg := registry(t, &bytes.Buffer{})
	ty, _ := reg.Find("div")
	exec := newFakeExec(map[string]float64{"a": 1, "b": 0})
	if err := ty.Exec(exec); err == nil {
		t.Fatal("expected an error dividing by zero")
	}
}

func TestPrintWritesFormattedValueToStdout(t *testing.T) {
	var buf bytes.Buffer
	reg := registry(t, &buf)
	ty, _ := reg.Find("print")
	exec := newFakeExec(map[string]float64{"value": 42})
	if err := ty.Exec(exec); err != nil {
		t.Fatalf("print exec: %v", err)
	}
	if got, want := buf.String(), "42.0\n"; got != want {
		t.Fatalf("stdout = %q, want %q", got, want)
	}
}

func TestValueHasNoExecAndNoInputs(t *testing.T) {
	reg := registry(t, &bytes.Buffer{})
	ty, err := reg.Find("value")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Exec != nil {
		t.Fatal("value's Exec should be nil: it is a pure carrier")
	}
	if len(ty.Inputs) != 0 {
		t.Fatalf("value should have no inputs, got %v", ty.Inputs)
	}
}
