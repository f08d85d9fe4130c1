package optype

import "testing"

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := &Type{Name: "value", Outputs: []OutputSocketType{{Name: "value"}}}
	b := &Type{Name: "value", Outputs: []OutputSocketType{{Name: "other"}}}

	r.Register(a)
	r.Register(b) // should be ignored, "value" already registered

	got, err := r.Find("value")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if got != a {
		t.Fatalf("Register overwrote an existing type; expected the first registration to win")
	}
}

func TestFindNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Find("missing")
	if err == nil {
		t.Fatal("expected an error for an unregistered type")
	}
	var nf *NotFoundError
	if got, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected *NotFoundError, got %T", err)
	} else {
		nf = got
	}
	if nf.Name != "missing" {
		t.Fatalf("NotFoundError.Name = %q, want %q", nf.Name, "missing")
	}
}
