package tools

import (
	"context"
	"testing"
)

func noop(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return "ok", nil
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Tool{Name: "", Execute: noop}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := r.Register(Tool{Name: "broken"}); err == nil {
		t.Fatal("expected error for missing execute function")
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestRegisterPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(Tool{Name: name, Execute: noop}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}
	want := []string{"zeta", "alpha", "mid"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	defs := r.Definitions()
	for i := range want {
		if defs[i].Name != want[i] {
			t.Fatalf("Definitions[%d].Name = %s, want %s", i, defs[i].Name, want[i])
		}
	}
}

func TestReRegisterKeepsCatalogPosition(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "first", Description: "original", Execute: noop})
	r.Register(Tool{Name: "second", Execute: noop})
	r.Register(Tool{Name: "first", Description: "replaced", Execute: noop})

	names := r.Names()
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Fatalf("Names = %v, want [first second]", names)
	}
	got, ok := r.Get("first")
	if !ok || got.Description != "replaced" {
		t.Fatalf("Get(first) = %+v, want replaced description", got)
	}
}

func TestGetAndHas(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "echo", Execute: noop})
	if !r.Has("echo") {
		t.Fatal("Has(echo) = false")
	}
	if r.Has("missing") {
		t.Fatal("Has(missing) = true")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("Get(missing) reported ok")
	}
}

func TestMapIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "echo", Execute: noop})
	m := r.Map()
	delete(m, "echo")
	if !r.Has("echo") {
		t.Fatal("mutating Map result affected the registry")
	}
}

func TestMerge(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "echo", Description: "base echo", Execute: noop})
	r.Register(Tool{Name: "time", Description: "base time", Execute: noop})

	merged := r.Merge(map[string]Tool{
		"echo":   {Description: "custom echo", Execute: noop},
		"lookup": {Name: "lookup", Description: "extra", Execute: noop},
	})

	// Receiver unchanged.
	if base, _ := r.Get("echo"); base.Description != "base echo" {
		t.Fatalf("receiver echo description = %q, want base echo", base.Description)
	}
	if r.Has("lookup") {
		t.Fatal("receiver gained an override tool")
	}

	if merged.Len() != 3 {
		t.Fatalf("merged Len = %d, want 3", merged.Len())
	}
	echo, _ := merged.Get("echo")
	if echo.Description != "custom echo" {
		t.Fatalf("merged echo description = %q, want custom echo", echo.Description)
	}
	if echo.Name != "echo" {
		t.Fatalf("merged echo name = %q, map key should fill the name", echo.Name)
	}
	names := merged.Names()
	if names[0] != "echo" || names[1] != "time" || names[2] != "lookup" {
		t.Fatalf("merged Names = %v, want base order then overrides", names)
	}
}
