package types

import "testing"

func newTestEnv() *Environment {
	return NewEnvironment([]Binding{
		{Name: "a", Value: NewString("hello")},
		{Name: "b", Value: NewString("world")},
		{Name: "c", Value: NewInt(42)},
	}, nil)
}

func TestEnvironmentGet(t *testing.T) {
	env := newTestEnv()
	child := env.Set("d", NewInt(1))

	tests := []struct {
		name string
		env  *Environment
		key  string
		want Value
		ok   bool
	}{
		{"missing in root", env, "1", None, false},
		{"child binding not visible from root", env, "d", None, false},
		{"root string", env, "a", NewString("hello"), true},
		{"root int", env, "c", NewInt(42), true},
		{"missing in child", child, "e", None, false},
		{"child binding", child, "d", NewInt(1), true},
		{"inherited binding", child, "c", NewInt(42), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.env.Get(tt.key)
			if ok != tt.ok {
				t.Fatalf("Get(%q) ok = %v, want %v", tt.key, ok, tt.ok)
			}
			if ok && !IsEqual(got, tt.want) {
				t.Errorf("Get(%q) = %s, want %s", tt.key, got, tt.want)
			}
		})
	}
}

func TestEnvironmentSetUnboundCreatesFrame(t *testing.T) {
	env := newTestEnv()
	next := env.Set("x", NewInt(7))

	if next == env {
		t.Fatal("Set on an unbound name should return a new frame")
	}
	if next.Parent() != env {
		t.Error("new frame should be chained under the old one")
	}
	if len(next.Bindings()) != 1 {
		t.Errorf("new frame has %d bindings, want 1", len(next.Bindings()))
	}
	if _, ok := env.Get("x"); ok {
		t.Error("old environment should not see the new binding")
	}
}

func TestEnvironmentSetBoundMutatesInPlace(t *testing.T) {
	root := newTestEnv()
	child := root.Set("d", NewInt(1))

	if got := child.Set("c", NewInt(99)); got != child {
		t.Fatal("Set on a bound name should return the same environment")
	}
	v, ok := root.Get("c")
	if !ok || v.AsInt() != 99 {
		t.Errorf("root sees c = %v, want 99", v)
	}
	if child.Parent() != root {
		t.Error("a new binding should add exactly one frame under root")
	}
}

func TestEnvironmentLookupReturnsDefiningFrame(t *testing.T) {
	root := newTestEnv()
	child := root.Set("d", NewInt(1))

	_, frame, ok := child.Lookup("a")
	if !ok || frame != root {
		t.Error("Lookup(a) should report the root frame")
	}
	_, frame, ok = child.Lookup("d")
	if !ok || frame != child {
		t.Error("Lookup(d) should report the child frame")
	}
}

func TestEnvironmentDefineKeepsOrder(t *testing.T) {
	env := NewEnvironment(nil, nil)
	env.Define("x", NewInt(1))
	env.Define("y", NewInt(2))
	env.Define("x", NewInt(3))

	b := env.Bindings()
	if len(b) != 2 || b[0].Name != "x" || b[1].Name != "y" {
		t.Fatalf("unexpected bindings %+v", b)
	}
	if b[0].Value.AsInt() != 3 {
		t.Errorf("x = %s, want 3", b[0].Value)
	}
}
