package stdlib

import (
	"errors"
	"testing"

	"github.com/lemonberrylabs/testlang/pkg/types"
)

func TestPrint(t *testing.T) {
	var lines []string
	r := NewRegistry(func(line string) { lines = append(lines, line) })

	args := []types.Value{types.NewInt(1), types.NewString("two"), types.None}
	v, err := r.CallFunction("print", args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsNone() {
		t.Errorf("print returned %s, want none", v)
	}
	if len(lines) != 1 || lines[0] != "1 two none" {
		t.Errorf("lines = %q", lines)
	}

	if _, err := r.CallFunction("print", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 || lines[1] != "" {
		t.Errorf("print() should log an empty line, got %q", lines)
	}
}

func TestMod(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name    string
		args    []types.Value
		want    int64
		wantTag string
	}{
		{"basic", []types.Value{types.NewInt(7), types.NewInt(3)}, 1, ""},
		{"negative dividend", []types.Value{types.NewInt(-7), types.NewInt(3)}, -1, ""},
		{"too few", []types.Value{types.NewInt(7)}, 0, types.TagArityError},
		{"string", []types.Value{types.NewString("7"), types.NewInt(3)}, 0, types.TagTypeError},
		{"by zero", []types.Value{types.NewInt(7), types.NewInt(0)}, 0, types.TagTypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.CallFunction("mod", tt.args)
			if tt.wantTag != "" {
				if !errors.Is(err, &types.Error{Tag: tt.wantTag}) {
					t.Fatalf("expected %s, got %v", tt.wantTag, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.AsInt() != tt.want {
				t.Errorf("mod = %d, want %d", got.AsInt(), tt.want)
			}
		})
	}
}

func TestEnvironmentBindsBuiltins(t *testing.T) {
	env := NewRegistry(nil).Environment()
	for _, name := range []string{"print", "mod"} {
		v, ok := env.Get(name)
		if !ok {
			t.Fatalf("%s not bound", name)
		}
		if v.Type() != types.TypeBuiltin {
			t.Errorf("%s has type %s", name, v.Type())
		}
	}
	if _, err := NewRegistry(nil).CallFunction("len", nil); !errors.Is(err, &types.Error{Tag: types.TagNameError}) {
		t.Errorf("expected NameError for unknown builtin, got %v", err)
	}
}
