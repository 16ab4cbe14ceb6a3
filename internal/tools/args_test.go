package tools

import "testing"

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"s":    "hello",
		"b":    true,
		"n":    float64(7),
		"f":    1.5,
		"list": []any{"a", "b", 3},
	}

	if stringArg(args, "s") != "hello" || stringArg(args, "missing") != "" {
		t.Error("stringArg")
	}
	if !boolArg(args, "b") || boolArg(args, "s") {
		t.Error("boolArg")
	}
	if intArg(args, "n") != 7 || intArg(args, "missing") != 0 {
		t.Error("intArg")
	}
	if f := floatArg(args, "f"); f == nil || *f != 1.5 {
		t.Error("floatArg")
	}
	if floatArg(args, "missing") != nil {
		t.Error("floatArg on missing key")
	}

	list := stringSliceArg(args, "list")
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("stringSliceArg = %v", list)
	}
	if stringSliceArg(args, "s") != nil {
		t.Error("stringSliceArg on non-array")
	}
}
