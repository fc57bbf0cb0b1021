package system

import (
	"os"
	"path/filepath"
	"testing"

	"asteria/internal/argreader"
	"asteria/internal/value"
)

func call(t *testing.T, target func(value.GlobalContext, *value.Reference, *argreader.Reader) (value.Value, error), args ...value.Value) (value.Value, error) {
	t.Helper()
	var stack value.Stack
	for _, a := range args {
		stack.Push().SetTemporary(a)
	}
	r := argreader.New("std.system.test", &stack)
	var self value.Reference
	return target(nil, &self, r)
}

func TestLoadConfExtendedDialect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.conf")
	src := `{
  // line comment
  name: 'demo',
  /* block
     comment */
  port: 8`  + "`" + `080,
  flags: 0xFF,
  bits: 0b1010,
  ratio: 0.5,
}`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := call(t, bLoadConf, value.Str(path))
	if err != nil {
		t.Fatalf("load_conf: %v", err)
	}
	obj := v.MustObject()
	name, _ := obj.Get("name")
	if name.MustString() != "demo" {
		t.Errorf("name = %q, want \"demo\"", name.MustString())
	}
	port, _ := obj.Get("port")
	if !port.IsInteger() || port.MustInteger() != 8080 {
		t.Errorf("port = %v, want integer 8080 with the digit separator stripped", port)
	}
	flags, _ := obj.Get("flags")
	if flags.MustInteger() != 255 {
		t.Errorf("flags = %v, want 255", flags)
	}
	bits, _ := obj.Get("bits")
	if bits.MustInteger() != 10 {
		t.Errorf("bits = %v, want 10", bits)
	}
	ratio, _ := obj.Get("ratio")
	if !ratio.IsReal() || ratio.MustReal() != 0.5 {
		t.Errorf("ratio = %v, want real 0.5", ratio)
	}
}

func TestGetEnvironmentVariable(t *testing.T) {
	t.Setenv("ASTERIA_TEST_VAR", "42")
	v, err := call(t, bGetEnvironmentVariable, value.Str("ASTERIA_TEST_VAR"))
	if err != nil {
		t.Fatalf("get_environment_variable: %v", err)
	}
	if v.MustString() != "42" {
		t.Errorf("got %q, want \"42\"", v.MustString())
	}
	v, err = call(t, bGetEnvironmentVariable, value.Str("ASTERIA_TEST_VAR_MISSING"))
	if err != nil || !v.IsNull() {
		t.Errorf("a missing variable must read as null, got (%v, %v)", v, err)
	}
}

func TestGetPid(t *testing.T) {
	v, err := call(t, bGetPid)
	if err != nil {
		t.Fatalf("get_pid: %v", err)
	}
	if v.MustInteger() != int64(os.Getpid()) {
		t.Errorf("get_pid = %d, want %d", v.MustInteger(), os.Getpid())
	}
}

func TestSleepReturnsZeroResidual(t *testing.T) {
	v, err := call(t, bSleep, value.Int(1))
	if err != nil {
		t.Fatalf("sleep: %v", err)
	}
	if v.MustReal() != 0 {
		t.Errorf("residual = %v, want 0", v.MustReal())
	}
}
