package filesystem

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
	r := argreader.New("std.filesystem.test", &stack)
	var self value.Reference
	return target(nil, &self, r)
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	payload := "hello\x00world"
	if _, err := call(t, bWrite, value.Str(path), value.Str(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := call(t, bRead, value.Str(path))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v.MustString() != payload {
		t.Errorf("read back %q, want %q", v.MustString(), payload)
	}
}

func TestWriteWithOffsetTruncatesFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if _, err := call(t, bWrite, value.Str(path), value.Str("0123456789")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := call(t, bWrite, value.Str(path), value.Int(4), value.Str("xy")); err != nil {
		t.Fatalf("offset write: %v", err)
	}
	v, err := call(t, bRead, value.Str(path))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v.MustString() != "0123xy" {
		t.Errorf("got %q, want truncation at offset then the new data", v.MustString())
	}
}

func TestReadOffsetAndLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abcdefgh"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := call(t, bRead, value.Str(path), value.Int(2), value.Int(3))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v.MustString() != "cde" {
		t.Errorf("read(path, 2, 3) = %q, want %q", v.MustString(), "cde")
	}
	if _, err := call(t, bRead, value.Str(path), value.Int(-1)); err == nil {
		t.Fatal("a negative offset must be rejected")
	}
}

func TestAppendExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	if _, err := call(t, bAppend, value.Str(path), value.Str("one"), value.Bool(true)); err != nil {
		t.Fatalf("exclusive append to a new file: %v", err)
	}
	if _, err := call(t, bAppend, value.Str(path), value.Str("two"), value.Bool(true)); err == nil {
		t.Fatal("exclusive append to an existing file must fail")
	}
	if _, err := call(t, bAppend, value.Str(path), value.Str("two")); err != nil {
		t.Fatalf("plain append: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "onetwo" {
		t.Errorf("appended content = %q, want %q", data, "onetwo")
	}
}

func TestCreateAndRemoveDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	v, err := call(t, bCreateDirectory, value.Str(dir))
	if err != nil || v.MustInteger() != 1 {
		t.Fatalf("create_directory new = (%v, %v), want 1", v, err)
	}
	v, err = call(t, bCreateDirectory, value.Str(dir))
	if err != nil || v.MustInteger() != 0 {
		t.Fatalf("create_directory existing = (%v, %v), want 0", v, err)
	}
	v, err = call(t, bRemoveDirectory, value.Str(dir))
	if err != nil || v.MustInteger() != 1 {
		t.Fatalf("remove_directory = (%v, %v), want 1", v, err)
	}
	v, err = call(t, bRemoveDirectory, value.Str(dir))
	if err != nil || v.MustInteger() != 0 {
		t.Fatalf("remove_directory of a missing path = (%v, %v), want 0", v, err)
	}
}

func TestRemoveRecursiveCountsEntries(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tree")
	for _, d := range []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{filepath.Join(root, "x"), filepath.Join(root, "a", "y"), filepath.Join(root, "a", "b", "z")} {
		if err := os.WriteFile(f, []byte("."), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	v, err := call(t, bRemoveRecursive, value.Str(root))
	if err != nil {
		t.Fatalf("remove_recursive: %v", err)
	}
	if v.MustInteger() != 6 {
		t.Errorf("removed %d entries, want 6 (3 dirs + 3 files)", v.MustInteger())
	}
	if _, err := os.Lstat(root); !os.IsNotExist(err) {
		t.Error("the tree must be gone afterwards")
	}
	v, err = call(t, bRemoveRecursive, value.Str(root))
	if err != nil || v.MustInteger() != 0 {
		t.Errorf("removing a missing tree = (%v, %v), want 0", v, err)
	}
}

func TestListAndGetProperties(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "f"), []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "d"), 0o755); err != nil {
		t.Fatal(err)
	}
	v, err := call(t, bList, value.Str(dir))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	obj := v.MustObject()
	fRec, ok := obj.Get("f")
	if !ok {
		t.Fatal("list must include the file entry")
	}
	isDir, _ := fRec.MustObject().Get("is_directory")
	if isDir.MustBoolean() {
		t.Error("a plain file must not be marked as a directory")
	}
	dRec, _ := obj.Get("d")
	isDir, _ = dRec.MustObject().Get("is_directory")
	if !isDir.MustBoolean() {
		t.Error("a directory entry must be marked as one")
	}

	props, err := call(t, bGetProperties, value.Str(filepath.Join(dir, "f")))
	if err != nil {
		t.Fatalf("get_properties: %v", err)
	}
	size, _ := props.MustObject().Get("size")
	if size.MustInteger() != 3 {
		t.Errorf("size = %d, want 3", size.MustInteger())
	}

	missing, err := call(t, bGetProperties, value.Str(filepath.Join(dir, "nope")))
	if err != nil || !missing.IsNull() {
		t.Errorf("get_properties of a missing path = (%v, %v), want null", missing, err)
	}
}

func TestStreamDeliversChunksWithOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abcdefgh"), 0o644); err != nil {
		t.Fatal(err)
	}
	var gotOffsets []int64
	var gotData string
	cb := callbackFunc(func(self *value.Reference, global value.GlobalContext, stack *value.Stack) error {
		off, _ := stack.Top(1).DereferenceReadonly()
		chunk, _ := stack.Top(0).DereferenceReadonly()
		gotOffsets = append(gotOffsets, off.MustInteger())
		gotData += chunk.MustString()
		self.SetVoid()
		return nil
	})
	v, err := call(t, bStream, value.Str(path), value.FromFunction(cb), value.Int(2))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if v.MustInteger() != 6 {
		t.Errorf("streamed %d bytes, want 6", v.MustInteger())
	}
	if gotData != "cdefgh" {
		t.Errorf("streamed data = %q, want %q", gotData, "cdefgh")
	}
	if len(gotOffsets) == 0 || gotOffsets[0] != 2 {
		t.Errorf("first chunk offset = %v, want 2", gotOffsets)
	}
}

// callbackFunc adapts a closure to value.Function for tests.
type callbackFunc func(*value.Reference, value.GlobalContext, *value.Stack) error

func (f callbackFunc) Describe() string { return "test callback" }
func (f callbackFunc) Invoke(self *value.Reference, global value.GlobalContext, stack *value.Stack) error {
	return f(self, global, stack)
}
