package value

import "testing"

func TestDereferenceReadonlyMissingYieldsNull(t *testing.T) {
	obj := NewObject()
	obj.Set("a", Int(1))
	var ref Reference
	ref.SetTemporary(FromObject(obj))
	ref.PushModifierKey("missing")

	v, err := ref.DereferenceReadonly()
	if err != nil {
		t.Fatalf("missing key must not fail: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("missing key must dereference to null, got %v", v.Type())
	}

	ref.PopModifier()
	ref.PushModifierKey("a")
	v, err = ref.DereferenceReadonly()
	if err != nil || v.MustInteger() != 1 {
		t.Errorf("present key = (%v, %v), want 1", v, err)
	}
}

func TestDereferenceThroughNonContainerFails(t *testing.T) {
	var ref Reference
	ref.SetTemporary(Int(5))
	ref.PushModifierKey("k")
	if _, err := ref.DereferenceReadonly(); err == nil {
		t.Fatal("indexing through an integer must be a type mismatch")
	}
}

func TestUninitializedAndVoidFail(t *testing.T) {
	var ref Reference
	if _, err := ref.DereferenceReadonly(); err == nil {
		t.Fatal("an uninitialized reference must not dereference")
	}
	ref.SetVoid()
	if _, err := ref.DereferenceReadonly(); err == nil {
		t.Fatal("a void reference must not dereference")
	}
}

func TestDereferenceMutableAutoVivifies(t *testing.T) {
	cell := NewVariable(Null())
	var ref Reference
	ref.SetVariable(cell)
	ref.PushModifierKey("outer")
	ref.PushModifierIndex(1)

	slot, err := ref.DereferenceMutable()
	if err != nil {
		t.Fatalf("mutable dereference must create the path: %v", err)
	}
	*slot = Str("deep")

	got := cell.Get()
	if !got.IsObject() {
		t.Fatalf("the root must have become an object, got %v", got.Type())
	}
	outer, _ := got.MustObject().Get("outer")
	if !outer.IsArray() || outer.MustArray().Len() != 2 {
		t.Fatalf("outer must be a two-element array, got %v", outer)
	}
	if outer.MustArray().At(1).MustString() != "deep" {
		t.Error("the written slot must be reachable through the cell")
	}
}

func TestMutableDereferenceOfConstantFails(t *testing.T) {
	var ref Reference
	ref.SetConstant(Int(1))
	if _, err := ref.DereferenceMutable(); err == nil {
		t.Fatal("a constant reference must refuse mutable access")
	}
}

func TestUnsetRemovesTerminalElement(t *testing.T) {
	arr := NewArrayFrom([]Value{Int(10), Int(20), Int(30)})
	cell := NewVariable(FromArray(arr))
	var ref Reference
	ref.SetVariable(cell)
	ref.PushModifierIndex(1)

	old, err := ref.Unset()
	if err != nil {
		t.Fatalf("unset: %v", err)
	}
	if old.MustInteger() != 20 {
		t.Errorf("unset must return the removed element, got %v", old)
	}
	if arr.Len() != 2 || arr.At(1).MustInteger() != 30 {
		t.Errorf("element must be erased in place: %v", arr.Elements())
	}

	ref.PopModifier()
	ref.PushModifierIndex(99)
	old, err = ref.Unset()
	if err != nil || !old.IsNull() {
		t.Errorf("unsetting a missing index = (%v, %v), want null", old, err)
	}
}

func TestStackTopCountsFromNewestPush(t *testing.T) {
	var s Stack
	s.Push().SetTemporary(Int(1))
	s.Push().SetTemporary(Int(2))
	s.Push().SetTemporary(Int(3))

	if s.Size() != 3 {
		t.Fatalf("size = %d, want 3", s.Size())
	}
	top, _ := s.Top(0).DereferenceReadonly()
	if top.MustInteger() != 3 {
		t.Errorf("Top(0) = %v, want the newest push", top)
	}
	bottom, _ := s.Top(2).DereferenceReadonly()
	if bottom.MustInteger() != 1 {
		t.Errorf("Top(2) = %v, want the oldest push", bottom)
	}
	if s.Top(3) != nil {
		t.Error("out-of-range Top must return nil")
	}

	s.Pop()
	if s.Size() != 2 {
		t.Errorf("size after pop = %d, want 2", s.Size())
	}
	s.Clear()
	if s.Size() != 0 {
		t.Errorf("size after clear = %d, want 0", s.Size())
	}
}
