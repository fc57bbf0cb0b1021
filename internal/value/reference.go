package value

import "fmt"

// Kind is the discriminant of a Reference: the place it denotes.
type Kind int

const (
	KUninitialized Kind = iota
	KVoid
	KTemporary
	KConstant
	KVariable
	KPTC
)

// Variable is a mutable cell a Variable-kind Reference points to. It is the
// unit the GC facade counts and promotes between generations.
type Variable struct {
	value     Value
	constant  bool
	gen       int
	reachable bool
}

func NewVariable(v Value) *Variable { return &Variable{value: v} }

func (c *Variable) Get() Value  { return c.value }
func (c *Variable) Set(v Value) { c.value = v }
func (c *Variable) IsConstant() bool { return c.constant }
func (c *Variable) SetConstant(k bool) { c.constant = k }

// Modifier is one step (array index or object key) in a Reference's
// modifier chain, applied on dereference.
type Modifier struct {
	isKey bool
	index int64
	key   string
}

func IndexModifier(i int64) Modifier  { return Modifier{isKey: false, index: i} }
func KeyModifier(k string) Modifier   { return Modifier{isKey: true, key: k} }

// AccessError reports dereference of an uninitialized/void reference, or
// indexing through a non-container.
type AccessError struct {
	Msg string
}

func (e *AccessError) Error() string { return e.Msg }

// Reference denotes a place, not a value.
type Reference struct {
	kind  Kind
	value Value
	cell  *Variable
	mods  []Modifier
}

func (r *Reference) Kind() Kind { return r.kind }

func (r *Reference) SetTemporary(v Value) {
	r.kind = KTemporary
	r.value = v
	r.cell = nil
	r.mods = nil
}

func (r *Reference) SetConstant(v Value) {
	r.kind = KConstant
	r.value = v
	r.cell = nil
	r.mods = nil
}

func (r *Reference) SetVariable(c *Variable) {
	r.kind = KVariable
	r.cell = c
	r.value = Value{}
	r.mods = nil
}

func (r *Reference) SetVoid() {
	r.kind = KVoid
	r.value = Value{}
	r.cell = nil
	r.mods = nil
}

func (r *Reference) Clear() {
	r.kind = KUninitialized
	r.value = Value{}
	r.cell = nil
	r.mods = nil
}

func (r *Reference) PushModifierIndex(i int64) { r.mods = append(r.mods, IndexModifier(i)) }
func (r *Reference) PushModifierKey(k string)  { r.mods = append(r.mods, KeyModifier(k)) }

func (r *Reference) PopModifier() {
	if len(r.mods) > 0 {
		r.mods = r.mods[:len(r.mods)-1]
	}
}

func (r *Reference) Modifiers() []Modifier { return r.mods }

// root returns the unmodified base value, following the reference kind but
// not the modifier chain.
func (r *Reference) root() (Value, error) {
	switch r.kind {
	case KUninitialized:
		return Value{}, &AccessError{"access to an uninitialized reference"}
	case KVoid:
		return Value{}, &AccessError{"access to a void reference"}
	case KTemporary, KConstant:
		return r.value, nil
	case KVariable:
		return r.cell.Get(), nil
	default:
		return Value{}, &AccessError{"access to a PTC reference"}
	}
}

// DereferenceReadonly walks the modifier chain and returns a Value. A
// missing array index or object key yields null, never an error.
func (r *Reference) DereferenceReadonly() (Value, error) {
	v, err := r.root()
	if err != nil {
		return Value{}, err
	}
	for _, m := range r.mods {
		if m.isKey {
			if !v.IsObject() {
				if v.IsNull() {
					return Null(), nil
				}
				return Value{}, &TypeMismatch{TObject, v.Type()}
			}
			got, ok := v.MustObject().Get(m.key)
			if !ok {
				return Null(), nil
			}
			v = got
		} else {
			if !v.IsArray() {
				if v.IsNull() {
					return Null(), nil
				}
				return Value{}, &TypeMismatch{TArray, v.Type()}
			}
			idx := normalizeIndex(m.index, v.MustArray().Len())
			if idx < 0 || idx >= v.MustArray().Len() {
				return Null(), nil
			}
			v = v.MustArray().At(idx)
		}
	}
	return v, nil
}

// DereferenceMutable walks the modifier chain, creating intermediate empty
// arrays/objects as needed, and returns a mutable slot.
func (r *Reference) DereferenceMutable() (*Value, error) {
	if r.kind == KConstant {
		return nil, &AccessError{"cannot modify a constant reference"}
	}
	var slot *Value
	switch r.kind {
	case KUninitialized:
		return nil, &AccessError{"access to an uninitialized reference"}
	case KVoid:
		return nil, &AccessError{"access to a void reference"}
	case KTemporary:
		slot = &r.value
	case KVariable:
		slot = r.cell.valuePtr()
	default:
		return nil, &AccessError{"access to a PTC reference"}
	}

	for _, m := range r.mods {
		if m.isKey {
			if slot.IsNull() {
				*slot = FromObject(NewObject())
			}
			if !slot.IsObject() {
				return nil, &TypeMismatch{TObject, slot.Type()}
			}
			slot = slot.MustObject().Slot(m.key)
		} else {
			if slot.IsNull() {
				*slot = FromArray(NewArray())
			}
			if !slot.IsArray() {
				return nil, &TypeMismatch{TArray, slot.Type()}
			}
			arr := slot.MustArray()
			idx := int(m.index)
			if m.index < 0 {
				idx = arr.Len() + int(m.index)
				if idx < 0 {
					return nil, &AccessError{fmt.Sprintf("negative array index %d out of range", m.index)}
				}
			}
			slot = arr.Slot(idx)
		}
	}
	return slot, nil
}

// Unset removes the terminal element (array erase / object erase) and
// returns the old value, or null if absent.
func (r *Reference) Unset() (Value, error) {
	if len(r.mods) == 0 {
		return Value{}, &AccessError{"cannot unset a reference with no modifier"}
	}
	parentRef := *r
	parentRef.mods = r.mods[:len(r.mods)-1]
	parent, err := parentRef.DereferenceMutable()
	if err != nil {
		return Value{}, err
	}
	last := r.mods[len(r.mods)-1]
	if last.isKey {
		if !parent.IsObject() {
			return Null(), nil
		}
		v, _ := parent.MustObject().Delete(last.key)
		return v, nil
	}
	if !parent.IsArray() {
		return Null(), nil
	}
	arr := parent.MustArray()
	idx := normalizeIndex(last.index, arr.Len())
	if idx < 0 || idx >= arr.Len() {
		return Null(), nil
	}
	old := arr.At(idx)
	arr.Erase(idx, idx+1)
	return old, nil
}

func normalizeIndex(i int64, length int) int {
	if i >= 0 {
		return int(i)
	}
	return length + int(i)
}

func (c *Variable) valuePtr() *Value { return &c.value }
